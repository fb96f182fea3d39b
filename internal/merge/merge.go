// 包 merge 实现三种合并表，全部是对已扁平化表的纯函数：
// - UserSurvey：用户 ⋈ 问卷回答（无回答的用户保留一行）
// - UserCompany：用户 ⋈ 公司
// - AllBySurvey：按问卷分组的用户+公司+回答全量表（字段白名单裁剪）
// 外键匹配经内存哈希索引完成，输出顺序跟随外表迭代顺序，不额外排序。
package merge

import (
	"strings"

	"go-userguiding-export/internal/flatten"
	"go-userguiding-export/internal/model"
	"go-userguiding-export/internal/rules"
)

// UserSurvey 对每个用户：有匹配回答则每条回答出一行（回答字段加 survey_ 前缀，
// user_id 不重复），无匹配则出单行 has_survey_data=false。
// 找不到用户的回答静默丢弃。
func UserSurvey(users, surveys model.Table) model.Table {
	byUser := map[string][]model.FlatRecord{}
	for _, s := range surveys {
		k := keyOf(s["user_id"])
		if k == "" {
			continue
		}
		byUser[k] = append(byUser[k], s)
	}
	out := model.Table{}
	for _, u := range users {
		matches := byUser[keyOf(u["user_id"])]
		if len(matches) == 0 {
			row := u.Clone()
			row["has_survey_data"] = false
			out = append(out, row)
			continue
		}
		for _, s := range matches {
			row := u.Clone()
			row["has_survey_data"] = true
			for sk, sv := range s {
				if sk == "user_id" {
					continue
				}
				row["survey_"+sk] = sv
			}
			out = append(out, row)
		}
	}
	return out
}

// UserCompany 对每个用户出一行：命中公司时展开公司字段（加 company_ 前缀，
// id/company_id 不重复），并写 has_company_data 布尔。
func UserCompany(users, companies model.Table) model.Table {
	byID := map[string]model.FlatRecord{}
	for _, c := range companies {
		k := keyOf(c["id"])
		if k == "" {
			k = keyOf(c["company_id"])
		}
		if k == "" {
			continue
		}
		byID[k] = c
	}
	out := model.Table{}
	for _, u := range users {
		row := u.Clone()
		c, ok := byID[keyOf(u["company_id"])]
		row["has_company_data"] = ok
		if ok {
			for ck, cv := range c {
				if ck == "id" || ck == "company_id" {
					continue
				}
				row["company_"+ck] = cv
			}
		}
		out = append(out, row)
	}
	return out
}

// AllBySurvey 按 survey_id 分组回答，为每条回答出一行白名单字段：
// 问卷与回答标识、用户画像字段、user_ 前缀活动计数、公司标识字段、
// 全部 Q* 答案列及问题映射提供的 Q<id>_text 题面伴随列。
// 找不到用户的回答整条跳过（设计内收窄，不算错误）。
func AllBySurvey(users, companies, surveys model.Table, qm model.QuestionMapping, ma rules.MergeAll) model.Table {
	usersByID := map[string]model.FlatRecord{}
	for _, u := range users {
		if k := keyOf(u["user_id"]); k != "" {
			usersByID[k] = u
		}
	}
	companiesByID := map[string]model.FlatRecord{}
	for _, c := range companies {
		k := keyOf(c["id"])
		if k == "" {
			k = keyOf(c["company_id"])
		}
		if k != "" {
			companiesByID[k] = c
		}
	}

	// 按 survey_id 分组，保持首次出现顺序
	groupOrder := []string{}
	groups := map[string][]model.FlatRecord{}
	for _, s := range surveys {
		sid := keyOf(s["survey_id"])
		if _, seen := groups[sid]; !seen {
			groupOrder = append(groupOrder, sid)
		}
		groups[sid] = append(groups[sid], s)
	}

	out := model.Table{}
	for _, sid := range groupOrder {
		for _, s := range groups[sid] {
			u, ok := usersByID[keyOf(s["user_id"])]
			if !ok {
				continue
			}
			row := model.FlatRecord{}
			copyIf(row, s, "survey_id")
			copyIf(row, s, "survey_name")
			copyIf(row, s, "response_id")
			copyIf(row, s, "created")
			for _, f := range ma.UserFields {
				copyIf(row, u, f)
			}
			for _, f := range ma.UserCounters {
				if v, ok := u[f]; ok {
					row["user_"+f] = v
				}
			}
			if c, ok := companiesByID[keyOf(u["company_id"])]; ok {
				if v, ok := c["id"]; ok {
					row["company_id"] = v
				} else if v, ok := c["company_id"]; ok {
					row["company_id"] = v
				}
				for _, f := range ma.CompanyFields {
					if v, ok := c[f]; ok {
						row["company_"+f] = v
					}
				}
			}
			for sk, sv := range s {
				if !strings.HasPrefix(sk, "Q") {
					continue
				}
				row[sk] = sv
				if qid := questionID(sk); qid != "" {
					if info, ok := qm[qid]; ok && info.QuestionText != "" {
						row["Q"+qid+"_text"] = info.QuestionText
					}
				}
			}
			out = append(out, row)
		}
	}
	return out
}

// questionID 从 Q<id>_suffix 形式的列名提取问题 ID。
func questionID(col string) string {
	rest := strings.TrimPrefix(col, "Q")
	i := strings.IndexByte(rest, '_')
	if i <= 0 {
		return ""
	}
	return rest[:i]
}

func copyIf(dst model.FlatRecord, src model.FlatRecord, key string) {
	if v, ok := src[key]; ok {
		dst[key] = v
	}
}

// keyOf 把外键值归一化为字符串；nil/空串视为无键。
func keyOf(v any) string {
	if v == nil {
		return ""
	}
	return flatten.Stringify(v)
}
