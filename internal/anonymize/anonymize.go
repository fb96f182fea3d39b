// 包 anonymize 对扁平表做脱敏，原表不动（写时复制）：
// - 用户：company_id 假名化、email 合成、身份字段置哨兵串
// - 问卷：自由文本反馈置哨兵串，评分与选项保留
// - 公司：名称改写为 Company <id>，联系字段置哨兵串
// 哈希是 31 乘法滚动哈希，作用是稳定假名与去重，不是安全控制，碰撞可接受。
package anonymize

import (
	"strconv"
	"strings"
	"unicode/utf16"

	"go-userguiding-export/internal/flatten"
	"go-userguiding-export/internal/model"
	"go-userguiding-export/internal/rules"
)

// HashString 对字符串的 UTF-16 码元做 32 位滚动哈希（h = h*31 + 码元），
// 取绝对值后输出小写十六进制并截断到 8 位；空串返回 "0"。
func HashString(s string) string {
	if s == "" {
		return "0"
	}
	var h int32
	for _, cu := range utf16.Encode([]rune(s)) {
		h = h*31 + int32(cu)
	}
	v := int64(h)
	if v < 0 {
		v = -v
	}
	hex := strconv.FormatInt(v, 16)
	if len(hex) > 8 {
		hex = hex[:8]
	}
	return hex
}

// Users 脱敏用户表。email 由 user_id 合成，重复脱敏得到相同地址。
func Users(t model.Table, r rules.Redact) model.Table {
	out := make(model.Table, 0, len(t))
	for _, row := range t {
		cp := row.Clone()
		if v, ok := cp["company_id"]; ok && v != nil {
			cp["company_id"] = "company_" + HashString(flatten.Stringify(v))
		}
		if _, ok := cp["email"]; ok {
			cp["email"] = "user_" + flatten.Stringify(cp["user_id"]) + "@example.com"
		}
		redactFields(cp, r.UserFields, r.Sentinel)
		out = append(out, cp)
	}
	return out
}

// Surveys 脱敏回答表：列名含 _feedback 的一律置哨兵串。
func Surveys(t model.Table, r rules.Redact) model.Table {
	out := make(model.Table, 0, len(t))
	for _, row := range t {
		cp := row.Clone()
		for k := range cp {
			if strings.Contains(k, "_feedback") {
				cp[k] = r.Sentinel
			}
		}
		out = append(out, cp)
	}
	return out
}

// Companies 脱敏公司表。
func Companies(t model.Table, r rules.Redact) model.Table {
	out := make(model.Table, 0, len(t))
	for _, row := range t {
		cp := row.Clone()
		if _, ok := cp["name"]; ok {
			id := cp["id"]
			if id == nil {
				id = cp["company_id"]
			}
			cp["name"] = "Company " + flatten.Stringify(id)
		}
		redactFields(cp, r.CompanyFields, r.Sentinel)
		out = append(out, cp)
	}
	return out
}

// redactFields 将存在且非空的字段置为哨兵串。
func redactFields(row model.FlatRecord, fields []string, sentinel string) {
	for _, f := range fields {
		if v, ok := row[f]; ok && v != nil && v != "" {
			row[f] = sentinel
		}
	}
}
