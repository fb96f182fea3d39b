// 包 flatten 将原始记录压为单层记录：
// - 数组以分号拼接，嵌套对象序列化为 JSON 文本，原始类型透传
// - 问卷回答按答案展开为 Q<id>_score / Q<id>_feedback / Q<id>_choices，
//   未作答的题不产生键，行间键集合天然稀疏
package flatten

import (
	"encoding/json"
	"strconv"
	"strings"

	"go-userguiding-export/internal/model"
)

// Flatten 压平一条通用记录（用户/公司）。
func Flatten(rec model.RawRecord) model.FlatRecord {
	out := make(model.FlatRecord, len(rec))
	for k, v := range rec {
		out[k] = flattenValue(v)
	}
	return out
}

// FlattenAll 逐条压平，返回表。
func FlattenAll(recs []model.RawRecord) model.Table {
	out := make(model.Table, 0, len(recs))
	for _, r := range recs {
		out = append(out, Flatten(r))
	}
	return out
}

// FlattenResponse 按答案展开一条问卷回答。surveyName 为空时不写 survey_name 列。
func FlattenResponse(rec model.RawRecord, surveyName string) model.FlatRecord {
	out := model.FlatRecord{}
	if v, ok := firstOf(rec, "response_id", "id"); ok {
		out["response_id"] = flattenValue(v)
	}
	if v, ok := rec["survey_id"]; ok {
		out["survey_id"] = flattenValue(v)
	}
	if surveyName != "" {
		out["survey_name"] = surveyName
	} else if v, ok := rec["survey_name"]; ok {
		out["survey_name"] = flattenValue(v)
	}
	if v, ok := rec["user_id"]; ok {
		out["user_id"] = flattenValue(v)
	}
	if v, ok := firstOf(rec, "created", "created_at"); ok {
		out["created"] = flattenValue(v)
	}
	answers, _ := rec["answers"].([]any)
	for _, a := range answers {
		am, ok := a.(map[string]any)
		if !ok {
			continue
		}
		qid := QuestionKey(am["question_id"])
		if qid == "" {
			continue
		}
		if s, ok := am["score"].(float64); ok {
			out["Q"+qid+"_score"] = s
		}
		if fb, ok := am["feedback"].(string); ok && fb != "" {
			out["Q"+qid+"_feedback"] = fb
		}
		if cs, ok := am["choices"].([]any); ok && len(cs) > 0 {
			out["Q"+qid+"_choices"] = joinArray(cs)
		}
	}
	return out
}

// FlattenResponses 逐条展开问卷回答。
func FlattenResponses(recs []model.RawRecord, surveyName string) model.Table {
	out := make(model.Table, 0, len(recs))
	for _, r := range recs {
		out = append(out, FlattenResponse(r, surveyName))
	}
	return out
}

// QuestionKey 把问题 ID 归一化为十进制字符串，供 Q 前缀列与问题映射共用。
func QuestionKey(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case json.Number:
		return x.String()
	default:
		return ""
	}
}

// flattenValue 压平单个值：数组拼接、对象转 JSON、其余透传。
func flattenValue(v any) any {
	switch x := v.(type) {
	case []any:
		return joinArray(x)
	case map[string]any:
		b, err := json.Marshal(x)
		if err != nil {
			return ""
		}
		return string(b)
	default:
		return v
	}
}

// joinArray 以分号拼接数组元素；元素本身为复合值时转 JSON 文本。
func joinArray(arr []any) string {
	parts := make([]string, 0, len(arr))
	for _, it := range arr {
		parts = append(parts, Stringify(it))
	}
	return strings.Join(parts, ";")
}

// Stringify 把任意标量渲染为字符串；nil 为空串，复合值为 JSON 文本。
func Stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case json.Number:
		return x.String()
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

func firstOf(rec model.RawRecord, keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := rec[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}
