// 包 model 定义导出流水线的数据模型（原始记录/扁平记录/表/问题映射/导出束）。
package model

import "time"

// RawRecord 为厂商 API 返回的一条原始记录：字段名到任意嵌套值的映射。
// 由 Pager 持有，扁平化后即失效。
type RawRecord map[string]any

// FlatRecord 为扁平化后的单层记录。
// 约定：值只能是 string/float64/int/bool/nil，不得出现数组或对象。
type FlatRecord map[string]any

// Table 为有序的行集合。列集合是所有行键的并集，不要求每行键一致
// （问卷答案按题目稀疏展开，行间键集合天然不同）。
type Table []FlatRecord

// QuestionInfo 为单个问题的描述元数据。
type QuestionInfo struct {
	SurveyID     int64  `json:"survey_id"`
	SurveyName   string `json:"survey_name"`
	QuestionText string `json:"question_text"`
	QuestionType string `json:"question_type"`
	Choices      string `json:"choices,omitempty"`
	Analytics    any    `json:"analytics,omitempty"`
}

// QuestionMapping 以问题 ID（十进制字符串）索引 QuestionInfo。
// 每次导出构建一次，之后只读。
type QuestionMapping map[string]QuestionInfo

// Metadata 为导出束的元信息。
type Metadata struct {
	Version       string         `json:"version"`
	RunID         string         `json:"run_id"`
	Options       any            `json:"options"`
	ExportSummary map[string]int `json:"exportSummary"`
}

// ExportBundle 为 JSON 导出工件的顶层结构。
// Data 的键为数据集名：users/surveys/companies/userSurveyMerged/
// userCompanyMerged/allDataBySurvey/questionMapping。
type ExportBundle struct {
	ExportDate string         `json:"exportDate"`
	Metadata   Metadata       `json:"metadata"`
	Data       map[string]any `json:"data"`
}

// Result 为一次导出调用的结构化结果。
type Result struct {
	Status   string         `json:"status"` // success|error
	Message  string         `json:"message"`
	Files    []string       `json:"files,omitempty"`
	Counts   map[string]int `json:"counts,omitempty"`
	Duration time.Duration  `json:"-"`
}

// Clone 返回行的浅拷贝，匿名化等写时复制场景使用。
func (r FlatRecord) Clone() FlatRecord {
	out := make(FlatRecord, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
