// 包 ugapi 封装 UserGuiding 面板接口：
// - 统一携带 ug-api-token 请求头
// - 用户/公司/问卷回答为 POST 翻页端点，问卷列表/详情/统计为 GET
// - 响应体视为外部契约：字段缺失/改名一律宽容处理，不在此层报错
package ugapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"go-userguiding-export/internal/fetch"
	"go-userguiding-export/internal/model"
)

// Client 为面板接口客户端。
type Client struct {
	cl       *fetch.Client
	base     string
	token    string
	pageConc int
}

// New 创建客户端。pageConcurrency 控制同一端点翻页的并发上限。
func New(cl *fetch.Client, baseURL, token string, pageConcurrency int) *Client {
	if pageConcurrency <= 0 {
		pageConcurrency = 4
	}
	return &Client{
		cl:       cl,
		base:     strings.TrimRight(baseURL, "/"),
		token:    token,
		pageConc: pageConcurrency,
	}
}

func (c *Client) header() http.Header {
	h := http.Header{}
	h.Set("ug-api-token", c.token)
	return h
}

func (c *Client) url(path string) string {
	return c.base + "/" + strings.TrimLeft(path, "/")
}

// Endpoint 描述一个翻页端点：记录数组字段与总数字段因端点而异。
type Endpoint struct {
	Path         string
	RecordsField string
	CountField   string
}

var (
	EndpointUsers           = Endpoint{Path: "panel/users", RecordsField: "users", CountField: "filtered_users_count"}
	EndpointCompanies       = Endpoint{Path: "panel/companies", RecordsField: "companies", CountField: "filtered_companies_count"}
	EndpointSurveyResponses = Endpoint{Path: "panel/survey-responses", RecordsField: "responses", CountField: "count"}
)

// PageRequest 为翻页端点的请求体。问卷回答端点额外携带 survey_id 与日期窗口。
type PageRequest struct {
	Page           int      `json:"page"`
	PageSize       int      `json:"page_size"`
	FilterOperator string   `json:"filter_operator,omitempty"`
	SortField      string   `json:"sort_field,omitempty"`
	SortOrder      string   `json:"sort_order,omitempty"`
	Filters        []Filter `json:"filters,omitempty"`
	SurveyID       int64    `json:"survey_id,omitempty"`
	StartDate      string   `json:"start_date,omitempty"`
	EndDate        string   `json:"end_date,omitempty"`
}

// Filter 与 FilterChild 对应面板的过滤树结构。
type Filter struct {
	FilterOperator string        `json:"filter_operator,omitempty"`
	Children       []FilterChild `json:"children,omitempty"`
}

type FilterChild struct {
	Custom   bool   `json:"custom"`
	Equation string `json:"equation"`
	Event    bool   `json:"event"`
	Format   string `json:"format"`
	Type     string `json:"type"`
	Value    any    `json:"value"`
}

// LastSeenFilter 构造“最近 N 天活跃”的用户过滤条件（面板默认查询同款）。
func LastSeenFilter(days int) Filter {
	return Filter{
		FilterOperator: "OR",
		Children: []FilterChild{{
			Equation: "5",
			Format:   "date",
			Type:     "last_seen",
			Value:    days,
		}},
	}
}

// UsersRequest 构造用户列表的基础请求体：按 last_seen 倒序，可选活跃窗口过滤。
func UsersRequest(lastSeenDays int) PageRequest {
	req := PageRequest{
		FilterOperator: "AND",
		SortField:      "last_seen",
		SortOrder:      "desc",
	}
	if lastSeenDays > 0 {
		req.Filters = []Filter{LastSeenFilter(lastSeenDays)}
	}
	return req
}

// ResponsesRequest 构造某问卷回答列表的基础请求体。
func ResponsesRequest(surveyID int64, startDate, endDate string) PageRequest {
	return PageRequest{SurveyID: surveyID, StartDate: startDate, EndDate: endDate}
}

// Survey 为问卷列表/详情里的问卷对象。
type Survey struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Questions []Question `json:"questions,omitempty"`
}

// Question 为问卷详情里的问题定义。Choices 的元素可能是字符串或对象，
// 统一经 ChoiceLabels 归一化。
type Question struct {
	ID      int64  `json:"id"`
	Text    string `json:"text"`
	Type    string `json:"type"`
	Choices []any  `json:"choices,omitempty"`
}

// ChoiceLabels 提取选项文案：字符串直接用，对象依次尝试 label/text/value。
func (q Question) ChoiceLabels() []string {
	out := make([]string, 0, len(q.Choices))
	for _, c := range q.Choices {
		switch v := c.(type) {
		case string:
			out = append(out, v)
		case map[string]any:
			for _, key := range []string{"label", "text", "value"} {
				if s, ok := v[key].(string); ok && s != "" {
					out = append(out, s)
					break
				}
			}
		}
	}
	return out
}

// ListSurveys 拉取全部问卷。兼容 {"surveys":[...]} 包裹与裸数组两种响应形态。
func (c *Client) ListSurveys(ctx context.Context) ([]Survey, error) {
	var raw json.RawMessage
	if err := c.cl.GetJSON(ctx, c.url("panel/surveys"), c.header(), &raw); err != nil {
		return nil, fmt.Errorf("list surveys: %w", err)
	}
	var wrapped struct {
		Surveys []Survey `json:"surveys"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.Surveys != nil {
		return wrapped.Surveys, nil
	}
	var bare []Survey
	if err := json.Unmarshal(raw, &bare); err == nil {
		return bare, nil
	}
	return nil, fmt.Errorf("list surveys: unrecognized response shape")
}

// GetSurvey 拉取单个问卷详情（含问题定义）。
func (c *Client) GetSurvey(ctx context.Context, id int64) (*Survey, error) {
	var s Survey
	if err := c.cl.GetJSON(ctx, c.url(fmt.Sprintf("panel/surveys/%d", id)), c.header(), &s); err != nil {
		return nil, fmt.Errorf("get survey %d: %w", id, err)
	}
	return &s, nil
}

// GetSurveyAnalytics 拉取问卷统计摘要。键形如 question_<id>，值为不透明 JSON。
func (c *Client) GetSurveyAnalytics(ctx context.Context, id int64) (map[string]any, error) {
	var out map[string]any
	if err := c.cl.GetJSON(ctx, c.url(fmt.Sprintf("panel/surveys/%d/analytics", id)), c.header(), &out); err != nil {
		return nil, fmt.Errorf("get survey analytics %d: %w", id, err)
	}
	return out, nil
}

// recordsOf 从响应中提取记录数组；字段缺失或类型不符时返回空。
func recordsOf(env map[string]any, field string) []model.RawRecord {
	arr, ok := env[field].([]any)
	if !ok {
		return nil
	}
	out := make([]model.RawRecord, 0, len(arr))
	for _, it := range arr {
		if m, ok := it.(map[string]any); ok {
			out = append(out, model.RawRecord(m))
		}
	}
	return out
}

// countOf 提取总数字段；缺失时退化为首页记录数（即单页语义）。
func countOf(env map[string]any, field string, fallback int) int {
	switch v := env[field].(type) {
	case float64:
		return int(v)
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n)
		}
	}
	return fallback
}
