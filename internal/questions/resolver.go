// 包 questions 构建问题映射（问题 ID → 问卷/题面/题型/选项/统计）：
// - 先列问卷，再逐卷取详情里的问题定义
// - 可选：抽样回答补齐只出现在回答里的问题 ID；附加问卷统计摘要
// - 任一单卷失败只告警跳过，Resolve 永不报错，返回已积累的映射
package questions

import (
	"context"
	"strconv"
	"strings"

	"go-userguiding-export/internal/flatten"
	"go-userguiding-export/internal/logx"
	"go-userguiding-export/internal/model"
	"go-userguiding-export/internal/ugapi"
)

// Resolver 为问题映射构建器。
type Resolver struct {
	api             *ugapi.Client
	pageSize        int
	surveyIDs       []int64
	sampleResponses bool
	withAnalytics   bool
}

// Options 为 Resolver 构造参数。SurveyIDs 为空表示全部问卷。
type Options struct {
	PageSize        int
	SurveyIDs       []int64
	SampleResponses bool
	WithAnalytics   bool
}

func New(api *ugapi.Client, opts Options) *Resolver {
	if opts.PageSize <= 0 {
		opts.PageSize = 100
	}
	return &Resolver{
		api:             api,
		pageSize:        opts.PageSize,
		surveyIDs:       opts.SurveyIDs,
		sampleResponses: opts.SampleResponses,
		withAnalytics:   opts.WithAnalytics,
	}
}

// Resolve 构建问题映射。整体失败时返回空映射而非错误。
func (r *Resolver) Resolve(ctx context.Context) model.QuestionMapping {
	qm := model.QuestionMapping{}
	surveys, err := r.api.ListSurveys(ctx)
	if err != nil {
		logx.Warnf("问卷列表获取失败，问题映射为空：%v", err)
		return qm
	}
	for _, s := range surveys {
		if !r.wanted(s.ID) {
			continue
		}
		r.resolveSurvey(ctx, s, qm)
	}
	logx.Infof("问题映射构建完成：%d 个问题", len(qm))
	return qm
}

// Surveys 返回过滤后的问卷列表，供流水线决定抓取哪些卷的回答。
func (r *Resolver) Surveys(ctx context.Context) ([]ugapi.Survey, error) {
	surveys, err := r.api.ListSurveys(ctx)
	if err != nil {
		return nil, err
	}
	out := surveys[:0]
	for _, s := range surveys {
		if r.wanted(s.ID) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *Resolver) wanted(id int64) bool {
	if len(r.surveyIDs) == 0 {
		return true
	}
	for _, want := range r.surveyIDs {
		if want == id {
			return true
		}
	}
	return false
}

// resolveSurvey 处理单卷：详情问题 → 抽样回答补齐 → 统计附加。
func (r *Resolver) resolveSurvey(ctx context.Context, s ugapi.Survey, qm model.QuestionMapping) {
	name := s.Name
	questions := s.Questions
	if detail, err := r.api.GetSurvey(ctx, s.ID); err == nil {
		if detail.Name != "" {
			name = detail.Name
		}
		if len(detail.Questions) > 0 {
			questions = detail.Questions
		}
	} else {
		// 列表里内嵌的问题定义（若有）作为退路
		logx.Warnf("问卷 %d 详情获取失败，使用列表内嵌定义：%v", s.ID, err)
	}
	for _, q := range questions {
		key := strconv.FormatInt(q.ID, 10)
		qm[key] = model.QuestionInfo{
			SurveyID:     s.ID,
			SurveyName:   name,
			QuestionText: q.Text,
			QuestionType: q.Type,
			Choices:      strings.Join(q.ChoiceLabels(), ";"),
		}
	}
	if r.sampleResponses {
		r.sampleSurvey(ctx, s.ID, name, qm)
	}
	if r.withAnalytics {
		r.attachAnalytics(ctx, s.ID, qm)
	}
}

// sampleSurvey 翻阅该卷回答首页，补齐只在回答里出现的问题 ID；已知条目不覆盖。
func (r *Resolver) sampleSurvey(ctx context.Context, surveyID int64, name string, qm model.QuestionMapping) {
	recs, err := r.api.FetchSurveyResponses(ctx, surveyID, "", "", r.pageSize, r.pageSize)
	if err != nil {
		logx.Warnf("问卷 %d 回答抽样失败，跳过：%v", surveyID, err)
		return
	}
	for _, rec := range recs {
		answers, _ := rec["answers"].([]any)
		for _, a := range answers {
			am, ok := a.(map[string]any)
			if !ok {
				continue
			}
			key := flatten.QuestionKey(am["question_id"])
			if key == "" {
				continue
			}
			if _, known := qm[key]; known {
				continue
			}
			qm[key] = model.QuestionInfo{
				SurveyID:     surveyID,
				SurveyName:   name,
				QuestionType: "unknown",
			}
		}
	}
}

// attachAnalytics 把统计摘要里 question_<id> 的值挂到对应条目上。
func (r *Resolver) attachAnalytics(ctx context.Context, surveyID int64, qm model.QuestionMapping) {
	summary, err := r.api.GetSurveyAnalytics(ctx, surveyID)
	if err != nil {
		logx.Warnf("问卷 %d 统计获取失败，跳过：%v", surveyID, err)
		return
	}
	for k, v := range summary {
		key, found := strings.CutPrefix(k, "question_")
		if !found {
			continue
		}
		if info, ok := qm[key]; ok {
			info.Analytics = v
			qm[key] = info
		}
	}
}
