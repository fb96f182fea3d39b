// 包 pipeline 负责主流程编排：
// - 问题映射解析 → 三类数据翻页抓取（相互独立的并发进行）
// - 扁平化 → 可选匿名化 → 可选合并 → 工件落盘
// - 过程中向调用方回报单调递增的进度
// 所有请求级状态（令牌/选项/累积结果）都在 Runner 一次 Run 的栈上，
// 不使用包级可变量，两次导出互不影响。
package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"go-userguiding-export/internal/anonymize"
	"go-userguiding-export/internal/config"
	"go-userguiding-export/internal/export"
	"go-userguiding-export/internal/flatten"
	"go-userguiding-export/internal/logx"
	"go-userguiding-export/internal/merge"
	"go-userguiding-export/internal/model"
	"go-userguiding-export/internal/preview"
	"go-userguiding-export/internal/questions"
	"go-userguiding-export/internal/report"
	"go-userguiding-export/internal/rules"
	"go-userguiding-export/internal/ugapi"
)

// Version 写进导出束 metadata，与工件格式一起演进。
const Version = "1.4.0"

// ProgressFunc 接收 0–100 的进度与一句话说明。
type ProgressFunc func(pct int, msg string)

// Runner 为一次导出的执行器。
type Runner struct {
	cfg      *config.Config
	rules    *rules.Rules
	api      *ugapi.Client
	progress ProgressFunc
	lastPct  int
	preview  io.Writer
	now      func() time.Time
}

// New 创建 Runner。rl 为 nil 时使用内置默认规则。
func New(cfg *config.Config, rl *rules.Rules, api *ugapi.Client) *Runner {
	if rl == nil {
		rl = rules.Default()
	}
	return &Runner{
		cfg:     cfg,
		rules:   rl,
		api:     api,
		preview: os.Stdout,
		now:     time.Now,
	}
}

// OnProgress 注册进度回调；回调里的 pct 保证不回退。
func (r *Runner) OnProgress(fn ProgressFunc) { r.progress = fn }

// PreviewTo 重定向预览输出（默认标准输出）。
func (r *Runner) PreviewTo(w io.Writer) { r.preview = w }

// report 回报进度，单调裁剪后转发给回调并打日志。
func (r *Runner) report(pct int, msg string) {
	if pct < r.lastPct {
		pct = r.lastPct
	}
	r.lastPct = pct
	logx.Infof("[%3d%%] %s", pct, msg)
	if r.progress != nil {
		r.progress(pct, msg)
	}
}

// Run 执行一次导出并返回结构化结果。致命错误（探测失败等）收敛为
// status=error；单页/单卷失败只影响完整度，不中断。
func (r *Runner) Run(ctx context.Context) model.Result {
	start := r.now()
	opts := r.cfg.Options
	rowLimit := 0
	if opts.LimitRows {
		rowLimit = ugapi.RowLimitMax
	}
	pageSize := r.cfg.API.PageSize

	r.report(2, "开始导出")

	// 问题映射：问卷本体或全量合并表需要时才构建
	var qm model.QuestionMapping
	var surveyList []ugapi.Survey
	resolver := questions.New(r.api, questions.Options{
		PageSize:        pageSize,
		SurveyIDs:       r.cfg.Surveys.IDs,
		SampleResponses: r.cfg.Surveys.SampleResponses,
		WithAnalytics:   r.cfg.Surveys.WithAnalytics,
	})
	if opts.IncludeSurveys || opts.MergeUserSurvey || opts.MergeAllBySurvey {
		r.report(8, "构建问题映射")
		qm = resolver.Resolve(ctx)
		list, err := resolver.Surveys(ctx)
		if err != nil {
			return r.fail(start, fmt.Errorf("list surveys: %w", err))
		}
		surveyList = list
	}

	// 用户与公司相互独立，并发抓取；问卷回答依赖问卷列表，串行在后
	var (
		wg           sync.WaitGroup
		rawUsers     []model.RawRecord
		rawCompanies []model.RawRecord
		usersErr     error
		companiesErr error
	)
	needUsers := opts.IncludeUsers || opts.MergeUserSurvey || opts.MergeUserCompany || opts.MergeAllBySurvey
	needCompanies := opts.IncludeCompanies || opts.MergeUserCompany || opts.MergeAllBySurvey
	if needUsers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rawUsers, usersErr = r.api.FetchUsers(ctx, r.cfg.Surveys.LastSeenDays, pageSize, rowLimit)
		}()
	}
	if needCompanies {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rawCompanies, companiesErr = r.api.FetchCompanies(ctx, pageSize, rowLimit)
		}()
	}
	r.report(15, "抓取用户与公司数据")
	wg.Wait()
	if usersErr != nil {
		return r.fail(start, fmt.Errorf("fetch users: %w", usersErr))
	}
	if companiesErr != nil {
		return r.fail(start, fmt.Errorf("fetch companies: %w", companiesErr))
	}

	users := flatten.FlattenAll(rawUsers)
	companies := flatten.FlattenAll(rawCompanies)
	logx.Infof("用户=%d 公司=%d", len(users), len(companies))

	// 问卷回答按卷抓取；单卷探测失败告警跳过，不拖垮整体
	var responses model.Table
	if opts.IncludeSurveys || opts.MergeUserSurvey || opts.MergeAllBySurvey {
		r.report(35, "抓取问卷回答")
		for _, s := range surveyList {
			recs, err := r.api.FetchSurveyResponses(ctx, s.ID,
				r.cfg.Surveys.StartDate, r.cfg.Surveys.EndDate, pageSize, rowLimit)
			if err != nil {
				logx.Warnf("问卷 %d(%s) 回答抓取失败，跳过：%v", s.ID, s.Name, err)
				continue
			}
			responses = append(responses, flatten.FlattenResponses(recs, s.Name)...)
		}
		logx.Infof("问卷回答=%d（%d 卷）", len(responses), len(surveyList))
	}

	// 匿名化在合并之前做，合并表继承假名
	if opts.AnonymizeData {
		r.report(55, "匿名化")
		users = anonymize.Users(users, r.rules.Redact)
		responses = anonymize.Surveys(responses, r.rules.Redact)
		companies = anonymize.Companies(companies, r.rules.Redact)
	}

	datasets := map[string]model.Table{}
	if opts.IncludeUsers {
		datasets["users"] = users
	}
	if opts.IncludeSurveys {
		datasets["surveys"] = responses
	}
	if opts.IncludeCompanies {
		datasets["companies"] = companies
	}
	r.report(65, "合并数据表")
	if opts.MergeUserSurvey {
		datasets["userSurveyMerged"] = merge.UserSurvey(users, responses)
	}
	if opts.MergeUserCompany {
		datasets["userCompanyMerged"] = merge.UserCompany(users, companies)
	}
	if opts.MergeAllBySurvey {
		datasets["allDataBySurvey"] = merge.AllBySurvey(users, companies, responses, qm, r.rules.MergeAll)
	}

	bundle := r.buildBundle(datasets, qm)
	files, err := r.writeArtifacts(ctx, datasets, bundle, users, responses, companies)
	if err != nil {
		return r.fail(start, err)
	}

	if opts.IncludePreview {
		for _, name := range datasetOrder {
			if t, ok := datasets[name]; ok {
				preview.Render(r.preview, name, t)
			}
		}
	}

	r.report(100, "导出完成")
	return model.Result{
		Status:   "success",
		Message:  fmt.Sprintf("导出完成：%d 个工件", len(files)),
		Files:    files,
		Counts:   bundle.Metadata.ExportSummary,
		Duration: r.now().Sub(start),
	}
}

// datasetOrder 固定数据集的展示与落盘顺序。
var datasetOrder = []string{
	"users", "surveys", "companies",
	"userSurveyMerged", "userCompanyMerged", "allDataBySurvey",
}

// csvDatasetNames 为 CSV 文件名里的数据集段。
var csvDatasetNames = map[string]string{
	"users":             "Users",
	"surveys":           "Surveys",
	"companies":         "Companies",
	"userSurveyMerged":  "User_Survey_Merged",
	"userCompanyMerged": "User_Company_Merged",
	"allDataBySurvey":   "All_Data_By_Survey",
}

// buildBundle 组装 JSON 导出束。
func (r *Runner) buildBundle(datasets map[string]model.Table, qm model.QuestionMapping) model.ExportBundle {
	summary := map[string]int{}
	data := map[string]any{}
	for _, name := range datasetOrder {
		if t, ok := datasets[name]; ok {
			summary[name] = len(t)
			data[name] = t
		}
	}
	if len(qm) > 0 {
		data["questionMapping"] = qm
		summary["questionMapping"] = len(qm)
	}
	return model.ExportBundle{
		ExportDate: r.now().Format(time.RFC3339),
		Metadata: model.Metadata{
			Version:       Version,
			RunID:         uuid.NewString(),
			Options:       r.cfg.Options,
			ExportSummary: summary,
		},
		Data: data,
	}
}

// writeArtifacts 按配置的格式落盘，返回产出文件列表。
func (r *Runner) writeArtifacts(ctx context.Context, datasets map[string]model.Table, bundle model.ExportBundle, users, responses, companies model.Table) ([]string, error) {
	outDir := r.cfg.Export.OutDir
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", outDir, err)
	}
	now := r.now()
	files := []string{}
	formats := map[string]bool{}
	for _, f := range r.cfg.Export.Formats {
		formats[f] = true
	}

	if formats["csv"] {
		r.report(75, "写出 CSV")
		for _, name := range datasetOrder {
			t, ok := datasets[name]
			if !ok || len(t) == 0 {
				continue
			}
			path := filepath.Join(outDir, export.CSVName(csvDatasetNames[name], now))
			if err := export.WriteCSV(path, t, r.rules.Exclude[name]); err != nil {
				return nil, err
			}
			files = append(files, path)
		}
	}
	if formats["json"] {
		r.report(82, "写出 JSON 导出束")
		path := filepath.Join(outDir, export.JSONName(now))
		if err := export.WriteBundle(path, bundle); err != nil {
			return nil, err
		}
		files = append(files, path)
	}
	if formats["sqlite"] {
		r.report(86, "写出 SQLite 工件")
		path := filepath.Join(outDir, export.SQLiteName(now))
		if err := export.WriteSQLite(ctx, path, datasets); err != nil {
			return nil, err
		}
		files = append(files, path)
	}
	if r.cfg.Options.IncludeGuide {
		path := filepath.Join(outDir, export.GuideName(now))
		if err := export.WriteAnalysisGuide(path, bundle, now); err != nil {
			return nil, err
		}
		files = append(files, path)
	}
	if r.cfg.Options.IncludePDFReport {
		r.report(92, "渲染 HTML 报告")
		html, err := report.Build(users, responses, companies, bundle.Metadata.ExportSummary, bundle.Metadata.RunID, now)
		if err != nil {
			return nil, err
		}
		path := filepath.Join(outDir, export.ReportName(now))
		if err := os.WriteFile(path, []byte(html), 0o644); err != nil {
			return nil, fmt.Errorf("write report %s: %w", path, err)
		}
		files = append(files, path)
	}
	return files, nil
}

// fail 收敛致命错误为结构化结果。
func (r *Runner) fail(start time.Time, err error) model.Result {
	logx.Errorf("导出失败：%v", err)
	return model.Result{
		Status:   "error",
		Message:  err.Error(),
		Duration: r.now().Sub(start),
	}
}
