package ugapi

import (
	"context"
	"fmt"
	"sync"

	"go-userguiding-export/internal/logx"
	"go-userguiding-export/internal/model"
)

// RowLimitMax 为 limit_rows 开关生效时单数据集的记录上限。
const RowLimitMax = 1000

// FetchPaged 按页抓取一个端点的全部记录：
// - 第 0 页既是总数探测也是首页数据；探测失败则整体失败
// - 其余页并发抓取（有界并发），拼接保持页序
// - 单页失败仅告警并跳过该页，不重试
// - rowLimit > 0 时裁剪结果并压缩请求页数
func (c *Client) FetchPaged(ctx context.Context, ep Endpoint, base PageRequest, pageSize, rowLimit int) ([]model.RawRecord, error) {
	if pageSize <= 0 {
		pageSize = 100
	}
	body := base
	body.Page = 0
	body.PageSize = pageSize
	var env map[string]any
	if err := c.cl.PostJSON(ctx, c.url(ep.Path), c.header(), body, &env); err != nil {
		return nil, fmt.Errorf("probe %s: %w", ep.Path, err)
	}
	first := recordsOf(env, ep.RecordsField)
	total := countOf(env, ep.CountField, len(first))
	logx.Debugf("%s 总数=%d 首页=%d", ep.Path, total, len(first))

	if total <= pageSize {
		return truncate(first, rowLimit), nil
	}
	totalPages := (total + pageSize - 1) / pageSize
	if rowLimit > 0 {
		if maxPages := (rowLimit + pageSize - 1) / pageSize; totalPages > maxPages {
			totalPages = maxPages
		}
	}

	pages := make([][]model.RawRecord, totalPages)
	pages[0] = first
	sem := make(chan struct{}, c.pageConc)
	var wg sync.WaitGroup
	for p := 1; p < totalPages; p++ {
		p := p
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			req := base
			req.Page = p
			req.PageSize = pageSize
			var pe map[string]any
			if err := c.cl.PostJSON(ctx, c.url(ep.Path), c.header(), req, &pe); err != nil {
				logx.Warnf("%s 第 %d 页抓取失败，跳过：%v", ep.Path, p, err)
				return
			}
			pages[p] = recordsOf(pe, ep.RecordsField)
		}()
	}
	wg.Wait()

	out := make([]model.RawRecord, 0, total)
	for _, pg := range pages {
		out = append(out, pg...)
	}
	return truncate(out, rowLimit), nil
}

// FetchUsers / FetchCompanies / FetchSurveyResponses 为三个翻页端点的便捷入口。
func (c *Client) FetchUsers(ctx context.Context, lastSeenDays, pageSize, rowLimit int) ([]model.RawRecord, error) {
	return c.FetchPaged(ctx, EndpointUsers, UsersRequest(lastSeenDays), pageSize, rowLimit)
}

func (c *Client) FetchCompanies(ctx context.Context, pageSize, rowLimit int) ([]model.RawRecord, error) {
	return c.FetchPaged(ctx, EndpointCompanies, PageRequest{FilterOperator: "AND"}, pageSize, rowLimit)
}

func (c *Client) FetchSurveyResponses(ctx context.Context, surveyID int64, startDate, endDate string, pageSize, rowLimit int) ([]model.RawRecord, error) {
	return c.FetchPaged(ctx, EndpointSurveyResponses, ResponsesRequest(surveyID, startDate, endDate), pageSize, rowLimit)
}

func truncate(in []model.RawRecord, limit int) []model.RawRecord {
	if limit > 0 && len(in) > limit {
		return in[:limit]
	}
	return in
}
