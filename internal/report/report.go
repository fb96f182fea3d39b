// 包 report 生成自包含的 HTML 分析报告，供浏览器打印成 PDF：
// - 数据集概览、设备/浏览器/系统分布、问卷回答量、头部公司、交叉表
// - 阈值规则生成的要点列表
// - 纯 CSS 可视化（conic-gradient 饼图、flex 条形图），不引入图表库
package report

import (
	"fmt"
	"html/template"
	"sort"
	"strings"
	"time"

	"go-userguiding-export/internal/flatten"
	"go-userguiding-export/internal/model"
)

// Entry 为一个统计条目（名称/计数/占比/条高）。
type Entry struct {
	Name  string
	Count int
	Pct   float64
	Bar   template.CSS // height: N%
}

// Data 为模板渲染输入。
type Data struct {
	GeneratedAt  string
	RunID        string
	Counts       []Entry
	DeviceHist   []Entry
	BrowserHist  []Entry
	OSHist       []Entry
	SurveyCounts []Entry
	TopChoices   []Entry
	TopCompanies []Entry
	DeviceCross  []Entry
	Insights     []string
	DevicePie    template.CSS // conic-gradient(...)
}

var pieColors = []string{"#4e79a7", "#f28e2b", "#e15759", "#76b7b2", "#59a14f", "#edc948"}

// Build 汇总三张表并渲染报告 HTML。
func Build(users, surveys, companies model.Table, counts map[string]int, runID string, now time.Time) (string, error) {
	d := Data{
		GeneratedAt: now.Format("2006-01-02 15:04"),
		RunID:       runID,
	}
	names := make([]string, 0, len(counts))
	for n := range counts {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		d.Counts = append(d.Counts, Entry{Name: n, Count: counts[n]})
	}

	d.DeviceHist = histogram(users, "device_type", 6)
	d.BrowserHist = histogram(users, "browser", 6)
	d.OSHist = histogram(users, "os", 6)
	d.SurveyCounts = histogram(surveys, "survey_name", 10)
	d.TopChoices = choiceHistogram(surveys, 10)
	d.TopCompanies = companyTop(users, companies, 10)
	d.DeviceCross = deviceCross(users, surveys, 6)
	d.DevicePie = pieGradient(d.DeviceHist)
	d.Insights = insights(d, len(users), len(surveys))

	var b strings.Builder
	if err := tmpl.Execute(&b, d); err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}
	return b.String(), nil
}

// histogram 统计某列取值分布，按计数倒序取前 topN，附占比与条高。
func histogram(t model.Table, col string, topN int) []Entry {
	cnt := map[string]int{}
	total := 0
	for _, row := range t {
		v, ok := row[col]
		if !ok || v == nil {
			continue
		}
		s := flatten.Stringify(v)
		if s == "" {
			continue
		}
		cnt[s]++
		total++
	}
	return topEntries(cnt, total, topN)
}

// choiceHistogram 汇总全部 Q*_choices 列的选项分布。
func choiceHistogram(surveys model.Table, topN int) []Entry {
	cnt := map[string]int{}
	total := 0
	for _, row := range surveys {
		for k, v := range row {
			if !strings.HasPrefix(k, "Q") || !strings.HasSuffix(k, "_choices") {
				continue
			}
			s, ok := v.(string)
			if !ok || s == "" {
				continue
			}
			for _, c := range strings.Split(s, ";") {
				if c == "" {
					continue
				}
				cnt[c]++
				total++
			}
		}
	}
	return topEntries(cnt, total, topN)
}

// companyTop 按用户数排出头部公司。
func companyTop(users, companies model.Table, topN int) []Entry {
	nameByID := map[string]string{}
	for _, c := range companies {
		id := flatten.Stringify(c["id"])
		if id == "" {
			id = flatten.Stringify(c["company_id"])
		}
		if id == "" {
			continue
		}
		if n, ok := c["name"].(string); ok && n != "" {
			nameByID[id] = n
		} else {
			nameByID[id] = "company " + id
		}
	}
	cnt := map[string]int{}
	total := 0
	for _, u := range users {
		id := flatten.Stringify(u["company_id"])
		if id == "" {
			continue
		}
		name := nameByID[id]
		if name == "" {
			name = "company " + id
		}
		cnt[name]++
		total++
	}
	return topEntries(cnt, total, topN)
}

// deviceCross 统计设备类型对问卷回答量的交叉分布。
func deviceCross(users, surveys model.Table, topN int) []Entry {
	deviceByUser := map[string]string{}
	for _, u := range users {
		uid := flatten.Stringify(u["user_id"])
		if uid == "" {
			continue
		}
		if d, ok := u["device_type"].(string); ok && d != "" {
			deviceByUser[uid] = d
		}
	}
	cnt := map[string]int{}
	total := 0
	for _, s := range surveys {
		d := deviceByUser[flatten.Stringify(s["user_id"])]
		if d == "" {
			d = "unknown"
		}
		cnt[d]++
		total++
	}
	return topEntries(cnt, total, topN)
}

func topEntries(cnt map[string]int, total, topN int) []Entry {
	out := make([]Entry, 0, len(cnt))
	for k, v := range cnt {
		out = append(out, Entry{Name: k, Count: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > topN {
		out = out[:topN]
	}
	maxCount := 0
	for _, e := range out {
		if e.Count > maxCount {
			maxCount = e.Count
		}
	}
	for i := range out {
		if total > 0 {
			out[i].Pct = float64(out[i].Count) * 100 / float64(total)
		}
		h := 0
		if maxCount > 0 {
			h = out[i].Count * 100 / maxCount
		}
		out[i].Bar = template.CSS(fmt.Sprintf("height:%d%%", h))
	}
	return out
}

// pieGradient 把分布转成 conic-gradient 的分段描述。
func pieGradient(hist []Entry) template.CSS {
	if len(hist) == 0 {
		return "background:#eee"
	}
	stops := []string{}
	acc := 0.0
	for i, e := range hist {
		color := pieColors[i%len(pieColors)]
		from := acc
		acc += e.Pct * 3.6
		stops = append(stops, fmt.Sprintf("%s %.1fdeg %.1fdeg", color, from, acc))
	}
	return template.CSS("background:conic-gradient(" + strings.Join(stops, ", ") + ")")
}

// insights 由简单阈值规则生成要点文案。
func insights(d Data, userCount, responseCount int) []string {
	out := []string{}
	for _, e := range d.DeviceHist {
		if strings.EqualFold(e.Name, "mobile") && e.Pct > 30 {
			out = append(out, fmt.Sprintf("Mobile users make up %.0f%% of the base - prioritize mobile-first onboarding and ad platforms.", e.Pct))
		}
	}
	if len(d.BrowserHist) > 0 && d.BrowserHist[0].Pct > 60 {
		out = append(out, fmt.Sprintf("%s dominates at %.0f%% of sessions - test new flows there first.", d.BrowserHist[0].Name, d.BrowserHist[0].Pct))
	}
	if userCount > 0 && responseCount > 0 {
		rate := float64(responseCount) / float64(userCount)
		if rate < 0.1 {
			out = append(out, fmt.Sprintf("Survey reach is low (%.1f responses per 100 users) - consider in-app survey prompts.", rate*100))
		}
	}
	if len(d.TopCompanies) > 0 && d.TopCompanies[0].Pct > 25 {
		out = append(out, fmt.Sprintf("%s accounts for %.0f%% of active users - churn there would be outsized.", d.TopCompanies[0].Name, d.TopCompanies[0].Pct))
	}
	if len(out) == 0 {
		out = append(out, "No threshold-based findings for this export window.")
	}
	return out
}
