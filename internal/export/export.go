// 包 export 负责把流水线结果落成工件：
// - CSV（厂商面板一致的引号规则）
// - JSON 导出束（2 空格缩进）
// - 分析指引文本与 SQLite 数据库文件
// 文件名统一为 UserGuiding_<数据集>_<ISO 日期>.<后缀>。
package export

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"go-userguiding-export/internal/model"
)

// Columns 返回表的列并集，按首次出现顺序。
// 行间键集合不一致（问卷答案稀疏展开），只取首行会丢列。
func Columns(t model.Table) []string {
	seen := map[string]bool{}
	cols := []string{}
	for _, row := range t {
		// 行内键先排好序再并入，保证同一行新列的相对顺序稳定
		keys := make([]string, 0, len(row))
		for k := range row {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if !seen[k] {
				seen[k] = true
				cols = append(cols, k)
			}
		}
	}
	return cols
}

// CSVString 渲染整表为 CSV 文本。exclude 里的列不输出。
// 规则：字符串恒加双引号（内部引号翻倍），数字/布尔裸写，空值为空字段。
func CSVString(t model.Table, exclude []string) string {
	cols := Columns(t)
	if len(exclude) > 0 {
		kept := cols[:0]
		for _, c := range cols {
			if !contains(exclude, c) {
				kept = append(kept, c)
			}
		}
		cols = kept
	}
	var b strings.Builder
	b.WriteString(strings.Join(cols, ","))
	for _, row := range t {
		b.WriteByte('\n')
		for i, c := range cols {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(csvField(row[c]))
		}
	}
	return b.String()
}

// WriteCSV 将表写入文件。
func WriteCSV(path string, t model.Table, exclude []string) error {
	if err := os.WriteFile(path, []byte(CSVString(t, exclude)), 0o644); err != nil {
		return fmt.Errorf("write csv %s: %w", path, err)
	}
	return nil
}

// WriteBundle 将导出束写为带缩进的 JSON 文件。
func WriteBundle(path string, bundle model.ExportBundle) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(bundle); err != nil {
		return fmt.Errorf("encode json to %s: %w", path, err)
	}
	return nil
}

// csvField 按厂商面板的导出习惯渲染单元格。
// 扁平化不变量保证这里见不到数组/对象；万一出现按空值处理。
func csvField(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return `"` + strings.ReplaceAll(x, `"`, `""`) + `"`
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
		return ""
	}
}

// Stamp 返回工件名里用的 ISO 日期。
func Stamp(t time.Time) string { return t.Format("2006-01-02") }

// CSVName 等函数统一工件命名。
func CSVName(dataset string, t time.Time) string {
	return "UserGuiding_" + dataset + "_" + Stamp(t) + ".csv"
}

func JSONName(t time.Time) string {
	return "UserGuiding_Complete_Export_" + Stamp(t) + ".json"
}

func GuideName(t time.Time) string {
	return "UserGuiding_Analysis_Guide_" + Stamp(t) + ".txt"
}

func ReportName(t time.Time) string {
	return "UserGuiding_Analytics_Report_" + Stamp(t) + ".html"
}

func SQLiteName(t time.Time) string {
	return "UserGuiding_Export_" + Stamp(t) + ".db"
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}
