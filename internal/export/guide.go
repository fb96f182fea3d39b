package export

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"go-userguiding-export/internal/model"
)

// WriteAnalysisGuide 生成面向分析者的文本指引：列出本次产出的数据集、
// 行数与常见用法。指引面向最终用户，正文为英文。
func WriteAnalysisGuide(path string, bundle model.ExportBundle, now time.Time) error {
	var b strings.Builder
	b.WriteString("UserGuiding Analytics Export - Analysis Guide\n")
	b.WriteString("Generated: " + now.Format("2006-01-02 15:04:05") + "\n")
	b.WriteString("Run ID: " + bundle.Metadata.RunID + "\n\n")

	b.WriteString("DATASETS\n--------\n")
	names := make([]string, 0, len(bundle.Metadata.ExportSummary))
	for n := range bundle.Metadata.ExportSummary {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		fmt.Fprintf(&b, "- %s: %d records\n", n, bundle.Metadata.ExportSummary[n])
	}

	b.WriteString(`
HOW TO READ THE FILES
---------------------
- Each CSV opens directly in Excel / Google Sheets. Strings are quoted,
  numbers and booleans are bare, empty fields mean the value was absent.
- Survey columns follow the pattern Q<question_id>_score / _feedback /
  _choices. Unanswered questions produce no column value for that row.
- The JSON file contains every dataset plus the question mapping
  (question_id -> survey, question text, type, choice labels).

SUGGESTED ANALYSES
------------------
1. userSurveyMerged: filter has_survey_data=true and pivot Q*_score
   columns by user segment (device_type, browser, country).
2. userCompanyMerged: group by company_name to compare engagement
   counters across accounts.
3. allDataBySurvey: one row per response with user and company context;
   use the Q*_text companion columns for readable question labels.

NOTES
-----
- Rows come straight from the UserGuiding panel API; pagination gaps are
  logged during export and simply missing here, not zero-filled.
- If anonymization was enabled, emails are synthetic (user_<id>@example.com),
  free-text feedback is redacted and company ids are stable pseudonyms.
`)

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write guide %s: %w", path, err)
	}
	return nil
}
