package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"go-userguiding-export/internal/config"
	"go-userguiding-export/internal/fetch"
	"go-userguiding-export/internal/model"
	"go-userguiding-export/internal/ugapi"
)

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// fakePanel 起一个覆盖全部端点的假面板。
func fakePanel(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/panel/users", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("ug-api-token") == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		writeJSON(w, map[string]any{
			"filtered_users_count": 2,
			"users": []any{
				map[string]any{"user_id": "u1", "email": "u1@x.io", "name": "Ada",
					"company_id": "c1", "device_type": "desktop", "browser": "Chrome", "web_session": 4},
				map[string]any{"user_id": "u2", "email": "u2@x.io", "name": "Ben",
					"company_id": "c1", "device_type": "mobile", "browser": "Safari", "web_session": 1},
			},
		})
	})
	mux.HandleFunc("/panel/companies", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"filtered_companies_count": 1,
			"companies": []any{
				map[string]any{"company_id": "c1", "name": "Acme", "size": "10", "user_count": 2},
			},
		})
	})
	mux.HandleFunc("/panel/surveys", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"surveys": []any{map[string]any{"id": 3, "name": "NPS"}}})
	})
	mux.HandleFunc("/panel/surveys/3", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"id": 3, "name": "NPS",
			"questions": []any{map[string]any{"id": 7, "text": "How likely are you to recommend us?", "type": "score"}},
		})
	})
	mux.HandleFunc("/panel/survey-responses", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"count": 2,
			"responses": []any{
				map[string]any{"response_id": "r1", "survey_id": 3, "user_id": "u1",
					"created": "2026-01-02", "answers": []any{map[string]any{"question_id": 7, "score": 9}}},
				map[string]any{"response_id": "r2", "survey_id": 3, "user_id": "u2",
					"answers": []any{map[string]any{"question_id": 7, "score": 6, "feedback": "slow onboarding"}}},
			},
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(t *testing.T, base string) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.API.BaseURL = base
	cfg.Export.OutDir = t.TempDir()
	cfg.Export.Formats = []string{"csv", "json", "sqlite"}
	cfg.Options = config.Options{
		IncludeUsers:     true,
		IncludeSurveys:   true,
		IncludeCompanies: true,
		MergeUserSurvey:  true,
		MergeUserCompany: true,
		MergeAllBySurvey: true,
		IncludeGuide:     true,
		IncludePreview:   true,
		IncludePDFReport: true,
	}
	return cfg
}

func newRunner(t *testing.T, cfg *config.Config) *Runner {
	t.Helper()
	cl, err := fetch.New(fetch.Options{Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("fetch.New: %v", err)
	}
	return New(cfg, nil, ugapi.New(cl, cfg.API.BaseURL, "tok", cfg.Concurrency.Fetch))
}

func TestRun_EndToEnd(t *testing.T) {
	srv := fakePanel(t)
	cfg := testConfig(t, srv.URL)
	r := newRunner(t, cfg)

	var pcts []int
	r.OnProgress(func(pct int, msg string) { pcts = append(pcts, pct) })
	var prev bytes.Buffer
	r.PreviewTo(&prev)

	res := r.Run(context.Background())
	if res.Status != "success" {
		t.Fatalf("status=%s message=%s", res.Status, res.Message)
	}

	want := map[string]int{
		"users": 2, "surveys": 2, "companies": 1,
		"userSurveyMerged": 2, "userCompanyMerged": 2, "allDataBySurvey": 2,
		"questionMapping": 1,
	}
	for k, n := range want {
		if res.Counts[k] != n {
			t.Errorf("counts[%s]=%d want %d", k, res.Counts[k], n)
		}
	}

	// 6 CSV + JSON + SQLite + 指南 + 报告
	if len(res.Files) != 10 {
		t.Fatalf("files=%d: %v", len(res.Files), res.Files)
	}
	for _, f := range res.Files {
		if _, err := os.Stat(f); err != nil {
			t.Errorf("artifact missing: %v", err)
		}
	}

	// JSON 导出束可回读，合并表带问题文本
	var jsonPath string
	for _, f := range res.Files {
		if strings.HasSuffix(f, ".json") {
			jsonPath = f
		}
	}
	b, err := os.ReadFile(jsonPath)
	if err != nil {
		t.Fatalf("read bundle: %v", err)
	}
	var bundle model.ExportBundle
	if err := json.Unmarshal(b, &bundle); err != nil {
		t.Fatalf("decode bundle: %v", err)
	}
	if bundle.Metadata.Version != Version || bundle.Metadata.RunID == "" {
		t.Fatalf("metadata: %+v", bundle.Metadata)
	}
	all, _ := bundle.Data["allDataBySurvey"].([]any)
	if len(all) != 2 {
		t.Fatalf("allDataBySurvey=%v", bundle.Data["allDataBySurvey"])
	}
	row := all[0].(map[string]any)
	if row["survey_name"] != "NPS" || row["Q7_text"] != "How likely are you to recommend us?" {
		t.Fatalf("merged row: %v", row)
	}
	if row["company_name"] != "Acme" {
		t.Fatalf("company join missing: %v", row)
	}

	// 进度单调且收于 100
	if len(pcts) == 0 || pcts[len(pcts)-1] != 100 {
		t.Fatalf("pcts=%v", pcts)
	}
	for i := 1; i < len(pcts); i++ {
		if pcts[i] < pcts[i-1] {
			t.Fatalf("progress went backwards: %v", pcts)
		}
	}

	if !strings.Contains(prev.String(), "== users (2 rows) ==") {
		t.Fatalf("preview: %q", prev.String())
	}
}

func TestRun_AnonymizePropagatesToMerges(t *testing.T) {
	srv := fakePanel(t)
	cfg := testConfig(t, srv.URL)
	cfg.Options.AnonymizeData = true
	cfg.Options.IncludePreview = false
	cfg.Export.Formats = []string{"json"}
	r := newRunner(t, cfg)

	res := r.Run(context.Background())
	if res.Status != "success" {
		t.Fatalf("status=%s message=%s", res.Status, res.Message)
	}
	b, err := os.ReadFile(res.Files[0])
	if err != nil {
		t.Fatalf("read bundle: %v", err)
	}
	var bundle model.ExportBundle
	if err := json.Unmarshal(b, &bundle); err != nil {
		t.Fatalf("decode bundle: %v", err)
	}
	users, _ := bundle.Data["users"].([]any)
	u := users[0].(map[string]any)
	if u["email"] != "user_u1@example.com" && u["email"] != "user_u2@example.com" {
		t.Fatalf("email not synthesized: %v", u["email"])
	}
	merged, _ := bundle.Data["userSurveyMerged"].([]any)
	for _, it := range merged {
		m := it.(map[string]any)
		for k, v := range m {
			if strings.Contains(k, "_feedback") && v != "[REDACTED]" {
				t.Fatalf("feedback leaked into merge: %s=%v", k, v)
			}
		}
	}
}

func TestRun_UsersProbeFailureIsFatal(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/panel/users", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	cfg := testConfig(t, srv.URL)
	cfg.Options = config.Options{IncludeUsers: true}
	r := newRunner(t, cfg)

	res := r.Run(context.Background())
	if res.Status != "error" {
		t.Fatalf("status=%s", res.Status)
	}
	if !strings.Contains(res.Message, "fetch users") {
		t.Fatalf("message=%q", res.Message)
	}
}
