package merge

import (
	"strings"
	"testing"

	"go-userguiding-export/internal/model"
	"go-userguiding-export/internal/rules"
)

func TestUserSurvey_NoSurveys(t *testing.T) {
	users := model.Table{
		{"user_id": "u1", "email": "a@x"},
		{"user_id": "u2", "email": "b@x"},
	}
	out := UserSurvey(users, model.Table{})
	if len(out) != 2 {
		t.Fatalf("len=%d want 2", len(out))
	}
	for _, row := range out {
		if row["has_survey_data"] != false {
			t.Fatalf("has_survey_data=%v", row["has_survey_data"])
		}
		for k := range row {
			if strings.HasPrefix(k, "survey_") {
				t.Fatalf("unexpected survey key %s", k)
			}
		}
	}
}

func TestUserSurvey_NoUsers(t *testing.T) {
	surveys := model.Table{{"user_id": "u1", "Q1_score": float64(5)}}
	if out := UserSurvey(model.Table{}, surveys); len(out) != 0 {
		t.Fatalf("len=%d want 0", len(out))
	}
}

func TestUserSurvey_RowCountAndPrefix(t *testing.T) {
	users := model.Table{{"user_id": "u1"}, {"user_id": "u2"}, {"user_id": "u3"}}
	surveys := model.Table{
		{"user_id": "u1", "response_id": float64(1)},
		{"user_id": "u1", "response_id": float64(2)},
		{"user_id": "u2", "response_id": float64(3)},
		{"user_id": "ghost", "response_id": float64(4)}, // 无主回答，丢弃
	}
	out := UserSurvey(users, surveys)
	// u1 两行 + u2 一行 + u3 一行（无数据）
	if len(out) != 4 {
		t.Fatalf("len=%d want 4", len(out))
	}
	withData := 0
	for _, row := range out {
		if row["has_survey_data"] == true {
			withData++
			if _, ok := row["survey_response_id"]; !ok {
				t.Fatalf("missing survey_ prefix: %v", row)
			}
			if _, ok := row["survey_user_id"]; ok {
				t.Fatalf("user_id must not be prefixed-duplicated")
			}
		}
	}
	if withData != 3 {
		t.Fatalf("withData=%d want 3", withData)
	}
}

func TestUserCompany_EndToEnd(t *testing.T) {
	users := model.Table{
		{"user_id": "u1", "company_id": "c1"},
		{"user_id": "u2", "company_id": nil},
	}
	companies := model.Table{{"id": "c1", "name": "Acme"}}
	out := UserCompany(users, companies)
	if len(out) != 2 {
		t.Fatalf("len=%d want 2", len(out))
	}
	if out[0]["has_company_data"] != true || out[0]["company_name"] != "Acme" {
		t.Fatalf("row0=%v", out[0])
	}
	if out[0]["user_id"] != "u1" || out[0]["company_id"] != "c1" {
		t.Fatalf("row0 user fields=%v", out[0])
	}
	if out[1]["has_company_data"] != false {
		t.Fatalf("row1=%v", out[1])
	}
	if _, ok := out[1]["company_name"]; ok {
		t.Fatalf("unmatched user must not gain company fields")
	}
}

func TestUserCompany_CompanyIDFallback(t *testing.T) {
	users := model.Table{{"user_id": "u1", "company_id": float64(9)}}
	companies := model.Table{{"company_id": float64(9), "name": "Nine"}}
	out := UserCompany(users, companies)
	if out[0]["company_name"] != "Nine" {
		t.Fatalf("fallback id failed: %v", out[0])
	}
}

func TestAllBySurvey(t *testing.T) {
	users := model.Table{
		{"user_id": "u1", "email": "a@x", "device_type": "mobile", "company_id": "c1", "web_session": float64(12), "secret_field": "hide-me"},
	}
	companies := model.Table{{"id": "c1", "name": "Acme", "user_count": float64(40)}}
	surveys := model.Table{
		{"survey_id": float64(3), "survey_name": "NPS", "response_id": float64(1), "user_id": "u1", "created": "2026-01-01", "Q10_score": float64(4)},
		{"survey_id": float64(3), "response_id": float64(2), "user_id": "ghost", "Q10_score": float64(1)}, // 无主，整条跳过
	}
	qm := model.QuestionMapping{"10": {SurveyID: 3, SurveyName: "NPS", QuestionText: "How likely?"}}
	out := AllBySurvey(users, companies, surveys, qm, rules.Default().MergeAll)
	if len(out) != 1 {
		t.Fatalf("len=%d want 1", len(out))
	}
	row := out[0]
	if row["survey_name"] != "NPS" || row["response_id"] != float64(1) {
		t.Fatalf("identity fields: %v", row)
	}
	if row["Q10_score"] != float64(4) || row["Q10_text"] != "How likely?" {
		t.Fatalf("answer fields: %v", row)
	}
	if row["user_web_session"] != float64(12) {
		t.Fatalf("counter prefix: %v", row)
	}
	if row["company_name"] != "Acme" || row["company_id"] != "c1" {
		t.Fatalf("company fields: %v", row)
	}
	if _, ok := row["secret_field"]; ok {
		t.Fatalf("non allow-listed field leaked")
	}
}
