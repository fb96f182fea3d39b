package anonymize

import (
	"regexp"
	"testing"

	"go-userguiding-export/internal/model"
	"go-userguiding-export/internal/rules"
)

func TestHashString(t *testing.T) {
	if HashString("") != "0" {
		t.Fatalf("empty -> %q want 0", HashString(""))
	}
	a, b := HashString("company-42"), HashString("company-42")
	if a != b {
		t.Fatalf("not deterministic: %q vs %q", a, b)
	}
	hex := regexp.MustCompile(`^[0-9a-f]{1,8}$`)
	for _, in := range []string{"a", "company-42", "很长的中文输入也要能稳定哈希", "x1y2z3"} {
		if got := HashString(in); !hex.MatchString(got) {
			t.Fatalf("HashString(%q)=%q not <=8 lowercase hex", in, got)
		}
	}
	if HashString("a") == HashString("b") {
		t.Fatalf("suspicious collision a/b")
	}
}

func TestUsers_EmailSyntheticAndIdempotent(t *testing.T) {
	r := rules.Default().Redact
	users := model.Table{
		{"user_id": "u1", "email": "real@corp.com", "name": "Zhang San", "phone": "123", "company_id": "c1"},
	}
	once := Users(users, r)
	if once[0]["email"] != "user_u1@example.com" {
		t.Fatalf("email=%v", once[0]["email"])
	}
	twice := Users(once, r)
	if twice[0]["email"] != once[0]["email"] {
		t.Fatalf("re-anonymized email changed: %v vs %v", twice[0]["email"], once[0]["email"])
	}
	if once[0]["name"] == "Zhang San" || once[0]["phone"] == "123" {
		t.Fatalf("identity fields not redacted: %v", once[0])
	}
	if once[0]["company_id"] != "company_"+HashString("c1") {
		t.Fatalf("company_id=%v", once[0]["company_id"])
	}
	// 原表不动
	if users[0]["email"] != "real@corp.com" {
		t.Fatalf("source table mutated")
	}
}

func TestSurveys_FeedbackRedacted(t *testing.T) {
	r := rules.Default().Redact
	surveys := model.Table{
		{"Q1_score": float64(5), "Q1_feedback": "I hate forms", "Q1_choices": "A;B"},
	}
	out := Surveys(surveys, r)
	if out[0]["Q1_feedback"] != r.Sentinel {
		t.Fatalf("feedback=%v", out[0]["Q1_feedback"])
	}
	if out[0]["Q1_score"] != float64(5) || out[0]["Q1_choices"] != "A;B" {
		t.Fatalf("score/choices must survive: %v", out[0])
	}
}

func TestCompanies_NameRewrite(t *testing.T) {
	r := rules.Default().Redact
	companies := model.Table{
		{"id": float64(7), "name": "Acme", "email": "ceo@acme.com"},
	}
	out := Companies(companies, r)
	if out[0]["name"] != "Company 7" {
		t.Fatalf("name=%v", out[0]["name"])
	}
	if out[0]["email"] != r.Sentinel {
		t.Fatalf("email=%v", out[0]["email"])
	}
}
