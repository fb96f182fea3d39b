package rules

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	r := Default()
	if r.Redact.Sentinel != "[REDACTED]" {
		t.Fatalf("sentinel=%q", r.Redact.Sentinel)
	}
	if len(r.MergeAll.UserFields) == 0 || len(r.MergeAll.UserCounters) == 0 {
		t.Fatalf("merge_all defaults empty: %+v", r.MergeAll)
	}
}

func TestLoad_OverridesAndDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	body := "exclude:\n  users: [internal_score]\nredact:\n  sentinel: '***'\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	r, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !r.Excluded("users", "internal_score") || r.Excluded("users", "email") {
		t.Fatalf("exclude lists wrong: %+v", r.Exclude)
	}
	if r.Redact.Sentinel != "***" {
		t.Fatalf("sentinel override: %q", r.Redact.Sentinel)
	}
	// 未覆盖的清单回落默认
	if len(r.Redact.UserFields) == 0 {
		t.Fatalf("redact user fields default missing")
	}
}
