package preview

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"go-userguiding-export/internal/model"
)

func TestRender_CapsRows(t *testing.T) {
	tb := model.Table{}
	for i := 0; i < 40; i++ {
		tb = append(tb, model.FlatRecord{"user_id": fmt.Sprintf("u%d", i)})
	}
	var buf bytes.Buffer
	Render(&buf, "users", tb)
	out := buf.String()
	if !strings.Contains(out, "40 rows, showing 25") {
		t.Fatalf("header missing cap note: %q", strings.SplitN(out, "\n", 2)[0])
	}
	if strings.Count(out, "\n") != 27 { // 标题 + 列头 + 25 行
		t.Fatalf("lines=%d", strings.Count(out, "\n"))
	}
}

func TestRender_Empty(t *testing.T) {
	var buf bytes.Buffer
	Render(&buf, "companies", model.Table{})
	if !strings.Contains(buf.String(), "(empty)") {
		t.Fatalf("empty marker missing: %q", buf.String())
	}
}
