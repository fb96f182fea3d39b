// 包 preview 在终端渲染数据集预览表（对齐列宽，最多 25 行），
// 对应面板里的页面内预览。
package preview

import (
	"fmt"
	"io"

	"go-userguiding-export/internal/export"
	"go-userguiding-export/internal/flatten"
	"go-userguiding-export/internal/model"
)

// MaxRows 为预览行数上限。
const MaxRows = 25

// MaxColWidth 为单列显示宽度上限，超长值截断加省略号。
const MaxColWidth = 24

// Render 把表的前若干行写到 w。空表输出一行提示。
func Render(w io.Writer, name string, t model.Table) {
	fmt.Fprintf(w, "== %s (%d rows", name, len(t))
	if len(t) > MaxRows {
		fmt.Fprintf(w, ", showing %d", MaxRows)
	}
	fmt.Fprintln(w, ") ==")
	if len(t) == 0 {
		fmt.Fprintln(w, "(empty)")
		return
	}
	rows := t
	if len(rows) > MaxRows {
		rows = rows[:MaxRows]
	}
	cols := export.Columns(rows)
	widths := make([]int, len(cols))
	cells := make([][]string, len(rows))
	for i, c := range cols {
		widths[i] = len(c)
	}
	for ri, row := range rows {
		line := make([]string, len(cols))
		for ci, c := range cols {
			s := clip(flatten.Stringify(row[c]))
			line[ci] = s
			if len(s) > widths[ci] {
				widths[ci] = len(s)
			}
		}
		cells[ri] = line
	}
	for i, c := range cols {
		fmt.Fprintf(w, "%-*s  ", widths[i], c)
	}
	fmt.Fprintln(w)
	for _, line := range cells {
		for i, s := range line {
			fmt.Fprintf(w, "%-*s  ", widths[i], s)
		}
		fmt.Fprintln(w)
	}
}

func clip(s string) string {
	r := []rune(s)
	if len(r) <= MaxColWidth {
		return s
	}
	return string(r[:MaxColWidth-1]) + "…"
}
