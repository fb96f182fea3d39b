// 包 store 提供 SQLite 工件写入：把各数据集落成单个 .db 文件，
// 方便直接用 SQL 做后续分析。每次导出写一个新文件，不跨次复用。
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"go-userguiding-export/internal/flatten"
	"go-userguiding-export/internal/model"
)

// SQLite 封装 *sql.DB，基于 modernc.org/sqlite（纯 Go 实现）。
type SQLite struct {
	db *sql.DB
}

// OpenSQLite 打开（或创建）SQLite 数据库文件。
func OpenSQLite(path string) (*SQLite, error) {
	// 说明：modernc sqlite 的 DSN 可直接使用文件路径，或以 'file:...' 前缀表示
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	return &SQLite{db: db}, nil
}

func (s *SQLite) Close() error { return s.db.Close() }

// WriteDataset 建表并写入一个数据集。列全部按 TEXT 存储，
// 行间键集合不一致时缺失列写 NULL。表已存在则先删除重建（幂等）。
func (s *SQLite) WriteDataset(ctx context.Context, name string, cols []string, t model.Table) error {
	if name == "" {
		return errors.New("dataset name required")
	}
	if len(cols) == 0 {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, `DROP TABLE IF EXISTS `+quoteIdent(name)); err != nil {
		return fmt.Errorf("drop %s: %w", name, err)
	}
	defs := make([]string, 0, len(cols))
	for _, c := range cols {
		defs = append(defs, quoteIdent(c)+" TEXT")
	}
	create := fmt.Sprintf(`CREATE TABLE %s (%s);`, quoteIdent(name), strings.Join(defs, ", "))
	if _, err := s.db.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}

	placeholders := strings.TrimRight(strings.Repeat("?,", len(cols)), ",")
	quoted := make([]string, 0, len(cols))
	for _, c := range cols {
		quoted = append(quoted, quoteIdent(c))
	}
	insert := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)`,
		quoteIdent(name), strings.Join(quoted, ", "), placeholders)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx %s: %w", name, err)
	}
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare insert %s: %w", name, err)
	}
	defer stmt.Close()
	for _, row := range t {
		args := make([]any, 0, len(cols))
		for _, c := range cols {
			v, ok := row[c]
			if !ok || v == nil {
				args = append(args, nil)
				continue
			}
			args = append(args, flatten.Stringify(v))
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert into %s: %w", name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", name, err)
	}
	return nil
}

// CountRows 返回某数据集的行数，测试与汇总用。
func (s *SQLite) CountRows(ctx context.Context, name string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+quoteIdent(name)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", name, err)
	}
	return n, nil
}

// quoteIdent 用双引号包裹标识符，内部引号翻倍。
func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
