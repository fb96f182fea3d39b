package export

import (
	"context"
	"fmt"
	"sort"

	"go-userguiding-export/internal/model"
	"go-userguiding-export/internal/store"
)

// WriteSQLite 把全部数据集写入单个 SQLite 工件，表名即数据集名。
func WriteSQLite(ctx context.Context, path string, datasets map[string]model.Table) error {
	s, err := store.OpenSQLite(path)
	if err != nil {
		return err
	}
	defer s.Close()
	names := make([]string, 0, len(datasets))
	for n := range datasets {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		t := datasets[n]
		if len(t) == 0 {
			continue
		}
		if err := s.WriteDataset(ctx, n, Columns(t), t); err != nil {
			return fmt.Errorf("write dataset %s: %w", n, err)
		}
	}
	return nil
}
