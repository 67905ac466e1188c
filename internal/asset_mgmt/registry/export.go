package registry

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

// ExportCSV は台帳全件を cp932 のCSVで書き出す。
// 総務のExcel運用がcp932前提なのでUTF-8では出さない。
func (s *Service) ExportCSV(ctx context.Context, w io.Writer) error {
	items, err := s.store.ListAll(ctx)
	if err != nil {
		return err
	}

	enc := transform.NewWriter(w, japanese.ShiftJIS.NewEncoder())
	cw := csv.NewWriter(enc)

	if err := cw.Write([]string{"asset_id", "asset_ulid", "name", "category", "lot_number", "status", "created_at"}); err != nil {
		return err
	}
	for i := range items {
		a := &items[i]
		lot := ""
		if a.LotNumber.Valid {
			lot = a.LotNumber.String
		}
		rec := []string{
			strconv.FormatInt(a.AssetID, 10),
			a.AssetULID,
			a.Name,
			a.Category,
			lot,
			string(a.Status),
			a.CreatedAt.Format("2006-01-02 15:04:05"),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}
	return enc.Close()
}
