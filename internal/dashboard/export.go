package dashboard

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"finboard/internal/model"
)

var exportHeader = []string{"Ticker", "Nombre", "Tipo", "Cantidad", "Precio Compra", "Fecha", "Moneda"}

// ExportFileName is the download name of the export for the given day.
func ExportFileName(day time.Time) string {
	return fmt.Sprintf("inversiones_%s.csv", day.Format(model.DateLayout))
}

// ExportCSV writes the cached positions as CSV, one row per lot.
func (s *Session) ExportCSV(ctx context.Context, w io.Writer) error {
	list, err := s.Investments(ctx)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return err
	}
	for _, inv := range list {
		row := []string{
			inv.Ticker,
			inv.Name,
			inv.Type.Label(),
			inv.Quantity.String(),
			inv.PurchasePrice.String(),
			inv.PurchaseDate.Format(model.DateLayout),
			string(inv.Currency),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
