// Package export renders orders for download.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/diewo77/fairscanner/internal/models"
)

// OrderCSVHeader is the column layout shared with the backend's order export.
var OrderCSVHeader = []string{"EAN", "SKU", "Name", "Qty", "Price", "LineTotal", "TotalIncVAT", "VAT"}

// WriteOrderCSV writes one row per item. Amounts have two decimals;
// LineTotal includes the line discount. Prices carry no VAT, so TotalIncVAT
// equals LineTotal and VAT is 0%.
func WriteOrderCSV(w io.Writer, items []models.OrderItem) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(OrderCSVHeader); err != nil {
		return err
	}
	for i := range items {
		it := &items[i]
		line := models.FormatMoney(it.LineTotal())
		row := []string{
			it.EAN,
			it.SKU,
			it.Name,
			strconv.Itoa(it.Qty),
			models.FormatMoney(it.Price),
			line,
			line,
			"0%",
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write item %s: %w", it.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// OrderFileName is the download name of an order export.
func OrderFileName(o *models.Order) string {
	return fmt.Sprintf("order-%d.csv", o.OrderNumber)
}
