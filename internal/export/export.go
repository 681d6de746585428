// Package export renders transactions as delimited text.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"budgettracker/internal/core"
)

// utf8BOM lets spreadsheet applications detect the encoding.
const utf8BOM = "\uFEFF"

// Header is the first row of every export.
var Header = []string{"Date", "Type", "Category", "Description", "Amount"}

// Records converts txs to export rows in the given order, header first.
func Records(txs []core.Transaction) [][]string {
	out := make([][]string, 0, len(txs)+1)
	out = append(out, Header)
	for _, t := range txs {
		out = append(out, []string{
			t.Date.String(),
			string(t.Type),
			textCell(t.Category),
			textCell(t.Description),
			t.Amount.String(),
		})
	}
	return out
}

// textCell quotes user text that a spreadsheet would evaluate as a formula.
func textCell(s string) string {
	if s != "" && strings.ContainsRune("=+-@\t\r", rune(s[0])) {
		return "'" + s
	}
	return s
}

// WriteCSV writes txs as UTF-8 CSV with a byte order mark.
func WriteCSV(w io.Writer, txs []core.Transaction) error {
	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return fmt.Errorf("write bom: %w", err)
	}
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(Records(txs)); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// Filename names an export produced on day.
func Filename(day time.Time) string {
	return fmt.Sprintf("transactions_%s.csv", core.DateOf(day).String())
}
