package parser

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/akolanti/ragstream/internal/domain/ragErrors"
	"github.com/xuri/excelize/v2"
)

// extractSpreadsheet renders every sheet as a heading followed by tab separated rows.
func extractSpreadsheet(raw []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(raw))
	if err != nil {
		return "", ragErrors.New(ragErrors.InvalidInput, "open xlsx", err)
	}
	defer f.Close()

	var sb strings.Builder
	for _, sheetName := range f.GetSheetList() {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			logger.Warn("skipping unreadable sheet", "sheet", sheetName, "error", err)
			continue
		}
		if len(rows) == 0 {
			continue
		}
		sb.WriteString(fmt.Sprintf("Sheet: %s.\n", sheetName))
		for _, row := range rows {
			sb.WriteString(strings.Join(row, "\t"))
			sb.WriteString("\n")
		}
	}
	return sb.String(), nil
}
