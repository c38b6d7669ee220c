package utils

import (
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/Aashish23092/invoice-extractor/dto"
)

// NormalizeColumnName turns a raw table header into its lookup form:
// "Gross\nvalue" -> "gross value".
func NormalizeColumnName(col string) string {
	col = strings.NewReplacer("\r", " ", "\n", " ").Replace(col)
	return strings.ToLower(NormalizeWhitespace(col))
}

// MapTableColumns converts raw rows (first row = header) into a Table whose
// cells are keyed by canonical field names. Headers missing from mapping keep
// their normalized name.
func MapTableColumns(raw [][]string, mapping map[string]string) (dto.Table, error) {
	if len(raw) == 0 {
		return dto.Table{}, eris.Wrap(dto.ErrTableExtraction, "no bordered table found")
	}

	normMapping := make(map[string]string, len(mapping))
	for k, v := range mapping {
		normMapping[NormalizeColumnName(k)] = v
	}

	columns := make([]string, len(raw[0]))
	for i, h := range raw[0] {
		norm := NormalizeColumnName(h)
		if mapped, ok := normMapping[norm]; ok {
			columns[i] = mapped
		} else {
			columns[i] = norm
		}
	}
	zap.L().Debug("table columns mapped", zap.Strings("raw", raw[0]), zap.Strings("columns", columns))

	table := dto.Table{Columns: columns, Rows: make([]dto.TableRow, 0, len(raw)-1)}
	for _, cells := range raw[1:] {
		row := make(dto.TableRow, len(columns))
		for i, col := range columns {
			if i < len(cells) {
				row[col] = cells[i]
			}
		}
		table.Rows = append(table.Rows, row)
	}

	if len(table.Rows) == 0 {
		return dto.Table{}, eris.Wrap(dto.ErrTableExtraction, "table has a header row but no data rows")
	}
	return table, nil
}
