package cli

import (
	"fmt"
	"io"

	"github.com/pterm/pterm"

	"github.com/sqlchat/sqlchat/internal/present"
)

func writeTable(w io.Writer, headers []string, rows [][]any) error {
	data := make(pterm.TableData, 0, len(rows)+1)
	data = append(data, headers)
	for _, row := range rows {
		cells := make([]string, len(row))
		for i, value := range row {
			cells[i] = present.FormatValue(value)
		}
		data = append(data, cells)
	}
	rendered, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return fmt.Errorf("render table: %w", err)
	}
	_, err = fmt.Fprintln(w, rendered)
	return err
}
