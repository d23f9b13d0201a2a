package archive

import (
	"bytes"
	"fmt"
	"strconv"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/sqlchat/sqlchat/internal/query"
)

type EncodeResult struct {
	Data      []byte
	RowCount  int
	CellCount int64
}

// cell is one value of a result table in long form.
type cell struct {
	Row    int64  `parquet:"row"`
	Column string `parquet:"column"`
	Kind   string `parquet:"kind"`
	Value  string `parquet:"value"`
	IsNull bool   `parquet:"is_null"`
}

func EncodeCells(result query.Result) (EncodeResult, error) {
	if len(result.Columns) == 0 {
		return EncodeResult{}, fmt.Errorf("columns are required")
	}

	cells := make([]cell, 0, len(result.Rows)*len(result.Columns))
	for rowIndex, row := range result.Rows {
		if len(row) != len(result.Columns) {
			return EncodeResult{}, fmt.Errorf("row %d has %d values for %d columns", rowIndex, len(row), len(result.Columns))
		}
		for columnIndex, value := range row {
			column := result.Columns[columnIndex]
			cells = append(cells, cell{
				Row:    int64(rowIndex),
				Column: column.Name,
				Kind:   column.Kind.String(),
				Value:  formatValue(value),
				IsNull: value == nil,
			})
		}
	}

	buf := bytes.NewBuffer(nil)
	writer := parquet.NewGenericWriter[cell](buf)
	if _, err := writer.Write(cells); err != nil {
		return EncodeResult{}, fmt.Errorf("write parquet cells: %w", err)
	}
	if err := writer.Close(); err != nil {
		return EncodeResult{}, fmt.Errorf("close parquet writer: %w", err)
	}

	return EncodeResult{
		Data:      buf.Bytes(),
		RowCount:  len(result.Rows),
		CellCount: int64(len(cells)),
	}, nil
}

func formatValue(value any) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return typed
	case time.Time:
		return typed.UTC().Format(time.RFC3339Nano)
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(typed), 'f', -1, 32)
	default:
		return fmt.Sprint(typed)
	}
}
