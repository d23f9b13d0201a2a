package query

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sqlchat/sqlchat/internal/nl2sql"
	"github.com/sqlchat/sqlchat/internal/observability"
)

type ExecutorConfig struct {
	QueryTimeout time.Duration
	// RowLimit caps how many rows are read back; zero reads everything.
	RowLimit int
}

// Executor runs validated statements on the shared handle and folds every
// outcome into a Result. It never returns raw driver errors to callers.
type Executor struct {
	handle *Handle
	cfg    ExecutorConfig
	logger *slog.Logger
}

func NewExecutor(handle *Handle, cfg ExecutorConfig, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{handle: handle, cfg: cfg, logger: logger}
}

func (e *Executor) Execute(ctx context.Context, stmt *nl2sql.Statement) (result Result) {
	if stmt == nil || strings.TrimSpace(stmt.SQL) == "" {
		return Empty(MessageNotInSchema)
	}

	start := time.Now()
	defer func() {
		if recovered := recover(); recovered != nil {
			result = Unexpected(fmt.Errorf("panic during execution: %v", recovered))
		}
		result.Duration = time.Since(start)
		observability.ObserveQuery(result.Kind.String(), result.Duration)
		e.logger.InfoContext(ctx, "query_executed",
			slog.String("trace_id", observability.TraceIDFromContext(ctx)),
			slog.String("kind", result.Kind.String()),
			slog.Int("rows", len(result.Rows)),
			slog.String("duration", result.Duration.String()),
			slog.String("detail", result.Detail),
		)
	}()

	db, err := e.handle.DB(ctx)
	if err != nil {
		return Unexpected(err)
	}
	if e.cfg.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.QueryTimeout)
		defer cancel()
	}

	rows, err := db.QueryContext(ctx, stmt.SQL)
	if err != nil {
		return classifyError(ctx, err)
	}
	defer func() { _ = rows.Close() }()

	collected, err := Collect(rows, e.cfg.RowLimit)
	if err != nil {
		return classifyError(ctx, err)
	}
	return collected
}

// Collect drains rows into a Result. Zero rows yield an Empty result. A
// positive limit stops scanning after limit rows and marks the result
// Truncated; the statement itself is never rewritten.
func Collect(rows *sql.Rows, limit int) (Result, error) {
	columnTypes, err := rows.ColumnTypes()
	if err != nil {
		return Result{}, err
	}

	resultRows := make([][]any, 0)
	truncated := false
	for rows.Next() {
		if limit > 0 && len(resultRows) == limit {
			truncated = true
			break
		}
		values := make([]any, len(columnTypes))
		scanTargets := make([]any, len(columnTypes))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return Result{}, err
		}
		resultRows = append(resultRows, normalizeValues(values))
	}
	if err := rows.Err(); err != nil {
		return Result{}, err
	}

	if len(resultRows) == 0 {
		return Empty(MessageNoData), nil
	}
	return Result{
		Kind:      KindRows,
		Columns:   describeColumns(columnTypes, resultRows),
		Rows:      resultRows,
		Truncated: truncated,
	}, nil
}

var schemaViolationMarkers = []string{
	"doesn't exist",
	"does not exist",
	"unknown column",
	"no such table",
	"no such column",
	"undefined column",
	"undefined table",
}

// classifyError separates engine-reported failures from everything else.
// Cancellation, deadlines and broken connections are unexpected.
func classifyError(ctx context.Context, err error) Result {
	if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return Unexpected(err)
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return Unexpected(err)
	}

	detail := err.Error()
	if IsSchemaViolation(detail) {
		return Result{
			Kind:            KindDBError,
			Message:         MessageSchemaViolation,
			Detail:          detail,
			SchemaViolation: true,
		}
	}
	return Result{Kind: KindDBError, Message: MessageDBError, Detail: detail}
}

func IsSchemaViolation(detail string) bool {
	lower := strings.ToLower(detail)
	for _, marker := range schemaViolationMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func describeColumns(columnTypes []*sql.ColumnType, rows [][]any) []Column {
	columns := make([]Column, len(columnTypes))
	for i, columnType := range columnTypes {
		dbType := strings.ToUpper(strings.TrimSpace(columnType.DatabaseTypeName()))
		kind, known := kindFromDatabaseType(dbType)
		if !known {
			kind = kindFromValues(rows, i)
		}
		columns[i] = Column{Name: columnType.Name(), DatabaseType: dbType, Kind: kind}
	}
	return columns
}

func kindFromDatabaseType(dbType string) (ColumnKind, bool) {
	if dbType == "" {
		return Categorical, false
	}
	switch {
	case strings.HasPrefix(dbType, "INTERVAL"):
		return Categorical, true
	case strings.Contains(dbType, "DATE"), strings.Contains(dbType, "TIME"):
		return Temporal, true
	case strings.Contains(dbType, "INT"),
		strings.Contains(dbType, "REAL"),
		strings.Contains(dbType, "FLOA"),
		strings.Contains(dbType, "DOUB"),
		strings.Contains(dbType, "NUMERIC"),
		strings.Contains(dbType, "DECIMAL"),
		strings.Contains(dbType, "NUMBER"):
		return Numeric, true
	case strings.Contains(dbType, "CHAR"),
		strings.Contains(dbType, "TEXT"),
		strings.Contains(dbType, "CLOB"),
		strings.Contains(dbType, "BOOL"),
		strings.Contains(dbType, "ENUM"),
		strings.Contains(dbType, "UUID"):
		return Categorical, true
	default:
		return Categorical, false
	}
}

func kindFromValues(rows [][]any, column int) ColumnKind {
	for _, row := range rows {
		switch row[column].(type) {
		case nil:
			continue
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
			return Numeric
		case time.Time:
			return Temporal
		default:
			return Categorical
		}
	}
	return Categorical
}

func normalizeValues(values []any) []any {
	normalized := make([]any, len(values))
	for i, value := range values {
		switch typed := value.(type) {
		case []byte:
			normalized[i] = string(typed)
		default:
			normalized[i] = typed
		}
	}
	return normalized
}

// StripTrailingSemicolons removes statement terminators and surrounding space.
func StripTrailingSemicolons(sqlText string) string {
	trimmed := strings.TrimSpace(sqlText)
	for strings.HasSuffix(trimmed, ";") {
		trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, ";"))
	}
	return trimmed
}
