package query

import "time"

type Kind int

const (
	KindRows Kind = iota
	KindEmpty
	KindDBError
	KindUnexpected
)

func (k Kind) String() string {
	switch k {
	case KindRows:
		return "rows"
	case KindEmpty:
		return "empty"
	case KindDBError:
		return "db_error"
	default:
		return "unexpected"
	}
}

type ColumnKind int

const (
	Categorical ColumnKind = iota
	Numeric
	Temporal
)

func (k ColumnKind) String() string {
	switch k {
	case Numeric:
		return "numeric"
	case Temporal:
		return "temporal"
	default:
		return "categorical"
	}
}

type Column struct {
	Name         string     `json:"name"`
	DatabaseType string     `json:"database_type,omitempty"`
	Kind         ColumnKind `json:"-"`
}

const (
	MessageNotInSchema     = "The requested information does not exist in the database schema."
	MessageSchemaViolation = "Sorry, this question cannot be answered with the information currently in the Database."
	MessageDBError         = "Database error while executing the query."
	MessageNoData          = "Query executed successfully but returned no data."
)

// Result is the normalized outcome of one execution. Rows are row-major and
// aligned with Columns. Message is always user-safe; Detail carries raw
// engine text for diagnostics.
type Result struct {
	Kind            Kind
	Columns         []Column
	Rows            [][]any
	Message         string
	Detail          string
	SchemaViolation bool
	// Truncated reports that more rows were available than the row limit.
	Truncated bool
	Duration  time.Duration
}

func (r Result) HasRows() bool {
	return r.Kind == KindRows && len(r.Rows) > 0
}

func (r Result) ColumnNames() []string {
	names := make([]string, len(r.Columns))
	for i, column := range r.Columns {
		names[i] = column.Name
	}
	return names
}

func (r Result) ColumnIndex(name string) int {
	for i, column := range r.Columns {
		if column.Name == name {
			return i
		}
	}
	return -1
}

func Empty(message string) Result {
	return Result{Kind: KindEmpty, Message: message}
}

func Unexpected(err error) Result {
	return Result{Kind: KindUnexpected, Message: "Unexpected error: " + err.Error(), Detail: err.Error()}
}
