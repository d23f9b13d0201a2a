package present

import "github.com/sqlchat/sqlchat/internal/query"

// SensitiveColumns are internal identifier columns never shown to users.
// Matching is exact and case-sensitive.
var SensitiveColumns = []string{
	"customer_id",
	"employee_id",
	"project_id",
	"department_id",
	"invoice_id",
	"payment_id",
	"task_id",
	"time_entry_id",
}

var sensitiveColumnSet = func() map[string]struct{} {
	set := make(map[string]struct{}, len(SensitiveColumns))
	for _, name := range SensitiveColumns {
		set[name] = struct{}{}
	}
	return set
}()

// Sanitize returns result without the sensitive columns. Non-rows results and
// results with nothing to drop are returned unchanged. The input is never
// mutated.
func Sanitize(result query.Result) query.Result {
	if result.Kind != query.KindRows {
		return result
	}

	keep := make([]int, 0, len(result.Columns))
	for i, column := range result.Columns {
		if _, sensitive := sensitiveColumnSet[column.Name]; !sensitive {
			keep = append(keep, i)
		}
	}
	if len(keep) == len(result.Columns) {
		return result
	}

	sanitized := result
	sanitized.Columns = make([]query.Column, len(keep))
	for i, index := range keep {
		sanitized.Columns[i] = result.Columns[index]
	}
	sanitized.Rows = make([][]any, len(result.Rows))
	for r, row := range result.Rows {
		values := make([]any, len(keep))
		for i, index := range keep {
			if index < len(row) {
				values[i] = row[index]
			}
		}
		sanitized.Rows[r] = values
	}
	return sanitized
}
