package nl2sql

import (
	"errors"
	"testing"
)

func TestExtractSQL(t *testing.T) {
	tests := []struct{ raw, want string }{
		{raw: "```sql\nSELECT 1;\n```", want: "SELECT 1;"},
		{raw: "```SQL\n  SELECT name\n  FROM t\n```", want: "SELECT name\n  FROM t"},
		{raw: "Here you go:\n```\nWITH x AS (SELECT 1) SELECT * FROM x\n```\nEnjoy", want: "WITH x AS (SELECT 1) SELECT * FROM x"},
		{raw: "  SELECT 2  ", want: "SELECT 2"},
		{raw: "```sql\nSELECT 1\n```\n```sql\nSELECT 2\n```", want: "SELECT 1"},
	}
	for _, tc := range tests {
		if got := ExtractSQL(tc.raw); got != tc.want {
			t.Fatalf("ExtractSQL(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}

func TestValidateAcceptsAllowedKeywords(t *testing.T) {
	tests := []struct{ sql, keyword string }{
		{sql: "SELECT 1", keyword: "SELECT"},
		{sql: "with t as (select 1) select * from t", keyword: "WITH"},
		{sql: "INSERT INTO t VALUES (1)", keyword: "INSERT"},
		{sql: "update t set a = 1", keyword: "UPDATE"},
		{sql: "Delete FROM t", keyword: "DELETE"},
		{sql: "SHOW TABLES", keyword: "SHOW"},
	}
	for _, tc := range tests {
		stmt, err := Validate(tc.sql)
		if err != nil {
			t.Fatalf("Validate(%q) error = %v", tc.sql, err)
		}
		if stmt.Keyword != tc.keyword || stmt.SQL != tc.sql {
			t.Fatalf("Validate(%q) = %#v", tc.sql, stmt)
		}
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		sql  string
		want error
	}{
		{sql: "", want: ErrEmptyStatement},
		{sql: "NO_SQL", want: ErrNotAnswerable},
		{sql: "SELECT 'no_sql' AS marker", want: ErrNotAnswerable},
		{sql: "DROP TABLE t", want: ErrDisallowedKeyword},
		{sql: "SELECTED", want: ErrDisallowedKeyword},
		{sql: "-- comment\nSELECT 1", want: ErrDisallowedKeyword},
	}
	for _, tc := range tests {
		if _, err := Validate(tc.sql); !errors.Is(err, tc.want) {
			t.Fatalf("Validate(%q) error = %v, want %v", tc.sql, err, tc.want)
		}
	}
}
