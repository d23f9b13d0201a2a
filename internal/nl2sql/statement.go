package nl2sql

import (
	"errors"
	"regexp"
	"strings"
)

// NoSQLSentinel is the literal the model returns when a question is not answerable.
const NoSQLSentinel = "NO_SQL"

var (
	ErrEmptyStatement    = errors.New("empty statement")
	ErrNotAnswerable     = errors.New("model reported the question is not answerable")
	ErrDisallowedKeyword = errors.New("statement does not start with an allowed keyword")
)

var (
	fencedBlock    = regexp.MustCompile("(?is)```(?:sql)?\\s*(.*?)\\s*```")
	leadingKeyword = regexp.MustCompile(`(?i)^(select|with|insert|update|delete|show)\b`)
)

// Statement is a candidate that passed shape validation. The zero value is not executable.
type Statement struct {
	SQL     string
	Keyword string
}

func (s Statement) String() string {
	return s.SQL
}

// ExtractSQL returns the contents of the first fenced code block, or the trimmed text.
func ExtractSQL(raw string) string {
	if match := fencedBlock.FindStringSubmatch(raw); match != nil {
		return strings.TrimSpace(match[1])
	}
	return strings.TrimSpace(raw)
}

// Validate accepts cleaned text that carries no sentinel and starts with
// SELECT, WITH, INSERT, UPDATE, DELETE or SHOW.
func Validate(cleaned string) (Statement, error) {
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return Statement{}, ErrEmptyStatement
	}
	if strings.Contains(strings.ToLower(cleaned), strings.ToLower(NoSQLSentinel)) {
		return Statement{}, ErrNotAnswerable
	}
	keyword := leadingKeyword.FindString(cleaned)
	if keyword == "" {
		return Statement{}, ErrDisallowedKeyword
	}
	return Statement{SQL: cleaned, Keyword: strings.ToUpper(keyword)}, nil
}
