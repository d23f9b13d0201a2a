package present

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sqlchat/sqlchat/internal/llm"
	"github.com/sqlchat/sqlchat/internal/observability"
	"github.com/sqlchat/sqlchat/internal/query"
)

type Decision int

const (
	Table Decision = iota
	Text
	Plot
)

func (d Decision) String() string {
	switch d {
	case Text:
		return "text"
	case Plot:
		return "plot"
	default:
		return "table"
	}
}

// ParseDecision accepts text, table or plot in any case, optionally quoted or
// followed by a period.
func ParseDecision(raw string) (Decision, bool) {
	switch strings.ToLower(strings.Trim(strings.TrimSpace(raw), `'". `)) {
	case "text":
		return Text, true
	case "table":
		return Table, true
	case "plot":
		return Plot, true
	default:
		return Table, false
	}
}

type Selection struct {
	Decision Decision
	Summary  string
}

type SelectorConfig struct {
	MaxTokens   int
	Temperature float64
	TopP        float64
	// PreviewRows bounds how many rows are shown to the model when summarizing
	// a multi-cell result.
	PreviewRows int
}

type Selector struct {
	generator llm.Generator
	cfg       SelectorConfig
	logger    *slog.Logger
}

func NewSelector(generator llm.Generator, cfg SelectorConfig, logger *slog.Logger) *Selector {
	if cfg.PreviewRows <= 0 {
		cfg.PreviewRows = 20
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Selector{generator: generator, cfg: cfg, logger: logger}
}

// Select always returns a usable Selection. A non-nil error reports a
// generation failure that has already been folded into the Selection.
func (s *Selector) Select(ctx context.Context, result query.Result, question string) (selection Selection, err error) {
	defer func() { observability.ObservePresentation(selection.Decision.String()) }()

	if !result.HasRows() {
		return Selection{Decision: Text, Summary: result.Message}, nil
	}

	if len(result.Rows) == 1 && len(result.Columns) == 1 {
		summary, err := s.summarize(ctx, scalarPrompt(question, result.Rows[0][0]))
		if err != nil {
			return Selection{Decision: Text, Summary: "Failed to generate insight: " + err.Error()}, err
		}
		return Selection{Decision: Text, Summary: summary}, nil
	}

	reply, err := s.generator.Generate(ctx, llm.Request{
		Purpose:     "select_output",
		System:      []string{"You are a visualization output expert."},
		Prompt:      manifestPrompt(result, question),
		MaxTokens:   50,
		Temperature: 0.2,
		TopP:        1,
	})
	if err != nil {
		s.logger.WarnContext(ctx, "output_selection_failed", slog.String("error", err.Error()))
		return Selection{Decision: Table}, err
	}

	decision, ok := ParseDecision(reply)
	if !ok {
		s.logger.InfoContext(ctx, "output_selection_unrecognized", slog.String("reply", reply))
		return Selection{Decision: Table}, nil
	}
	if decision != Text {
		return Selection{Decision: decision}, nil
	}

	summary, err := s.summarize(ctx, tablePrompt(question, result, s.cfg.PreviewRows))
	if err != nil {
		return Selection{Decision: Text, Summary: "Failed to generate insight: " + err.Error()}, err
	}
	return Selection{Decision: Text, Summary: summary}, nil
}

func (s *Selector) summarize(ctx context.Context, prompt string) (string, error) {
	return s.generator.Generate(ctx, llm.Request{
		Purpose:     "summarize",
		System:      []string{"You are a helpful assistant providing insights based on database query results."},
		Prompt:      prompt,
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
		TopP:        s.cfg.TopP,
	})
}

func scalarPrompt(question string, value any) string {
	return fmt.Sprintf("The user asked: '%s'. The result from the database is '%s'. Provide a simple summary.", question, FormatValue(value))
}

func manifestPrompt(result query.Result, question string) string {
	columns := make([]string, len(result.Columns))
	for i, column := range result.Columns {
		columns[i] = fmt.Sprintf("%s (%s)", column.Name, column.Kind)
	}
	return fmt.Sprintf("Data columns: %s\nUser query: '%s'\nSuggest output type: 'text', 'table', or 'plot'.", strings.Join(columns, ", "), question)
}

func tablePrompt(question string, result query.Result, previewRows int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The user asked: '%s'. The result from the database has %d rows with columns %s.\n", question, len(result.Rows), strings.Join(result.ColumnNames(), ", "))
	for i, row := range result.Rows {
		if i == previewRows {
			b.WriteString("...\n")
			break
		}
		values := make([]string, len(row))
		for j, value := range row {
			values[j] = FormatValue(value)
		}
		b.WriteString(strings.Join(values, " | "))
		b.WriteString("\n")
	}
	b.WriteString("Provide a simple summary.")
	return b.String()
}
