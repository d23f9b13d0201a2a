package nl2sql

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sqlchat/sqlchat/internal/conversation"
	"github.com/sqlchat/sqlchat/internal/llm"
	"github.com/sqlchat/sqlchat/internal/schema"
)

type Config struct {
	Dialect     string
	MaxTokens   int
	Temperature float64
	TopP        float64
}

// Synthesizer turns a question into at most one validated statement.
type Synthesizer struct {
	generator llm.Generator
	catalog   schema.Catalog
	cfg       Config
	logger    *slog.Logger
}

func New(generator llm.Generator, catalog schema.Catalog, cfg Config, logger *slog.Logger) *Synthesizer {
	if strings.TrimSpace(cfg.Dialect) == "" {
		cfg.Dialect = "SQLite"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Synthesizer{generator: generator, catalog: catalog, cfg: cfg, logger: logger}
}

// Generate returns the validated statement, or false when none could be produced.
func (s *Synthesizer) Generate(ctx context.Context, utterance string, history *conversation.Context) (Statement, bool) {
	stmt, err := s.Synthesize(ctx, utterance, history)
	if err != nil {
		return Statement{}, false
	}
	return stmt, true
}

// Synthesize makes exactly one generation call. Generator failures are returned
// wrapped; rejected candidates return ErrNotAnswerable, ErrEmptyStatement or
// ErrDisallowedKeyword. The prompt is appended to history after every call
// that reached the model, accepted or not.
func (s *Synthesizer) Synthesize(ctx context.Context, utterance string, history *conversation.Context) (Statement, error) {
	prompt := s.buildPrompt(utterance)
	req := s.buildRequest(prompt, history)

	s.logger.InfoContext(ctx, "sql_synthesis_started", slog.String("question", utterance))
	raw, err := s.generator.Generate(ctx, req)
	if err != nil {
		s.logger.ErrorContext(ctx, "sql_synthesis_failed", slog.String("error", err.Error()))
		return Statement{}, fmt.Errorf("generate sql: %w", err)
	}
	if history != nil {
		history.Append(conversation.Turn{Role: conversation.RoleUser, Text: prompt})
	}

	stmt, err := Validate(ExtractSQL(raw))
	if err != nil {
		s.logger.InfoContext(ctx, "sql_candidate_rejected",
			slog.String("raw", raw),
			slog.String("reason", err.Error()),
		)
		return Statement{}, err
	}
	s.logger.InfoContext(ctx, "sql_synthesized", slog.String("sql", stmt.SQL))
	return stmt, nil
}

func (s *Synthesizer) buildRequest(prompt string, history *conversation.Context) llm.Request {
	var turns []conversation.Turn
	if history != nil {
		turns = history.Turns()
	}
	return llm.Request{
		Purpose: "synthesize",
		System: []string{
			"You are a professional SQL query generator. Use the user's input and the schema context to write a correct SQL query.\n" +
				"Previous requests in this conversation, oldest first:\n" + renderHistory(turns),
			"Follow these steps in order:\n" +
				"1. Understand the intent of the request (SELECT, UPDATE, ...).\n" +
				"2. Match tables and columns from the provided schema only.\n" +
				"3. Resolve vague references, abbreviations and homophones.\n" +
				"4. Use " + s.cfg.Dialect + " syntax only.\n" +
				"5. Return exactly one SQL statement, or " + NoSQLSentinel + " if the request cannot be answered.",
		},
		Prompt:      prompt,
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
		TopP:        s.cfg.TopP,
	}
}

func (s *Synthesizer) buildPrompt(utterance string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are an expert in SQL and use only %s syntax.\n", s.cfg.Dialect)
	fmt.Fprintf(&b, "- If the query cannot be answered based on the schema, respond with %q.\n", NoSQLSentinel)
	fmt.Fprintf(&b, "Table Schemas:\n%s\n\n", s.catalog.Render())
	fmt.Fprintf(&b, "Natural Language Query:\n%s\n\n", strings.TrimSpace(utterance))
	b.WriteString("SQL Query:\n")
	return b.String()
}

func renderHistory(turns []conversation.Turn) string {
	if len(turns) == 0 {
		return "(none)"
	}
	lines := make([]string, 0, len(turns))
	for _, turn := range turns {
		lines = append(lines, fmt.Sprintf("[%s] %s", turn.Role, turn.Text))
	}
	return strings.Join(lines, "\n")
}
