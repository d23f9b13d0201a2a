package present

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/sqlchat/sqlchat/internal/llm"
	"github.com/sqlchat/sqlchat/internal/query"
)

type fakeGenerator struct {
	replies []string
	err     error
	calls   []llm.Request
}

func (f *fakeGenerator) Generate(_ context.Context, req llm.Request) (string, error) {
	f.calls = append(f.calls, req)
	if f.err != nil {
		return "", f.err
	}
	if len(f.replies) == 0 {
		return "", nil
	}
	reply := f.replies[0]
	f.replies = f.replies[1:]
	return reply, nil
}

func newTestSelector(gen llm.Generator) *Selector {
	return NewSelector(gen, SelectorConfig{MaxTokens: 200, Temperature: 0.7, TopP: 1, PreviewRows: 1}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func salesResult() query.Result {
	return query.Result{
		Kind: query.KindRows,
		Columns: []query.Column{
			{Name: "region", Kind: query.Categorical},
			{Name: "revenue", Kind: query.Numeric},
		},
		Rows: [][]any{{"North", 10.5}, {"South", int64(7)}},
	}
}

func TestSelectNonRowsIsTextWithoutGeneration(t *testing.T) {
	gen := &fakeGenerator{}
	selection, err := newTestSelector(gen).Select(context.Background(), query.Empty(query.MessageNoData), "q")
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if selection.Decision != Text || selection.Summary != query.MessageNoData {
		t.Fatalf("Select() = %#v", selection)
	}
	if len(gen.calls) != 0 {
		t.Fatalf("calls = %d", len(gen.calls))
	}
}

func TestSelectScalarSummarizes(t *testing.T) {
	gen := &fakeGenerator{replies: []string{"There are 42 employees."}}
	result := query.Result{Kind: query.KindRows, Columns: []query.Column{{Name: "n", Kind: query.Numeric}}, Rows: [][]any{{int64(42)}}}

	selection, err := newTestSelector(gen).Select(context.Background(), result, "how many employees?")
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if selection.Decision != Text || selection.Summary != "There are 42 employees." {
		t.Fatalf("Select() = %#v", selection)
	}
	want := "The user asked: 'how many employees?'. The result from the database is '42'. Provide a simple summary."
	if gen.calls[0].Prompt != want || gen.calls[0].Purpose != "summarize" || gen.calls[0].MaxTokens != 200 {
		t.Fatalf("request = %#v", gen.calls[0])
	}
}

func TestSelectScalarSummaryFailure(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("boom")}
	result := query.Result{Kind: query.KindRows, Columns: []query.Column{{Name: "n"}}, Rows: [][]any{{"x"}}}

	selection, err := newTestSelector(gen).Select(context.Background(), result, "q")
	if err == nil {
		t.Fatal("expected folded error")
	}
	if selection.Decision != Text || selection.Summary != "Failed to generate insight: boom" {
		t.Fatalf("Select() = %#v", selection)
	}
}

func TestSelectUsesManifestPrompt(t *testing.T) {
	gen := &fakeGenerator{replies: []string{"Plot."}}
	selection, err := newTestSelector(gen).Select(context.Background(), salesResult(), "revenue by region")
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if selection.Decision != Plot {
		t.Fatalf("Decision = %s", selection.Decision)
	}
	req := gen.calls[0]
	want := "Data columns: region (categorical), revenue (numeric)\nUser query: 'revenue by region'\nSuggest output type: 'text', 'table', or 'plot'."
	if req.Prompt != want {
		t.Fatalf("prompt = %q", req.Prompt)
	}
	if req.System[0] != "You are a visualization output expert." || req.MaxTokens != 50 || req.Temperature != 0.2 || req.TopP != 1 {
		t.Fatalf("request = %#v", req)
	}
}

func TestSelectFallsBackToTable(t *testing.T) {
	tests := []struct {
		name    string
		gen     *fakeGenerator
		wantErr bool
	}{
		{name: "unrecognized", gen: &fakeGenerator{replies: []string{"a pie chart would be lovely"}}},
		{name: "empty", gen: &fakeGenerator{replies: []string{""}}},
		{name: "service error", gen: &fakeGenerator{err: llm.ErrTimeout}, wantErr: true},
	}
	for _, tc := range tests {
		selection, err := newTestSelector(tc.gen).Select(context.Background(), salesResult(), "q")
		if (err != nil) != tc.wantErr {
			t.Fatalf("%s: Select() error = %v", tc.name, err)
		}
		if selection.Decision != Table || selection.Summary != "" {
			t.Fatalf("%s: Select() = %#v", tc.name, selection)
		}
	}
}

func TestSelectTextForTableAddsSummary(t *testing.T) {
	gen := &fakeGenerator{replies: []string{"text", "North leads."}}
	selection, err := newTestSelector(gen).Select(context.Background(), salesResult(), "revenue by region")
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if selection.Decision != Text || selection.Summary != "North leads." {
		t.Fatalf("Select() = %#v", selection)
	}
	prompt := gen.calls[1].Prompt
	if !strings.Contains(prompt, "North | 10.5") || strings.Contains(prompt, "South") || !strings.Contains(prompt, "...") {
		t.Fatalf("summary prompt = %q", prompt)
	}
}

func TestParseDecision(t *testing.T) {
	tests := []struct {
		raw  string
		want Decision
		ok   bool
	}{
		{raw: "TEXT", want: Text, ok: true},
		{raw: " 'table' ", want: Table, ok: true},
		{raw: "\"plot\"", want: Plot, ok: true},
		{raw: "chart", want: Table, ok: false},
	}
	for _, tc := range tests {
		got, ok := ParseDecision(tc.raw)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("ParseDecision(%q) = %s, %v", tc.raw, got, ok)
		}
	}
}
