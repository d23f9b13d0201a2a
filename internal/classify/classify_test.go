package classify

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sqlchat/sqlchat/internal/llm"
)

type fakeGenerator struct {
	reply string
	err   error
	calls []llm.Request
}

func (f *fakeGenerator) Generate(_ context.Context, req llm.Request) (string, error) {
	f.calls = append(f.calls, req)
	return f.reply, f.err
}

func TestClassifyLabels(t *testing.T) {
	tests := map[string]Label{
		"GREETING":       Greeting,
		" greeting\n":    Greeting,
		"Question":       Question,
		"QUESTION.":      Unclassifiable,
		"I think so":     Unclassifiable,
		"":               Unclassifiable,
		"GREETING OR NO": Unclassifiable,
	}
	for reply, want := range tests {
		gen := &fakeGenerator{reply: reply}
		got, err := New(gen).Classify(context.Background(), "hello")
		if err != nil {
			t.Fatalf("Classify() error = %v", err)
		}
		if got != want {
			t.Fatalf("Classify() with reply %q = %v, want %v", reply, got, want)
		}
	}
}

func TestClassifySendsFixedSamplingParams(t *testing.T) {
	gen := &fakeGenerator{reply: "QUESTION"}
	if _, err := New(gen).Classify(context.Background(), "  how many employees?  "); err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if len(gen.calls) != 1 {
		t.Fatalf("calls = %d, want 1", len(gen.calls))
	}
	req := gen.calls[0]
	if req.MaxTokens != 10 || req.Temperature != 0 || req.TopP != 1 {
		t.Fatalf("sampling = %d/%v/%v", req.MaxTokens, req.Temperature, req.TopP)
	}
	if req.Purpose != "classify" || len(req.System) != 1 || req.System[0] != systemInstruction {
		t.Fatalf("request = %#v", req)
	}
	if !strings.Contains(req.Prompt, `"how many employees?"`) || !strings.HasSuffix(req.Prompt, "Respond with GREETING or QUESTION only.") {
		t.Fatalf("prompt = %q", req.Prompt)
	}
}

func TestClassifyPropagatesGeneratorError(t *testing.T) {
	boom := errors.New("connection refused")
	got, err := New(&fakeGenerator{err: boom}).Classify(context.Background(), "hi")
	if !errors.Is(err, boom) {
		t.Fatalf("Classify() error = %v", err)
	}
	if got != Unclassifiable {
		t.Fatalf("Classify() = %v on error", got)
	}
}

func TestLabelString(t *testing.T) {
	if Greeting.String() != "greeting" || Question.String() != "question" || Unclassifiable.String() != "unclassifiable" {
		t.Fatal("unexpected label strings")
	}
}
