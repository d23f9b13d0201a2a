package classify

import (
	"context"
	"fmt"
	"strings"

	"github.com/sqlchat/sqlchat/internal/llm"
)

type Label int

const (
	Unclassifiable Label = iota
	Greeting
	Question
)

func (l Label) String() string {
	switch l {
	case Greeting:
		return "greeting"
	case Question:
		return "question"
	default:
		return "unclassifiable"
	}
}

const (
	GreetingReply       = "Hello! How can I assist you today?"
	UnclassifiableReply = "Sorry, I couldn't classify your input. Please try again."

	systemInstruction = "You are a user input classifier."
)

// Classifier decides whether an utterance needs data or is small talk.
type Classifier struct {
	generator llm.Generator
}

func New(generator llm.Generator) *Classifier {
	return &Classifier{generator: generator}
}

// Classify returns Unclassifiable for any reply other than GREETING or QUESTION.
// Errors from the generator are returned unchanged in meaning.
func (c *Classifier) Classify(ctx context.Context, utterance string) (Label, error) {
	reply, err := c.generator.Generate(ctx, llm.Request{
		Purpose:     "classify",
		System:      []string{systemInstruction},
		Prompt:      buildPrompt(utterance),
		MaxTokens:   10,
		Temperature: 0,
		TopP:        1,
	})
	if err != nil {
		return Unclassifiable, fmt.Errorf("classify input: %w", err)
	}
	return parseLabel(reply), nil
}

func buildPrompt(utterance string) string {
	return fmt.Sprintf("Determine if this input is a greeting or a question:\n%q\nRespond with GREETING or QUESTION only.", strings.TrimSpace(utterance))
}

func parseLabel(reply string) Label {
	switch strings.ToUpper(strings.TrimSpace(reply)) {
	case "GREETING":
		return Greeting
	case "QUESTION":
		return Question
	default:
		return Unclassifiable
	}
}
