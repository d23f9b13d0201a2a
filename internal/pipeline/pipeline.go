package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sqlchat/sqlchat/internal/archive"
	"github.com/sqlchat/sqlchat/internal/classify"
	"github.com/sqlchat/sqlchat/internal/conversation"
	"github.com/sqlchat/sqlchat/internal/nl2sql"
	"github.com/sqlchat/sqlchat/internal/observability"
	"github.com/sqlchat/sqlchat/internal/present"
	"github.com/sqlchat/sqlchat/internal/query"
)

const (
	NotApplicable        = "N/A"
	ApologyMessage       = "Sorry, something went wrong while processing your request. Please try again."
	NotAnswerableMessage = "Sorry, this question cannot be answered with the information currently in the Database."
	EmptyMessageReply    = "Please enter a question."
)

type Executor interface {
	Execute(ctx context.Context, stmt *nl2sql.Statement) query.Result
}

type Archive interface {
	Record(ctx context.Context, turn archive.Turn) error
}

type Request struct {
	ConversationID string
	Message        string
	ChartFamily    string
}

// Response is the outcome of one turn. SQL is NotApplicable when no statement
// was executed. Message is always safe to show; Error carries diagnostics.
type Response struct {
	ConversationID string
	Outcome        Outcome
	SQL            string
	Result         query.Result
	Decision       present.Decision
	Summary        string
	ChartSpec      *present.ChartSpec
	Chart          *present.Figure
	Message        string
	Error          string
}

type Deps struct {
	Classifier    *classify.Classifier
	Synthesizer   *nl2sql.Synthesizer
	Executor      Executor
	Selector      *present.Selector
	Conversations *conversation.Store
	// Archive is optional.
	Archive Archive
	Logger  *slog.Logger
}

type Pipeline struct {
	classifier    *classify.Classifier
	synthesizer   *nl2sql.Synthesizer
	executor      Executor
	selector      *present.Selector
	conversations *conversation.Store
	archive       Archive
	logger        *slog.Logger
}

func New(deps Deps) (*Pipeline, error) {
	switch {
	case deps.Classifier == nil:
		return nil, fmt.Errorf("classifier is required")
	case deps.Synthesizer == nil:
		return nil, fmt.Errorf("synthesizer is required")
	case deps.Executor == nil:
		return nil, fmt.Errorf("executor is required")
	case deps.Selector == nil:
		return nil, fmt.Errorf("selector is required")
	case deps.Conversations == nil:
		return nil, fmt.Errorf("conversation store is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		classifier:    deps.Classifier,
		synthesizer:   deps.Synthesizer,
		executor:      deps.Executor,
		selector:      deps.Selector,
		conversations: deps.Conversations,
		archive:       deps.Archive,
		logger:        logger,
	}, nil
}

// Reset forgets the history of a conversation.
func (p *Pipeline) Reset(conversationID string) bool {
	return p.conversations.Delete(conversationID)
}

// Run handles one user turn: classify, synthesize, execute, sanitize, select
// and optionally chart. It never returns an error; failures are folded into
// the Response.
func (p *Pipeline) Run(ctx context.Context, req Request) (resp Response) {
	id, history := p.conversations.Get(req.ConversationID)
	resp = Response{ConversationID: id, SQL: NotApplicable, Decision: present.Text}
	logger := p.logger.With(
		slog.String("trace_id", observability.TraceIDFromContext(ctx)),
		slog.String("conversation_id", id),
	)
	defer func() {
		observability.ObserveTurn(resp.Outcome.String())
		logger.InfoContext(ctx, "turn_completed",
			slog.String("outcome", resp.Outcome.String()),
			slog.String("decision", resp.Decision.String()),
			slog.String("sql", resp.SQL),
		)
	}()

	message := strings.TrimSpace(req.Message)
	if message == "" {
		resp.Outcome = OutcomeUnclassifiable
		resp.Message = EmptyMessageReply
		return resp
	}

	label, err := p.classifier.Classify(ctx, message)
	if err != nil {
		logger.ErrorContext(ctx, "classification_failed", slog.String("error", err.Error()))
		resp.Outcome = OutcomeClassificationFailed
		resp.Message = ApologyMessage
		resp.Error = err.Error()
		return resp
	}
	switch label {
	case classify.Greeting:
		resp.Outcome = OutcomeGreeting
		resp.Message = classify.GreetingReply
		return resp
	case classify.Unclassifiable:
		resp.Outcome = OutcomeUnclassifiable
		resp.Message = classify.UnclassifiableReply
		return resp
	}

	stmt, err := p.synthesizer.Synthesize(ctx, message, history)
	if err != nil {
		if isRejection(err) {
			resp.Outcome = OutcomeNotAnswerable
			resp.Message = NotAnswerableMessage
			return resp
		}
		resp.Outcome = OutcomeSynthesisFailed
		resp.Message = ApologyMessage
		resp.Error = err.Error()
		return resp
	}
	resp.SQL = stmt.SQL

	result := p.executor.Execute(ctx, &stmt)
	resp.Result = result
	switch result.Kind {
	case query.KindUnexpected:
		resp.Outcome = OutcomeUnexpected
		resp.Message = ApologyMessage
		resp.Error = result.Message
		return resp
	case query.KindDBError:
		resp.Message = result.Message
		if result.SchemaViolation {
			resp.Outcome = OutcomeSchemaViolation
			return resp
		}
		resp.Outcome = OutcomeExecutionError
		resp.Error = result.Detail
		return resp
	case query.KindEmpty:
		resp.Outcome = OutcomeEmpty
		resp.Message = result.Message
		return resp
	}

	sanitized := present.Sanitize(result)
	resp.Outcome = OutcomeRows
	resp.Result = sanitized

	selection, err := p.selector.Select(ctx, sanitized, message)
	if err != nil {
		logger.WarnContext(ctx, "presentation_degraded", slog.String("error", err.Error()))
	}
	resp.Decision = selection.Decision
	resp.Summary = selection.Summary
	if resp.Decision == present.Plot {
		p.attachChart(ctx, logger, &resp, req.ChartFamily, message)
	}

	p.record(ctx, logger, message, resp)
	return resp
}

func (p *Pipeline) attachChart(ctx context.Context, logger *slog.Logger, resp *Response, requested, question string) {
	family := strings.TrimSpace(requested)
	if family == "" {
		family = SuggestFamily(question)
	}
	spec := present.ChooseChart(resp.Result, family)
	if spec == nil {
		logger.InfoContext(ctx, "chart_infeasible", slog.String("family", family))
		resp.Decision = present.Table
		return
	}
	figure, err := present.RenderChart(resp.Result, spec)
	if err != nil {
		logger.WarnContext(ctx, "chart_render_failed", slog.String("family", family), slog.String("error", err.Error()))
		resp.Decision = present.Table
		return
	}
	resp.ChartSpec = spec
	resp.Chart = figure
}

func (p *Pipeline) record(ctx context.Context, logger *slog.Logger, question string, resp Response) {
	if p.archive == nil {
		return
	}
	err := p.archive.Record(ctx, archive.Turn{
		ConversationID: resp.ConversationID,
		Question:       question,
		SQL:            resp.SQL,
		Decision:       resp.Decision.String(),
		Result:         resp.Result,
	})
	if err != nil {
		logger.WarnContext(ctx, "turn_archive_failed", slog.String("error", err.Error()))
	}
}

func isRejection(err error) bool {
	return errors.Is(err, nl2sql.ErrNotAnswerable) ||
		errors.Is(err, nl2sql.ErrEmptyStatement) ||
		errors.Is(err, nl2sql.ErrDisallowedKeyword)
}
