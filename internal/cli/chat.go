package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/spf13/cobra"
)

const replExitCommand = "exit"

type chatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id,omitempty"`
	Chart          string `json:"chart,omitempty"`
}

type chatReply struct {
	ConversationID string         `json:"conversation_id"`
	Type           string         `json:"type"`
	Outcome        string         `json:"outcome"`
	SQL            string         `json:"sql"`
	Content        string         `json:"content"`
	Columns        []columnHeader `json:"columns"`
	Rows           [][]any        `json:"rows"`
	Truncated      bool           `json:"truncated"`
	Chart          *chartSummary  `json:"chart"`
	Message        string         `json:"message"`
	Error          string         `json:"error"`
}

type columnHeader struct {
	Name string `json:"name"`
}

type chartSummary struct {
	ChartType string `json:"chart_type"`
	XAxis     string `json:"x_axis"`
	YAxis     string `json:"y_axis"`
	Series    []struct {
		Name   string `json:"name"`
		Points []any  `json:"points"`
	} `json:"series"`
}

func newAskCommand(opts *rootOptions) *cobra.Command {
	var chart string
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask one question and print the answer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reply, err := ask(cmd.Context(), opts, strings.Join(args, " "), chart)
			if err != nil {
				return err
			}
			return writeReply(cmd.OutOrStdout(), opts, reply)
		},
	}
	cmd.Flags().StringVar(&chart, "chart", "", "chart family for plot answers (line|bar|scatter|histogram|pie|trend)")
	return cmd
}

func newReplCommand(opts *rootOptions) *cobra.Command {
	var chart string
	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Interactive question loop; type exit to quit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return repl(cmd.Context(), opts, chart, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	cmd.Flags().StringVar(&chart, "chart", "", "chart family for plot answers")
	return cmd
}

// repl keeps one conversation for the whole session. Failed turns are
// reported and the loop continues.
func repl(ctx context.Context, opts *rootOptions, chart string, in io.Reader, out, errOut io.Writer) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		_, _ = fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			_, _ = fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.EqualFold(line, replExitCommand) {
			return nil
		}

		reply, err := ask(ctx, opts, line, chart)
		if err != nil {
			_, _ = fmt.Fprintf(errOut, "error: %v\n", err)
			continue
		}
		opts.conversationID = reply.ConversationID
		if err := writeReply(out, opts, reply); err != nil {
			return err
		}
	}
}

func ask(ctx context.Context, opts *rootOptions, question, chart string) (chatReply, error) {
	var reply chatReply
	err := opts.client().do(ctx, http.MethodPost, "/v1/chat", chatRequest{
		Message:        question,
		ConversationID: opts.conversationID,
		Chart:          chart,
	}, &reply)
	return reply, err
}

func writeReply(w io.Writer, opts *rootOptions, reply chatReply) error {
	if opts.raw {
		_, err := fmt.Fprintln(w, prettyJSON(reply))
		return err
	}

	_, _ = fmt.Fprintf(w, "SQL: %s\n", reply.SQL)
	switch {
	case reply.Outcome != "rows":
		_, _ = fmt.Fprintln(w, reply.Content)
		return nil
	case reply.Type == "text":
		_, _ = fmt.Fprintln(w, reply.Content)
		return nil
	}

	headers := make([]string, len(reply.Columns))
	for i, column := range reply.Columns {
		headers[i] = column.Name
	}
	if err := writeTable(w, headers, reply.Rows); err != nil {
		return err
	}
	if reply.Truncated {
		_, _ = fmt.Fprintf(w, "showing first %d rows\n", len(reply.Rows))
	}
	if reply.Type == "plot" && reply.Chart != nil {
		points := 0
		for _, series := range reply.Chart.Series {
			points += len(series.Points)
		}
		_, _ = fmt.Fprintf(w, "chart: %s x=%s y=%s (%d series, %d points)\n",
			reply.Chart.ChartType, reply.Chart.XAxis, reply.Chart.YAxis, len(reply.Chart.Series), points)
	}
	return nil
}
