package cli

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

type schemaReply struct {
	Tables []struct {
		Name       string `json:"name"`
		Definition string `json:"definition"`
	} `json:"tables"`
}

type turnsReply struct {
	ConversationID string `json:"conversation_id"`
	Turns          []struct {
		Question   string    `json:"question"`
		SQL        string    `json:"sql"`
		Decision   string    `json:"decision"`
		RowCount   int       `json:"row_count"`
		RecordedAt time.Time `json:"recorded_at"`
	} `json:"turns"`
}

func newSchemaCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Show the tables the service prompts with",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var reply schemaReply
			if err := opts.client().do(cmd.Context(), http.MethodGet, "/v1/schema", nil, &reply); err != nil {
				return err
			}
			if opts.raw {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), prettyJSON(reply))
				return nil
			}
			rows := make([][]any, 0, len(reply.Tables))
			for _, table := range reply.Tables {
				rows = append(rows, []any{table.Name, table.Definition})
			}
			return writeTable(cmd.OutOrStdout(), []string{"table", "definition"}, rows)
		},
	}
}

func newTurnsCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "turns <conversation-id>",
		Short: "List archived turns of a conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var reply turnsReply
			path := "/v1/conversations/" + url.PathEscape(args[0]) + "/turns"
			if err := opts.client().do(cmd.Context(), http.MethodGet, path, nil, &reply); err != nil {
				return err
			}
			if opts.raw {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), prettyJSON(reply))
				return nil
			}
			rows := make([][]any, 0, len(reply.Turns))
			for _, turn := range reply.Turns {
				rows = append(rows, []any{turn.RecordedAt.UTC().Format(time.RFC3339), turn.Question, turn.SQL, turn.Decision, turn.RowCount})
			}
			return writeTable(cmd.OutOrStdout(), []string{"recorded_at", "question", "sql", "decision", "rows"}, rows)
		},
	}
}

func newResetCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reset <conversation-id>",
		Short: "Forget a conversation and purge its archived turns",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var reply map[string]any
			if err := opts.client().do(cmd.Context(), http.MethodDelete, "/v1/conversations/"+url.PathEscape(args[0]), nil, &reply); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), prettyJSON(reply))
			return nil
		},
	}
}

func newArchiveCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Inspect archived turn results",
	}

	var limit int
	queryCmd := &cobra.Command{
		Use:   "query <conversation-id> <sql>",
		Short: "Run SQL over the cells view of a conversation's archived results",
		Long: `Run SQL over the archived result cells of one conversation.

The archive is exposed as a view named cells with columns
turn, row, column, kind, value and is_null.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.openArchive == nil {
				return fmt.Errorf("turn archive is not configured")
			}
			inspector, err := opts.openArchive(cmd.Context())
			if err != nil {
				return fmt.Errorf("open archive: %w", err)
			}
			result, err := inspector.Query(cmd.Context(), args[0], strings.Join(args[1:], " "), limit)
			if err != nil {
				return err
			}
			if !result.HasRows() {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), result.Message)
				return nil
			}
			headers := make([]string, len(result.Columns))
			for i, column := range result.Columns {
				headers[i] = column.Name
			}
			return writeTable(cmd.OutOrStdout(), headers, result.Rows)
		},
	}
	queryCmd.Flags().IntVar(&limit, "limit", 200, "maximum rows to print; 0 disables the limit")

	cmd.AddCommand(queryCmd)
	return cmd
}
