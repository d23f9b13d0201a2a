package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sqlchat/sqlchat/internal/query"
)

// ArchiveQuerier runs ad-hoc SQL over the archived turns of one conversation.
type ArchiveQuerier interface {
	Query(ctx context.Context, conversationID, sqlText string, rowLimit int) (query.Result, error)
}

type Options struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Stdin      io.Reader
	Stdout     io.Writer
	Stderr     io.Writer
	// OpenArchive is called lazily by `archive query`; nil disables the command.
	OpenArchive func(ctx context.Context) (ArchiveQuerier, error)
}

type rootOptions struct {
	baseURL        string
	timeout        time.Duration
	conversationID string
	raw            bool

	httpClient  *http.Client
	openArchive func(ctx context.Context) (ArchiveQuerier, error)
}

func (o *rootOptions) client() *apiClient {
	client := o.httpClient
	if client == nil {
		client = &http.Client{Timeout: o.timeout}
	}
	return &apiClient{baseURL: o.baseURL, http: client}
}

// Run executes the sqlchat command line and returns the process exit code.
func Run(ctx context.Context, args []string, defaults Options) int {
	stdout := defaults.Stdout
	if stdout == nil {
		stdout = io.Discard
	}
	stderr := defaults.Stderr
	if stderr == nil {
		stderr = io.Discard
	}
	stdin := defaults.Stdin
	if stdin == nil {
		stdin = strings.NewReader("")
	}

	cmd := NewRootCommand(defaults)
	cmd.SetArgs(args)
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	if err := cmd.ExecuteContext(ctx); err != nil {
		_, _ = fmt.Fprintf(stderr, "error: %v\n", err)
		var usage *usageError
		if errors.As(err, &usage) || strings.HasPrefix(err.Error(), "unknown command") {
			_, _ = fmt.Fprintln(stderr)
			_, _ = fmt.Fprint(stderr, cmd.UsageString())
			return 2
		}
		return 1
	}
	return 0
}

type usageError struct{ err error }

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func NewRootCommand(defaults Options) *cobra.Command {
	opts := &rootOptions{
		httpClient:  defaults.HTTPClient,
		openArchive: defaults.OpenArchive,
	}

	cmd := &cobra.Command{
		Use:           "sqlchat",
		Short:         "Ask business questions against the sqlchat API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{err: err}
	})
	cmd.PersistentFlags().StringVar(&opts.baseURL, "base-url", firstNonEmpty(defaults.BaseURL, "http://localhost:8080"), "sqlchat API base URL")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", durationOr(defaults.Timeout, 60*time.Second), "HTTP timeout (e.g. 60s)")
	cmd.PersistentFlags().StringVarP(&opts.conversationID, "conversation", "c", "", "conversation id to continue")
	cmd.PersistentFlags().BoolVar(&opts.raw, "json", false, "print raw JSON responses")

	cmd.AddCommand(newHealthCommand(opts))
	cmd.AddCommand(newAskCommand(opts))
	cmd.AddCommand(newReplCommand(opts))
	cmd.AddCommand(newSchemaCommand(opts))
	cmd.AddCommand(newTurnsCommand(opts))
	cmd.AddCommand(newResetCommand(opts))
	cmd.AddCommand(newArchiveCommand(opts))
	return cmd
}

func newHealthCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check API liveness and readiness",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client := opts.client()
			for _, path := range []string{"/v1/health", "/v1/ready"} {
				var body map[string]any
				if err := client.do(cmd.Context(), http.MethodGet, path, nil, &body); err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), prettyJSON(body))
			}
			return nil
		},
	}
}

func firstNonEmpty(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return strings.TrimSpace(a)
	}
	return b
}

func durationOr(v, fallback time.Duration) time.Duration {
	if v > 0 {
		return v
	}
	return fallback
}
