package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/pterm/pterm"

	"github.com/sqlchat/sqlchat/internal/query"
)

func TestMain(m *testing.M) {
	pterm.DisableStyling()
	os.Exit(m.Run())
}

type recordedRequest struct {
	Method string
	Path   string
	Body   chatRequest
}

func newChatServer(t *testing.T, replies ...string) (*httptest.Server, *[]recordedRequest) {
	t.Helper()
	var requests []recordedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recordedRequest{Method: r.Method, Path: r.URL.Path}
		if r.Method == http.MethodPost {
			if err := json.NewDecoder(r.Body).Decode(&rec.Body); err != nil {
				t.Errorf("decode request: %v", err)
			}
		}
		requests = append(requests, rec)
		reply := replies[0]
		if len(replies) > 1 {
			replies = replies[1:]
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(srv.Close)
	return srv, &requests
}

func TestAskRendersTable(t *testing.T) {
	srv, requests := newChatServer(t, `{"conversation_id":"c1","type":"table","outcome":"rows","sql":"SELECT employee_name FROM Employee","columns":[{"name":"employee_name"}],"rows":[["Ada"],["Grace"]]}`)

	var stdout, stderr bytes.Buffer
	code := Run(context.Background(), []string{"--base-url", srv.URL, "ask", "--chart", "pie", "list", "employee", "names"}, Options{
		Stdout:  &stdout,
		Stderr:  &stderr,
		Timeout: 2 * time.Second,
	})
	if code != 0 {
		t.Fatalf("exit code = %d, stderr=%s", code, stderr.String())
	}
	got := (*requests)[0]
	if got.Method != http.MethodPost || got.Path != "/v1/chat" {
		t.Fatalf("request = %s %s", got.Method, got.Path)
	}
	if got.Body.Message != "list employee names" || got.Body.Chart != "pie" {
		t.Fatalf("body = %#v", got.Body)
	}
	out := stdout.String()
	for _, want := range []string{"SQL: SELECT employee_name FROM Employee", "employee_name", "Ada", "Grace"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestAskNotesTruncatedRows(t *testing.T) {
	srv, _ := newChatServer(t, `{"conversation_id":"c1","type":"table","outcome":"rows","sql":"SELECT employee_name FROM Employee","columns":[{"name":"employee_name"}],"rows":[["Ada"]],"truncated":true}`)

	var stdout bytes.Buffer
	if code := Run(context.Background(), []string{"--base-url", srv.URL, "ask", "list", "employees"}, Options{Stdout: &stdout}); code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if !strings.Contains(stdout.String(), "showing first 1 rows") {
		t.Fatalf("output = %s", stdout.String())
	}
}

func TestAskPrintsMessageForFailedTurn(t *testing.T) {
	srv, _ := newChatServer(t, `{"conversation_id":"c1","type":"text","outcome":"not_answerable","sql":"N/A","content":"The query could not be answered."}`)

	var stdout bytes.Buffer
	code := Run(context.Background(), []string{"--base-url", srv.URL, "ask", "weather?"}, Options{Stdout: &stdout})
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if stdout.String() != "SQL: N/A\nThe query could not be answered.\n" {
		t.Fatalf("output = %q", stdout.String())
	}
}

func TestAskSummarizesPlot(t *testing.T) {
	srv, _ := newChatServer(t, `{"conversation_id":"c1","type":"plot","outcome":"rows","sql":"SELECT status, COUNT(*) FROM Task GROUP BY status",
		"columns":[{"name":"status"},{"name":"n"}],"rows":[["OPEN",3],["DONE",1]],
		"chart":{"chart_type":"bar","x_axis":"status","y_axis":"n","series":[{"name":"n","points":[{"label":"OPEN","value":3},{"label":"DONE","value":1}]}]}}`)

	var stdout bytes.Buffer
	if code := Run(context.Background(), []string{"--base-url", srv.URL, "ask", "tasks by status"}, Options{Stdout: &stdout}); code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if !strings.Contains(stdout.String(), "chart: bar x=status y=n (1 series, 2 points)") {
		t.Fatalf("output = %s", stdout.String())
	}
}

func TestReplKeepsConversationAndStopsOnExit(t *testing.T) {
	srv, requests := newChatServer(t,
		`{"conversation_id":"c9","type":"text","outcome":"greeting","sql":"N/A","content":"Hello!"}`,
		`{"conversation_id":"c9","type":"text","outcome":"rows","sql":"SELECT COUNT(*) FROM Employee","content":"There are 5 employees."}`,
	)

	var stdout bytes.Buffer
	code := Run(context.Background(), []string{"--base-url", srv.URL, "repl"}, Options{
		Stdin:  strings.NewReader("hi\n\nhow many employees?\n EXIT \nnever sent\n"),
		Stdout: &stdout,
	})
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if len(*requests) != 2 {
		t.Fatalf("requests = %d, want 2", len(*requests))
	}
	if (*requests)[0].Body.ConversationID != "" || (*requests)[1].Body.ConversationID != "c9" {
		t.Fatalf("conversation ids = %q, %q", (*requests)[0].Body.ConversationID, (*requests)[1].Body.ConversationID)
	}
	if !strings.Contains(stdout.String(), "There are 5 employees.") {
		t.Fatalf("output = %s", stdout.String())
	}
}

func TestReplContinuesAfterRequestError(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error_code":"NOT_READY","message":"dependency not ready"}`))
			return
		}
		_, _ = w.Write([]byte(`{"conversation_id":"c1","type":"text","outcome":"greeting","sql":"N/A","content":"Hello!"}`))
	}))
	defer srv.Close()

	var stdout, stderr bytes.Buffer
	code := Run(context.Background(), []string{"--base-url", srv.URL, "repl"}, Options{
		Stdin:  strings.NewReader("hi\nhi\n"),
		Stdout: &stdout,
		Stderr: &stderr,
	})
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if !strings.Contains(stderr.String(), "NOT_READY") || !strings.Contains(stdout.String(), "Hello!") {
		t.Fatalf("stdout=%q stderr=%q", stdout.String(), stderr.String())
	}
}

func TestSchemaCommand(t *testing.T) {
	srv, requests := newChatServer(t, `{"tables":[{"name":"Employee","definition":"employee_id INT"}]}`)

	var stdout bytes.Buffer
	if code := Run(context.Background(), []string{"--base-url", srv.URL, "schema"}, Options{Stdout: &stdout}); code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if (*requests)[0].Path != "/v1/schema" || !strings.Contains(stdout.String(), "employee_id INT") {
		t.Fatalf("path=%s output=%s", (*requests)[0].Path, stdout.String())
	}
}

func TestResetCommand(t *testing.T) {
	srv, requests := newChatServer(t, `{"conversation_id":"c1","reset":true,"archived_objects_purged":2}`)

	var stdout bytes.Buffer
	if code := Run(context.Background(), []string{"--base-url", srv.URL, "reset", "c1"}, Options{Stdout: &stdout}); code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	got := (*requests)[0]
	if got.Method != http.MethodDelete || got.Path != "/v1/conversations/c1" {
		t.Fatalf("request = %s %s", got.Method, got.Path)
	}
}

func TestRunReturnsErrorOnHTTPFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotImplemented)
		_, _ = w.Write([]byte(`{"error_code":"ARCHIVE_NOT_CONFIGURED","message":"turn archive is disabled"}`))
	}))
	defer srv.Close()

	var stderr bytes.Buffer
	code := Run(context.Background(), []string{"--base-url", srv.URL, "turns", "c1"}, Options{Stderr: &stderr})
	if code != 1 {
		t.Fatalf("exit code = %d, stderr=%s", code, stderr.String())
	}
	if !strings.Contains(stderr.String(), "http 501 ARCHIVE_NOT_CONFIGURED: turn archive is disabled") {
		t.Fatalf("stderr = %s", stderr.String())
	}
}

func TestRunUsageErrors(t *testing.T) {
	for _, args := range [][]string{{"unknown"}, {"schema", "--no-such-flag"}} {
		var stderr bytes.Buffer
		if code := Run(context.Background(), args, Options{Stderr: &stderr}); code != 2 {
			t.Fatalf("Run(%v) exit code = %d", args, code)
		}
		if !strings.Contains(stderr.String(), "Usage:") {
			t.Fatalf("Run(%v) expected usage output, got %s", args, stderr.String())
		}
	}
}

type fakeArchive struct {
	result query.Result
	err    error
	gotSQL string
	gotID  string
	limit  int
}

func (f *fakeArchive) Query(_ context.Context, conversationID, sqlText string, rowLimit int) (query.Result, error) {
	f.gotID, f.gotSQL, f.limit = conversationID, sqlText, rowLimit
	return f.result, f.err
}

func TestArchiveQuery(t *testing.T) {
	archive := &fakeArchive{result: query.Result{
		Kind:    query.KindRows,
		Columns: []query.Column{{Name: "turn"}, {Name: "cells"}},
		Rows:    [][]any{{int64(1771495200000000042), int64(8)}},
	}}
	var stdout, stderr bytes.Buffer
	code := Run(context.Background(), []string{"archive", "query", "--limit", "5", "c1", "SELECT turn, COUNT(*) AS cells", "FROM cells GROUP BY turn"}, Options{
		Stdout: &stdout,
		Stderr: &stderr,
		OpenArchive: func(context.Context) (ArchiveQuerier, error) {
			return archive, nil
		},
	})
	if code != 0 {
		t.Fatalf("exit code = %d, stderr=%s", code, stderr.String())
	}
	if archive.gotID != "c1" || archive.gotSQL != "SELECT turn, COUNT(*) AS cells FROM cells GROUP BY turn" || archive.limit != 5 {
		t.Fatalf("archive call = %#v", archive)
	}
	if !strings.Contains(stdout.String(), "1771495200000000042") {
		t.Fatalf("output = %s", stdout.String())
	}
}

func TestArchiveQueryFailures(t *testing.T) {
	if code := Run(context.Background(), []string{"archive", "query", "c1", "SELECT 1"}, Options{}); code != 1 {
		t.Fatalf("unconfigured exit code = %d", code)
	}
	var stderr bytes.Buffer
	code := Run(context.Background(), []string{"archive", "query", "c1", "SELECT 1"}, Options{
		Stderr: &stderr,
		OpenArchive: func(context.Context) (ArchiveQuerier, error) {
			return nil, errors.New("bucket unreachable")
		},
	})
	if code != 1 || !strings.Contains(stderr.String(), "open archive: bucket unreachable") {
		t.Fatalf("exit code = %d, stderr=%s", code, stderr.String())
	}
}
