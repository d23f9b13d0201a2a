package archive

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	_ "github.com/marcboeker/go-duckdb/v2"

	"github.com/sqlchat/sqlchat/internal/query"
	"github.com/sqlchat/sqlchat/internal/storage"
)

// Inspector runs ad-hoc SQL over the archived cells of one conversation. The
// parquet objects are exposed to DuckDB as a view named cells with an extra
// turn column holding the turn timestamp in unix nanoseconds.
type Inspector struct {
	store storage.ObjectStore
}

func NewInspector(store storage.ObjectStore) *Inspector {
	return &Inspector{store: store}
}

func (i *Inspector) Query(ctx context.Context, conversationID, sqlText string, rowLimit int) (query.Result, error) {
	sqlText = query.StripTrailingSemicolons(sqlText)
	if sqlText == "" {
		return query.Result{}, fmt.Errorf("sql is required")
	}
	if i.store == nil {
		return query.Result{}, fmt.Errorf("object store is required")
	}
	prefix, err := storage.ConversationPrefix(conversationID)
	if err != nil {
		return query.Result{}, err
	}
	objects, err := i.store.List(ctx, prefix)
	if err != nil {
		return query.Result{}, fmt.Errorf("list conversation objects: %w", err)
	}

	workDir, err := os.MkdirTemp("", "sqlchat-archive-")
	if err != nil {
		return query.Result{}, fmt.Errorf("create inspect temp dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(workDir) }()

	var localPaths []string
	for _, object := range objects {
		if !strings.HasSuffix(object.Key, ".parquet") {
			continue
		}
		localPath := filepath.Join(workDir, path.Base(object.Key))
		if err := i.download(ctx, object.Key, localPath); err != nil {
			return query.Result{}, err
		}
		localPaths = append(localPaths, localPath)
	}
	if len(localPaths) == 0 {
		return query.Result{}, fmt.Errorf("no archived turns for conversation %q", conversationID)
	}

	db, err := sql.Open("duckdb", "")
	if err != nil {
		return query.Result{}, fmt.Errorf("open duckdb: %w", err)
	}
	defer func() { _ = db.Close() }()

	viewSQL := fmt.Sprintf(
		`CREATE OR REPLACE VIEW cells AS SELECT "row", "column", kind, value, is_null, CAST(regexp_extract(filename, 'turn-([0-9]+)', 1) AS BIGINT) AS turn FROM read_parquet(%s, filename = true)`,
		quoteStringArray(localPaths),
	)
	if _, err := db.ExecContext(ctx, viewSQL); err != nil {
		return query.Result{}, fmt.Errorf("create cells view: %w", err)
	}

	rows, err := db.QueryContext(ctx, sqlText)
	if err != nil {
		return query.Result{}, fmt.Errorf("execute inspect query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	result, err := query.Collect(rows, rowLimit)
	if err != nil {
		return query.Result{}, fmt.Errorf("read inspect rows: %w", err)
	}
	return result, nil
}

func (i *Inspector) download(ctx context.Context, key, localPath string) error {
	reader, err := i.store.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("get object %q: %w", key, err)
	}
	defer func() { _ = reader.Close() }()

	file, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("create %q: %w", localPath, err)
	}
	defer func() { _ = file.Close() }()

	if _, err := io.Copy(file, reader); err != nil {
		return fmt.Errorf("write %q: %w", localPath, err)
	}
	return nil
}

func quoteStringArray(values []string) string {
	quoted := make([]string, 0, len(values))
	for _, value := range values {
		quoted = append(quoted, `'`+strings.ReplaceAll(value, `'`, `''`)+`'`)
	}
	return "[" + strings.Join(quoted, ",") + "]"
}
