package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/sqlchat/sqlchat/internal/observability"
	"github.com/sqlchat/sqlchat/internal/query"
	"github.com/sqlchat/sqlchat/internal/storage"
)

// Turn is one answered question as handed over by the pipeline. Result must
// already be sanitized.
type Turn struct {
	ConversationID string
	Question       string
	SQL            string
	Decision       string
	Result         query.Result
}

// Metadata is the JSON object stored next to each parquet file.
type Metadata struct {
	ConversationID  string    `json:"conversation_id"`
	Question        string    `json:"question"`
	SQL             string    `json:"sql"`
	Decision        string    `json:"decision"`
	Columns         []string  `json:"columns"`
	RowCount        int       `json:"row_count"`
	CellCount       int64     `json:"cell_count"`
	DataKey         string    `json:"data_key"`
	QueryDurationMS int64     `json:"query_duration_ms"`
	RecordedAt      time.Time `json:"recorded_at"`
}

type Archiver struct {
	store  storage.ObjectStore
	logger *slog.Logger
	now    func() time.Time
}

func New(store storage.ObjectStore, logger *slog.Logger) *Archiver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Archiver{store: store, logger: logger, now: time.Now}
}

// Record writes the parquet cells first and the metadata object second, so a
// metadata object always points at existing data.
func (a *Archiver) Record(ctx context.Context, turn Turn) (err error) {
	defer func() { observability.ObserveArchiveWrite(err) }()

	if !turn.Result.HasRows() {
		return fmt.Errorf("only results with rows are archived")
	}
	recordedAt := a.now().UTC()
	keys, err := storage.BuildTurnKeys(turn.ConversationID, recordedAt)
	if err != nil {
		return err
	}

	encoded, err := EncodeCells(turn.Result)
	if err != nil {
		return err
	}
	if _, err := a.store.Put(ctx, keys.Data, bytes.NewReader(encoded.Data), int64(len(encoded.Data)), storage.PutOptions{ContentType: "application/vnd.apache.parquet"}); err != nil {
		return fmt.Errorf("put turn data: %w", err)
	}

	metadata, err := json.Marshal(Metadata{
		ConversationID:  turn.ConversationID,
		Question:        turn.Question,
		SQL:             turn.SQL,
		Decision:        turn.Decision,
		Columns:         turn.Result.ColumnNames(),
		RowCount:        encoded.RowCount,
		CellCount:       encoded.CellCount,
		DataKey:         keys.Data,
		QueryDurationMS: turn.Result.Duration.Milliseconds(),
		RecordedAt:      recordedAt,
	})
	if err != nil {
		return fmt.Errorf("encode turn metadata: %w", err)
	}
	if _, err := a.store.Put(ctx, keys.Metadata, bytes.NewReader(metadata), int64(len(metadata)), storage.PutOptions{ContentType: "application/json"}); err != nil {
		return fmt.Errorf("put turn metadata: %w", err)
	}

	a.logger.InfoContext(ctx, "turn_archived",
		slog.String("conversation_id", turn.ConversationID),
		slog.String("data_key", keys.Data),
		slog.Int64("cells", encoded.CellCount),
	)
	return nil
}

// Turns returns the archived metadata of a conversation, oldest first.
func (a *Archiver) Turns(ctx context.Context, conversationID string) ([]Metadata, error) {
	objects, err := a.list(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	turns := make([]Metadata, 0, len(objects))
	for _, object := range objects {
		if !strings.HasSuffix(object.Key, ".json") {
			continue
		}
		metadata, err := a.readMetadata(ctx, object.Key)
		if err != nil {
			if errors.Is(err, storage.ErrObjectNotFound) {
				continue
			}
			return nil, err
		}
		turns = append(turns, metadata)
	}
	sort.Slice(turns, func(i, j int) bool { return turns[i].RecordedAt.Before(turns[j].RecordedAt) })
	return turns, nil
}

// Purge deletes every archived object of a conversation and reports how many
// were removed.
func (a *Archiver) Purge(ctx context.Context, conversationID string) (int, error) {
	objects, err := a.list(ctx, conversationID)
	if err != nil {
		return 0, err
	}
	deleted := 0
	for _, object := range objects {
		if err := a.store.Delete(ctx, object.Key); err != nil {
			return deleted, fmt.Errorf("delete %q: %w", object.Key, err)
		}
		deleted++
	}
	if deleted > 0 {
		a.logger.InfoContext(ctx, "conversation_archive_purged",
			slog.String("conversation_id", conversationID),
			slog.Int("objects", deleted),
		)
	}
	return deleted, nil
}

func (a *Archiver) list(ctx context.Context, conversationID string) ([]storage.ObjectInfo, error) {
	prefix, err := storage.ConversationPrefix(conversationID)
	if err != nil {
		return nil, err
	}
	objects, err := a.store.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("list conversation objects: %w", err)
	}
	return objects, nil
}

func (a *Archiver) readMetadata(ctx context.Context, key string) (Metadata, error) {
	reader, err := a.store.Get(ctx, key)
	if err != nil {
		return Metadata{}, err
	}
	defer func() { _ = reader.Close() }()

	var metadata Metadata
	if err := json.NewDecoder(reader).Decode(&metadata); err != nil {
		return Metadata{}, fmt.Errorf("decode %q: %w", key, err)
	}
	return metadata, nil
}
