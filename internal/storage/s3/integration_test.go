//go:build integration

package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/sqlchat/sqlchat/internal/storage"
)

func TestStoreRoundTripAgainstMinIO(t *testing.T) {
	endpoint := envOr("SQLCHAT_TEST_S3_ENDPOINT", "")
	if endpoint == "" {
		t.Skip("SQLCHAT_TEST_S3_ENDPOINT is not set")
	}

	cfg := Config{
		Endpoint:         endpoint,
		Region:           envOr("SQLCHAT_TEST_S3_REGION", "us-east-1"),
		Bucket:           envOr("SQLCHAT_TEST_S3_BUCKET", "sqlchat-it"),
		AccessKeyID:      envOr("SQLCHAT_TEST_S3_ACCESS_KEY", "minio"),
		SecretAccessKey:  envOr("SQLCHAT_TEST_S3_SECRET_KEY", "miniostorage"),
		Prefix:           "integration-tests",
		AutoCreateBucket: true,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	store, err := New(ctx, cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	keys, err := storage.BuildTurnKeys("it-conversation", time.Now())
	if err != nil {
		t.Fatalf("BuildTurnKeys() error = %v", err)
	}
	payload := []byte(`{"question":"how many employees?"}`)

	if _, err := store.Put(ctx, keys.Metadata, bytes.NewReader(payload), int64(len(payload)), storage.PutOptions{ContentType: "application/json"}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	prefix, _ := storage.ConversationPrefix("it-conversation")
	listed, err := store.List(ctx, prefix)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(listed) != 1 || listed[0].Key != keys.Metadata {
		t.Fatalf("List() = %#v", listed)
	}

	reader, err := store.Get(ctx, keys.Metadata)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	readPayload, err := io.ReadAll(reader)
	if err != nil {
		t.Fatalf("io.ReadAll() error = %v", err)
	}
	_ = reader.Close()
	if !bytes.Equal(readPayload, payload) {
		t.Fatalf("Get() payload = %q, want %q", string(readPayload), string(payload))
	}

	if err := store.Delete(ctx, keys.Metadata); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.Get(ctx, keys.Metadata); !errors.Is(err, storage.ErrObjectNotFound) {
		t.Fatalf("Get() after delete error = %v, want ErrObjectNotFound", err)
	}
}

func envOr(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}
