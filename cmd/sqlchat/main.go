package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sqlchat/sqlchat/internal/archive"
	"github.com/sqlchat/sqlchat/internal/cli"
	"github.com/sqlchat/sqlchat/internal/config"
	s3store "github.com/sqlchat/sqlchat/internal/storage/s3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	options := cli.Options{
		BaseURL:     envOr("SQLCHAT_API_URL", "http://localhost:8080"),
		Timeout:     parseDurationWithDefault(strings.TrimSpace(os.Getenv("SQLCHAT_CLI_TIMEOUT")), 60*time.Second),
		Stdin:       os.Stdin,
		Stdout:      os.Stdout,
		Stderr:      os.Stderr,
		OpenArchive: openArchive,
	}

	code := cli.Run(ctx, os.Args[1:], options)
	stop()
	os.Exit(code)
}

func openArchive(ctx context.Context) (cli.ArchiveQuerier, error) {
	cfg, err := config.LoadFromEnv("sqlchat-cli")
	if err != nil {
		return nil, err
	}
	if !cfg.Archive.Enabled {
		return nil, fmt.Errorf("SQLCHAT_ARCHIVE_ENABLED is not set")
	}
	store, err := s3store.New(ctx, s3store.FromArchiveConfig(cfg.Archive))
	if err != nil {
		return nil, err
	}
	return archive.NewInspector(store), nil
}

func envOr(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func parseDurationWithDefault(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "invalid SQLCHAT_CLI_TIMEOUT %q; using %s\n", raw, fallback)
		return fallback
	}
	return parsed
}
