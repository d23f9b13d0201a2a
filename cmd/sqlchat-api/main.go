package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sqlchat/sqlchat/internal/api"
	"github.com/sqlchat/sqlchat/internal/archive"
	"github.com/sqlchat/sqlchat/internal/classify"
	"github.com/sqlchat/sqlchat/internal/config"
	"github.com/sqlchat/sqlchat/internal/conversation"
	"github.com/sqlchat/sqlchat/internal/llm"
	"github.com/sqlchat/sqlchat/internal/nl2sql"
	"github.com/sqlchat/sqlchat/internal/observability"
	"github.com/sqlchat/sqlchat/internal/pipeline"
	"github.com/sqlchat/sqlchat/internal/present"
	"github.com/sqlchat/sqlchat/internal/query"
	"github.com/sqlchat/sqlchat/internal/schema"
	s3store "github.com/sqlchat/sqlchat/internal/storage/s3"
)

func main() {
	cfg, err := config.LoadFromEnv("sqlchat-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)
	catalog, err := schema.Load(cfg.Schema.File)
	if err != nil {
		logger.Error("failed to load schema catalog", slog.Any("error", err))
		os.Exit(1)
	}

	handle := query.NewHandle(query.HandleConfig{
		Driver:          cfg.Engine.Driver,
		DSN:             cfg.Engine.DSN,
		MaxOpenConns:    cfg.Engine.MaxOpenConns,
		MaxIdleConns:    cfg.Engine.MaxIdleConns,
		ConnMaxIdleTime: cfg.Engine.ConnMaxIdleTime,
		ConnMaxLifetime: cfg.Engine.ConnMaxLifetime,
	})
	defer func() { _ = handle.Close() }()

	generator, err := llm.New(context.Background(), cfg.LLM, logger)
	if err != nil {
		logger.Error("failed to initialize text generation", slog.Any("error", err))
		os.Exit(1)
	}

	var archiver *archive.Archiver
	if cfg.Archive.Enabled {
		objectStore, err := s3store.New(context.Background(), s3store.FromArchiveConfig(cfg.Archive))
		if err != nil {
			logger.Error("failed to initialize archive store", slog.Any("error", err))
			os.Exit(1)
		}
		archiver = archive.New(objectStore, logger)
	}

	pipelineDeps := pipeline.Deps{
		Classifier: classify.New(generator),
		Synthesizer: nl2sql.New(generator, catalog, nl2sql.Config{
			Dialect:     cfg.Engine.Dialect,
			MaxTokens:   cfg.LLM.MaxTokens,
			Temperature: cfg.LLM.Temperature,
			TopP:        cfg.LLM.TopP,
		}, logger),
		Executor: query.NewExecutor(handle, query.ExecutorConfig{
			QueryTimeout: cfg.Engine.QueryTimeout,
			RowLimit:     cfg.Engine.RowLimit,
		}, logger),
		Selector: present.NewSelector(generator, present.SelectorConfig{
			MaxTokens:   cfg.LLM.MaxTokens,
			Temperature: cfg.LLM.Temperature,
			TopP:        cfg.LLM.TopP,
		}, logger),
		Conversations: conversation.NewStore(cfg.Conversation.HistoryLimit,
			conversation.WithIdleTTL(cfg.Conversation.IdleTTL),
			conversation.WithMaxConversations(cfg.Conversation.MaxConversations),
		),
		Logger:        logger,
	}
	deps := api.Dependencies{
		Logger:  logger,
		Catalog: catalog,
		Readiness: api.CombineReadinessChecks(
			handle.Ping,
			api.CheckArchiveConfig(cfg),
		),
		DependencyTimeout: time.Second,
	}
	if archiver != nil {
		pipelineDeps.Archive = archiver
		deps.Archive = archiver
	}

	chat, err := pipeline.New(pipelineDeps)
	if err != nil {
		logger.Error("failed to assemble pipeline", slog.Any("error", err))
		os.Exit(1)
	}
	deps.Chat = chat

	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      api.NewHandler(cfg, deps),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("starting api server",
			slog.String("addr", cfg.HTTP.Address),
			slog.String("engine", cfg.Engine.Driver),
			slog.String("llm_provider", cfg.LLM.Provider),
			slog.Bool("archive", cfg.Archive.Enabled),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		logger.Info("shutting down api server")
		if err := server.Shutdown(shutdownCtx); err != nil {
			_ = server.Close()
			return err
		}
		return nil
	})

	if err := group.Wait(); err != nil {
		logger.Error("api server failed", slog.Any("error", err))
		os.Exit(1)
	}
}
