package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	boltaccounts "github.com/PabloGalante/assistant-chat/internal/adapters/accounts/bolt"
	httpadapter "github.com/PabloGalante/assistant-chat/internal/adapters/http"
	"github.com/PabloGalante/assistant-chat/internal/adapters/llm"
	firestorestore "github.com/PabloGalante/assistant-chat/internal/adapters/storage/firestore"
	memstore "github.com/PabloGalante/assistant-chat/internal/adapters/storage/memory"
	sqlitestore "github.com/PabloGalante/assistant-chat/internal/adapters/storage/sqlite"
	"github.com/PabloGalante/assistant-chat/internal/adapters/voice"
	"github.com/PabloGalante/assistant-chat/internal/app/conversation"
	"github.com/PabloGalante/assistant-chat/internal/app/identity"
	"github.com/PabloGalante/assistant-chat/internal/app/sessions"
	"github.com/PabloGalante/assistant-chat/internal/config"
	"github.com/PabloGalante/assistant-chat/internal/domain"
	"github.com/PabloGalante/assistant-chat/internal/observability"
)

const shutdownTimeout = 15 * time.Second

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := observability.Configure(os.Stdout, cfg.LogLevel)
	log.Info("starting assistant",
		"version", version,
		"mode", cfg.Mode,
		"storage_backend", cfg.StorageBackend,
		"completion_backend", cfg.CompletionBackend,
	)

	var closers []io.Closer
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i].Close(); err != nil {
				log.Warn("close failed", "error", err)
			}
		}
	}()

	completion, err := newCompletionClient(ctx, cfg)
	if err != nil {
		return err
	}

	sessionStore, messageStore, closer, err := newStores(ctx, cfg)
	if err != nil {
		return err
	}
	if closer != nil {
		closers = append(closers, closer)
	}

	accountStore, err := boltaccounts.Open(cfg.AccountsPath)
	if err != nil {
		return fmt.Errorf("opening account store: %w", err)
	}
	closers = append(closers, accountStore)
	accounts := identity.NewAccounts(accountStore)

	manager := sessions.New(sessionStore, messageStore, sessions.NewCache(), sessions.Options{
		QueueSize: cfg.WriteQueueSize,
		Logger:    log,
	})

	conv := conversation.NewService(completion, manager, conversation.Options{
		Greeting:     cfg.Greeting,
		HistoryLimit: cfg.HistoryLimit,
		VoiceOutput:  cfg.VoiceOutput,
		Speaker:      voice.NewSilent(),
		Logger:       log,
	})

	handler := httpadapter.NewServer(httpadapter.Deps{
		Conversation: conv,
		Sessions:     manager,
		Completion:   completion,
		Resolver:     identity.NewResolver(accounts),
		Accounts:     accounts,
	}, httpadapter.Options{
		ChatRateLimit: cfg.ChatRateLimit,
		ChatRateBurst: cfg.ChatRateBurst,
		CodeStyle:     cfg.CodeStyle,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info("assistant API listening", "port", cfg.Port)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		manager.Close()
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "error", err)
	}
	// pending message writes must land before the stores close
	manager.Close()
	return nil
}

func newCompletionClient(ctx context.Context, cfg *config.Config) (domain.CompletionClient, error) {
	switch cfg.CompletionBackend {
	case "openrouter":
		return llm.NewOpenRouterClient(llm.OpenRouterConfig{
			APIKey:  cfg.OpenRouterAPIKey,
			BaseURL: cfg.OpenRouterBaseURL,
			Model:   cfg.OpenRouterModel,
		})
	case "vertex":
		return llm.NewVertexClient(ctx, llm.VertexConfig{
			ProjectID: cfg.GCPProjectID,
			Location:  cfg.GCPLocation,
			Model:     cfg.ModelName,
		})
	default:
		return llm.NewMockLLM(), nil
	}
}

// newStores returns one backend serving both ports, plus its closer if it has one.
func newStores(ctx context.Context, cfg *config.Config) (domain.SessionStore, domain.MessageStore, io.Closer, error) {
	switch cfg.StorageBackend {
	case "firestore":
		fsStore, err := firestorestore.NewStore(ctx, cfg.GCPProjectID)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("initializing Firestore store: %w", err)
		}
		return fsStore, fsStore, fsStore, nil
	case "sqlite":
		sqlStore, err := sqlitestore.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("initializing SQLite store: %w", err)
		}
		return sqlStore, sqlStore, sqlStore, nil
	default:
		mem := memstore.NewStore()
		return mem, mem, nil, nil
	}
}
