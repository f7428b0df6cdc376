// Command docchat is a local-first document chat workbench.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/docchat/internal/adapters/driven/ai"
	"github.com/custodia-labs/docchat/internal/adapters/driven/auth"
	"github.com/custodia-labs/docchat/internal/adapters/driven/backend"
	"github.com/custodia-labs/docchat/internal/adapters/driven/config/file"
	"github.com/custodia-labs/docchat/internal/adapters/driven/storage/bolt"
	"github.com/custodia-labs/docchat/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/docchat/internal/adapters/driving/cli"
	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/services"
	"github.com/custodia-labs/docchat/internal/logger"
	"github.com/custodia-labs/docchat/internal/normalisers"
)

// Set via -ldflags "-X main.version=...".
var version = "dev"

// apiKeyEnv seeds the embedding key when none is stored yet.
const apiKeyEnv = "DOCCHAT_API_KEY"

func main() {
	os.Exit(run())
}

// run wires the services and executes the command tree. Cobra reports
// command errors itself, so only setup failures are printed here.
func run() int {
	if err := setup(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	defer teardown()

	if err := cli.Execute(); err != nil {
		return 1
	}
	return 0
}

// closers run in reverse order on exit.
var closers []func() error

func teardown() {
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil {
			logger.Warn("shutdown: %v", err)
		}
	}
	_ = logger.Sync()
}

func setup() error {
	// .env is optional
	_ = godotenv.Load()

	configStore, err := file.NewConfigStore("")
	if err != nil {
		return fmt.Errorf("opening config: %w", err)
	}
	aiFactory := ai.NewFactory()
	settingsService := services.NewSettingsService(configStore, aiFactory)
	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}

	logPath := settings.Log.File
	if logPath == "" {
		logPath = defaultLogPath()
	}
	if err := logger.Init(logPath); err != nil {
		return err
	}

	docStore, err := sqlite.NewStore("")
	if err != nil {
		return fmt.Errorf("opening document store: %w", err)
	}
	closers = append(closers, docStore.Close)

	stateStore, err := bolt.NewStore("")
	if err != nil {
		teardown()
		return fmt.Errorf("opening state store: %w", err)
	}
	closers = append(closers, stateStore.Close)

	content := services.NewContentService(docStore.DocumentStore(), docStore.EmbeddingStore(), normalisers.NewDefaultRegistry())

	engine := services.NewEmbeddingEngine(content, stateStore, aiFactory, settings.Embedding, settings.Search.TopK)
	closers = append(closers, engine.Close)
	initEngine(engine)

	sessions := services.NewSessionManager(stateStore)
	if err := sessions.Load(); err != nil {
		teardown()
		return fmt.Errorf("loading sessions: %w", err)
	}

	tokens := auth.NewKVTokenProvider(stateStore)
	client := backend.NewClient(backend.Config{BaseURL: settings.Backend.URL}, tokens)

	cli.SetVersion(version)
	cli.SetServices(cli.Services{
		Content:       content,
		Embedding:     engine,
		Sessions:      sessions,
		Chat:          services.NewChatService(content, engine, sessions, client, *settings),
		Backend:       services.NewBackendService(client, stateStore),
		KnowledgeBase: services.NewKnowledgeBaseService(content, client, tokens),
		Settings:      settingsService,
		FolderSync:    services.NewFolderSyncService(content, engine),
	})
	return nil
}

// initEngine restores the stored key, falling back to the environment.
// A missing key leaves the engine uninitialised; keyword features still work.
func initEngine(engine *services.EmbeddingEngine) {
	ctx := context.Background()
	err := engine.InitFromStore(ctx)
	if errors.Is(err, domain.ErrMissingAPIKey) {
		key := os.Getenv(apiKeyEnv)
		if key == "" {
			logger.Debug("no embedding API key configured")
			return
		}
		err = engine.Init(ctx, key)
	}
	if err != nil {
		logger.Warn("embedding engine unavailable: %v", err)
	}
}

func defaultLogPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".docchat", "logs", "docchat.log")
}
