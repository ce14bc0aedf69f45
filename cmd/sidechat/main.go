package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/notelab/sidechat/internal/chat"
	"github.com/notelab/sidechat/internal/config"
	"github.com/notelab/sidechat/internal/history"
	"github.com/notelab/sidechat/internal/idgen"
	"github.com/notelab/sidechat/internal/providers"
	"github.com/notelab/sidechat/internal/search"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := run(context.Background(), os.Args[1:]); err != nil {
		log.Fatalf("sidechat: %v", err)
	}
}

func run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("sidechat", flag.ExitOnError)
	providerFlag := fs.String("provider", "", "Completion provider (openai, anthropic, ollama)")
	modelFlag := fs.String("model", "", "Model name override")
	systemFlag := fs.String("system", "", "System prompt override")
	windowFlag := fs.Int("window", -1, "Messages attached per request (negative: all)")
	streamFlag := fs.Bool("stream", true, "Stream responses incrementally")
	dataFlag := fs.String("data", "", "Override the data directory")

	if err := fs.Parse(args); err != nil {
		return err
	}

	mgr, err := config.NewManager()
	if err != nil {
		return err
	}
	cfg, err := mgr.Load()
	if err != nil {
		return err
	}

	// Flags win over the config file.
	if *providerFlag != "" {
		cfg.Provider = *providerFlag
	}
	if *modelFlag != "" {
		cfg.Model = *modelFlag
	}
	if *systemFlag != "" {
		cfg.SystemPrompt = *systemFlag
	}
	if visited(fs, "window") {
		cfg.WindowSize = windowFlag
	}
	if visited(fs, "stream") {
		cfg.Stream = streamFlag
	}

	client, model, err := providers.NewClient(cfg)
	if err != nil {
		return err
	}

	dataDir := cfg.HistoryDir
	if *dataFlag != "" {
		dataDir = *dataFlag
	}
	if dataDir == "" {
		configDir, err := os.UserConfigDir()
		if err != nil {
			return fmt.Errorf("failed to get user config dir: %w", err)
		}
		dataDir = filepath.Join(configDir, "sidechat")
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	index, err := history.NewIndex(ctx, filepath.Join(dataDir, "index.db"))
	if err != nil {
		return err
	}
	defer index.Close()

	store := history.NewStore(dataDir, index)

	searchIndex, err := search.NewIndex(filepath.Join(dataDir, "search"))
	if err != nil {
		return err
	}
	defer searchIndex.Close()

	app := &app{
		store:       store,
		index:       index,
		searchIndex: searchIndex,
		model:       model,
	}
	app.controller = chat.NewController(client, idgen.UUID{}, chat.Config{
		Model:        model,
		SystemPrompt: cfg.SystemPrompt,
		WindowSize:   cfg.WindowSizeOr(-1),
		Stream:       cfg.StreamOr(true),
		Options: chat.ChatOptions{
			Temperature:     cfg.Temperature,
			MaxOutputTokens: cfg.MaxTokens,
		},
		Progress: app.onProgress,
	})

	watcher, err := startWatcher(store, searchIndex)
	if err != nil {
		log.Printf("search watcher disabled: %v", err)
	} else {
		defer watcher.Stop()
	}

	return app.repl(ctx)
}

// startWatcher keeps the search index in sync with session files changed
// outside this process.
func startWatcher(store *history.Store, searchIndex *search.Index) (*search.Watcher, error) {
	// Watch target must exist before fsnotify can add it.
	sessionsDir := filepath.Dir(store.Path("placeholder"))
	if err := os.MkdirAll(sessionsDir, 0755); err != nil {
		return nil, err
	}

	watcher, err := search.NewWatcher(sessionsDir)
	if err != nil {
		return nil, err
	}

	watcher.OnChange(func(changed, removed []string) {
		for _, id := range changed {
			sess, err := store.Load(id)
			if err != nil {
				continue
			}
			if err := searchIndex.IndexSession(sess); err != nil {
				log.Printf("failed to reindex session %s: %v", id, err)
			}
		}
		for _, id := range removed {
			if err := searchIndex.DeleteSession(id); err != nil {
				log.Printf("failed to deindex session %s: %v", id, err)
			}
		}
	})

	if err := watcher.Start(); err != nil {
		return nil, err
	}
	return watcher, nil
}

func visited(fs *flag.FlagSet, name string) bool {
	seen := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			seen = true
		}
	})
	return seen
}
