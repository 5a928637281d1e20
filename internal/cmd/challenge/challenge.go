// Package challenge wires the challenge engine binary: configuration,
// tracing, storage, and the engine itself.
package challenge

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/flagforge/flagforge/internal/challenge/cache"
	"github.com/flagforge/flagforge/internal/challenge/service"
	"github.com/flagforge/flagforge/internal/challenge/storage/sqlite"
	"github.com/flagforge/flagforge/internal/platform/config"
	"github.com/flagforge/flagforge/internal/platform/otel"
)

// Config holds challenge command configuration.
type Config struct {
	// DBPath is the sqlite database file.
	DBPath string `env:"FLAGFORGE_DB_PATH" envDefault:"challenge.db"`
	// EnableSharding restricts instance allocation to the team's shard.
	EnableSharding bool `env:"FLAGFORGE_ENABLE_SHARDING" envDefault:"false"`
	// DebugKey enables the universal grading key and debug operations.
	DebugKey string `env:"FLAGFORGE_DEBUG_KEY"`
	// Shards maps shell server ids to server numbers.
	Shards map[string]int `env:"FLAGFORGE_SHARDS" envDefault:"shard-1:1"`
}

// ParseConfig loads configuration from the environment, then lets flags
// override it.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "path to the sqlite database")
	fs.BoolVar(&cfg.EnableSharding, "enable-sharding", cfg.EnableSharding, "restrict instance allocation to the team's shard")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run opens storage, builds the engine, and blocks until ctx is cancelled.
func Run(ctx context.Context, cfg Config) error {
	shutdown, err := otel.Setup(ctx, "challenge")
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			log.Printf("shutdown tracing: %v", err)
		}
	}()

	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("close store: %v", err)
		}
	}()

	servers := make(service.StaticServers, len(cfg.Shards))
	for sid, number := range cfg.Shards {
		servers[sid] = number
	}

	engine, err := service.New(store, cache.NewManager(), servers, service.NopStats{}, service.NopAchievements{}, service.Config{
		EnableSharding: cfg.EnableSharding,
		DebugKey:       cfg.DebugKey,
	})
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}

	counts, err := engine.CountProblemsByCategory(ctx)
	if err != nil {
		return fmt.Errorf("probe store: %w", err)
	}
	problems := 0
	for _, count := range counts {
		problems += count
	}

	log.Printf("challenge engine ready, db=%s sharding=%v shards=%d problems=%d",
		cfg.DBPath, cfg.EnableSharding, len(servers), problems)
	<-ctx.Done()
	return nil
}
