// Package service implements the challenge engine operations: unlock
// resolution, instance allocation, submission grading, reevaluation, and
// publishing. Transport and authentication live elsewhere; callers hand the
// service already-authenticated team and user ids.
package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/flagforge/flagforge/internal/challenge/cache"
	"github.com/flagforge/flagforge/internal/challenge/storage"
	apperrors "github.com/flagforge/flagforge/internal/errors"
	"github.com/flagforge/flagforge/internal/platform/random"
)

// Config carries the engine's runtime configuration.
type Config struct {
	// EnableSharding restricts instance allocation to the team's shard.
	EnableSharding bool
	// DebugKey, when non-empty, is accepted as a universally correct
	// submission and gates debug-only operations. Leave empty in
	// production deployments.
	DebugKey string
}

// Stats is the score and solve aggregation collaborator. Its values are
// computed and cached outside this engine.
type Stats interface {
	Score(ctx context.Context, tid, uid string) (int, error)
	ScoreProgression(ctx context.Context, tid, uid string) ([]int, error)
	ProblemSolves(ctx context.Context, pid string) (int, error)
}

// AchievementEvent is the payload handed to the achievement collaborator.
type AchievementEvent struct {
	UID string
	TID string
	PID string
}

// Achievements processes achievement rules. Calls are fire-and-forget:
// failures are logged and never roll back the triggering operation.
type Achievements interface {
	Process(ctx context.Context, event string, payload AchievementEvent) error
}

// Servers resolves a shell server (shard) id to its server number.
type Servers interface {
	ServerNumber(ctx context.Context, sid string) (int, error)
}

// Service implements the challenge engine.
type Service struct {
	store        storage.Store
	cache        *cache.Manager
	cfg          Config
	servers      Servers
	stats        Stats
	achievements Achievements
	clock        func() time.Time
	pick         func(n int) int
	tracer       trace.Tracer
}

// New creates a Service with default clock and instance selection.
func New(store storage.Store, cacheManager *cache.Manager, servers Servers, stats Stats, achievements Achievements, cfg Config) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if cacheManager == nil {
		cacheManager = cache.NewManager()
	}
	seed, err := random.NewSeed()
	if err != nil {
		return nil, fmt.Errorf("seed instance selection: %w", err)
	}
	picker := &lockedRand{r: rand.New(rand.NewSource(seed))}

	return &Service{
		store:        store,
		cache:        cacheManager,
		cfg:          cfg,
		servers:      servers,
		stats:        stats,
		achievements: achievements,
		clock:        time.Now,
		pick:         picker.intn,
		tracer:       otel.Tracer("challenge"),
	}, nil
}

// lockedRand guards a rand.Rand for concurrent request-scoped callers.
type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

func (l *lockedRand) intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Intn(n)
}

// notFound maps a storage miss to a typed NotFound error, passing other
// errors through unchanged.
func notFound(err error, kind, id string) error {
	if errors.Is(err, storage.ErrNotFound) {
		return apperrors.Newf(apperrors.CodeNotFound, "%s %s does not exist", kind, id)
	}
	return err
}

// StaticServers is a fixed shard directory, useful for single-node
// deployments and tests.
type StaticServers map[string]int

// ServerNumber resolves a shard id from the fixed table.
func (s StaticServers) ServerNumber(ctx context.Context, sid string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	number, ok := s[sid]
	if !ok {
		return 0, apperrors.Newf(apperrors.CodeNotFound, "shell server %s does not exist", sid)
	}
	return number, nil
}

// NopStats is a Stats collaborator that reports zero values.
type NopStats struct{}

// Score always reports zero.
func (NopStats) Score(context.Context, string, string) (int, error) { return 0, nil }

// ScoreProgression always reports an empty progression.
func (NopStats) ScoreProgression(context.Context, string, string) ([]int, error) { return nil, nil }

// ProblemSolves always reports zero solves.
func (NopStats) ProblemSolves(context.Context, string) (int, error) { return 0, nil }

// NopAchievements drops achievement events.
type NopAchievements struct{}

// Process discards the event.
func (NopAchievements) Process(context.Context, string, AchievementEvent) error { return nil }
