package service

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/flagforge/flagforge/internal/challenge/cache"
	"github.com/flagforge/flagforge/internal/challenge/domain"
	"github.com/flagforge/flagforge/internal/challenge/storage/sqlite"
)

// newTestService builds a service on a throwaway sqlite store with
// deterministic instance selection and a ticking clock.
func newTestService(t *testing.T, cfg Config) (*Service, *sqlite.Store) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "challenge.db")
	store, err := sqlite.Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close store: %v", err)
		}
	})

	svc, err := New(store, cache.NewManager(), StaticServers{"shard-1": 1, "shard-2": 2}, NopStats{}, NopAchievements{}, cfg)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	svc.pick = func(int) int { return 0 }

	tick := 0
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	svc.clock = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	return svc, store
}

// seedTeam registers a team on a shard together with one user per uid.
func seedTeam(t *testing.T, store *sqlite.Store, tid string, serverNumber int, uids ...string) {
	t.Helper()
	ctx := context.Background()
	if err := store.PutTeam(ctx, domain.Team{TID: tid, Name: tid, ServerNumber: serverNumber}); err != nil {
		t.Fatalf("put team: %v", err)
	}
	for _, uid := range uids {
		if err := store.PutUser(ctx, domain.User{UID: uid, TID: tid, Name: uid}); err != nil {
			t.Fatalf("put user: %v", err)
		}
	}
}

// publishPayload builds a publishable problem with the given number of
// instances. Flags are derived from the name and instance number.
func publishPayload(name, author, category string, score, instances int) domain.Problem {
	problem := domain.Problem{
		Name:          name,
		SanitizedName: name,
		Category:      category,
		Score:         score,
		Author:        author,
		Description:   "solve " + name,
	}
	for i := 0; i < instances; i++ {
		problem.Instances = append(problem.Instances, domain.Instance{
			InstanceNumber: i,
			Flag:           fmt.Sprintf("flag{%s-%d}", name, i),
			Port:           4000 + i,
			Server:         fmt.Sprintf("shell-%d", i),
		})
	}
	return problem
}

// publishEnabled publishes a problem on a shard and flips it on.
func publishEnabled(t *testing.T, svc *Service, payload domain.Problem, sid string) string {
	t.Helper()
	ctx := context.Background()
	pid, err := svc.PublishProblem(ctx, payload, sid)
	if err != nil {
		t.Fatalf("publish problem %s: %v", payload.Name, err)
	}
	if err := svc.SetProblemAvailability(ctx, pid, false); err != nil {
		t.Fatalf("enable problem %s: %v", payload.Name, err)
	}
	return pid
}

// submit pushes a flag through the full submission path.
func submit(t *testing.T, svc *Service, uid, tid, pid, key string) SubmitResult {
	t.Helper()
	result, err := svc.Submit(context.Background(), SubmitRequest{
		UID:    uid,
		TID:    tid,
		PID:    pid,
		Key:    key,
		Method: "test",
		IP:     "198.51.100.7",
	})
	if err != nil {
		t.Fatalf("submit %q to %s: %v", key, pid, err)
	}
	return result
}
