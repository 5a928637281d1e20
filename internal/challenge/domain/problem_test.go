package domain

import "testing"

func TestProblemValidate(t *testing.T) {
	valid := Problem{
		Name:          "ECB 1",
		SanitizedName: "ecb-1",
		Category:      "crypto",
		Author:        "alice",
		Score:         50,
		Instances:     []Instance{{Flag: "flag{xyz}"}},
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	suppliedPID := valid
	suppliedPID.PID = "abc"
	if err := suppliedPID.Validate(); err == nil {
		t.Fatal("expected error for externally supplied pid")
	}

	missingFlag := valid
	missingFlag.Instances = []Instance{{}}
	if err := missingFlag.Validate(); err == nil {
		t.Fatal("expected error for instance without flag")
	}

	negativeScore := valid
	negativeScore.Score = -1
	if err := negativeScore.Validate(); err == nil {
		t.Fatal("expected error for negative score")
	}
}

func TestInstancesForShard(t *testing.T) {
	problem := Problem{Instances: []Instance{
		{IID: "a", ServerNumber: 1},
		{IID: "b", ServerNumber: 2},
		{IID: "c", ServerNumber: 1},
	}}

	eligible := problem.InstancesForShard(1)
	if len(eligible) != 2 {
		t.Fatalf("expected 2 instances on shard 1, got %d", len(eligible))
	}
	for _, instance := range eligible {
		if instance.ServerNumber != 1 {
			t.Fatalf("unexpected shard %d", instance.ServerNumber)
		}
	}
	if len(problem.InstancesForShard(3)) != 0 {
		t.Fatal("expected no instances on shard 3")
	}
}

func TestUnlockedViewOmitsFlag(t *testing.T) {
	problem := Problem{
		PID:         "pid-1",
		Name:        "ECB 1",
		Category:    "crypto",
		Score:       50,
		Description: "break it",
		Hints:       []string{"think blocks"},
	}
	instance := Instance{IID: "iid-1", Flag: "flag{xyz}", Port: 4242, Server: "shell-1"}

	view := UnlockedView(problem, instance, true, 7)
	if view.Port != 4242 || view.Server != "shell-1" {
		t.Fatalf("expected connection details, got %+v", view)
	}
	if !view.Solved || !view.Unlocked {
		t.Fatal("expected solved unlocked view")
	}
	if view.Solves != 7 {
		t.Fatalf("expected 7 solves, got %d", view.Solves)
	}
}

func TestLockedViewHidesDetails(t *testing.T) {
	problem := Problem{
		PID:         "pid-1",
		Name:        "ECB 1",
		Category:    "crypto",
		Score:       50,
		Description: "break it",
		Hints:       []string{"think blocks"},
	}

	view := LockedView(problem)
	if view.Description != "" || len(view.Hints) != 0 {
		t.Fatal("expected locked view to hide description and hints")
	}
	if view.Unlocked {
		t.Fatal("expected locked view")
	}
}
