package domain

// ProblemView is the player-facing shape of a problem. It never carries
// flags, shard internals, or other platform-only fields.
type ProblemView struct {
	PID           string
	Name          string
	SanitizedName string
	Category      string
	Score         int
	Description   string
	Hints         []string
	Solves        int
	Port          int
	Server        string
	Solved        bool
	Unlocked      bool
}

// UnlockedView renders a problem an unlocked team can see, merged with the
// connection details of the team's committed instance.
func UnlockedView(problem Problem, instance Instance, solved bool, solves int) ProblemView {
	description := problem.Description
	if instance.Description != "" {
		description = instance.Description
	}
	return ProblemView{
		PID:           problem.PID,
		Name:          problem.Name,
		SanitizedName: problem.SanitizedName,
		Category:      problem.Category,
		Score:         problem.Score,
		Description:   description,
		Hints:         problem.Hints,
		Solves:        solves,
		Port:          instance.Port,
		Server:        instance.Server,
		Solved:        solved,
		Unlocked:      true,
	}
}

// LockedView renders the minimal shape of a problem a team has not unlocked:
// name, category, and score only.
func LockedView(problem Problem) ProblemView {
	return ProblemView{
		PID:      problem.PID,
		Name:     problem.Name,
		Category: problem.Category,
		Score:    problem.Score,
	}
}
