package domain

// Team is a competing team. ServerNumber is its sharding affinity: with
// sharding enabled the team is only handed instances deployed on that shard.
type Team struct {
	TID          string
	Name         string
	ServerNumber int
}

// User is a member of a team. Only the fields needed to resolve a submitting
// user are modeled here; account management lives elsewhere.
type User struct {
	UID  string
	TID  string
	Name string
}
