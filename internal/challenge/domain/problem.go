// Package domain defines the challenge engine's core types and rules:
// problems and their deployed instances, bundles with unlock dependencies,
// teams, submissions, and the pure functions that grade and gate them.
package domain

import (
	"strings"

	"github.com/flagforge/flagforge/internal/errors"
)

// maxFieldLength caps identifier and key fields on submission payloads.
const maxFieldLength = 100

// Instance is a per-shard deployed copy of a problem. It carries the secret
// flag a team must submit and the connection details players use to reach it.
type Instance struct {
	IID            string
	InstanceNumber int
	SID            string
	ServerNumber   int
	Flag           string
	Description    string
	Port           int
	Server         string
}

// Validate checks the shape of a published instance payload.
func (i Instance) Validate() error {
	if i.IID != "" {
		return errors.New(errors.CodeValidation, "instance iid is derived, not supplied")
	}
	if strings.TrimSpace(i.Flag) == "" {
		return errors.New(errors.CodeValidation, "instance flag is required")
	}
	if i.InstanceNumber < 0 {
		return errors.New(errors.CodeValidation, "instance number must not be negative")
	}
	return nil
}

// Problem is a challenge definition. Its pid is a pure function of name and
// author, so re-publication updates in place instead of duplicating.
type Problem struct {
	PID           string
	Name          string
	SanitizedName string
	Category      string
	Score         int
	Author        string
	Description   string
	Version       string
	Organization  string
	Disabled      bool
	Hints         []string
	Tags          []string
	Instances     []Instance
}

// Validate checks the shape of a published problem payload.
func (p Problem) Validate() error {
	if p.PID != "" {
		return errors.New(errors.CodeValidation, "problem pid is derived, not supplied")
	}
	if strings.TrimSpace(p.Name) == "" {
		return errors.New(errors.CodeValidation, "problem name is required")
	}
	if strings.TrimSpace(p.SanitizedName) == "" {
		return errors.New(errors.CodeValidation, "problem sanitized name is required")
	}
	if strings.TrimSpace(p.Author) == "" {
		return errors.New(errors.CodeValidation, "problem author is required")
	}
	if strings.TrimSpace(p.Category) == "" {
		return errors.New(errors.CodeValidation, "problem category is required")
	}
	if p.Score < 0 {
		return errors.New(errors.CodeValidation, "problem score must not be negative")
	}
	for _, instance := range p.Instances {
		if err := instance.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// InstancesForShard returns the instances deployed on the given shard.
func (p Problem) InstancesForShard(serverNumber int) []Instance {
	var eligible []Instance
	for _, instance := range p.Instances {
		if instance.ServerNumber == serverNumber {
			eligible = append(eligible, instance)
		}
	}
	return eligible
}

// FindInstance returns the instance with the given iid, if present.
func (p Problem) FindInstance(iid string) (Instance, bool) {
	for _, instance := range p.Instances {
		if instance.IID == iid {
			return instance, true
		}
	}
	return Instance{}, false
}
