package domain

import (
	"strings"

	"github.com/flagforge/flagforge/internal/errors"
)

// DependencyRule gates one problem inside a bundle: a team unlocks the
// problem once the summed weights of its solved problems reach the threshold.
type DependencyRule struct {
	Weightmap map[string]float64
	Threshold float64
}

// Bundle is a named grouping of problems that may impose weighted-threshold
// unlock dependencies between its members. Members and weightmap keys refer
// to problems by sanitized name.
type Bundle struct {
	BID                 string
	Name                string
	Author              string
	Description         string
	Categories          []string
	Problems            []string
	Dependencies        map[string]DependencyRule
	DependenciesEnabled bool
}

// Validate checks the shape of a published bundle payload.
func (b Bundle) Validate() error {
	if b.BID != "" {
		return errors.New(errors.CodeValidation, "bundle bid is derived, not supplied")
	}
	if strings.TrimSpace(b.Name) == "" {
		return errors.New(errors.CodeValidation, "bundle name is required")
	}
	if strings.TrimSpace(b.Author) == "" {
		return errors.New(errors.CodeValidation, "bundle author is required")
	}
	if len(b.Problems) == 0 {
		return errors.New(errors.CodeValidation, "bundle problems are required")
	}
	for name, rule := range b.Dependencies {
		if strings.TrimSpace(name) == "" {
			return errors.New(errors.CodeValidation, "dependency problem name is required")
		}
		if rule.Threshold < 0 {
			return errors.New(errors.CodeValidation, "dependency threshold must not be negative")
		}
	}
	return nil
}

// Contains reports whether the bundle lists the given sanitized name.
func (b Bundle) Contains(sanitizedName string) bool {
	for _, name := range b.Problems {
		if name == sanitizedName {
			return true
		}
	}
	return false
}

// IsUnlocked reports whether the problem is unlocked for the given solved
// set. A problem is locked only if some bundle containing it has dependencies
// enabled and defines a rule for it whose threshold the solved weights do not
// reach. Rules in multiple bundles must all be satisfied. A problem with no
// applicable rule is unlocked by default.
func IsUnlocked(problem Problem, solved []Problem, bundles []Bundle) bool {
	unlocked := true

	for _, bundle := range bundles {
		if !bundle.Contains(problem.SanitizedName) {
			continue
		}
		if !bundle.DependenciesEnabled {
			continue
		}
		rule, ok := bundle.Dependencies[problem.SanitizedName]
		if !ok {
			continue
		}
		var weightsum float64
		for _, s := range solved {
			weightsum += rule.Weightmap[s.SanitizedName]
		}
		if weightsum < rule.Threshold {
			unlocked = false
		}
	}

	return unlocked
}
