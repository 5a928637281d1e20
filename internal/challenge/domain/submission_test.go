package domain

import (
	"strings"
	"testing"
)

func TestGradeIsSubstringBased(t *testing.T) {
	if !Grade("flag{xyz}", "flag{xyz}", "") {
		t.Fatal("expected exact flag to grade correct")
	}
	if !Grade("flag{xyz}", "flag{xyz}-extra", "") {
		t.Fatal("expected flag with trailing characters to grade correct")
	}
	if !Grade("flag{xyz}", "prefix flag{xyz}", "") {
		t.Fatal("expected flag with leading characters to grade correct")
	}
	if Grade("flag{xyz}", "flag{xy}", "") {
		t.Fatal("expected partial flag to grade incorrect")
	}
}

func TestGradeDebugOverride(t *testing.T) {
	if !Grade("flag{xyz}", "debug-master-key", "debug-master-key") {
		t.Fatal("expected debug override to grade correct")
	}
	if Grade("flag{xyz}", "debug-master-key", "") {
		t.Fatal("expected wrong key to grade incorrect without an override")
	}
}

func TestGradeEmptyFlagNeverMatches(t *testing.T) {
	if Grade("", "anything", "") {
		t.Fatal("expected empty flag to never grade correct")
	}
}

func TestValidateSubmission(t *testing.T) {
	if err := ValidateSubmission("team-1", "pid-1", "flag{xyz}"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ValidateSubmission("", "pid-1", "flag{xyz}"); err == nil {
		t.Fatal("expected error for empty tid")
	}
	if err := ValidateSubmission("team-1", "pid-1", ""); err == nil {
		t.Fatal("expected error for empty key")
	}
	if err := ValidateSubmission("team-1", "pid-1", strings.Repeat("x", 101)); err == nil {
		t.Fatal("expected error for oversized key")
	}
}
