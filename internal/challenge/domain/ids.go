package domain

import (
	"fmt"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// hashID renders a stable 64-bit content hash as a 16-character hex id.
func hashID(value string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(value))
}

// NewProblemID derives the stable problem id from its defining fields.
// Re-publishing a problem with the same name and author yields the same pid.
func NewProblemID(name, author string) string {
	return hashID(name + "-" + author)
}

// NewBundleID derives the stable bundle id from its defining fields.
func NewBundleID(name, author string) string {
	return hashID(name + "-" + author)
}

// NewInstanceID derives the stable instance id from the instance number,
// the shard it is deployed on, and the owning problem.
func NewInstanceID(instanceNumber int, sid, pid string) string {
	return hashID(strconv.Itoa(instanceNumber) + sid + pid)
}
