package enums

import "fmt"

// CommitMode controls whether a committed sale deducts stock immediately or waits for confirmation.
type CommitMode string

const (
	CommitModeComplete CommitMode = "complete"
	CommitModePending  CommitMode = "pending"
)

var validCommitModes = []CommitMode{
	CommitModeComplete,
	CommitModePending,
}

// String implements fmt.Stringer.
func (v CommitMode) String() string {
	return string(v)
}

// IsValid reports whether the value is a known CommitMode.
func (v CommitMode) IsValid() bool {
	for _, candidate := range validCommitModes {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseCommitMode converts raw input into a CommitMode.
func ParseCommitMode(value string) (CommitMode, error) {
	for _, candidate := range validCommitModes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid commit mode %q", value)
}
