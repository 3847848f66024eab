package enums

import "fmt"

// JournalStatus records the outcome of a sale submission in the local journal.
type JournalStatus string

const (
	JournalStatusCompleted        JournalStatus = "completed"
	JournalStatusPending          JournalStatus = "pending"
	JournalStatusCompletionFailed JournalStatus = "completion_failed"
)

var validJournalStatuses = []JournalStatus{
	JournalStatusCompleted,
	JournalStatusPending,
	JournalStatusCompletionFailed,
}

// String implements fmt.Stringer.
func (v JournalStatus) String() string {
	return string(v)
}

// IsValid reports whether the value is a known JournalStatus.
func (v JournalStatus) IsValid() bool {
	for _, candidate := range validJournalStatuses {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseJournalStatus converts raw input into a JournalStatus.
func ParseJournalStatus(value string) (JournalStatus, error) {
	for _, candidate := range validJournalStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid journal status %q", value)
}
