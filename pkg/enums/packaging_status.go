package enums

import "fmt"

// PackagingStatus tracks what happens to returnable packaging handed over with a sale.
type PackagingStatus string

const (
	PackagingStatusConsignation PackagingStatus = "consignation"
	PackagingStatusExchange     PackagingStatus = "exchange"
	PackagingStatusDue          PackagingStatus = "due"
)

var validPackagingStatuses = []PackagingStatus{
	PackagingStatusConsignation,
	PackagingStatusExchange,
	PackagingStatusDue,
}

// String implements fmt.Stringer.
func (v PackagingStatus) String() string {
	return string(v)
}

// IsValid reports whether the value is a known PackagingStatus.
func (v PackagingStatus) IsValid() bool {
	for _, candidate := range validPackagingStatuses {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParsePackagingStatus converts raw input into a PackagingStatus.
func ParsePackagingStatus(value string) (PackagingStatus, error) {
	for _, candidate := range validPackagingStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid packaging status %q", value)
}
