package enums

import "fmt"

// SaleState tracks the finalization lifecycle of the sale being built at a terminal.
type SaleState string

const (
	SaleStateBuilding   SaleState = "building"
	SaleStateSubmitting SaleState = "submitting"
	SaleStateCommitted  SaleState = "committed"
	SaleStateFailed     SaleState = "failed"
)

var validSaleStates = []SaleState{
	SaleStateBuilding,
	SaleStateSubmitting,
	SaleStateCommitted,
	SaleStateFailed,
}

// String implements fmt.Stringer.
func (v SaleState) String() string {
	return string(v)
}

// IsValid reports whether the value is a known SaleState.
func (v SaleState) IsValid() bool {
	for _, candidate := range validSaleStates {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseSaleState converts raw input into a SaleState.
func ParseSaleState(value string) (SaleState, error) {
	for _, candidate := range validSaleStates {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid sale state %q", value)
}
