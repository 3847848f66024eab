package enums

import "fmt"

// PaymentType distinguishes fully paid sales from sales settled on credit.
type PaymentType string

const (
	PaymentTypeFull    PaymentType = "full"
	PaymentTypePartial PaymentType = "partial"
)

var validPaymentTypes = []PaymentType{
	PaymentTypeFull,
	PaymentTypePartial,
}

// String implements fmt.Stringer.
func (v PaymentType) String() string {
	return string(v)
}

// IsValid reports whether the value is a known PaymentType.
func (v PaymentType) IsValid() bool {
	for _, candidate := range validPaymentTypes {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParsePaymentType converts raw input into a PaymentType.
func ParsePaymentType(value string) (PaymentType, error) {
	for _, candidate := range validPaymentTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment type %q", value)
}
