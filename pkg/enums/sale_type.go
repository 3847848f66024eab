package enums

import "fmt"

// SaleType is the transaction kind sent to the sale-commit service.
type SaleType string

const (
	SaleTypeSale   SaleType = "sale"
	SaleTypeReturn SaleType = "return"
)

var validSaleTypes = []SaleType{
	SaleTypeSale,
	SaleTypeReturn,
}

// String implements fmt.Stringer.
func (v SaleType) String() string {
	return string(v)
}

// IsValid reports whether the value is a known SaleType.
func (v SaleType) IsValid() bool {
	for _, candidate := range validSaleTypes {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseSaleType converts raw input into a SaleType.
func ParseSaleType(value string) (SaleType, error) {
	for _, candidate := range validSaleTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid sale type %q", value)
}
