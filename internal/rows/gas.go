package rows

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/roach88/receiptdb/internal/view"
)

// DefaultPrecision is the digit count of the NUMERIC(45,0) gas price column.
const DefaultPrecision = 45

// GasPricePolicy decides what happens to a gas price that does not fit the
// storage precision.
type GasPricePolicy string

const (
	// PolicyReject fails the receipt with a *GasPriceError.
	PolicyReject GasPricePolicy = "reject"

	// PolicyZero stores 0 and flags the row with GasPriceFallback.
	// This reproduces the legacy indexer, which silently wrote 0.
	PolicyZero GasPricePolicy = "zero"
)

// ParseGasPricePolicy parses a policy name from configuration.
func ParseGasPricePolicy(s string) (GasPricePolicy, error) {
	switch p := GasPricePolicy(s); p {
	case PolicyReject, PolicyZero:
		return p, nil
	}
	return "", fmt.Errorf("unknown gas price policy %q (valid: reject, zero)", s)
}

// GasPriceConverter turns a u128 gas price into the decimal stored in
// ReceiptAction. The zero value rejects anything over DefaultPrecision digits.
type GasPriceConverter struct {
	Precision int
	Policy    GasPricePolicy
}

// Convert returns the decimal gas price. fallback is true when the value was
// replaced by 0 under PolicyZero.
func (c GasPriceConverter) Convert(receiptID string, price view.U128) (d decimal.Decimal, fallback bool, err error) {
	precision := c.Precision
	if precision <= 0 {
		precision = DefaultPrecision
	}

	digits := price.Digits()
	if digits <= precision {
		return decimal.NewFromBigInt(price.Big(), 0), false, nil
	}

	if c.Policy == PolicyZero {
		return decimal.Zero, true, nil
	}
	return decimal.Zero, false, &GasPriceError{
		ReceiptID: receiptID,
		GasPrice:  price.String(),
		Digits:    digits,
		Precision: precision,
	}
}
