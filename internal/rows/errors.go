package rows

import (
	"errors"
	"fmt"
)

var (
	// ErrKindMismatch is matched by errors from an extractor applied to the
	// wrong receipt kind. Callers skip the row; it is never retried.
	ErrKindMismatch = errors.New("receipt kind mismatch")

	// ErrGasPriceConversion is matched by errors from a gas price that does
	// not fit the decimal storage column.
	ErrGasPriceConversion = errors.New("gas price conversion")

	// ErrUnsupportedBody is matched by errors from a receipt whose body is
	// not a DataBody or ActionBody value.
	ErrUnsupportedBody = errors.New("unsupported receipt body")
)

// KindMismatchError reports which kind an extractor wanted and what it got.
type KindMismatchError struct {
	ReceiptID string
	Want      ReceiptKind
	Got       ReceiptKind
}

func (e *KindMismatchError) Error() string {
	got := string(e.Got)
	if got == "" {
		got = "unclassified body"
	}
	return fmt.Sprintf("receipt %s: want %s receipt, got %s", e.ReceiptID, e.Want, got)
}

// Is lets errors.Is match ErrKindMismatch.
func (e *KindMismatchError) Is(target error) bool {
	return target == ErrKindMismatch
}

// GasPriceError reports a gas price that needs more digits than the column
// precision allows.
type GasPriceError struct {
	ReceiptID string
	GasPrice  string
	Digits    int
	Precision int
}

func (e *GasPriceError) Error() string {
	return fmt.Sprintf("receipt %s: gas price %s has %d digits, column precision is %d",
		e.ReceiptID, e.GasPrice, e.Digits, e.Precision)
}

// Is lets errors.Is match ErrGasPriceConversion.
func (e *GasPriceError) Is(target error) bool {
	return target == ErrGasPriceConversion
}

// IsKindMismatch returns true if err is, or wraps, a kind mismatch.
func IsKindMismatch(err error) bool {
	return errors.Is(err, ErrKindMismatch)
}
