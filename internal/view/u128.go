package view

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
)

// U128 is an unsigned 128-bit amount (deposits, stakes, gas prices).
// The zero value is 0.
type U128 struct {
	n uint256.Int
}

// MaxU128 returns 2^128 - 1.
func MaxU128() U128 {
	var u U128
	u.n.SetAllOne()
	u.n.Rsh(&u.n, 128)
	return u
}

// NewU128 returns the amount v.
func NewU128(v uint64) U128 {
	var u U128
	u.n.SetUint64(v)
	return u
}

// ParseU128 parses a base-10 amount. Anything other than plain digits, or a
// value of 2^128 or more, is rejected.
func ParseU128(s string) (U128, error) {
	var u U128
	if s == "" {
		return u, fmt.Errorf("parse u128: empty string")
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return u, fmt.Errorf("parse u128 %q: not a decimal integer", s)
		}
	}
	n, err := uint256.FromDecimal(s)
	if err != nil {
		return u, fmt.Errorf("parse u128 %q: %w", s, err)
	}
	if n.BitLen() > 128 {
		return u, fmt.Errorf("parse u128 %q: exceeds 128 bits", s)
	}
	u.n = *n
	return u, nil
}

// MustParseU128 is like ParseU128 but panics on error.
func MustParseU128(s string) U128 {
	u, err := ParseU128(s)
	if err != nil {
		panic(err)
	}
	return u
}

// String returns the exact decimal expansion.
func (u U128) String() string {
	return u.n.Dec()
}

// Big returns the amount as a big.Int.
func (u U128) Big() *big.Int {
	return u.n.ToBig()
}

// IsZero reports whether the amount is 0.
func (u U128) IsZero() bool {
	return u.n.IsZero()
}

// Digits returns the number of decimal digits in the amount.
func (u U128) Digits() int {
	return len(u.String())
}

// MarshalJSON encodes the amount as a decimal string so consumers never see
// a float-rounded number.
func (u U128) MarshalJSON() ([]byte, error) {
	return json.Marshal(u.String())
}

// UnmarshalJSON accepts a decimal string or a bare JSON integer.
func (u *U128) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	s := string(data)
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
	}
	parsed, err := ParseU128(s)
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}
