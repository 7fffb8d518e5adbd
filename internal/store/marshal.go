package store

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/roach88/receiptdb/internal/ir"
)

// marshalArgs converts action args to canonical JSON TEXT.
func marshalArgs(args ir.IRObject) (string, error) {
	if args == nil {
		args = ir.IRObject{}
	}
	data, err := ir.MarshalCanonical(args)
	if err != nil {
		return "", fmt.Errorf("marshal args: %w", err)
	}
	return string(data), nil
}

// unmarshalArgs parses args TEXT back to an IRObject.
func unmarshalArgs(data string) (ir.IRObject, error) {
	var obj ir.IRObject
	if err := json.Unmarshal([]byte(data), &obj); err != nil {
		return nil, fmt.Errorf("unmarshal args: %w", err)
	}
	if obj == nil {
		return nil, fmt.Errorf("unmarshal args: %q is not an object", data)
	}
	return obj, nil
}

// marshalDecimal renders an integral decimal without exponent or fraction.
func marshalDecimal(d decimal.Decimal) string {
	return d.String()
}

func unmarshalDecimal(column, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("unmarshal %s: %w", column, err)
	}
	return d, nil
}
