package rows

import (
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"

	"github.com/roach88/receiptdb/internal/ir"
)

// Batch holds the rows derived from one or more receipts, grouped by table.
// Rows of each slice follow input receipt order; action rows of one receipt
// follow their index.
type Batch struct {
	Receipts      []Receipt
	Data          []ReceiptData
	Actions       []ReceiptAction
	ActionActions []ReceiptActionAction
	InputData     []ReceiptActionInputData
	OutputData    []ReceiptActionOutputData
}

// Append adds the rows of o after the rows of b.
func (b *Batch) Append(o Batch) {
	b.Receipts = append(b.Receipts, o.Receipts...)
	b.Data = append(b.Data, o.Data...)
	b.Actions = append(b.Actions, o.Actions...)
	b.ActionActions = append(b.ActionActions, o.ActionActions...)
	b.InputData = append(b.InputData, o.InputData...)
	b.OutputData = append(b.OutputData, o.OutputData...)
}

// Len returns the total number of rows across all tables.
func (b Batch) Len() int {
	return len(b.Receipts) + len(b.Data) + len(b.Actions) +
		len(b.ActionActions) + len(b.InputData) + len(b.OutputData)
}

// Fallbacks returns the action rows whose gas price was replaced by 0.
func (b Batch) Fallbacks() []ReceiptAction {
	var out []ReceiptAction
	for _, a := range b.Actions {
		if a.GasPriceFallback {
			out = append(out, a)
		}
	}
	return out
}

// Validate checks the cross-row invariants of the batch and returns every
// violation found, joined.
//
//   - receipt ids are unique
//   - every referencing row points at a receipt of the matching kind
//   - each Data receipt has exactly one data row
//   - each Action receipt has at most one action row
//   - action indices per receipt run 0..n-1 in order
func (b Batch) Validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	kinds := make(map[string]ReceiptKind, len(b.Receipts))
	for _, r := range b.Receipts {
		id := EncodeID(r.ReceiptID)
		if _, dup := kinds[id]; dup {
			fail("receipt %s: duplicate receipt id", id)
			continue
		}
		kinds[id] = r.Kind
	}

	check := func(table string, receiptID []byte, want ReceiptKind) {
		id := EncodeID(receiptID)
		got, ok := kinds[id]
		switch {
		case !ok:
			fail("%s: receipt %s not in batch", table, id)
		case got != want:
			fail("%s: receipt %s is %s, want %s", table, id, got, want)
		}
	}

	dataRows := make(map[string]int)
	dataIDs := make(map[string]bool)
	for _, d := range b.Data {
		check("receipt_data", d.ReceiptID, ReceiptKindData)
		dataRows[EncodeID(d.ReceiptID)]++
		did := EncodeID(d.DataID)
		if dataIDs[did] {
			fail("receipt_data: duplicate data id %s", did)
		}
		dataIDs[did] = true
	}

	actionRows := make(map[string]int)
	for _, a := range b.Actions {
		check("receipt_actions", a.ReceiptID, ReceiptKindAction)
		actionRows[EncodeID(a.ReceiptID)]++
	}

	next := make(map[string]int)
	for _, a := range b.ActionActions {
		check("receipt_action_actions", a.ReceiptID, ReceiptKindAction)
		id := EncodeID(a.ReceiptID)
		if a.Index != next[id] {
			fail("receipt_action_actions: receipt %s: index %d, want %d", id, a.Index, next[id])
		}
		next[id] = a.Index + 1
	}

	for _, e := range b.InputData {
		check("receipt_action_input_data", e.ReceiptID, ReceiptKindAction)
	}
	for _, e := range b.OutputData {
		check("receipt_action_output_data", e.ReceiptID, ReceiptKindAction)
	}

	for _, r := range b.Receipts {
		id := EncodeID(r.ReceiptID)
		switch r.Kind {
		case ReceiptKindData:
			if n := dataRows[id]; n != 1 {
				fail("receipt %s: %d data rows, want 1", id, n)
			}
		case ReceiptKindAction:
			if n := actionRows[id]; n > 1 {
				fail("receipt %s: %d action rows, want at most 1", id, n)
			}
		default:
			fail("receipt %s: unknown kind %q", id, r.Kind)
		}
	}

	return errors.Join(errs...)
}

// Canonical returns the batch as a single document whose canonical encoding
// is stable across runs. Identifiers are base58, amounts decimal strings and
// payloads base64.
func (b Batch) Canonical() ir.IRObject {
	receipts := make(ir.IRArray, len(b.Receipts))
	for i, r := range b.Receipts {
		receipts[i] = ir.IRObject{
			"receipt_id":     ir.IRString(EncodeID(r.ReceiptID)),
			"block_height":   ir.IRString(r.BlockHeight.String()),
			"predecessor_id": ir.IRString(r.PredecessorID),
			"receiver_id":    ir.IRString(r.ReceiverID),
			"receipt_kind":   ir.IRString(r.Kind),
		}
	}

	data := make(ir.IRArray, len(b.Data))
	for i, d := range b.Data {
		var payload ir.IRValue = ir.IRNull{}
		if d.Data != nil {
			payload = ir.IRString(base64.StdEncoding.EncodeToString(d.Data))
		}
		data[i] = ir.IRObject{
			"data_id":    ir.IRString(EncodeID(d.DataID)),
			"receipt_id": ir.IRString(EncodeID(d.ReceiptID)),
			"data":       payload,
		}
	}

	actions := make(ir.IRArray, len(b.Actions))
	for i, a := range b.Actions {
		actions[i] = ir.IRObject{
			"receipt_id":         ir.IRString(EncodeID(a.ReceiptID)),
			"signer_id":          ir.IRString(a.SignerID),
			"signer_public_key":  ir.IRString(a.SignerPublicKey),
			"gas_price":          ir.IRString(a.GasPrice.String()),
			"gas_price_fallback": ir.IRBool(a.GasPriceFallback),
		}
	}

	actionActions := make(ir.IRArray, len(b.ActionActions))
	for i, a := range b.ActionActions {
		actionActions[i] = ir.IRObject{
			"receipt_id":  ir.IRString(EncodeID(a.ReceiptID)),
			"index":       ir.IRInt(a.Index),
			"action_kind": ir.IRString(a.Kind),
			"args":        a.Args,
		}
	}

	inputs := make(ir.IRArray, len(b.InputData))
	for i, e := range b.InputData {
		inputs[i] = ir.IRObject{
			"receipt_id": ir.IRString(EncodeID(e.ReceiptID)),
			"data_id":    ir.IRString(EncodeID(e.DataID)),
		}
	}

	outputs := make(ir.IRArray, len(b.OutputData))
	for i, e := range b.OutputData {
		outputs[i] = ir.IRObject{
			"receipt_id":  ir.IRString(EncodeID(e.ReceiptID)),
			"data_id":     ir.IRString(EncodeID(e.DataID)),
			"receiver_id": ir.IRString(e.ReceiverID),
		}
	}

	return ir.IRObject{
		"receipts":                   receipts,
		"receipt_data":               data,
		"receipt_actions":            actions,
		"receipt_action_actions":     actionActions,
		"receipt_action_input_data":  inputs,
		"receipt_action_output_data": outputs,
	}
}

// MarshalCanonical returns the canonical JSON encoding of the batch.
func (b Batch) MarshalCanonical() ([]byte, error) {
	return ir.MarshalCanonical(b.Canonical())
}

// Digest returns the content digest of the batch.
func (b Batch) Digest() (string, error) {
	return ir.BatchDigest(b.Canonical())
}

// EncodeID renders a raw receipt or data id in base58.
func EncodeID(id []byte) string {
	return base58.Encode(id)
}
