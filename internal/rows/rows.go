package rows

import (
	"github.com/shopspring/decimal"

	"github.com/roach88/receiptdb/internal/ir"
)

// Receipt is the root row shared by both receipt kinds.
// Every other row references it by ReceiptID.
type Receipt struct {
	ReceiptID     []byte
	BlockHeight   decimal.Decimal
	PredecessorID string
	ReceiverID    string
	Kind          ReceiptKind
}

// ReceiptData exists for Data receipts only. A nil Data means no data was
// attached, which is distinct from empty data.
type ReceiptData struct {
	DataID    []byte
	ReceiptID []byte
	Data      []byte
}

// ReceiptAction holds the signer and gas price of an Action receipt.
// GasPriceFallback marks a row whose gas price was replaced by 0 because the
// source value did not fit the storage precision.
type ReceiptAction struct {
	ReceiptID        []byte
	SignerID         string
	SignerPublicKey  string
	GasPrice         decimal.Decimal
	GasPriceFallback bool
}

// ReceiptActionAction is one action of an Action receipt. Index is the
// zero-based position in the original action list.
type ReceiptActionAction struct {
	ReceiptID []byte
	Index     int
	Kind      ActionKind
	Args      ir.IRObject
}

// ReceiptActionInputData declares a data dependency the receipt awaits.
type ReceiptActionInputData struct {
	ReceiptID []byte
	DataID    []byte
}

// ReceiptActionOutputData declares a data receipt this receipt will produce
// and who receives it.
type ReceiptActionOutputData struct {
	ReceiptID  []byte
	DataID     []byte
	ReceiverID string
}
