package rows

import (
	"github.com/shopspring/decimal"

	"github.com/roach88/receiptdb/internal/view"
)

// Classify returns the kind of the receipt's body. A body that is neither a
// view.DataBody nor a view.ActionBody value (nil, or a pointer to either)
// has no kind and yields "".
func Classify(r view.ReceiptView) ReceiptKind {
	switch r.Body.(type) {
	case view.DataBody:
		return ReceiptKindData
	case view.ActionBody:
		return ReceiptKindAction
	default:
		return ""
	}
}

// NewReceipt builds the root row for a receipt observed at blockHeight.
func NewReceipt(r view.ReceiptView, blockHeight uint64) Receipt {
	return Receipt{
		ReceiptID:     r.ReceiptID.Bytes(),
		BlockHeight:   decimal.NewFromUint64(blockHeight),
		PredecessorID: r.PredecessorID,
		ReceiverID:    r.ReceiverID,
		Kind:          Classify(r),
	}
}

// NewReceiptData extracts the data row of a Data receipt. Any other receipt
// fails with an error matching ErrKindMismatch.
func NewReceiptData(r view.ReceiptView) (ReceiptData, error) {
	body, ok := r.Body.(view.DataBody)
	if !ok {
		return ReceiptData{}, mismatch(r, ReceiptKindData)
	}

	var data []byte
	if body.Data != nil {
		data = make([]byte, len(body.Data))
		copy(data, body.Data)
	}

	return ReceiptData{
		DataID:    body.DataID.Bytes(),
		ReceiptID: r.ReceiptID.Bytes(),
		Data:      data,
	}, nil
}

// NewReceiptAction extracts the signer and gas price of an Action receipt.
// Any other receipt fails with an error matching ErrKindMismatch. Gas price
// overflow is handled by conv.
func NewReceiptAction(r view.ReceiptView, conv GasPriceConverter) (ReceiptAction, error) {
	body, ok := r.Body.(view.ActionBody)
	if !ok {
		return ReceiptAction{}, mismatch(r, ReceiptKindAction)
	}

	price, fallback, err := conv.Convert(r.ReceiptID.String(), body.GasPrice)
	if err != nil {
		return ReceiptAction{}, err
	}

	return ReceiptAction{
		ReceiptID:        r.ReceiptID.Bytes(),
		SignerID:         body.SignerID,
		SignerPublicKey:  body.SignerPublicKey,
		GasPrice:         price,
		GasPriceFallback: fallback,
	}, nil
}

func mismatch(r view.ReceiptView, want ReceiptKind) error {
	return &KindMismatchError{
		ReceiptID: r.ReceiptID.String(),
		Want:      want,
		Got:       Classify(r),
	}
}
