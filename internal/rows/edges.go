package rows

import "github.com/roach88/receiptdb/internal/view"

// NewOutputData builds one output edge per declared data receiver, keeping
// each (data_id, receiver_id) pair together.
func NewOutputData(receiptID []byte, receivers []view.DataReceiver) []ReceiptActionOutputData {
	out := make([]ReceiptActionOutputData, len(receivers))
	for i, dr := range receivers {
		out[i] = ReceiptActionOutputData{
			ReceiptID:  receiptID,
			DataID:     dr.DataID.Bytes(),
			ReceiverID: dr.ReceiverID,
		}
	}
	return out
}

// NewInputData builds one input edge per awaited data id.
func NewInputData(receiptID []byte, dataIDs []view.CryptoHash) []ReceiptActionInputData {
	out := make([]ReceiptActionInputData, len(dataIDs))
	for i, id := range dataIDs {
		out[i] = ReceiptActionInputData{
			ReceiptID: receiptID,
			DataID:    id.Bytes(),
		}
	}
	return out
}
