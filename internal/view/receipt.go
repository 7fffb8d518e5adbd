package view

// ReceiptView is a receipt as handed over by the streaming collaborator.
type ReceiptView struct {
	ReceiptID     CryptoHash
	PredecessorID string
	ReceiverID    string
	Body          ReceiptBody
}

// ReceiptBody is either DataBody or ActionBody.
type ReceiptBody interface {
	isReceiptBody()
}

// DataBody delivers the result of an awaited data dependency.
// A nil Data means no data was attached; a non-nil empty slice is empty data.
type DataBody struct {
	DataID CryptoHash
	Data   []byte
}

// ActionBody dispatches an ordered list of actions.
type ActionBody struct {
	SignerID            string
	SignerPublicKey     string
	GasPrice            U128
	Actions             []Action
	OutputDataReceivers []DataReceiver
	InputDataIDs        []CryptoHash
}

// DataReceiver names a data receipt that an action receipt will produce.
type DataReceiver struct {
	DataID     CryptoHash `json:"data_id"`
	ReceiverID string     `json:"receiver_id"`
}

func (DataBody) isReceiptBody()   {}
func (ActionBody) isReceiptBody() {}

// Observed pairs a receipt with the height of the block it was observed in.
type Observed struct {
	BlockHeight uint64      `json:"block_height"`
	Receipt     ReceiptView `json:"receipt"`
}
