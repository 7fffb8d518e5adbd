package testutil

import (
	"crypto/sha256"
	"fmt"

	"github.com/roach88/receiptdb/internal/view"
)

// Heights used by the fixture receipts.
const (
	HeightAction     uint64 = 9820210
	HeightData       uint64 = 9820211
	HeightEmptyData  uint64 = 9820212
	FixtureGasPrice  uint64 = 100000000
	FixtureAllowance        = "250000000000000000000000"
)

// Hash derives a stable identifier from name.
func Hash(name string) view.CryptoHash {
	return view.CryptoHash(sha256.Sum256([]byte(name)))
}

// AllActions returns one action of every variant, with AddKey twice to cover
// both permission kinds. Order is fixed.
func AllActions() []view.Action {
	allowance := view.MustParseU128(FixtureAllowance)
	return []view.Action{
		view.CreateAccount{},
		view.DeployContract{Code: []byte("\x00asm\x01\x00\x00\x00")},
		view.FunctionCall{
			MethodName: "ft_transfer",
			Args:       []byte(`{"amount":"1000","receiver_id":"bob.near"}`),
			Gas:        300000000000000,
			Deposit:    view.NewU128(1),
		},
		view.Transfer{Deposit: view.MaxU128()},
		view.Stake{Stake: view.MustParseU128("50000000000000000000000000000"), PublicKey: "ed25519:stake-key"},
		view.AddKey{PublicKey: "ed25519:full-key", AccessKey: view.AccessKey{Nonce: 0, Permission: view.FullAccess{}}},
		view.AddKey{PublicKey: "ed25519:fc-key", AccessKey: view.AccessKey{Nonce: 7, Permission: view.FunctionCallPermission{
			Allowance:   &allowance,
			ReceiverID:  "app.near",
			MethodNames: []string{"ft_transfer", "storage_deposit"},
		}}},
		view.DeleteKey{PublicKey: "ed25519:old-key"},
		view.DeleteAccount{BeneficiaryID: "carol.near"},
	}
}

// ActionReceipt builds an Action receipt with the given actions, outputs
// output data receivers and inputs awaited data ids.
func ActionReceipt(name string, actions []view.Action, outputs, inputs int) view.ReceiptView {
	receivers := make([]view.DataReceiver, outputs)
	for i := range receivers {
		receivers[i] = view.DataReceiver{
			DataID:     Hash(fmt.Sprintf("%s/out/%d", name, i)),
			ReceiverID: fmt.Sprintf("receiver-%d.near", i),
		}
	}
	inputIDs := make([]view.CryptoHash, inputs)
	for i := range inputIDs {
		inputIDs[i] = Hash(fmt.Sprintf("%s/in/%d", name, i))
	}

	return view.ReceiptView{
		ReceiptID:     Hash(name),
		PredecessorID: "alice.near",
		ReceiverID:    "app.near",
		Body: view.ActionBody{
			SignerID:            "alice.near",
			SignerPublicKey:     "ed25519:signer-key",
			GasPrice:            view.NewU128(FixtureGasPrice),
			Actions:             actions,
			OutputDataReceivers: receivers,
			InputDataIDs:        inputIDs,
		},
	}
}

// DataReceipt builds a Data receipt carrying data. Pass nil for a receipt
// with no data attached.
func DataReceipt(name string, data []byte) view.ReceiptView {
	return view.ReceiptView{
		ReceiptID:     Hash(name),
		PredecessorID: "app.near",
		ReceiverID:    "alice.near",
		Body: view.DataBody{
			DataID: Hash(name + "/data"),
			Data:   data,
		},
	}
}

// WithGasPrice returns a copy of an Action receipt with its gas price
// replaced.
func WithGasPrice(r view.ReceiptView, price view.U128) view.ReceiptView {
	body := r.Body.(view.ActionBody)
	body.GasPrice = price
	r.Body = body
	return r
}

// Observed returns the standard three-receipt fixture: an Action receipt
// with every action variant, one output and one input edge; a Data receipt
// with a payload; and a Data receipt with no data attached.
func Observed() []view.Observed {
	return []view.Observed{
		{BlockHeight: HeightAction, Receipt: ActionReceipt("receipt-1", AllActions(), 1, 1)},
		{BlockHeight: HeightData, Receipt: DataReceipt("receipt-2", []byte(`{"ok":true}`))},
		{BlockHeight: HeightEmptyData, Receipt: DataReceipt("receipt-3", nil)},
	}
}
