package view

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Externally tagged enum names used by the node's JSON encoding.
const (
	tagData   = "Data"
	tagAction = "Action"

	tagCreateAccount  = "CreateAccount"
	tagDeployContract = "DeployContract"
	tagFunctionCall   = "FunctionCall"
	tagTransfer       = "Transfer"
	tagStake          = "Stake"
	tagAddKey         = "AddKey"
	tagDeleteKey      = "DeleteKey"
	tagDeleteAccount  = "DeleteAccount"

	tagFullAccess = "FullAccess"
)

// ErrUnknownVariant is returned when an enum tag is not part of the closed set.
var ErrUnknownVariant = errors.New("unknown variant")

type receiptViewJSON struct {
	PredecessorID string          `json:"predecessor_id"`
	ReceiverID    string          `json:"receiver_id"`
	ReceiptID     CryptoHash      `json:"receipt_id"`
	Receipt       json.RawMessage `json:"receipt"`
}

type dataBodyJSON struct {
	DataID CryptoHash `json:"data_id"`
	Data   []byte     `json:"data"`
}

type actionBodyJSON struct {
	SignerID            string            `json:"signer_id"`
	SignerPublicKey     string            `json:"signer_public_key"`
	GasPrice            U128              `json:"gas_price"`
	OutputDataReceivers []DataReceiver    `json:"output_data_receivers"`
	InputDataIDs        []CryptoHash      `json:"input_data_ids"`
	Actions             []json.RawMessage `json:"actions"`
}

type deployContractJSON struct {
	Code []byte `json:"code"`
}

type functionCallJSON struct {
	MethodName string `json:"method_name"`
	Args       []byte `json:"args"`
	Gas        uint64 `json:"gas"`
	Deposit    U128   `json:"deposit"`
}

type transferJSON struct {
	Deposit U128 `json:"deposit"`
}

type stakeJSON struct {
	Stake     U128   `json:"stake"`
	PublicKey string `json:"public_key"`
}

type addKeyJSON struct {
	PublicKey string    `json:"public_key"`
	AccessKey AccessKey `json:"access_key"`
}

type deleteKeyJSON struct {
	PublicKey string `json:"public_key"`
}

type deleteAccountJSON struct {
	BeneficiaryID string `json:"beneficiary_id"`
}

type accessKeyJSON struct {
	Nonce      uint64          `json:"nonce"`
	Permission json.RawMessage `json:"permission"`
}

type functionCallPermissionJSON struct {
	Allowance   *U128    `json:"allowance"`
	ReceiverID  string   `json:"receiver_id"`
	MethodNames []string `json:"method_names"`
}

// MarshalJSON encodes the receipt in the node's JSON shape.
func (r ReceiptView) MarshalJSON() ([]byte, error) {
	body, err := marshalBody(r.Body)
	if err != nil {
		return nil, fmt.Errorf("receipt %s: %w", r.ReceiptID, err)
	}
	return json.Marshal(receiptViewJSON{
		PredecessorID: r.PredecessorID,
		ReceiverID:    r.ReceiverID,
		ReceiptID:     r.ReceiptID,
		Receipt:       body,
	})
}

// UnmarshalJSON decodes the node's JSON shape.
func (r *ReceiptView) UnmarshalJSON(data []byte) error {
	var raw receiptViewJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	body, err := unmarshalBody(raw.Receipt)
	if err != nil {
		return fmt.Errorf("receipt %s: %w", raw.ReceiptID, err)
	}
	*r = ReceiptView{
		ReceiptID:     raw.ReceiptID,
		PredecessorID: raw.PredecessorID,
		ReceiverID:    raw.ReceiverID,
		Body:          body,
	}
	return nil
}

func marshalBody(body ReceiptBody) ([]byte, error) {
	switch b := body.(type) {
	case DataBody:
		return marshalTagged(tagData, dataBodyJSON(b))
	case ActionBody:
		actions := make([]json.RawMessage, len(b.Actions))
		for i, a := range b.Actions {
			raw, err := MarshalAction(a)
			if err != nil {
				return nil, fmt.Errorf("action %d: %w", i, err)
			}
			actions[i] = raw
		}
		return marshalTagged(tagAction, actionBodyJSON{
			SignerID:            b.SignerID,
			SignerPublicKey:     b.SignerPublicKey,
			GasPrice:            b.GasPrice,
			OutputDataReceivers: nonNil(b.OutputDataReceivers),
			InputDataIDs:        nonNil(b.InputDataIDs),
			Actions:             actions,
		})
	case nil:
		return nil, errors.New("receipt has no body")
	}
	return nil, fmt.Errorf("%w: receipt body %T", ErrUnknownVariant, body)
}

func unmarshalBody(data []byte) (ReceiptBody, error) {
	tag, payload, err := splitTagged(data)
	if err != nil {
		return nil, err
	}
	switch tag {
	case tagData:
		var b dataBodyJSON
		if err := json.Unmarshal(payload, &b); err != nil {
			return nil, fmt.Errorf("data body: %w", err)
		}
		return DataBody(b), nil
	case tagAction:
		var b actionBodyJSON
		if err := json.Unmarshal(payload, &b); err != nil {
			return nil, fmt.Errorf("action body: %w", err)
		}
		actions := make([]Action, len(b.Actions))
		for i, raw := range b.Actions {
			a, err := UnmarshalAction(raw)
			if err != nil {
				return nil, fmt.Errorf("action %d: %w", i, err)
			}
			actions[i] = a
		}
		return ActionBody{
			SignerID:            b.SignerID,
			SignerPublicKey:     b.SignerPublicKey,
			GasPrice:            b.GasPrice,
			Actions:             actions,
			OutputDataReceivers: b.OutputDataReceivers,
			InputDataIDs:        b.InputDataIDs,
		}, nil
	}
	return nil, fmt.Errorf("%w: receipt body %q", ErrUnknownVariant, tag)
}

// actionMarshaler encodes each variant in the node's tagged form.
type actionMarshaler struct {
	out []byte
	err error
}

func (m *actionMarshaler) set(tag string, payload any) {
	m.out, m.err = marshalTagged(tag, payload)
}

func (m *actionMarshaler) VisitCreateAccount(CreateAccount) {
	m.out, m.err = json.Marshal(tagCreateAccount)
}

func (m *actionMarshaler) VisitDeployContract(a DeployContract) {
	m.set(tagDeployContract, deployContractJSON(a))
}

func (m *actionMarshaler) VisitFunctionCall(a FunctionCall) {
	m.set(tagFunctionCall, functionCallJSON(a))
}

func (m *actionMarshaler) VisitTransfer(a Transfer) {
	m.set(tagTransfer, transferJSON(a))
}

func (m *actionMarshaler) VisitStake(a Stake) {
	m.set(tagStake, stakeJSON(a))
}

func (m *actionMarshaler) VisitAddKey(a AddKey) {
	m.set(tagAddKey, addKeyJSON(a))
}

func (m *actionMarshaler) VisitDeleteKey(a DeleteKey) {
	m.set(tagDeleteKey, deleteKeyJSON(a))
}

func (m *actionMarshaler) VisitDeleteAccount(a DeleteAccount) {
	m.set(tagDeleteAccount, deleteAccountJSON(a))
}

// MarshalAction encodes a single action in the node's JSON shape.
func MarshalAction(a Action) ([]byte, error) {
	if a == nil {
		return nil, errors.New("nil action")
	}
	var m actionMarshaler
	a.Accept(&m)
	return m.out, m.err
}

// UnmarshalAction decodes a single action from the node's JSON shape.
func UnmarshalAction(data []byte) (Action, error) {
	tag, payload, err := splitTagged(data)
	if err != nil {
		return nil, err
	}

	switch tag {
	case tagCreateAccount:
		return CreateAccount{}, nil
	case tagDeployContract:
		var p deployContractJSON
		err = json.Unmarshal(payload, &p)
		return DeployContract(p), wrapPayload(tag, err)
	case tagFunctionCall:
		var p functionCallJSON
		err = json.Unmarshal(payload, &p)
		return FunctionCall(p), wrapPayload(tag, err)
	case tagTransfer:
		var p transferJSON
		err = json.Unmarshal(payload, &p)
		return Transfer(p), wrapPayload(tag, err)
	case tagStake:
		var p stakeJSON
		err = json.Unmarshal(payload, &p)
		return Stake(p), wrapPayload(tag, err)
	case tagAddKey:
		var p addKeyJSON
		err = json.Unmarshal(payload, &p)
		return AddKey(p), wrapPayload(tag, err)
	case tagDeleteKey:
		var p deleteKeyJSON
		err = json.Unmarshal(payload, &p)
		return DeleteKey(p), wrapPayload(tag, err)
	case tagDeleteAccount:
		var p deleteAccountJSON
		err = json.Unmarshal(payload, &p)
		return DeleteAccount(p), wrapPayload(tag, err)
	}
	return nil, fmt.Errorf("%w: action %q", ErrUnknownVariant, tag)
}

func wrapPayload(tag string, err error) error {
	if err != nil {
		return fmt.Errorf("%s: %w", tag, err)
	}
	return nil
}

// MarshalJSON encodes the access key with its tagged permission.
func (k AccessKey) MarshalJSON() ([]byte, error) {
	if k.Permission == nil {
		return nil, errors.New("access key has no permission")
	}
	var perm []byte
	var err error
	if fc, ok := k.Permission.FunctionCall(); ok {
		perm, err = marshalTagged(tagFunctionCall, functionCallPermissionJSON{
			Allowance:   fc.Allowance,
			ReceiverID:  fc.ReceiverID,
			MethodNames: nonNil(fc.MethodNames),
		})
	} else {
		perm, err = json.Marshal(tagFullAccess)
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(accessKeyJSON{Nonce: k.Nonce, Permission: perm})
}

// UnmarshalJSON decodes an access key.
func (k *AccessKey) UnmarshalJSON(data []byte) error {
	var raw accessKeyJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	tag, payload, err := splitTagged(raw.Permission)
	if err != nil {
		return fmt.Errorf("permission: %w", err)
	}

	var perm Permission
	switch tag {
	case tagFullAccess:
		perm = FullAccess{}
	case tagFunctionCall:
		var p functionCallPermissionJSON
		if err := json.Unmarshal(payload, &p); err != nil {
			return fmt.Errorf("permission: %w", err)
		}
		perm = FunctionCallPermission(p)
	default:
		return fmt.Errorf("%w: permission %q", ErrUnknownVariant, tag)
	}

	*k = AccessKey{Nonce: raw.Nonce, Permission: perm}
	return nil
}

// marshalTagged wraps payload as {"tag": payload}.
func marshalTagged(tag string, payload any) ([]byte, error) {
	return json.Marshal(map[string]any{tag: payload})
}

// splitTagged accepts the two shapes of an externally tagged enum:
// a bare string for unit variants, or an object with exactly one key.
func splitTagged(data []byte) (string, json.RawMessage, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return "", nil, errors.New("missing enum value")
	}

	if data[0] == '"' {
		var tag string
		if err := json.Unmarshal(data, &tag); err != nil {
			return "", nil, err
		}
		return tag, nil, nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return "", nil, fmt.Errorf("tagged enum: %w", err)
	}
	if len(obj) != 1 {
		return "", nil, fmt.Errorf("tagged enum: want exactly one variant key, got %d", len(obj))
	}
	for tag, payload := range obj {
		return tag, payload, nil
	}
	return "", nil, nil
}

// nonNil turns a nil slice into an empty one so it encodes as [].
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
