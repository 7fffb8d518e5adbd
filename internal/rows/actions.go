package rows

import (
	"encoding/base64"
	"fmt"
	"slices"

	"github.com/roach88/receiptdb/internal/ir"
	"github.com/roach88/receiptdb/internal/view"
)

// Args keys per action kind. Amounts (deposit, stake, allowance) are decimal
// strings; gas and nonce are JSON integers; byte blobs are base64.
var argKeys = map[ActionKind][]string{
	ActionKindCreateAccount:  {},
	ActionKindDeployContract: {"code"},
	ActionKindFunctionCall:   {"args", "deposit", "gas", "method_name"},
	ActionKindTransfer:       {"deposit"},
	ActionKindStake:          {"public_key", "stake"},
	ActionKindAddKey:         {"access_key", "public_key"},
	ActionKindDeleteKey:      {"public_key"},
	ActionKindDeleteAccount:  {"beneficiary_id"},
}

const permissionFullAccess = "FullAccess"
const permissionFunctionCall = "FunctionCall"

// actionEncoder maps each action variant to its kind and args document.
type actionEncoder struct {
	kind ActionKind
	args ir.IRObject
}

func (e *actionEncoder) VisitCreateAccount(view.CreateAccount) {
	e.kind, e.args = ActionKindCreateAccount, ir.IRObject{}
}

func (e *actionEncoder) VisitDeployContract(a view.DeployContract) {
	e.kind = ActionKindDeployContract
	e.args = ir.NewIRObjectFromPairs(
		ir.O("code", encodeBytes(a.Code)),
	)
}

func (e *actionEncoder) VisitFunctionCall(a view.FunctionCall) {
	e.kind = ActionKindFunctionCall
	e.args = ir.NewIRObjectFromPairs(
		ir.O("method_name", ir.IRString(a.MethodName)),
		ir.O("args", encodeBytes(a.Args)),
		ir.O("gas", ir.IRUint(a.Gas)),
		ir.O("deposit", ir.IRString(a.Deposit.String())),
	)
}

func (e *actionEncoder) VisitTransfer(a view.Transfer) {
	e.kind = ActionKindTransfer
	e.args = ir.NewIRObjectFromPairs(
		ir.O("deposit", ir.IRString(a.Deposit.String())),
	)
}

func (e *actionEncoder) VisitStake(a view.Stake) {
	e.kind = ActionKindStake
	e.args = ir.NewIRObjectFromPairs(
		ir.O("stake", ir.IRString(a.Stake.String())),
		ir.O("public_key", ir.IRString(a.PublicKey)),
	)
}

func (e *actionEncoder) VisitAddKey(a view.AddKey) {
	e.kind = ActionKindAddKey
	e.args = ir.NewIRObjectFromPairs(
		ir.O("public_key", ir.IRString(a.PublicKey)),
		ir.O("access_key", encodeAccessKey(a.AccessKey)),
	)
}

func (e *actionEncoder) VisitDeleteKey(a view.DeleteKey) {
	e.kind = ActionKindDeleteKey
	e.args = ir.NewIRObjectFromPairs(
		ir.O("public_key", ir.IRString(a.PublicKey)),
	)
}

func (e *actionEncoder) VisitDeleteAccount(a view.DeleteAccount) {
	e.kind = ActionKindDeleteAccount
	e.args = ir.NewIRObjectFromPairs(
		ir.O("beneficiary_id", ir.IRString(a.BeneficiaryID)),
	)
}

func encodeBytes(b []byte) ir.IRString {
	return ir.IRString(base64.StdEncoding.EncodeToString(b))
}

func encodeAccessKey(k view.AccessKey) ir.IRObject {
	var perm ir.IRValue = ir.IRString(permissionFullAccess)
	if k.Permission != nil {
		if fc, ok := k.Permission.FunctionCall(); ok {
			var allowance ir.IRValue = ir.IRNull{}
			if fc.Allowance != nil {
				allowance = ir.IRString(fc.Allowance.String())
			}
			perm = ir.IRObject{
				permissionFunctionCall: ir.NewIRObjectFromPairs(
					ir.O("allowance", allowance),
					ir.O("receiver_id", ir.IRString(fc.ReceiverID)),
					ir.O("method_names", ir.StringArray(fc.MethodNames)),
				),
			}
		}
	}
	return ir.NewIRObjectFromPairs(
		ir.O("nonce", ir.IRUint(k.Nonce)),
		ir.O("permission", perm),
	)
}

// NewReceiptActionAction encodes one action at the given position of the
// receipt's action list.
func NewReceiptActionAction(receiptID []byte, index int, a view.Action) ReceiptActionAction {
	var e actionEncoder
	a.Accept(&e)
	return ReceiptActionAction{
		ReceiptID: receiptID,
		Index:     index,
		Kind:      e.kind,
		Args:      e.args,
	}
}

// EncodeActions encodes a whole action list. Each row's index is the
// action's position in actions.
func EncodeActions(receiptID []byte, actions []view.Action) []ReceiptActionAction {
	out := make([]ReceiptActionAction, len(actions))
	for i, a := range actions {
		out[i] = NewReceiptActionAction(receiptID, i, a)
	}
	return out
}

// DecodeAction rebuilds the action a row was encoded from. The args document
// must carry exactly the key set of kind.
func DecodeAction(kind ActionKind, args ir.IRObject) (view.Action, error) {
	want, ok := argKeys[kind]
	if !ok {
		return nil, fmt.Errorf("decode action: unknown kind %q", kind)
	}
	if got := args.SortedKeys(); !slices.Equal(got, want) {
		return nil, fmt.Errorf("decode %s: args keys %v, want %v", kind, got, want)
	}

	d := argDecoder{kind: kind}
	var a view.Action
	switch kind {
	case ActionKindCreateAccount:
		a = view.CreateAccount{}
	case ActionKindDeployContract:
		a = view.DeployContract{Code: d.bytes(args, "code")}
	case ActionKindFunctionCall:
		a = view.FunctionCall{
			MethodName: d.str(args, "method_name"),
			Args:       d.bytes(args, "args"),
			Gas:        d.uint(args, "gas"),
			Deposit:    d.amount(args, "deposit"),
		}
	case ActionKindTransfer:
		a = view.Transfer{Deposit: d.amount(args, "deposit")}
	case ActionKindStake:
		a = view.Stake{Stake: d.amount(args, "stake"), PublicKey: d.str(args, "public_key")}
	case ActionKindAddKey:
		a = view.AddKey{PublicKey: d.str(args, "public_key"), AccessKey: d.accessKey(args, "access_key")}
	case ActionKindDeleteKey:
		a = view.DeleteKey{PublicKey: d.str(args, "public_key")}
	case ActionKindDeleteAccount:
		a = view.DeleteAccount{BeneficiaryID: d.str(args, "beneficiary_id")}
	}
	if d.err != nil {
		return nil, d.err
	}
	return a, nil
}

// argDecoder reads typed fields from an args document, keeping the first
// error.
type argDecoder struct {
	kind ActionKind
	err  error
}

func (d *argDecoder) fail(key, format string, args ...any) {
	if d.err == nil {
		d.err = fmt.Errorf("decode %s: %s: %s", d.kind, key, fmt.Sprintf(format, args...))
	}
}

func (d *argDecoder) str(obj ir.IRObject, key string) string {
	s, ok := ir.AsString(obj[key])
	if !ok {
		d.fail(key, "want string, got %T", obj[key])
	}
	return s
}

func (d *argDecoder) uint(obj ir.IRObject, key string) uint64 {
	n, ok := ir.AsUint64(obj[key])
	if !ok {
		d.fail(key, "want unsigned integer, got %T", obj[key])
	}
	return n
}

func (d *argDecoder) amount(obj ir.IRObject, key string) view.U128 {
	s := d.str(obj, key)
	if d.err != nil {
		return view.U128{}
	}
	u, err := view.ParseU128(s)
	if err != nil {
		d.fail(key, "%v", err)
	}
	return u
}

func (d *argDecoder) bytes(obj ir.IRObject, key string) []byte {
	s := d.str(obj, key)
	if d.err != nil {
		return nil
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		d.fail(key, "%v", err)
	}
	return b
}

func (d *argDecoder) object(obj ir.IRObject, key string) ir.IRObject {
	o, ok := obj[key].(ir.IRObject)
	if !ok {
		d.fail(key, "want object, got %T", obj[key])
	}
	return o
}

func (d *argDecoder) accessKey(obj ir.IRObject, key string) view.AccessKey {
	ak := d.object(obj, key)
	if d.err != nil {
		return view.AccessKey{}
	}

	k := view.AccessKey{Nonce: d.uint(ak, "nonce")}
	switch perm := ak["permission"].(type) {
	case ir.IRString:
		if perm != permissionFullAccess {
			d.fail("permission", "unknown permission %q", string(perm))
		}
		k.Permission = view.FullAccess{}
	case ir.IRObject:
		fc := d.object(perm, permissionFunctionCall)
		if d.err != nil {
			return k
		}
		p := view.FunctionCallPermission{
			ReceiverID:  d.str(fc, "receiver_id"),
			MethodNames: d.strings(fc, "method_names"),
		}
		if _, isNull := fc["allowance"].(ir.IRNull); !isNull {
			allowance := d.amount(fc, "allowance")
			p.Allowance = &allowance
		}
		k.Permission = p
	default:
		d.fail("permission", "want string or object, got %T", ak["permission"])
	}
	return k
}

func (d *argDecoder) strings(obj ir.IRObject, key string) []string {
	arr, ok := obj[key].(ir.IRArray)
	if !ok {
		d.fail(key, "want array, got %T", obj[key])
		return nil
	}
	out := make([]string, len(arr))
	for i, v := range arr {
		s, ok := ir.AsString(v)
		if !ok {
			d.fail(key, "element %d: want string, got %T", i, v)
		}
		out[i] = s
	}
	return out
}
