package rows

import "fmt"

// ReceiptKind is the classified kind of a receipt.
type ReceiptKind string

const (
	ReceiptKindAction ReceiptKind = "ACTION"
	ReceiptKindData   ReceiptKind = "DATA"
)

func (k ReceiptKind) String() string { return string(k) }

// ParseReceiptKind parses the storage spelling of a receipt kind.
func ParseReceiptKind(s string) (ReceiptKind, error) {
	switch k := ReceiptKind(s); k {
	case ReceiptKindAction, ReceiptKindData:
		return k, nil
	}
	return "", fmt.Errorf("unknown receipt kind %q", s)
}

// ActionKind is the variant of one action within an Action receipt.
type ActionKind string

const (
	ActionKindCreateAccount  ActionKind = "CREATE_ACCOUNT"
	ActionKindDeployContract ActionKind = "DEPLOY_CONTRACT"
	ActionKindFunctionCall   ActionKind = "FUNCTION_CALL"
	ActionKindTransfer       ActionKind = "TRANSFER"
	ActionKindStake          ActionKind = "STAKE"
	ActionKindAddKey         ActionKind = "ADD_KEY"
	ActionKindDeleteKey      ActionKind = "DELETE_KEY"
	ActionKindDeleteAccount  ActionKind = "DELETE_ACCOUNT"
)

// ActionKinds lists every action kind in declaration order.
var ActionKinds = []ActionKind{
	ActionKindCreateAccount,
	ActionKindDeployContract,
	ActionKindFunctionCall,
	ActionKindTransfer,
	ActionKindStake,
	ActionKindAddKey,
	ActionKindDeleteKey,
	ActionKindDeleteAccount,
}

func (k ActionKind) String() string { return string(k) }

// ParseActionKind parses the storage spelling of an action kind.
func ParseActionKind(s string) (ActionKind, error) {
	for _, k := range ActionKinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown action kind %q", s)
}
