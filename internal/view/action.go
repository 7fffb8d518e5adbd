package view

// Action is one operation of an Action receipt.
//
// The variant set is closed: CreateAccount, DeployContract, FunctionCall,
// Transfer, Stake, AddKey, DeleteKey and DeleteAccount. Code that needs to
// handle every variant implements ActionVisitor, so a new variant cannot be
// added without every visitor failing to compile.
type Action interface {
	Accept(v ActionVisitor)
	isAction()
}

// ActionVisitor dispatches on the concrete Action variant.
type ActionVisitor interface {
	VisitCreateAccount(CreateAccount)
	VisitDeployContract(DeployContract)
	VisitFunctionCall(FunctionCall)
	VisitTransfer(Transfer)
	VisitStake(Stake)
	VisitAddKey(AddKey)
	VisitDeleteKey(DeleteKey)
	VisitDeleteAccount(DeleteAccount)
}

// CreateAccount creates the receiver account.
type CreateAccount struct{}

// DeployContract deploys contract code to the receiver account.
type DeployContract struct {
	Code []byte
}

// FunctionCall invokes a contract method.
type FunctionCall struct {
	MethodName string
	Args       []byte
	Gas        uint64
	Deposit    U128
}

// Transfer moves tokens to the receiver account.
type Transfer struct {
	Deposit U128
}

// Stake locks tokens for validation.
type Stake struct {
	Stake     U128
	PublicKey string
}

// AddKey registers an access key on the receiver account.
type AddKey struct {
	PublicKey string
	AccessKey AccessKey
}

// DeleteKey removes an access key.
type DeleteKey struct {
	PublicKey string
}

// DeleteAccount removes the receiver account, sending the balance to
// BeneficiaryID.
type DeleteAccount struct {
	BeneficiaryID string
}

func (a CreateAccount) Accept(v ActionVisitor)  { v.VisitCreateAccount(a) }
func (a DeployContract) Accept(v ActionVisitor) { v.VisitDeployContract(a) }
func (a FunctionCall) Accept(v ActionVisitor)   { v.VisitFunctionCall(a) }
func (a Transfer) Accept(v ActionVisitor)       { v.VisitTransfer(a) }
func (a Stake) Accept(v ActionVisitor)          { v.VisitStake(a) }
func (a AddKey) Accept(v ActionVisitor)         { v.VisitAddKey(a) }
func (a DeleteKey) Accept(v ActionVisitor)      { v.VisitDeleteKey(a) }
func (a DeleteAccount) Accept(v ActionVisitor)  { v.VisitDeleteAccount(a) }

func (CreateAccount) isAction()  {}
func (DeployContract) isAction() {}
func (FunctionCall) isAction()   {}
func (Transfer) isAction()       {}
func (Stake) isAction()          {}
func (AddKey) isAction()         {}
func (DeleteKey) isAction()      {}
func (DeleteAccount) isAction()  {}

// AccessKey describes what a key added by AddKey may do.
type AccessKey struct {
	Nonce      uint64
	Permission Permission
}

// Permission is either FullAccess or FunctionCallPermission.
type Permission interface {
	// FunctionCall returns the restricted permission, or false for full access.
	FunctionCall() (FunctionCallPermission, bool)
	isPermission()
}

// FullAccess grants every action to the key holder.
type FullAccess struct{}

// FunctionCallPermission restricts a key to calling methods on one contract.
// A nil Allowance means unlimited.
type FunctionCallPermission struct {
	Allowance   *U128
	ReceiverID  string
	MethodNames []string
}

func (FullAccess) FunctionCall() (FunctionCallPermission, bool) {
	return FunctionCallPermission{}, false
}

func (p FunctionCallPermission) FunctionCall() (FunctionCallPermission, bool) {
	return p, true
}

func (FullAccess) isPermission()             {}
func (FunctionCallPermission) isPermission() {}
