package store

// Table names, used as metric labels and in error messages.
const (
	TableReceipts      = "receipts"
	TableData          = "receipt_data"
	TableActions       = "receipt_actions"
	TableActionActions = "receipt_action_actions"
	TableInputData     = "receipt_action_input_data"
	TableOutputData    = "receipt_action_output_data"
)

// Tables lists every table in write order. Parents come before children so
// foreign keys are satisfied inside a transaction.
var Tables = []string{
	TableReceipts,
	TableData,
	TableActions,
	TableActionActions,
	TableInputData,
	TableOutputData,
}

// WriteStats counts rows per table. WriteBatch reports rows actually
// inserted, so rows that already existed are not counted. Counts reports
// the rows present.
type WriteStats struct {
	Receipts      int64
	Data          int64
	Actions       int64
	ActionActions int64
	InputData     int64
	OutputData    int64
}

// Total is the sum over all tables.
func (s WriteStats) Total() int64 {
	return s.Receipts + s.Data + s.Actions + s.ActionActions + s.InputData + s.OutputData
}

// Add accumulates o into s.
func (s *WriteStats) Add(o WriteStats) {
	s.Receipts += o.Receipts
	s.Data += o.Data
	s.Actions += o.Actions
	s.ActionActions += o.ActionActions
	s.InputData += o.InputData
	s.OutputData += o.OutputData
}

// ByTable returns the counts keyed by table name.
func (s WriteStats) ByTable() map[string]int64 {
	return map[string]int64{
		TableReceipts:      s.Receipts,
		TableData:          s.Data,
		TableActions:       s.Actions,
		TableActionActions: s.ActionActions,
		TableInputData:     s.InputData,
		TableOutputData:    s.OutputData,
	}
}

func (s *WriteStats) field(table string) *int64 {
	switch table {
	case TableReceipts:
		return &s.Receipts
	case TableData:
		return &s.Data
	case TableActions:
		return &s.Actions
	case TableActionActions:
		return &s.ActionActions
	case TableInputData:
		return &s.InputData
	case TableOutputData:
		return &s.OutputData
	}
	return nil
}
