package rows

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/receiptdb/internal/view"
)

// Options configures normalization.
type Options struct {
	GasPrice GasPriceConverter
}

// Normalize derives every row of one observed receipt. The receipt row is
// always produced; then either the data row, or the action row with its
// action list and dependency edges, depending on the receipt kind.
func Normalize(o view.Observed, opts Options) (Batch, error) {
	r := o.Receipt
	if r.Body == nil {
		return Batch{}, fmt.Errorf("receipt %s: no body", r.ReceiptID)
	}

	receipt := NewReceipt(r, o.BlockHeight)
	b := Batch{Receipts: []Receipt{receipt}}

	switch receipt.Kind {
	case ReceiptKindData:
		data, err := NewReceiptData(r)
		if err != nil {
			return Batch{}, err
		}
		b.Data = []ReceiptData{data}

	case ReceiptKindAction:
		action, err := NewReceiptAction(r, opts.GasPrice)
		if err != nil {
			return Batch{}, err
		}
		body := r.Body.(view.ActionBody)
		b.Actions = []ReceiptAction{action}
		b.ActionActions = EncodeActions(receipt.ReceiptID, body.Actions)
		b.OutputData = NewOutputData(receipt.ReceiptID, body.OutputDataReceivers)
		b.InputData = NewInputData(receipt.ReceiptID, body.InputDataIDs)

	default:
		return Batch{}, fmt.Errorf("receipt %s: body %T: %w", r.ReceiptID, r.Body, ErrUnsupportedBody)
	}

	return b, nil
}

// NormalizeAll normalizes receipts on up to workers goroutines (NumCPU when
// workers <= 0). Each result lands in the slot of its input position, so the
// merged batch follows input order regardless of completion order. The first
// error cancels the remaining work.
func NormalizeAll(ctx context.Context, obs []view.Observed, opts Options, workers int) (Batch, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	results := make([]Batch, len(obs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i := range obs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			b, err := Normalize(obs[i], opts)
			if err != nil {
				return fmt.Errorf("record %d: %w", i, err)
			}
			results[i] = b
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Batch{}, err
	}

	var out Batch
	for _, b := range results {
		out.Append(b)
	}
	return out, nil
}
