package view

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Reader streams Observed receipts from JSON-lines input, one object per
// line: {"block_height": 9820210, "receipt": {...}}.
type Reader struct {
	dec *json.Decoder
	n   int
}

// NewReader returns a Reader over r.
func NewReader(r io.Reader) *Reader {
	dec := json.NewDecoder(r)
	return &Reader{dec: dec}
}

// Next decodes the next receipt. It returns io.EOF when the input is
// exhausted.
func (r *Reader) Next() (Observed, error) {
	var o Observed
	if err := r.dec.Decode(&o); err != nil {
		if errors.Is(err, io.EOF) {
			return o, io.EOF
		}
		return o, fmt.Errorf("record %d: %w", r.n+1, err)
	}
	r.n++
	if o.Receipt.Body == nil {
		return o, fmt.Errorf("record %d: receipt %s has no body", r.n, o.Receipt.ReceiptID)
	}
	return o, nil
}

// Count returns the number of records decoded so far.
func (r *Reader) Count() int {
	return r.n
}

// ReadAll drains the reader.
func (r *Reader) ReadAll() ([]Observed, error) {
	out := []Observed{}
	for {
		o, err := r.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
}

// WriteAll encodes receipts as JSON lines.
func WriteAll(w io.Writer, obs []Observed) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for i, o := range obs {
		if err := enc.Encode(o); err != nil {
			return fmt.Errorf("record %d: %w", i+1, err)
		}
	}
	return nil
}
