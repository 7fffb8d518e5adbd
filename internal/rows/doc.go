// Package rows turns receipts into relational rows.
//
// A receipt yields a Receipt row plus, depending on its kind, either one
// ReceiptData row or one ReceiptAction row with its ReceiptActionAction,
// ReceiptActionInputData and ReceiptActionOutputData rows. Every function
// here is pure, so receipts can be normalized concurrently (NormalizeAll).
//
// Amounts keep full u128 precision: action args carry them as decimal
// strings and the gas price becomes a decimal. A gas price that does not fit
// the storage precision is handled by GasPriceConverter.
package rows
