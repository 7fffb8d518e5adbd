// Package view models receipts as the node reports them.
//
// The receipt body and the action list are closed sum types: ReceiptBody is
// DataBody or ActionBody, and Action has exactly eight variants dispatched
// through ActionVisitor. JSON encoding follows the node's externally tagged
// shape, e.g. {"Action":{...}} and {"Transfer":{"deposit":"1"}}; unknown tags
// fail to decode instead of being dropped.
package view
