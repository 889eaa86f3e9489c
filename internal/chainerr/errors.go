// Package chainerr defines the node's error taxonomy. Each tag maps to a
// subsystem: Block, Blockchain, Transaction, Wallet and the P2P server.
// A BaseError optionally carries the offending body and a list of
// per-field validation messages so HTTP collaborators can render a
// structured 4xx response without re-deriving context.
package chainerr

import "fmt"

// BaseError is the common shape behind every tagged error in this package.
type BaseError struct {
	Tag     string
	Message string
	Fields  []string
	Body    interface{}
}

func (e *BaseError) Error() string {
	if len(e.Fields) == 0 {
		return fmt.Sprintf("%s: %s", e.Tag, e.Message)
	}
	return fmt.Sprintf("%s: %s %v", e.Tag, e.Message, e.Fields)
}

func newError(tag, message string, fields []string, body interface{}) *BaseError {
	return &BaseError{Tag: tag, Message: message, Fields: fields, Body: body}
}

// BlockError reports schema, hash, or inter-block validation failure, or
// a proof-of-work hash encoding failure.
func BlockError(message string, fields ...string) *BaseError {
	return newError("BlockError", message, fields, nil)
}

// BlockchainError reports chain-level schema failure, duplicate uuid,
// multiple rewards, or historic-balance inconsistency.
func BlockchainError(message string, fields ...string) *BaseError {
	return newError("BlockchainError", message, fields, nil)
}

// TransactionError reports amount-exceeds-balance, invalid signature or
// schema, or a failed update precondition.
func TransactionError(message string, fields ...string) *BaseError {
	return newError("TransactionError", message, fields, nil)
}

// WalletError reports canonical-form encoding failure during signing.
func WalletError(message string, fields ...string) *BaseError {
	return newError("WalletError", message, fields, nil)
}

// P2PServerError reports message framing encode/decode failure.
func P2PServerError(message string, fields ...string) *BaseError {
	return newError("P2PServerError", message, fields, nil)
}

// WithBody attaches the offending request/response body to an error,
// for structured user-visible HTTP error rendering (§7 "User-visible
// behavior").
func (e *BaseError) WithBody(body interface{}) *BaseError {
	e.Body = body
	return e
}

// Is reports whether err carries the given taxonomy tag.
func Is(err error, tag string) bool {
	be, ok := err.(*BaseError)
	return ok && be.Tag == tag
}
