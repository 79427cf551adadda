package flow

// Error is a typed domain failure. Code feeds the err_code field of handler
// summary logs and lets the transport layer choose between a toast and an
// alert without matching on message text.
type Error struct {
	code    string
	message string
}

func (e *Error) Error() string { return e.message }

// Code returns the stable machine-readable error code.
func (e *Error) Code() string { return e.code }

var (
	// ErrEmptyCart rejects checkout and order confirmation on an empty cart.
	ErrEmptyCart = &Error{code: "EMPTY_CART", message: "flow: cart is empty"}
	// ErrNotFound reports an unknown product or order id.
	ErrNotFound = &Error{code: "NOT_FOUND", message: "flow: not found"}
	// ErrUnauthorized rejects admin-only actions from other sessions.
	ErrUnauthorized = &Error{code: "UNAUTHORIZED", message: "flow: not allowed"}
)
