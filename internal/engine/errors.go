package engine

// Op names used in Error.
const (
	OpUpdate      = "update"
	OpDelete      = "delete"
	OpSearch      = "search"
	OpPaginate    = "paginate"
	OpFlush       = "flush"
	OpCreateIndex = "create_index"
	OpDeleteIndex = "delete_index"
	OpMap         = "map"
)

// Error wraps a backend failure with the engine and operation for diagnostics.
type Error struct {
	Driver string
	Op     string
	Err    error
}

func (e *Error) Error() string { return e.Driver + " " + e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

// Wrap returns nil for a nil err and an *Error otherwise.
func Wrap(driver, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Driver: driver, Op: op, Err: err}
}
