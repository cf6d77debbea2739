package mfs

// Kind classifies a Pool error the way callers need to branch on it, mirrored
// on the SAB layout package's Code/Message split.
type Kind string

const (
	// KindParam marks an invalid argument: a zero unit size passed to New,
	// or an extent handed to Extend that is too small to hold a single unit.
	KindParam Kind = "PARAM"
	// KindLimit marks a pool that refuses to grow: extendSelf is false and
	// the free list is empty.
	KindLimit Kind = "LIMIT"
	// KindMemory marks the underlying arena failing to supply a new extent
	// during Alloc.
	KindMemory Kind = "MEMORY"
)

// Error is the error type every exported Pool operation returns. Op names
// the operation that failed ("Alloc", "Free", "Extend", ...); Err, when
// non-nil, wraps the arena or allocator error that caused it.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Op + ": " + string(e.Kind) + ": " + e.Message + ": " + e.Err.Error()
	}
	return e.Op + ": " + string(e.Kind) + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, op, message string, err error) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Err: err}
}
