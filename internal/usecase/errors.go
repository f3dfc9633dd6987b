package usecase

// Error taxonomy shared by the services. Validation and transition
// errors block the triggering operation; persistence errors during cart
// mutation are surfaced without rolling back in-memory state.

type ErrValidation string

func (e ErrValidation) Error() string { return string(e) }

type ErrNotFound string

func (e ErrNotFound) Error() string { return string(e) + " not found" }

type ErrInvalidTransition string

func (e ErrInvalidTransition) Error() string { return string(e) }

// ErrInvalidDiscount marks an unrecognized code. Non-fatal: the paired
// result always carries a zero rate.
type ErrInvalidDiscount string

func (e ErrInvalidDiscount) Error() string { return "invalid discount code: " + string(e) }

// ErrPersistence wraps a failed document-store call.
type ErrPersistence struct {
	Op  string
	Err error
}

func (e *ErrPersistence) Error() string { return "persistence failed: " + e.Op + ": " + e.Err.Error() }

func (e *ErrPersistence) Unwrap() error { return e.Err }
