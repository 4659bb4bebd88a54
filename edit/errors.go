package edit

import (
	"errors"
	"fmt"

	"github.com/pthm-cable/ragdoll/asset"
)

// Sentinel errors. Operations return them wrapped in *Error; test with errors.Is.
var (
	ErrUnknownBone             = errors.New("unknown bone")
	ErrUnknownBody             = errors.New("unknown body")
	ErrUnknownConstraint       = errors.New("unknown constraint")
	ErrUnknownPrimitive        = errors.New("unknown primitive")
	ErrSelfConstraint          = errors.New("constraint joins a body to itself")
	ErrSameBody                = errors.New("source and target body are the same")
	ErrWouldCreateCycle        = errors.New("constraint would create a cycle")
	ErrHasDependentConstraints = errors.New("body has dependent constraints")
	ErrInvalidProperties       = errors.New("invalid body properties")
	ErrValidationFailed        = errors.New("edit introduces validation issues")

	ErrInvalidLimits    = asset.ErrInvalidLimits
	ErrInvalidPrimitive = asset.ErrInvalidPrimitive
)

// Error reports a rejected edit. The asset is unchanged when one is returned.
type Error struct {
	Op  Op
	ID  string // entity the operation was applied to, if any
	Err error
}

func (e *Error) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("edit %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("edit %s %s: %v", e.Op, e.ID, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func opError(op Op, id string, err error) error {
	return &Error{Op: op, ID: id, Err: err}
}
