package model

import (
	"errors"
	"fmt"
)

var (
	ErrProviderNotFound = errors.New("provider not found")
	ErrDuplicateName    = errors.New("duplicate model name")
	ErrNotAssembled     = errors.New("model not assembled")
	ErrNotCommissioned  = errors.New("model not commissioned")
	ErrCommissioned     = errors.New("model is commissioned")
	ErrIllegalAddress   = errors.New("illegal address")
	ErrNoSuchModel      = errors.New("no such model")
	ErrNoParent         = errors.New("scope has no parent")
)

// AssemblyError reports why a model could not be assembled. Slot is empty
// when the failure is not tied to one slot.
type AssemblyError struct {
	Model string
	Slot  string
	Err   error
}

func (e *AssemblyError) Error() string {
	if e.Slot == "" {
		return fmt.Sprintf("assemble %s: %v", e.Model, e.Err)
	}
	return fmt.Sprintf("assemble %s: %s: %v", e.Model, e.Slot, e.Err)
}

func (e *AssemblyError) Unwrap() error { return e.Err }
