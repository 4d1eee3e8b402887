package dynamo

import (
	"errors"
	"fmt"
	"math"
)

// Domain errors for simulation operations.
var (
	// ErrInvalidState indicates a state vector with invalid dimensions or values.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")

	// ErrInvalidParameter indicates a parameter value is outside its valid range.
	ErrInvalidParameter = errors.New("dynamo: invalid parameter")

	// ErrDimensionMismatch indicates mismatched vector dimensions.
	ErrDimensionMismatch = errors.New("dynamo: dimension mismatch")
)

// ParameterError names the offending parameter and value.
type ParameterError struct {
	Name   string
	Value  float64
	Reason string
}

func (e *ParameterError) Error() string {
	return fmt.Sprintf("dynamo: invalid parameter %s=%g: %s", e.Name, e.Value, e.Reason)
}

func (e *ParameterError) Unwrap() error {
	return ErrInvalidParameter
}

// SimulationError wraps an error with simulation context.
type SimulationError struct {
	Step    int
	Time    float64
	State   State
	Wrapped error
}

func (e *SimulationError) Error() string {
	return e.Wrapped.Error()
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}

func CheckFinite(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return &ParameterError{Name: name, Value: v, Reason: "must be finite"}
	}
	return nil
}

func CheckPositive(name string, v float64) error {
	if err := CheckFinite(name, v); err != nil {
		return err
	}
	if v <= 0 {
		return &ParameterError{Name: name, Value: v, Reason: "must be positive"}
	}
	return nil
}

func CheckNonNegative(name string, v float64) error {
	if err := CheckFinite(name, v); err != nil {
		return err
	}
	if v < 0 {
		return &ParameterError{Name: name, Value: v, Reason: "must not be negative"}
	}
	return nil
}
