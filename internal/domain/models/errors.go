package models

import (
	"errors"
	"fmt"
)

var (
	ErrNoResults       = errors.New("sweep produced no results")
	ErrEmptySeries     = errors.New("series is empty")
	ErrUnorderedSeries = errors.New("series timestamps are not ordered")
	ErrLengthMismatch  = errors.New("condition length does not match series")
	ErrInvalidRequest  = errors.New("invalid sweep request")
	ErrJobNotFound     = errors.New("sweep job not found")
	ErrSweepInProgress = errors.New("identical sweep already running")
	ErrJobNotFinished  = errors.New("sweep job has not finished")
)

// Sweep phases reported by PhaseError.
const (
	PhaseIngestion = "ingestion"
	PhaseSweep     = "sweep"
	PhaseOutput    = "output"
)

// PhaseError tags a failure with the pipeline phase it happened in.
type PhaseError struct {
	Phase string
	Err   error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("%s: %v", e.Phase, e.Err)
}

func (e *PhaseError) Unwrap() error { return e.Err }

// InPhase wraps err with its phase; nil stays nil.
func InPhase(phase string, err error) error {
	if err == nil {
		return nil
	}
	return &PhaseError{Phase: phase, Err: err}
}
