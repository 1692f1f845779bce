// Package solver relaxes sketches toward their constraints. Solves work on a
// snapshot of the affected points and commit the result atomically, so the
// store is never observed mid-solve.
package solver

import (
	"context"
	"fmt"
	"log"

	"sketchpad/internal/constraint"
	"sketchpad/internal/sketch"

	"github.com/pkg/errors"
)

// Defaults for the general relaxation driver.
const (
	DefaultMaxIterations = 100
	DefaultTolerance     = 3.0
)

// Status says whether a solve reached its tolerance.
type Status int

const (
	Converged Status = iota
	IterationCapReached
)

func (s Status) String() string {
	switch s {
	case Converged:
		return "converged"
	case IterationCapReached:
		return "iteration cap reached"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Result summarizes a solve.
type Result struct {
	Status     Status
	Iterations int

	// Residual is the value compared against the tolerance on the last
	// iteration: the largest constraint error for Solve, the largest point
	// displacement for SolveEqualLength.
	Residual float64
}

// Options tune the general relaxation driver.
type Options struct {
	MaxIterations int
	Tolerance     float64
}

// DefaultOptions returns the driver defaults.
func DefaultOptions() Options {
	return Options{MaxIterations: DefaultMaxIterations, Tolerance: DefaultTolerance}
}

// withDefaults fills non-positive fields from DefaultOptions.
func (o Options) withDefaults() Options {
	if o.MaxIterations <= 0 {
		o.MaxIterations = DefaultMaxIterations
	}
	if o.Tolerance <= 0 {
		o.Tolerance = DefaultTolerance
	}
	return o
}

// Solve applies every constraint in list order, pass after pass, until the
// largest error after a pass is below the tolerance or the iteration cap is
// hit. Points move only if the solve runs to completion; a cancelled ctx
// leaves the store untouched. Non-positive option fields take their
// defaults.
func Solve(ctx context.Context, store *sketch.Store, constraints []constraint.Constraint, opts Options) (Result, error) {
	opts = opts.withDefaults()
	if len(constraints) == 0 {
		return Result{Status: Converged}, nil
	}
	for _, c := range constraints {
		if err := c.Validate(); err != nil {
			return Result{}, err
		}
	}

	f, err := store.Snapshot(referencedSegments(constraints))
	if err != nil {
		return Result{}, errors.Wrap(err, "solve")
	}

	res, err := relax(ctx, f, constraints, opts)
	if err != nil {
		return Result{}, err
	}
	if err := store.Commit(f); err != nil {
		return Result{}, err
	}

	log.Printf("Solver: %d constraints %s after %d iterations (max error %.3f)",
		len(constraints), res.Status, res.Iterations, res.Residual)
	return res, nil
}

// relax runs the driver loop on a frame.
func relax(ctx context.Context, f *sketch.Frame, constraints []constraint.Constraint, opts Options) (Result, error) {
	res := Result{Status: IterationCapReached}
	for iter := 1; iter <= opts.MaxIterations; iter++ {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		res.Iterations = iter
		res.Residual = pass(f, constraints)
		if res.Residual < opts.Tolerance {
			res.Status = Converged
			break
		}
	}
	return res, nil
}

// pass applies each constraint once and returns the largest error left.
func pass(f *sketch.Frame, constraints []constraint.Constraint) float64 {
	for i := range constraints {
		constraints[i].Apply(f)
	}
	var maxErr float64
	for i := range constraints {
		if e := constraints[i].Error(f); e > maxErr {
			maxErr = e
		}
	}
	return maxErr
}

func referencedSegments(constraints []constraint.Constraint) []sketch.SegmentID {
	var ids []sketch.SegmentID
	seen := make(map[sketch.SegmentID]bool)
	for _, c := range constraints {
		for _, id := range c.Segments() {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	return ids
}
