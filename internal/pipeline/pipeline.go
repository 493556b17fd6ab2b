// Package pipeline runs an ordered list of stages over a shared value.
//
// Stages run strictly one after another on the caller's goroutine. Each
// stage receives the value returned by the previous one and reports one of
// three outcomes: continue, halt (stop without error) or a hard error. The
// first hard error stops the pipeline and is handed to the completion
// callback.
package pipeline

import (
	"context"
	"fmt"

	"github.com/JonnyShabli/ghsync/pkg/logster"
)

type Outcome int

const (
	// Continue hands the value to the next stage.
	Continue Outcome = iota
	// Halt skips every remaining stage. The run still counts as a success.
	Halt
)

func (o Outcome) String() string {
	switch o {
	case Continue:
		return "continue"
	case Halt:
		return "halt"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Stage must finish all of its own asynchronous work before returning.
type Stage[T any] func(ctx context.Context, v T) (T, Outcome, error)

// DoneFunc receives either a hard error or the final value, never both.
type DoneFunc[T any] func(err error, v T)

type step[T any] struct {
	name string
	fn   Stage[T]
}

type Pipeline[T any] struct {
	value  T
	steps  []step[T]
	logger logster.Logger
}

// Init starts a pipeline over v.
func Init[T any](v T, logger logster.Logger) *Pipeline[T] {
	return &Pipeline[T]{
		value:  v,
		logger: logger.WithField("Layer", "Pipeline"),
	}
}

// Step appends a named stage. Stages run in registration order.
func (p *Pipeline[T]) Step(name string, fn Stage[T]) *Pipeline[T] {
	p.steps = append(p.steps, step[T]{name: name, fn: fn})
	return p
}

// Execute runs every stage and calls onDone exactly once. The same error is
// returned for callers that prefer a plain return value.
func (p *Pipeline[T]) Execute(ctx context.Context, onDone DoneFunc[T]) error {
	v := p.value
	var zero T

	for _, s := range p.steps {
		if err := ctx.Err(); err != nil {
			err = fmt.Errorf("stage %s: %w", s.name, err)
			p.finish(onDone, err, zero)
			return err
		}

		p.logger.Debugf("running stage %s", s.name)
		next, outcome, err := s.fn(ctx, v)
		if err != nil {
			err = fmt.Errorf("stage %s: %w", s.name, err)
			p.finish(onDone, err, zero)
			return err
		}
		v = next

		if outcome == Halt {
			p.logger.Debugf("stage %s halted the pipeline", s.name)
			break
		}
	}

	p.finish(onDone, nil, v)
	return nil
}

func (p *Pipeline[T]) finish(onDone DoneFunc[T], err error, v T) {
	if onDone != nil {
		onDone(err, v)
	}
}
