// Package pipeline imports debts from text. An import runs a fixed
// sequence of steps over a shared State: detect the layout, parse rows,
// validate and normalize records, resolve card names and hand the records
// to the debt store. Bad data never fails an import; it is reported in the
// Result.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/pedrolabre/personal-finance-manager/internal/parser"
)

// ErrHalt ends a run early without failing it. The step that returns it
// has already recorded why in the Result.
var ErrHalt = errors.New("pipeline halted")

// Step is a single stage of an import.
type Step interface {
	Execute(ctx context.Context, state *State) error
}

// Line is a data line with its 1-based position in the source text.
type Line struct {
	Number int
	Text   string
}

// State is shared by the steps of one run.
type State struct {
	Text      string
	Separator rune
	HasHeader bool
	Columns   parser.ColumnMap
	Strategy  parser.Strategy
	Lines     []Line
	Records   []parser.Record
	Result    *Result
}

// NewState creates the state for importing text.
func NewState(text string) *State {
	return &State{Text: text, Result: newResult()}
}

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []Step
}

// NewPipeline creates a pipeline with the given steps.
func NewPipeline(steps ...Step) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs the steps sequentially, stopping quietly at ErrHalt.
func (p *Pipeline) Execute(ctx context.Context, state *State) error {
	for i, step := range p.steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := step.Execute(ctx, state)
		if errors.Is(err, ErrHalt) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("pipeline step %d failed: %w", i+1, err)
		}
	}
	return nil
}
