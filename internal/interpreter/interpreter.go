// Package interpreter walks a step's instruction tree, emitting messages
// and memory writes. Execution can stop at a hold directive, capturing the
// exact position in the conversation context; the next invocation replays
// the already-executed prefix silently before resuming live emission.
package interpreter

import (
	"fmt"
	"log/slog"

	"github.com/SINHASantos/csml-engine/internal/logging"
	"github.com/SINHASantos/csml-engine/pkg/domain"
	"github.com/SINHASantos/csml-engine/pkg/eval"
	"github.com/SINHASantos/csml-engine/pkg/ports"
)

// Result is the outcome of one execution: outbound payloads in traversal
// order and the memory writes performed. Held reports that the run stopped
// at a hold directive, which is a normal termination, not an error.
type Result struct {
	Messages []domain.Payload
	Memories []domain.MemoryWrite
	Held     bool
}

// Interpreter executes flows. It holds no per-conversation state; one
// instance serves concurrent conversations over shared immutable flows.
type Interpreter struct {
	eval           ports.Evaluator
	logger         *slog.Logger
	maxTransitions int
}

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithEvaluator substitutes the expression collaborator.
func WithEvaluator(e ports.Evaluator) Option {
	return func(it *Interpreter) { it.eval = e }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(it *Interpreter) { it.logger = logger }
}

// WithMaxTransitions bounds goto chains within one execution.
func WithMaxTransitions(n int) Option {
	return func(it *Interpreter) { it.maxTransitions = n }
}

// New creates an Interpreter with the default expr-lang evaluator.
func New(opts ...Option) *Interpreter {
	it := &Interpreter{
		eval:           eval.New(),
		logger:         logging.NewNop(),
		maxTransitions: 100,
	}
	for _, opt := range opts {
		opt(it)
	}
	return it
}

// Execute runs one step of a flow against the conversation context and the
// inbound event.
//
// With no pending hold, every instruction executes and every output is
// emitted. With a pending hold at position P, traversal replays silently up
// to and including P, then resumes live emission and clears the hold. A hold
// position beyond everything reachable yields an empty successful result.
func (it *Interpreter) Execute(flow *domain.Flow, stepName string, ctx *domain.Context, evt *domain.Event) (*Result, error) {
	res := &Result{}
	w := &walker{it: it, flow: flow, ctx: ctx, evt: evt, res: res}

	if ctx.Hold != nil {
		target := ctx.Hold.Index.Clone()
		w.target = &target
		w.pending = ctx.Hold.Value
		if ctx.Hold.Step != "" {
			stepName = ctx.Hold.Step
		}
		it.logger.Debug("resuming from hold",
			"flow", flow.ID, "step", stepName, "command_index", target.CommandIndex)
	}

	step := stepName
	transitions := 0
	for {
		node, ok := flow.Step(step)
		if !ok {
			return nil, &domain.StepNotFoundError{Flow: flow.ID, Step: step}
		}
		w.beginStep(step)
		if err := w.exec(node); err != nil {
			return nil, err
		}
		ctx.Step = step
		ctx.Flow = flow.ID

		if w.held {
			res.Held = true
			return res, nil
		}
		if w.next == "" {
			// A resume target that was never reached is still spent:
			// the next invocation starts clean.
			if w.target != nil {
				w.target = nil
				ctx.Hold = nil
			}
			return res, nil
		}
		transitions++
		if transitions > it.maxTransitions {
			return nil, fmt.Errorf("flow [%s] exceeded %d step transitions", flow.ID, it.maxTransitions)
		}
		step = w.next
		w.next = ""
	}
}

// ExecuteStart runs a flow's optional start-flow instruction: its expression
// list evaluated in order, with recoverable errors emitted as error-content
// messages.
func (it *Interpreter) ExecuteStart(flow *domain.Flow, ctx *domain.Context, evt *domain.Event) (*Result, error) {
	res := &Result{}
	start, ok := flow.Start()
	if !ok {
		return res, nil
	}
	w := &walker{it: it, flow: flow, ctx: ctx, evt: evt, res: res}
	w.beginStep("flow")
	if err := w.exec(start); err != nil {
		return nil, err
	}
	return res, nil
}
