package interpreter

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/SINHASantos/csml-engine/pkg/domain"
	"github.com/SINHASantos/csml-engine/pkg/memory"
)

// walker threads the mutable execution position, the resume target and the
// run-local bindings through one depth-first traversal. There is no
// coroutine machinery: suppression is a flag that flips off exactly when
// the position passes the target.
type walker struct {
	it   *Interpreter
	flow *domain.Flow
	ctx  *domain.Context
	evt  *domain.Event
	res  *Result

	stepName string
	pos      domain.IndexInfo
	target   *domain.IndexInfo // pending hold position; nil when live
	pending  any               // the hold's in-flight value
	locals   map[string]any

	held    bool   // a new hold was captured
	next    string // goto destination
	stopped bool   // replay left the step before the target was reached
}

func (w *walker) beginStep(step string) {
	w.stepName = step
	w.pos = domain.IndexInfo{CommandIndex: -1}
	w.locals = make(map[string]any)
}

// done reports that traversal must not continue in this step.
func (w *walker) done() bool {
	return w.held || w.stopped || w.next != ""
}

// visit advances the position for one instruction and reports whether it
// runs live. Instructions at positions up to and including the suspended
// one replay silently; the first position past it clears the hold
// (resumption is single use) and restores emission.
func (w *walker) visit() bool {
	w.pos.CommandIndex++
	if w.target == nil {
		return true
	}
	if w.target.Less(w.pos) {
		w.target = nil
		w.ctx.Hold = nil
		return true
	}
	return false
}

func (w *walker) exec(node domain.Node) error {
	switch n := node.(type) {
	case *domain.Block:
		for _, item := range n.Items {
			if w.done() {
				return nil
			}
			if err := w.exec(item); err != nil {
				return err
			}
		}
		return nil

	case domain.Scalar:
		// Bare expression (start-flow list): evaluated for effect.
		live := w.visit()
		if _, err := w.evalScalar(n); err != nil && live {
			w.emitError(err)
		}
		return nil

	case *domain.Say:
		live := w.visit()
		if !live {
			return nil
		}
		v, err := w.evalScalar(n.Value)
		if err != nil {
			w.emitError(err)
			return nil
		}
		w.res.Messages = append(w.res.Messages, payloadFor(v))
		return nil

	case *domain.Remember:
		live := w.visit()
		if !live {
			return nil
		}
		v, err := w.evalScalar(n.Value)
		if err != nil {
			w.emitError(err)
			return nil
		}
		if err := memory.Set(w.ctx.Memories, n.Path, v); err != nil {
			w.emitError(fmt.Errorf("remember %s: %w", n.Path, err))
			return nil
		}
		w.res.Memories = append(w.res.Memories, domain.MemoryWrite{Key: n.Path, Value: v})
		return nil

	case *domain.Assign:
		live := w.visit()
		if !live {
			return nil
		}
		v, err := w.evalScalar(n.Value)
		if err != nil {
			w.emitError(err)
			return nil
		}
		w.locals[n.Name] = v
		return nil

	case *domain.Suspend:
		live := w.visit()
		if !live {
			return nil
		}
		w.ctx.Hold = &domain.HoldRecord{
			Index: w.pos.Clone(),
			Value: w.pendingValue(),
			Step:  w.stepName,
			Flow:  w.flow.ID,
		}
		w.held = true
		return nil

	case *domain.Goto:
		live := w.visit()
		if !live {
			// The original run left this step here, so the suspended
			// position lies beyond anything reachable: terminate with
			// an empty, successful result.
			w.stopped = true
			return nil
		}
		if _, ok := w.flow.Step(n.Step); !ok {
			return &domain.StepNotFoundError{Flow: w.flow.ID, Step: n.Step}
		}
		w.next = n.Step
		return nil

	case *domain.If:
		live := w.visit()
		cond, err := w.evalScalar(n.Cond)
		if err != nil {
			if live {
				w.emitError(err)
			}
			return nil
		}
		if truthy(cond) {
			return w.exec(n.Then)
		}
		if n.Else != nil {
			return w.exec(n.Else)
		}
		return nil

	case *domain.For:
		return w.execFor(n)

	default:
		return fmt.Errorf("unsupported instruction %T", node)
	}
}

// execFor pushes a zero-initialized counter on entry, increments it at the
// top of each iteration, and pops it on exit, so positions inside the loop
// order correctly against positions before and after it.
func (w *walker) execFor(n *domain.For) error {
	live := w.visit()
	v, err := w.evalScalar(n.Iterable)
	if err != nil {
		if live {
			w.emitError(err)
		}
		return nil
	}
	seq, ok := toSlice(v)
	if !ok {
		if live {
			w.emitError(fmt.Errorf("< %s > is not iterable", n.Iterable.Code))
		}
		return nil
	}

	depth := len(w.pos.LoopIndex)
	w.pos.LoopIndex = append(w.pos.LoopIndex, 0)
	savedIdent, hadIdent := w.locals[n.Ident]
	savedIndex, hadIndex := w.locals[n.Index]

	for k, item := range seq {
		if w.done() {
			break
		}
		w.pos.LoopIndex[depth]++
		w.locals[n.Ident] = item
		if n.Index != "" {
			w.locals[n.Index] = k
		}
		if err := w.exec(n.Body); err != nil {
			return err
		}
	}

	w.pos.LoopIndex = w.pos.LoopIndex[:depth]
	if hadIdent {
		w.locals[n.Ident] = savedIdent
	} else {
		delete(w.locals, n.Ident)
	}
	if n.Index != "" {
		if hadIndex {
			w.locals[n.Index] = savedIndex
		} else {
			delete(w.locals, n.Index)
		}
	}
	return nil
}

// evalScalar builds the expression environment and delegates to the
// evaluator. Unknown-name errors get the expression's source position.
func (w *walker) evalScalar(s domain.Scalar) (any, error) {
	env := make(map[string]any, len(w.ctx.Memories)+len(w.locals)+2)
	for k, v := range w.ctx.Memories {
		env[k] = v
	}
	for k, v := range w.locals {
		env[k] = v
	}
	env["event"] = map[string]any{
		"content":      w.evt.Content,
		"content_type": w.evt.ContentType,
		"data":         w.evt.Data,
	}
	env["_metadata"] = w.ctx.Metadata
	if w.pending != nil {
		env["_hold"] = w.pending
	}

	v, err := w.it.eval.Eval(s.Code, env)
	if err != nil {
		var nre *domain.NotRememberedError
		if errors.As(err, &nre) && nre.At == (domain.Interval{}) {
			nre.At = s.Span.Start
		}
		return nil, err
	}
	return v, nil
}

// pendingValue is the in-flight value stored with a hold: the inbound event
// payload, opaque to the engine.
func (w *walker) pendingValue() any {
	if w.evt == nil {
		return map[string]any{}
	}
	return map[string]any{
		"content":      w.evt.Content,
		"content_type": w.evt.ContentType,
	}
}

// emitError converts a recoverable execution error into an error-content
// message; traversal continues past it.
func (w *walker) emitError(err error) {
	msg := fmt.Sprintf("%s in step [%s] from flow [%s]", err.Error(), w.stepName, w.flow.ID)
	w.res.Messages = append(w.res.Messages, domain.ErrorPayload(msg))
	w.it.logger.Debug("recoverable execution error", "flow", w.flow.ID, "step", w.stepName, "err", err)
}

func payloadFor(v any) domain.Payload {
	switch val := v.(type) {
	case string:
		return domain.TextPayload(val)
	case map[string]any:
		return domain.Payload{Content: val, ContentType: "object"}
	default:
		return domain.TextPayload(fmt.Sprint(val))
	}
}

func truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		return val != ""
	case int:
		return val != 0
	case int64:
		return val != 0
	case float64:
		return val != 0
	default:
		rv := reflect.ValueOf(v)
		switch rv.Kind() {
		case reflect.Slice, reflect.Array, reflect.Map:
			return rv.Len() > 0
		}
		return true
	}
}

func toSlice(v any) ([]any, bool) {
	if s, ok := v.([]any); ok {
		return s, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}
