// Package parser turns flow source text into a positioned instruction tree.
//
// The grammar is line oriented: a flow is an optional `flow:` instruction
// followed by named steps (`identifier ':' block`), each block a sequence of
// statements (say, remember, do, hold, goto, if, foreach). Leaf expressions
// are captured as positioned source snippets; evaluating them is the
// evaluator's concern, not the parser's.
//
// Parsing is purely functional over the source bytes and safe to call
// concurrently for different sources.
package parser

import (
	"fmt"

	"github.com/SINHASantos/csml-engine/pkg/domain"
)

// Parse parses flow source into a Flow. Errors are always *domain.ParseError
// values carrying the offending token's line and column, except
// incomplete-input errors, which carry no position.
func Parse(src []byte) (*domain.Flow, error) {
	p := &parser{s: newScanner(src)}
	instructions, err := p.parseTop()
	if err != nil {
		return nil, err
	}
	return assemble(instructions)
}

// assemble builds the Flow map, rejecting duplicate instruction types.
// The duplicate error is reported at interval (0,0): the detection point,
// not either occurrence.
func assemble(instructions []domain.Instruction) (*domain.Flow, error) {
	for i, a := range instructions {
		for _, b := range instructions[i+1:] {
			if a.Type == b.Type {
				return nil, &domain.ParseError{
					Kind:    domain.ErrDuplicateStep,
					Message: "duplicate step declaration",
				}
			}
		}
	}
	flow := &domain.Flow{Instructions: make(map[domain.InstructionType]domain.Node, len(instructions))}
	for _, ins := range instructions {
		flow.Instructions[ins.Type] = ins.Actions
	}
	return flow, nil
}

type parser struct {
	s *scanner
}

func (p *parser) errf(at domain.Interval, format string, args ...any) error {
	return &domain.ParseError{Kind: domain.ErrSyntax, Message: fmt.Sprintf(format, args...), Interval: at}
}

func (p *parser) incomplete() error {
	return &domain.ParseError{Kind: domain.ErrIncomplete, Message: "incomplete flow source"}
}

func (p *parser) parseTop() ([]domain.Instruction, error) {
	var instructions []domain.Instruction
	p.s.skipBlank()
	for !p.s.eof() {
		at := p.s.interval()
		name := p.s.readIdent()
		if name == "" {
			return nil, p.errf(at, "unexpected character %q, expected a step name", string(p.s.peek()))
		}
		p.s.skipSpace()
		if p.s.peek() != ':' {
			return nil, p.errf(p.s.interval(), "expected ':' after %q", name)
		}
		p.s.advance()

		if name == "flow" {
			actions, err := p.parseStartFlow()
			if err != nil {
				return nil, err
			}
			instructions = append(instructions, domain.Instruction{Type: domain.StartFlow, Actions: actions})
		} else {
			start := p.s.interval()
			items, err := p.parseItems(false)
			if err != nil {
				return nil, err
			}
			block := &domain.Block{
				Kind:  domain.StepBlock,
				Items: items,
				Span:  domain.RangeInterval{Start: start, End: p.s.interval()},
			}
			instructions = append(instructions, domain.Instruction{Type: domain.Step(name), Actions: block})
		}
		p.s.skipBlank()
	}
	return instructions, nil
}

// parseStartFlow reads the mandatory expression list of the start-flow
// instruction: one expression per line until the next header.
func (p *parser) parseStartFlow() (domain.Node, error) {
	start := p.s.interval()
	var items []domain.Node
	for {
		p.s.skipBlank()
		if p.s.eof() || p.s.peekHeader() {
			break
		}
		expr, err := p.parseExpr("")
		if err != nil {
			return nil, err
		}
		items = append(items, expr)
	}
	if len(items) == 0 {
		return nil, p.errf(start, "flow instruction requires at least one expression")
	}
	return &domain.Block{
		Kind:  domain.StepBlock,
		Items: items,
		Span:  domain.RangeInterval{Start: start, End: p.s.interval()},
	}, nil
}

// parseItems reads statements until end of step (a new header or EOF) or,
// inside braces, until the closing '}'. Running out of bytes inside braces
// is an incomplete-input error.
func (p *parser) parseItems(braced bool) ([]domain.Node, error) {
	var items []domain.Node
	for {
		p.s.skipBlank()
		if braced {
			if p.s.eof() {
				return nil, p.incomplete()
			}
			if p.s.peek() == '}' {
				p.s.advance()
				return items, nil
			}
		} else {
			if p.s.eof() || p.s.peekHeader() {
				return items, nil
			}
		}
		item, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
}

func (p *parser) parseStatement() (domain.Node, error) {
	at := p.s.interval()
	keyword := p.s.readIdent()
	switch keyword {
	case "say":
		value, err := p.parseExpr("")
		if err != nil {
			return nil, err
		}
		return &domain.Say{Value: value, Span: domain.RangeInterval{Start: at, End: value.Span.End}}, nil

	case "remember":
		p.s.skipSpace()
		pathAt := p.s.interval()
		path := p.s.readPath()
		if path == "" {
			return nil, p.errf(pathAt, "expected a memory path after remember")
		}
		value, err := p.parseAssignValue()
		if err != nil {
			return nil, err
		}
		return &domain.Remember{Path: path, Value: value, Span: domain.RangeInterval{Start: at, End: value.Span.End}}, nil

	case "do":
		p.s.skipSpace()
		nameAt := p.s.interval()
		name := p.s.readIdent()
		if name == "" {
			return nil, p.errf(nameAt, "expected a variable name after do")
		}
		value, err := p.parseAssignValue()
		if err != nil {
			return nil, err
		}
		return &domain.Assign{Name: name, Value: value, Span: domain.RangeInterval{Start: at, End: value.Span.End}}, nil

	case "hold":
		return &domain.Suspend{Span: domain.RangeInterval{Start: at, End: p.s.interval()}}, nil

	case "goto":
		p.s.skipSpace()
		stepAt := p.s.interval()
		step := p.s.readIdent()
		if step == "" {
			return nil, p.errf(stepAt, "expected a step name after goto")
		}
		return &domain.Goto{Step: step, Span: domain.RangeInterval{Start: at, End: p.s.interval()}}, nil

	case "if":
		return p.parseIf(at)

	case "foreach":
		return p.parseFor(at)

	case "":
		return nil, p.errf(at, "unexpected character %q", string(p.s.peek()))

	default:
		return nil, p.errf(at, "unexpected token %q", keyword)
	}
}

func (p *parser) parseAssignValue() (domain.Scalar, error) {
	p.s.skipSpace()
	if p.s.peek() != '=' {
		return domain.Scalar{}, p.errf(p.s.interval(), "expected '='")
	}
	p.s.advance()
	return p.parseExpr("")
}

func (p *parser) parseIf(at domain.Interval) (domain.Node, error) {
	p.s.skipSpace()
	if p.s.peek() != '(' {
		return nil, p.errf(p.s.interval(), "expected '(' after if")
	}
	p.s.advance()
	cond, err := p.parseExpr(")")
	if err != nil {
		return nil, err
	}
	if p.s.peek() != ')' {
		return nil, p.errf(p.s.interval(), "expected ')' to close the condition")
	}
	p.s.advance()

	then, err := p.parseBraced()
	if err != nil {
		return nil, err
	}

	node := &domain.If{Cond: cond, Then: then}

	// Optional else / else-if. Backtrack when the next word is not "else":
	// it may be the next statement or a step header.
	m := p.s.mark()
	p.s.skipBlank()
	if p.s.readIdent() == "else" {
		p.s.skipBlank()
		if p.s.peek() == '{' {
			elseBlock, err := p.parseBraced()
			if err != nil {
				return nil, err
			}
			node.Else = elseBlock
		} else {
			at2 := p.s.interval()
			if p.s.readIdent() != "if" {
				return nil, p.errf(at2, "expected '{' or 'if' after else")
			}
			chained, err := p.parseIf(at2)
			if err != nil {
				return nil, err
			}
			node.Else = chained
		}
	} else {
		p.s.reset(m)
	}

	node.Span = domain.RangeInterval{Start: at, End: p.s.interval()}
	return node, nil
}

// parseFor parses `foreach '(' ident [',' ident] ')' in <expr> <block>`.
// The loop contributes one entry to the execution position's loop counters
// per nesting level, so the body is captured as a scoped block.
func (p *parser) parseFor(at domain.Interval) (domain.Node, error) {
	p.s.skipSpace()
	if p.s.peek() != '(' {
		return nil, p.errf(p.s.interval(), "expected '(' after foreach")
	}
	p.s.advance()

	p.s.skipSpace()
	identAt := p.s.interval()
	ident := p.s.readIdent()
	if ident == "" {
		return nil, p.errf(identAt, "expected a loop variable")
	}

	index := ""
	p.s.skipSpace()
	if p.s.peek() == ',' {
		p.s.advance()
		p.s.skipSpace()
		indexAt := p.s.interval()
		index = p.s.readIdent()
		if index == "" {
			return nil, p.errf(indexAt, "expected a secondary loop variable after ','")
		}
		p.s.skipSpace()
	}
	if p.s.peek() != ')' {
		return nil, p.errf(p.s.interval(), "expected ')' to close the loop variables")
	}
	p.s.advance()

	p.s.skipSpace()
	inAt := p.s.interval()
	if p.s.readIdent() != "in" {
		return nil, p.errf(inAt, "expected 'in' after the loop variables")
	}

	iterable, err := p.parseExpr("{")
	if err != nil {
		return nil, err
	}

	body, err := p.parseBraced()
	if err != nil {
		return nil, err
	}

	return &domain.For{
		Ident:    ident,
		Index:    index,
		Iterable: iterable,
		Body:     body,
		Span:     domain.RangeInterval{Start: at, End: p.s.interval()},
	}, nil
}

func (p *parser) parseBraced() (*domain.Block, error) {
	p.s.skipBlank()
	if p.s.eof() {
		return nil, p.incomplete()
	}
	start := p.s.interval()
	if p.s.peek() != '{' {
		return nil, p.errf(start, "expected '{'")
	}
	p.s.advance()
	items, err := p.parseItems(true)
	if err != nil {
		return nil, err
	}
	return &domain.Block{
		Kind:  domain.ScopeBlock,
		Items: items,
		Span:  domain.RangeInterval{Start: start, End: p.s.interval()},
	}, nil
}

// parseExpr captures a leaf expression as source text. The expression ends
// at a newline, at '}' or at any byte of stops, all at nesting depth zero.
// Strings and nested parens/brackets/braces are skipped over; an unclosed
// string at end of input is an incomplete-input error.
func (p *parser) parseExpr(stops string) (domain.Scalar, error) {
	p.s.skipSpace()
	start := p.s.interval()
	m := p.s.mark()
	depth := 0
	end := start

scan:
	for !p.s.eof() {
		ch := p.s.peek()
		if depth == 0 {
			if ch == '\n' || ch == '}' {
				break scan
			}
			for i := 0; i < len(stops); i++ {
				if ch == stops[i] {
					break scan
				}
			}
		}
		switch ch {
		case '"', '\'':
			if err := p.skipString(ch); err != nil {
				return domain.Scalar{}, err
			}
			end = p.s.interval()
			continue
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		}
		p.s.advance()
		if ch != ' ' && ch != '\t' && ch != '\r' {
			end = p.s.interval()
		}
	}

	code := trimSpace(p.s.slice(m))
	if code == "" {
		return domain.Scalar{}, p.errf(start, "expected an expression")
	}
	return domain.Scalar{Code: code, Span: domain.RangeInterval{Start: start, End: end}}, nil
}

func (p *parser) skipString(quote byte) error {
	p.s.advance() // opening quote
	for !p.s.eof() {
		ch := p.s.advance()
		switch ch {
		case '\\':
			if !p.s.eof() {
				p.s.advance()
			}
		case quote:
			return nil
		}
	}
	return p.incomplete()
}

func trimSpace(s string) string {
	i := 0
	for i < len(s) && (s[i] == ' ' || s[i] == '\t' || s[i] == '\r') {
		i++
	}
	j := len(s)
	for j > i && (s[j-1] == ' ' || s[j-1] == '\t' || s[j-1] == '\r' || s[j-1] == '\n') {
		j--
	}
	return s[i:j]
}
