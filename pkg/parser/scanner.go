package parser

import (
	"github.com/SINHASantos/csml-engine/pkg/domain"
)

// scanner is a byte cursor over flow source that tracks line and column so
// every construct can be reported with its interval.
type scanner struct {
	src  []byte
	pos  int
	line int
	col  int
}

func newScanner(src []byte) *scanner {
	return &scanner{src: src, line: 1, col: 1}
}

func (s *scanner) eof() bool { return s.pos >= len(s.src) }

func (s *scanner) peek() byte {
	if s.eof() {
		return 0
	}
	return s.src[s.pos]
}

func (s *scanner) peekAt(off int) byte {
	if s.pos+off >= len(s.src) {
		return 0
	}
	return s.src[s.pos+off]
}

func (s *scanner) advance() byte {
	ch := s.src[s.pos]
	s.pos++
	if ch == '\n' {
		s.line++
		s.col = 1
	} else {
		s.col++
	}
	return ch
}

// interval is the position of the next unread byte.
func (s *scanner) interval() domain.Interval {
	return domain.Interval{Line: s.line, Column: s.col}
}

// mark captures cursor state for backtracking.
type mark struct {
	pos, line, col int
}

func (s *scanner) mark() mark          { return mark{s.pos, s.line, s.col} }
func (s *scanner) reset(m mark)        { s.pos, s.line, s.col = m.pos, m.line, m.col }
func (s *scanner) slice(m mark) string { return string(s.src[m.pos:s.pos]) }

// skipSpace consumes spaces, tabs and carriage returns, but not newlines.
func (s *scanner) skipSpace() {
	for !s.eof() {
		switch s.peek() {
		case ' ', '\t', '\r':
			s.advance()
		default:
			return
		}
	}
}

// skipBlank consumes all whitespace, newlines and // comments.
func (s *scanner) skipBlank() {
	for !s.eof() {
		switch {
		case s.peek() == ' ' || s.peek() == '\t' || s.peek() == '\r' || s.peek() == '\n':
			s.advance()
		case s.peek() == '/' && s.peekAt(1) == '/':
			for !s.eof() && s.peek() != '\n' {
				s.advance()
			}
		default:
			return
		}
	}
}

func isIdentStart(ch byte) bool {
	return ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z' || ch == '_'
}

func isIdentChar(ch byte) bool {
	return isIdentStart(ch) || ch >= '0' && ch <= '9'
}

// readIdent consumes an identifier; empty when the cursor is not on one.
func (s *scanner) readIdent() string {
	if s.eof() || !isIdentStart(s.peek()) {
		return ""
	}
	m := s.mark()
	for !s.eof() && isIdentChar(s.peek()) {
		s.advance()
	}
	return s.slice(m)
}

// readPath consumes a dotted identifier path (memory destination).
func (s *scanner) readPath() string {
	m := s.mark()
	for !s.eof() && (isIdentChar(s.peek()) || s.peek() == '.') {
		s.advance()
	}
	return s.slice(m)
}

// peekHeader reports whether the cursor sits on `ident ':'`, i.e. the start
// of a step or the start-flow instruction.
func (s *scanner) peekHeader() bool {
	m := s.mark()
	defer s.reset(m)
	if s.readIdent() == "" {
		return false
	}
	s.skipSpace()
	return s.peek() == ':'
}
