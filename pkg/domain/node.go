package domain

// Interval is a line/column position in flow source. Lines and columns are
// 1-based; the zero value means "no position".
type Interval struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// RangeInterval spans a construct from its first to its last token.
type RangeInterval struct {
	Start Interval `json:"start"`
	End   Interval `json:"end"`
}

// Node is one node of a parsed instruction tree. The tree is acyclic,
// exclusively owned by its Flow and immutable after parsing.
type Node interface {
	Range() RangeInterval
}

// BlockKind tags what produced a Block.
type BlockKind int

const (
	// StepBlock is the body of a named step.
	StepBlock BlockKind = iota
	// ScopeBlock is a braced block nested under if or foreach.
	ScopeBlock
)

// Block is an ordered sequence of instructions.
type Block struct {
	Kind  BlockKind
	Items []Node
	Span  RangeInterval
}

// Scalar is a leaf expression, kept as positioned source text and delegated
// to the evaluator at run time.
type Scalar struct {
	Code string
	Span RangeInterval
}

// Say emits one outbound message.
type Say struct {
	Value Scalar
	Span  RangeInterval
}

// Remember writes a value into conversation memory under a dotted path.
type Remember struct {
	Path  string
	Value Scalar
	Span  RangeInterval
}

// Assign binds a run-local variable ("do x = expr"); unlike Remember it is
// not persisted with the conversation.
type Assign struct {
	Name  string
	Value Scalar
	Span  RangeInterval
}

// Suspend halts execution at this position until the next invocation.
type Suspend struct {
	Span RangeInterval
}

// Goto transfers control to another step of the flow.
type Goto struct {
	Step string
	Span RangeInterval
}

// If branches on a condition. Else is nil, a *Block, or another *If
// (else-if chain).
type If struct {
	Cond Scalar
	Then *Block
	Else Node
	Span RangeInterval
}

// For iterates an iterable expression, binding Ident to each element and,
// when present, Index to the zero-based iteration ordinal.
type For struct {
	Ident    string
	Index    string // optional secondary binding; empty when absent
	Iterable Scalar
	Body     *Block
	Span     RangeInterval
}

func (b *Block) Range() RangeInterval    { return b.Span }
func (s Scalar) Range() RangeInterval    { return s.Span }
func (s *Say) Range() RangeInterval      { return s.Span }
func (r *Remember) Range() RangeInterval { return r.Span }
func (a *Assign) Range() RangeInterval   { return a.Span }
func (h *Suspend) Range() RangeInterval  { return h.Span }
func (g *Goto) Range() RangeInterval     { return g.Span }
func (i *If) Range() RangeInterval       { return i.Span }
func (f *For) Range() RangeInterval      { return f.Span }
