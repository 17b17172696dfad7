package domain

// InstructionKind distinguishes the two top-level constructs of a flow file.
type InstructionKind int

const (
	// KindStartFlow is the optional leading instruction executed when a
	// conversation first enters the flow.
	KindStartFlow InstructionKind = iota
	// KindStep is a named, independently addressable block of instructions.
	KindStep
)

// InstructionType identifies one top-level instruction of a flow.
// It is the map key of Flow.Instructions; no two instructions in a flow may
// share the same type.
type InstructionType struct {
	Kind InstructionKind
	Name string // step name; empty for the start-flow instruction
}

// Step builds the InstructionType for a named step.
func Step(name string) InstructionType {
	return InstructionType{Kind: KindStep, Name: name}
}

// StartFlow is the InstructionType of the start-flow instruction.
var StartFlow = InstructionType{Kind: KindStartFlow}

// Instruction pairs an InstructionType with its parsed body. It is a
// transient value, consumed when the parser assembles the Flow.
type Instruction struct {
	Type    InstructionType
	Actions Node
}

// Flow is a parsed program: a mapping from instruction type to its
// instruction tree. A Flow is immutable after parsing and safe to share
// across concurrent conversations.
type Flow struct {
	// ID is the caller-assigned flow identifier (usually the file name).
	ID string

	Instructions map[InstructionType]Node
}

// Step returns the instruction tree of a named step.
func (f *Flow) Step(name string) (Node, bool) {
	n, ok := f.Instructions[Step(name)]
	return n, ok
}

// Start returns the start-flow instruction tree, if the flow declares one.
func (f *Flow) Start() (Node, bool) {
	n, ok := f.Instructions[StartFlow]
	return n, ok
}

// Steps returns the names of all steps declared in the flow.
func (f *Flow) Steps() []string {
	var names []string
	for t := range f.Instructions {
		if t.Kind == KindStep {
			names = append(names, t.Name)
		}
	}
	return names
}
