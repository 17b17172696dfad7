package domain

// HoldRecord is a durable checkpoint of a suspended execution: where the
// engine stopped, the in-flight value at that point, and the step and flow
// the suspension originated from. It is created only by the interpreter when
// it reaches a hold directive and consumed exactly once by the next
// invocation that resumes from it.
type HoldRecord struct {
	Index IndexInfo `json:"index"`
	Value any       `json:"value"`
	Step  string    `json:"step"`
	Flow  string    `json:"flow"`
}

// Context is the per-conversation execution state. It is loaded (or created
// fresh) before a run, mutated by the interpreter, and persisted afterwards.
type Context struct {
	// Memories maps remembered variable names to values. Insertion order
	// is irrelevant.
	Memories map[string]any `json:"memories"`

	// Metadata carries caller-supplied data exposed read-only to flows.
	Metadata map[string]any `json:"metadata"`

	// System carries engine bookkeeping (message high-water marks and the
	// like); flows never see it.
	System map[string]any `json:"system"`

	// Hold is the pending suspension record, if the previous run stopped
	// at a hold directive.
	Hold *HoldRecord `json:"hold,omitempty"`

	// Step and Flow name the current execution entry point.
	Step string `json:"step"`
	Flow string `json:"flow"`
}

// NewContext creates a fresh context positioned at a flow's step.
func NewContext(flow, step string) *Context {
	return &Context{
		Memories: make(map[string]any),
		Metadata: make(map[string]any),
		System:   make(map[string]any),
		Step:     step,
		Flow:     flow,
	}
}

// MemoryWrite records one remember performed during a run.
type MemoryWrite struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// Event is the inbound trigger of one execution. It is read-only input to
// the interpreter, exposed to expressions as `event`.
type Event struct {
	ContentType string         `json:"content_type"`
	Content     string         `json:"content"`
	Data        map[string]any `json:"data,omitempty"`
}

// NewEvent builds an event from payload content.
func NewEvent(contentType, content string, data map[string]any) *Event {
	return &Event{ContentType: contentType, Content: content, Data: data}
}
