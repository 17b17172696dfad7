/*
Package csml is a scripting-language engine for multi-turn conversational
flows.

Flow source text is parsed into a positioned instruction tree, executed step
by step into outbound messages and memory writes, and suspended at hold
directives so a conversation can wait for the user's next input. All state
lives in a persisted conversation context, not in the process: resuming a
held conversation replays the already-executed prefix of the step silently
and picks up live emission exactly where the previous turn stopped, which
makes any engine instance able to serve any turn of any conversation.

# Concept

A bot is a set of flows; a flow is an optional start instruction plus named
steps. Each step is a sequence of statements:

	say        emit a message
	remember   write a value into conversation memory (dotted paths allowed)
	do         bind a run-local variable
	hold       suspend until the next inbound event
	goto       transfer to another step
	if / else  branch on an expression
	foreach    iterate an expression's elements

Expressions are evaluated by expr-lang with the conversation's memories,
run-locals, the inbound event and caller metadata in scope. Referencing a
name before it was remembered is recoverable: it becomes an error-content
message and the step continues.

# Persistence

Conversation contexts and message history are written behind a small
hash/range storage port with Redis and bbolt adapters. Payloads are sealed
with AES-256-GCM before they reach the backend. Capacity rejections are
retried with exponential backoff and jitter up to an elapsed-time ceiling.

# Usage

	b, err := bot.Load("bot.yaml")
	if err != nil {
		log.Fatal(err)
	}
	store := persistence.NewStore("conversations", memorystore.New(), encrypt.Noop{})
	engine := csml.New(b, store)

	res, err := engine.Process(ctx, csml.ProcessRequest{
		Client: domain.Client{BotID: "support", ChannelID: "web", UserID: "u1"},
		Event:  *domain.NewEvent("text", "hello", nil),
	})

Each Process call is one conversational turn: it loads (or creates) the
conversation context, executes until the flow completes or holds, persists
the turn and returns the outbound messages.
*/
package csml
