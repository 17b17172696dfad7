package csml

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SINHASantos/csml-engine/pkg/adapters/memorystore"
	"github.com/SINHASantos/csml-engine/pkg/bot"
	"github.com/SINHASantos/csml-engine/pkg/domain"
	"github.com/SINHASantos/csml-engine/pkg/encrypt"
	"github.com/SINHASantos/csml-engine/pkg/parser"
	"github.com/SINHASantos/csml-engine/pkg/persistence"
)

var e2eClient = domain.Client{BotID: "support", ChannelID: "web", UserID: "u1"}

func newTestEngine(t *testing.T, sources map[string]string, defaultFlow string) *Engine {
	t.Helper()
	var flows []*domain.Flow
	var first *domain.Flow
	for id, src := range sources {
		flow, err := parser.Parse([]byte(src))
		require.NoError(t, err)
		flow.ID = id
		if id == defaultFlow {
			first = flow
		} else {
			flows = append(flows, flow)
		}
	}
	require.NotNil(t, first)
	b, err := bot.FromFlows("support", append([]*domain.Flow{first}, flows...)...)
	require.NoError(t, err)

	store := persistence.NewStore("conversations", memorystore.New(), encrypt.Noop{})
	return New(b, store)
}

func textRequest(conversationID, content string) ProcessRequest {
	return ProcessRequest{
		Client:         e2eClient,
		ConversationID: conversationID,
		Event:          *domain.NewEvent("text", content, nil),
	}
}

func TestProcessHoldAndResume(t *testing.T) {
	engine := newTestEngine(t, map[string]string{
		"welcome": `start:
  say "What is your name?"
  hold
  remember user.name = event.content
  say "Nice to meet you"
`,
	}, "welcome")

	first, err := engine.Process(context.Background(), textRequest("", "hello"))
	require.NoError(t, err)
	require.True(t, first.Held)
	require.NotEmpty(t, first.ConversationID)
	require.Len(t, first.Messages, 1)
	assert.Equal(t, "What is your name?", first.Messages[0].Payload.Content["text"])

	second, err := engine.Process(context.Background(), textRequest(first.ConversationID, "Alice"))
	require.NoError(t, err)
	assert.False(t, second.Held)
	require.Len(t, second.Messages, 1)
	assert.Equal(t, "Nice to meet you", second.Messages[0].Payload.Content["text"])
	require.Len(t, second.Memories, 1)
	assert.Equal(t, "Alice", second.Memories[0].Value)

	// Memory persists into the next conversation turn on a new run of
	// the same conversation.
	history, err := engine.History(context.Background(), e2eClient, first.ConversationID)
	require.NoError(t, err)
	// Two turns: each one inbound event plus one outbound message.
	require.Len(t, history, 4)
	assert.Equal(t, domain.DirectionReceive, history[0].Direction)
	assert.Equal(t, domain.DirectionSend, history[1].Direction)
	assert.Equal(t, domain.DirectionReceive, history[2].Direction)
	assert.Equal(t, domain.DirectionSend, history[3].Direction)

	for i, record := range history {
		assert.Equal(t, i, record.InteractionOrder, "interaction order is monotonic across runs")
	}
}

func TestProcessRunsStartFlowOnce(t *testing.T) {
	engine := newTestEngine(t, map[string]string{
		"welcome": `flow:
  missing_setup_var

start:
  say "hello"
  hold
  say "resumed"
`,
	}, "welcome")

	first, err := engine.Process(context.Background(), textRequest("", "hi"))
	require.NoError(t, err)
	// The failing start-flow expression emits one error message, then the
	// step runs.
	require.Len(t, first.Messages, 2)
	assert.Equal(t, "error", first.Messages[0].Payload.ContentType)
	assert.Equal(t, "hello", first.Messages[1].Payload.Content["text"])

	second, err := engine.Process(context.Background(), textRequest(first.ConversationID, "again"))
	require.NoError(t, err)
	// The start-flow instruction does not replay on later turns.
	require.Len(t, second.Messages, 1)
	assert.Equal(t, "resumed", second.Messages[0].Payload.Content["text"])
}

func TestProcessFlowSelection(t *testing.T) {
	engine := newTestEngine(t, map[string]string{
		"welcome": "start:\n  say \"from default\"\n",
		"faq":     "start:\n  say \"from faq\"\n",
	}, "welcome")

	t.Run("default flow", func(t *testing.T) {
		res, err := engine.Process(context.Background(), textRequest("", "hi"))
		require.NoError(t, err)
		require.Len(t, res.Messages, 1)
		assert.Equal(t, "from default", res.Messages[0].Payload.Content["text"])
	})

	t.Run("explicit flow", func(t *testing.T) {
		req := textRequest("", "hi")
		req.FlowID = "faq"
		res, err := engine.Process(context.Background(), req)
		require.NoError(t, err)
		require.Len(t, res.Messages, 1)
		assert.Equal(t, "from faq", res.Messages[0].Payload.Content["text"])
	})

	t.Run("unknown flow", func(t *testing.T) {
		req := textRequest("", "hi")
		req.FlowID = "nope"
		_, err := engine.Process(context.Background(), req)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "does not exist")
	})
}

func TestProcessMetadataIsVisibleToFlows(t *testing.T) {
	engine := newTestEngine(t, map[string]string{
		"welcome": "start:\n  say _metadata.locale\n",
	}, "welcome")

	req := textRequest("", "hi")
	req.Metadata = map[string]any{"locale": "fr-FR"}
	res, err := engine.Process(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, res.Messages, 1)
	assert.Equal(t, "fr-FR", res.Messages[0].Payload.Content["text"])
}

func TestProcessConversationsAreIsolated(t *testing.T) {
	engine := newTestEngine(t, map[string]string{
		"welcome": `start:
  say "name?"
  hold
  remember name = event.content
  say name
`,
	}, "welcome")

	a, err := engine.Process(context.Background(), textRequest("", "hi"))
	require.NoError(t, err)
	b, err := engine.Process(context.Background(), textRequest("", "hi"))
	require.NoError(t, err)
	require.NotEqual(t, a.ConversationID, b.ConversationID)

	resA, err := engine.Process(context.Background(), textRequest(a.ConversationID, "Alice"))
	require.NoError(t, err)
	resB, err := engine.Process(context.Background(), textRequest(b.ConversationID, "Bob"))
	require.NoError(t, err)

	assert.Equal(t, "Alice", resA.Messages[0].Payload.Content["text"])
	assert.Equal(t, "Bob", resB.Messages[0].Payload.Content["text"])
}
