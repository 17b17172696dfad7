package interpreter_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SINHASantos/csml-engine/internal/interpreter"
	"github.com/SINHASantos/csml-engine/pkg/domain"
)

func TestHoldCapturesPosition(t *testing.T) {
	flow := mustParse(t, "demo", `start:
  say "one"
  hold
  say "two"
`)
	it := interpreter.New()
	ctx := domain.NewContext("demo", "start")

	res, err := it.Execute(flow, "start", ctx, textEvent("first"))
	require.NoError(t, err)

	require.Len(t, res.Messages, 1)
	assert.Equal(t, "one", res.Messages[0].Content["text"])
	assert.True(t, res.Held)

	require.NotNil(t, ctx.Hold)
	assert.Equal(t, 1, ctx.Hold.Index.CommandIndex)
	assert.Empty(t, ctx.Hold.Index.LoopIndex)
	assert.Equal(t, "start", ctx.Hold.Step)
	assert.Equal(t, "demo", ctx.Hold.Flow)
}

func TestHoldResumeEmitsOnlyTheSuffix(t *testing.T) {
	flow := mustParse(t, "demo", `start:
  say "one"
  hold
  say "two"
`)
	it := interpreter.New()
	ctx := domain.NewContext("demo", "start")

	_, err := it.Execute(flow, "start", ctx, textEvent("first"))
	require.NoError(t, err)

	res, err := it.Execute(flow, "start", ctx, textEvent("second"))
	require.NoError(t, err)

	require.Len(t, res.Messages, 1)
	assert.Equal(t, "two", res.Messages[0].Content["text"])
	assert.False(t, res.Held)
	assert.Nil(t, ctx.Hold, "a hold is consumed by the run that resumes it")
}

func TestResumeAtFirstInstruction(t *testing.T) {
	flow := mustParse(t, "demo", `start:
  say "one"
  say "two"
  say "three"
`)
	it := interpreter.New()
	ctx := domain.NewContext("demo", "start")
	ctx.Hold = &domain.HoldRecord{
		Index: domain.IndexInfo{CommandIndex: 0},
		Step:  "start",
		Flow:  "demo",
	}

	res, err := it.Execute(flow, "start", ctx, textEvent(""))
	require.NoError(t, err)

	require.Len(t, res.Messages, 2)
	assert.Equal(t, "two", res.Messages[0].Content["text"])
	assert.Equal(t, "three", res.Messages[1].Content["text"])
}

func TestResumeFromBeforeStartEqualsFreshRun(t *testing.T) {
	flow := mustParse(t, "demo", `start:
  say "one"
  say "two"
`)
	it := interpreter.New()
	ctx := domain.NewContext("demo", "start")
	ctx.Hold = &domain.HoldRecord{Index: domain.BeforeStart, Step: "start", Flow: "demo"}

	res, err := it.Execute(flow, "start", ctx, textEvent(""))
	require.NoError(t, err)

	require.Len(t, res.Messages, 2)
	assert.Equal(t, "one", res.Messages[0].Content["text"])
}

func TestResumeBeyondEverythingReachable(t *testing.T) {
	t.Run("suppressed goto terminates silently", func(t *testing.T) {
		flow := mustParse(t, "demo", `start:
  say "one"
  goto finish

finish:
  say "done"
`)
		it := interpreter.New()
		ctx := domain.NewContext("demo", "start")
		ctx.Hold = &domain.HoldRecord{
			Index: domain.IndexInfo{CommandIndex: 99},
			Step:  "start",
			Flow:  "demo",
		}

		res, err := it.Execute(flow, "start", ctx, textEvent(""))
		require.NoError(t, err)
		assert.Empty(t, res.Messages)
		assert.False(t, res.Held)
		assert.Nil(t, ctx.Hold)
	})

	t.Run("step ending before the target spends the hold", func(t *testing.T) {
		flow := mustParse(t, "demo", `start:
  say "one"
`)
		it := interpreter.New()
		ctx := domain.NewContext("demo", "start")
		ctx.Hold = &domain.HoldRecord{
			Index: domain.IndexInfo{CommandIndex: 42},
			Step:  "start",
			Flow:  "demo",
		}

		res, err := it.Execute(flow, "start", ctx, textEvent(""))
		require.NoError(t, err)
		assert.Empty(t, res.Messages)
		assert.Nil(t, ctx.Hold)

		// The next run is fresh again.
		res, err = it.Execute(flow, "start", ctx, textEvent(""))
		require.NoError(t, err)
		require.Len(t, res.Messages, 1)
	})
}

func TestHoldInsideForeach(t *testing.T) {
	flow := mustParse(t, "demo", `start:
  foreach (item) in items {
    say item
    hold
  }
`)
	it := interpreter.New()
	ctx := domain.NewContext("demo", "start")
	ctx.Memories["items"] = []any{"a", "b", "c"}

	var texts []any
	res, err := it.Execute(flow, "start", ctx, textEvent(""))
	require.NoError(t, err)
	for i := 0; res.Held; i++ {
		require.Len(t, res.Messages, 1)
		texts = append(texts, res.Messages[0].Content["text"])
		require.NotNil(t, ctx.Hold)
		assert.Len(t, ctx.Hold.Index.LoopIndex, 1)

		res, err = it.Execute(flow, "start", ctx, textEvent(""))
		require.NoError(t, err)
		require.Less(t, i, 5, "resume loop must terminate")
	}

	assert.Equal(t, []any{"a", "b", "c"}, texts)
	assert.Empty(t, res.Messages, "the final resume finds nothing past the last hold")
	assert.Nil(t, ctx.Hold)
}

func TestHoldStepOverridesEntryPoint(t *testing.T) {
	flow := mustParse(t, "demo", `start:
  say "intro"
  goto ask

ask:
  hold
  say "resumed"
`)
	it := interpreter.New()
	ctx := domain.NewContext("demo", "start")

	res, err := it.Execute(flow, "start", ctx, textEvent("first"))
	require.NoError(t, err)
	require.True(t, res.Held)
	assert.Equal(t, "ask", ctx.Hold.Step)

	// Resumption starts where the hold was captured, whatever step the
	// caller passes.
	res, err = it.Execute(flow, "start", ctx, textEvent("second"))
	require.NoError(t, err)
	require.Len(t, res.Messages, 1)
	assert.Equal(t, "resumed", res.Messages[0].Content["text"])
}

func TestHoldValueIsVisibleOnResume(t *testing.T) {
	flow := mustParse(t, "demo", `start:
  hold
  say _hold.content
`)
	it := interpreter.New()
	ctx := domain.NewContext("demo", "start")

	res, err := it.Execute(flow, "start", ctx, textEvent("first"))
	require.NoError(t, err)
	require.True(t, res.Held)
	require.NotNil(t, ctx.Hold)

	res, err = it.Execute(flow, "start", ctx, textEvent("second"))
	require.NoError(t, err)
	require.Len(t, res.Messages, 1)
	assert.Equal(t, "first", res.Messages[0].Content["text"])
}
