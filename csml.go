package csml

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/SINHASantos/csml-engine/internal/interpreter"
	"github.com/SINHASantos/csml-engine/internal/logging"
	"github.com/SINHASantos/csml-engine/pkg/bot"
	"github.com/SINHASantos/csml-engine/pkg/domain"
	"github.com/SINHASantos/csml-engine/pkg/metrics"
	"github.com/SINHASantos/csml-engine/pkg/notify"
	"github.com/SINHASantos/csml-engine/pkg/persistence"
	"github.com/SINHASantos/csml-engine/pkg/ports"
	"github.com/SINHASantos/csml-engine/pkg/session"
)

// Engine drives conversations for one bot: it resolves flows, executes
// steps through the interpreter, and persists contexts and messages.
type Engine struct {
	bot      *bot.Bot
	store    *persistence.Store
	sessions *session.Manager
	notifier *notify.Notifier
	metrics  *metrics.Metrics
	logger   *slog.Logger
	now      func() time.Time

	evaluator      ports.Evaluator
	maxTransitions int
	interp         *interpreter.Interpreter
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithNotifier delivers outbound messages to a webhook after each run.
func WithNotifier(n *notify.Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

// WithMetrics installs Prometheus instrumentation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithEvaluator substitutes the expression collaborator.
func WithEvaluator(ev ports.Evaluator) Option {
	return func(e *Engine) { e.evaluator = ev }
}

// WithMaxTransitions bounds goto chains within one execution.
func WithMaxTransitions(n int) Option {
	return func(e *Engine) { e.maxTransitions = n }
}

// New creates an Engine over a loaded bot and a persistence store.
func New(b *bot.Bot, store *persistence.Store, opts ...Option) *Engine {
	e := &Engine{
		bot:            b,
		store:          store,
		sessions:       session.NewManager(),
		logger:         logging.NewNop(),
		now:            time.Now,
		maxTransitions: 100,
	}
	for _, opt := range opts {
		opt(e)
	}
	interpOpts := []interpreter.Option{
		interpreter.WithLogger(e.logger),
		interpreter.WithMaxTransitions(e.maxTransitions),
	}
	if e.evaluator != nil {
		interpOpts = append(interpOpts, interpreter.WithEvaluator(e.evaluator))
	}
	e.interp = interpreter.New(interpOpts...)
	return e
}

// ProcessRequest is one inbound event for one conversation.
type ProcessRequest struct {
	Client         domain.Client  `json:"client"`
	ConversationID string         `json:"conversation_id"` // minted when empty
	FlowID         string         `json:"flow_id"`         // bot default when empty
	StepID         string         `json:"step_id"`         // "start" when empty
	Event          domain.Event   `json:"event"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// ProcessResult is the outcome of one run: the outbound turns (payloads
// decrypted), the memory writes, and whether the run stopped at a hold.
type ProcessResult struct {
	ConversationID string                    `json:"conversation_id"`
	Messages       []domain.MessageRecord `json:"messages"`
	Memories       []domain.MemoryWrite   `json:"memories"`
	Held           bool                   `json:"held"`
}

// Process executes one conversational turn. The conversation's
// load-execute-save cycle runs under its session lock; concurrent turns for
// different conversations proceed independently.
func (e *Engine) Process(ctx context.Context, req ProcessRequest) (*ProcessResult, error) {
	conversationID := req.ConversationID
	if conversationID == "" {
		conversationID = session.NewConversationID()
	}

	var result *ProcessResult
	err := e.sessions.WithLock(ctx, conversationID, func(ctx context.Context) error {
		var err error
		result, err = e.process(ctx, req, conversationID)
		return err
	})
	return result, err
}

func (e *Engine) process(ctx context.Context, req ProcessRequest, conversationID string) (*ProcessResult, error) {
	started := e.now()

	convCtx, err := e.store.LoadContext(ctx, req.Client, conversationID)
	fresh := false
	if errors.Is(err, domain.ErrContextNotFound) {
		fresh = true
		flowID := req.FlowID
		if flowID == "" {
			flowID = e.bot.DefaultFlow
		}
		stepID := req.StepID
		if stepID == "" {
			stepID = "start"
		}
		convCtx = domain.NewContext(flowID, stepID)
	} else if err != nil {
		return nil, err
	}
	for k, v := range req.Metadata {
		convCtx.Metadata[k] = v
	}

	flowID := convCtx.Flow
	if convCtx.Hold != nil && convCtx.Hold.Flow != "" {
		flowID = convCtx.Hold.Flow
	} else if req.FlowID != "" {
		flowID = req.FlowID
	}
	flow, ok := e.bot.Flow(flowID)
	if !ok {
		return nil, fmt.Errorf("flow [%s] does not exist", flowID)
	}

	stepID := convCtx.Step
	if convCtx.Hold == nil && req.StepID != "" {
		stepID = req.StepID
	}
	if stepID == "" {
		stepID = "start"
	}

	if e.metrics != nil {
		e.metrics.Runs.WithLabelValues(flow.ID).Inc()
	}

	run := &interpreter.Result{}
	if fresh {
		startRes, err := e.interp.ExecuteStart(flow, convCtx, &req.Event)
		if err != nil {
			return nil, err
		}
		run.Messages = append(run.Messages, startRes.Messages...)
		run.Memories = append(run.Memories, startRes.Memories...)
	}

	stepRes, err := e.interp.Execute(flow, stepID, convCtx, &req.Event)
	if err != nil {
		return nil, err
	}
	run.Messages = append(run.Messages, stepRes.Messages...)
	run.Memories = append(run.Memories, stepRes.Memories...)
	run.Held = stepRes.Held

	records, err := e.persistRun(ctx, req, conversationID, convCtx, run)
	if err != nil {
		return nil, err
	}

	if e.notifier != nil {
		if err := e.notifier.Send(ctx, req.Client, conversationID, records); err != nil {
			e.logger.Warn("webhook delivery failed", "conversation_id", conversationID, "err", err)
		}
	}
	if e.metrics != nil {
		e.metrics.Messages.Add(float64(len(records)))
		if run.Held {
			e.metrics.Holds.Inc()
		}
		e.metrics.RunDuration.Observe(e.now().Sub(started).Seconds())
	}

	return &ProcessResult{
		ConversationID: conversationID,
		Messages:       records,
		Memories:       run.Memories,
		Held:           run.Held,
	}, nil
}

// persistRun writes the inbound turn, the outbound turns and the updated
// context. Ordering across runs is anchored on the persisted high-water
// mark kept in the context's system mapping.
func (e *Engine) persistRun(ctx context.Context, req ProcessRequest, conversationID string,
	convCtx *domain.Context, run *interpreter.Result) ([]domain.MessageRecord, error) {

	base := intFrom(convCtx.System["interaction_order"])
	now := e.now()

	inbound := domain.Payload{
		Content:     map[string]any{"text": req.Event.Content},
		ContentType: req.Event.ContentType,
	}
	type turn struct {
		payload domain.Payload
		dir     domain.Direction
	}
	turns := make([]turn, 0, len(run.Messages)+1)
	turns = append(turns, turn{inbound, domain.DirectionReceive})
	for _, p := range run.Messages {
		turns = append(turns, turn{p, domain.DirectionSend})
	}

	msgs := make([]domain.Message, 0, len(turns))
	var outbound []domain.MessageRecord
	for i, t := range turns {
		msg, err := e.store.NewMessage(req.Client, conversationID, convCtx.Flow, convCtx.Step,
			i, base+i, t.dir, t.payload, now)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
		if t.dir == domain.DirectionSend {
			outbound = append(outbound, domain.MessageRecord{
				ID:               msg.ID,
				Client:           msg.Client,
				ConversationID:   msg.ConversationID,
				FlowID:           msg.FlowID,
				StepID:           msg.StepID,
				MessageOrder:     msg.MessageOrder,
				InteractionOrder: msg.InteractionOrder,
				Direction:        msg.Direction,
				Payload:          t.payload,
				CreatedAt:        msg.CreatedAt,
			})
		}
	}
	convCtx.System["interaction_order"] = base + len(turns)

	if err := e.store.WriteMessages(ctx, msgs); err != nil {
		return nil, err
	}
	if err := e.store.SaveContext(ctx, req.Client, conversationID, convCtx); err != nil {
		return nil, err
	}
	return outbound, nil
}

// History returns a conversation's persisted turns, payloads decrypted, in
// interaction order.
func (e *Engine) History(ctx context.Context, client domain.Client, conversationID string) ([]domain.MessageRecord, error) {
	return e.store.ReadMessages(ctx, client, conversationID)
}

// Bot returns the engine's loaded bot.
func (e *Engine) Bot() *bot.Bot { return e.bot }

func intFrom(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}
