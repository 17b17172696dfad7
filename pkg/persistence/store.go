// Package persistence stores conversation state and message history behind
// a capacity-limited backend. Batch reads and writes run through a retry
// loop with exponential backoff and jitter; payloads are encrypted before
// they leave the process and decrypted only on read.
package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"

	"github.com/SINHASantos/csml-engine/internal/logging"
	"github.com/SINHASantos/csml-engine/pkg/domain"
	"github.com/SINHASantos/csml-engine/pkg/ports"
)

const (
	rangeKindMessage = "message"
	rangeKindState   = "state"
)

// Store persists messages and conversation contexts.
type Store struct {
	backend ports.Backend
	cipher  ports.Cipher
	table   string
	retrier *Retrier
	logger  *slog.Logger
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithRetrier substitutes the retry policy.
func WithRetrier(r *Retrier) StoreOption {
	return func(s *Store) { s.retrier = r }
}

// WithStoreLogger sets the structured logger.
func WithStoreLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) { s.logger = logger }
}

// NewStore builds a Store over a backend and cipher. The table name comes
// from configuration; its absence is a startup error, checked there.
func NewStore(table string, backend ports.Backend, cipher ports.Cipher, opts ...StoreOption) *Store {
	s := &Store{
		backend: backend,
		cipher:  cipher,
		table:   table,
		retrier: NewRetrier(),
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewMessage seals a payload into a durable message record.
func (s *Store) NewMessage(client domain.Client, conversationID, flowID, stepID string,
	messageOrder, interactionOrder int, dir domain.Direction, payload domain.Payload, now time.Time) (domain.Message, error) {

	plain, err := json.Marshal(payload)
	if err != nil {
		return domain.Message{}, fmt.Errorf("marshaling payload: %w", err)
	}
	sealed, err := s.cipher.Encrypt(plain)
	if err != nil {
		return domain.Message{}, fmt.Errorf("encrypting payload: %w", err)
	}
	return domain.Message{
		ID:               uuid.NewString(),
		Client:           client,
		ConversationID:   conversationID,
		FlowID:           flowID,
		StepID:           stepID,
		MessageOrder:     messageOrder,
		InteractionOrder: interactionOrder,
		Direction:        dir,
		Payload:          sealed,
		CreatedAt:        FormatTime(now),
	}, nil
}

// messageRange builds the range key of a message; the interaction order is
// zero padded so range-key order matches emission order.
func messageRange(conversationID string, interactionOrder int) string {
	return MakeRange([]string{rangeKindMessage, conversationID, fmt.Sprintf("%010d", interactionOrder)})
}

func stateRange(conversationID string) string {
	return MakeRange([]string{rangeKindState, conversationID})
}

// WriteMessages batch-writes message records, retrying capacity rejections.
func (s *Store) WriteMessages(ctx context.Context, msgs []domain.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	items := make([]ports.Item, 0, len(msgs))
	for _, m := range msgs {
		data, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("marshaling message %s: %w", m.ID, err)
		}
		items = append(items, ports.Item{
			Hash:  MakeHash(m.Client),
			Range: messageRange(m.ConversationID, m.InteractionOrder),
			Data:  data,
		})
	}
	return s.retrier.Do(func() error {
		return s.backend.BatchWrite(ctx, s.table, items)
	})
}

// ReadMessages returns a conversation's history in interaction order, with
// payloads decrypted. No matching items is an empty slice, not an error.
func (s *Store) ReadMessages(ctx context.Context, client domain.Client, conversationID string) ([]domain.MessageRecord, error) {
	prefix := MakeRange([]string{rangeKindMessage, conversationID}) + "#"
	var items []ports.Item
	err := s.retrier.Do(func() error {
		var qerr error
		items, qerr = s.backend.Query(ctx, s.table, MakeHash(client), prefix)
		return qerr
	})
	if err != nil {
		return nil, err
	}
	return s.decodeMessages(items)
}

// GetMessages batch-fetches specific message keys. Absent keys are skipped.
func (s *Store) GetMessages(ctx context.Context, keys []ports.Key) ([]domain.MessageRecord, error) {
	var items []ports.Item
	err := s.retrier.Do(func() error {
		var gerr error
		items, gerr = s.backend.BatchGet(ctx, s.table, keys)
		return gerr
	})
	if err != nil {
		return nil, err
	}
	return s.decodeMessages(items)
}

func (s *Store) decodeMessages(items []ports.Item) ([]domain.MessageRecord, error) {
	records := make([]domain.MessageRecord, 0, len(items))
	for _, item := range items {
		var raw map[string]any
		if err := json.Unmarshal(item.Data, &raw); err != nil {
			return nil, fmt.Errorf("decoding stored item %s/%s: %w", item.Hash, item.Range, err)
		}
		var msg domain.Message
		if err := mapstructure.Decode(raw, &msg); err != nil {
			return nil, fmt.Errorf("decoding message %s/%s: %w", item.Hash, item.Range, err)
		}
		plain, err := s.cipher.Decrypt(msg.Payload)
		if err != nil {
			return nil, fmt.Errorf("decrypting message %s: %w", msg.ID, err)
		}
		var payload domain.Payload
		if err := json.Unmarshal(plain, &payload); err != nil {
			return nil, fmt.Errorf("decoding payload of message %s: %w", msg.ID, err)
		}
		records = append(records, domain.MessageRecord{
			ID:               msg.ID,
			Client:           msg.Client,
			ConversationID:   msg.ConversationID,
			FlowID:           msg.FlowID,
			StepID:           msg.StepID,
			MessageOrder:     msg.MessageOrder,
			InteractionOrder: msg.InteractionOrder,
			Direction:        msg.Direction,
			Payload:          payload,
			CreatedAt:        msg.CreatedAt,
		})
	}
	return records, nil
}

// SaveContext persists a conversation context, hold included, as one
// encrypted blob.
func (s *Store) SaveContext(ctx context.Context, client domain.Client, conversationID string, c *domain.Context) error {
	plain, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling context: %w", err)
	}
	sealed, err := s.cipher.Encrypt(plain)
	if err != nil {
		return fmt.Errorf("encrypting context: %w", err)
	}
	data, err := json.Marshal(map[string]string{"context": sealed})
	if err != nil {
		return err
	}
	return s.retrier.Do(func() error {
		return s.backend.BatchWrite(ctx, s.table, []ports.Item{{
			Hash:  MakeHash(client),
			Range: stateRange(conversationID),
			Data:  data,
		}})
	})
}

// LoadContext rehydrates a conversation context. A conversation with no
// saved context returns domain.ErrContextNotFound.
func (s *Store) LoadContext(ctx context.Context, client domain.Client, conversationID string) (*domain.Context, error) {
	key := ports.Key{Hash: MakeHash(client), Range: stateRange(conversationID)}
	var items []ports.Item
	err := s.retrier.Do(func() error {
		var gerr error
		items, gerr = s.backend.BatchGet(ctx, s.table, []ports.Key{key})
		return gerr
	})
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, domain.ErrContextNotFound
	}
	var envelope map[string]string
	if err := json.Unmarshal(items[0].Data, &envelope); err != nil {
		return nil, fmt.Errorf("decoding context envelope: %w", err)
	}
	plain, err := s.cipher.Decrypt(envelope["context"])
	if err != nil {
		return nil, fmt.Errorf("decrypting context: %w", err)
	}
	var c domain.Context
	if err := json.Unmarshal(plain, &c); err != nil {
		return nil, fmt.Errorf("decoding context: %w", err)
	}
	if c.Memories == nil {
		c.Memories = make(map[string]any)
	}
	if c.Metadata == nil {
		c.Metadata = make(map[string]any)
	}
	if c.System == nil {
		c.System = make(map[string]any)
	}
	return &c, nil
}
