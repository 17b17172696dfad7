package domain

// Client is the composite identity of one conversation partner. It has no
// behavior of its own; it exists to derive a stable storage hash key.
type Client struct {
	BotID     string `json:"bot_id" mapstructure:"bot_id"`
	ChannelID string `json:"channel_id" mapstructure:"channel_id"`
	UserID    string `json:"user_id" mapstructure:"user_id"`
}

// Direction of a conversation turn.
type Direction string

const (
	DirectionSend    Direction = "SEND"
	DirectionReceive Direction = "RECEIVE"
)

// Payload is the content of one message as produced by the interpreter:
// a content map tagged with its content type ("text", "error", ...).
type Payload struct {
	Content     map[string]any `json:"content"`
	ContentType string         `json:"content_type"`
}

// TextPayload builds a plain text payload.
func TextPayload(text string) Payload {
	return Payload{Content: map[string]any{"text": text}, ContentType: "text"}
}

// ErrorPayload builds an error-content payload.
func ErrorPayload(msg string) Payload {
	return Payload{Content: map[string]any{"error": msg}, ContentType: "error"}
}

// Message is one durable conversation turn as stored in the backend. The
// payload field holds the encrypted serialized Payload; it is decrypted only
// on read.
type Message struct {
	ID               string    `json:"id" mapstructure:"id"`
	Client           Client    `json:"client" mapstructure:"client"`
	ConversationID   string    `json:"conversation_id" mapstructure:"conversation_id"`
	FlowID           string    `json:"flow_id" mapstructure:"flow_id"`
	StepID           string    `json:"step_id" mapstructure:"step_id"`
	MessageOrder     int       `json:"message_order" mapstructure:"message_order"`
	InteractionOrder int       `json:"interaction_order" mapstructure:"interaction_order"`
	Direction        Direction `json:"direction" mapstructure:"direction"`
	Payload          string    `json:"payload" mapstructure:"payload"`
	CreatedAt        string    `json:"created_at" mapstructure:"created_at"`
}

// MessageRecord is a message materialized for callers: identical to Message
// except the payload is decrypted back into structured content.
type MessageRecord struct {
	ID               string    `json:"id"`
	Client           Client    `json:"client"`
	ConversationID   string    `json:"conversation_id"`
	FlowID           string    `json:"flow_id"`
	StepID           string    `json:"step_id"`
	MessageOrder     int       `json:"message_order"`
	InteractionOrder int       `json:"interaction_order"`
	Direction        Direction `json:"direction"`
	Payload          Payload   `json:"payload"`
	CreatedAt        string    `json:"created_at"`
}
