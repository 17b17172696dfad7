package persistence

import (
	"fmt"
	"strings"
	"time"

	"github.com/SINHASantos/csml-engine/pkg/domain"
)

// MakeHash derives the stable storage hash key for a client.
func MakeHash(client domain.Client) string {
	return fmt.Sprintf("bot_id:%s#channel_id:%s#user_id:%s",
		client.BotID, client.ChannelID, client.UserID)
}

// MakeRange joins range key components with '#', with no separator before
// the first component. An empty component list yields "".
func MakeRange(args []string) string {
	return strings.Join(args, "#")
}

// FormatTime renders a persisted timestamp: UTC, millisecond precision,
// literal Z suffix.
func FormatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}
