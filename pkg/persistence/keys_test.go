package persistence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/SINHASantos/csml-engine/pkg/domain"
)

func TestMakeHash(t *testing.T) {
	client := domain.Client{BotID: "bot", ChannelID: "chan", UserID: "user"}
	assert.Equal(t, "bot_id:bot#channel_id:chan#user_id:user", MakeHash(client))

	t.Run("empty components keep their labels", func(t *testing.T) {
		assert.Equal(t, "bot_id:#channel_id:#user_id:", MakeHash(domain.Client{}))
	})
}

func TestMakeRange(t *testing.T) {
	assert.Equal(t, "a#b#c", MakeRange([]string{"a", "b", "c"}))
	assert.Equal(t, "a", MakeRange([]string{"a"}))
	assert.Equal(t, "", MakeRange(nil))
	assert.Equal(t, "a##c", MakeRange([]string{"a", "", "c"}))
}

func TestFormatTime(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	ts := time.Date(2024, 3, 7, 10, 30, 45, 123_000_000, loc)
	assert.Equal(t, "2024-03-07T09:30:45.123Z", FormatTime(ts))
}
