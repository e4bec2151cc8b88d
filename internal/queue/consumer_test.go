package queue

import (
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validValues() map[string]any {
	return map[string]any{
		"repo_full_name":  "acme/widgets",
		"pr_number":       "42",
		"installation_id": "999",
		"action":          "opened",
		"head_sha":        "abc1234",
		"event_id":        "delivery-1",
		"enqueued_at":     "2026-08-30T10:00:00.5Z",
		"attempt":         "3",
	}
}

func TestParseMessage(t *testing.T) {
	msg, err := ParseMessage(redis.XMessage{ID: "1700000000000-0", Values: validValues()})
	require.NoError(t, err)

	assert.Equal(t, "1700000000000-0", msg.ID)
	assert.Equal(t, 3, msg.Attempt)
	assert.Equal(t, "acme/widgets", msg.Task.RepoFullName)
	assert.Equal(t, 42, msg.Task.PRNumber)
	assert.Equal(t, int64(999), msg.Task.InstallationID)
	assert.Equal(t, "opened", msg.Task.Action)
	assert.Equal(t, "abc1234", msg.Task.HeadSHA)
	assert.Equal(t, "delivery-1", msg.Task.EventID)
	assert.Equal(t, 2, msg.Task.RetryCount)

	want := time.Date(2026, 8, 30, 10, 0, 0, 500_000_000, time.UTC)
	assert.True(t, msg.Task.EnqueuedAt.Equal(want))
}

func TestParseMessageDefaultsAttempt(t *testing.T) {
	values := validValues()
	delete(values, "attempt")

	msg, err := ParseMessage(redis.XMessage{ID: "1-0", Values: values})
	require.NoError(t, err)
	assert.Equal(t, 1, msg.Attempt)
	assert.Equal(t, 0, msg.Task.RetryCount)
}

func TestParseMessageMissingFields(t *testing.T) {
	tests := []struct {
		name  string
		field string
	}{
		{"no repository", "repo_full_name"},
		{"no event id", "event_id"},
		{"no pr number", "pr_number"},
		{"no installation", "installation_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values := validValues()
			delete(values, tt.field)

			_, err := ParseMessage(redis.XMessage{ID: "1-0", Values: values})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestParseMessageNonNumericPRNumber(t *testing.T) {
	values := validValues()
	values["pr_number"] = "not-a-number"

	_, err := ParseMessage(redis.XMessage{ID: "1-0", Values: values})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pr_number")
}

func TestParseMessageToleratesBadTimestamp(t *testing.T) {
	values := validValues()
	values["enqueued_at"] = "yesterday"

	msg, err := ParseMessage(redis.XMessage{ID: "1-0", Values: values})
	require.NoError(t, err)
	assert.True(t, msg.Task.EnqueuedAt.IsZero())
}
