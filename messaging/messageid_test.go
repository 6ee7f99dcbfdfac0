package messaging

import (
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var messageIDPattern = regexp.MustCompile(`^\d{13,}-[0-9a-z]{6,9}$`)

func TestNewMessageIDFormat(t *testing.T) {
	id := NewMessageID()
	assert.Regexp(t, messageIDPattern, id)

	millis, err := strconv.ParseInt(id[:strings.IndexByte(id, '-')], 10, 64)
	assert.NoError(t, err)
	assert.InDelta(t, time.Now().UnixMilli(), millis, float64(time.Minute.Milliseconds()))
}

func TestNewMessageIDUniqueness(t *testing.T) {
	const n = 10000
	seen := make(map[string]struct{}, n)
	for i := 0; i < n; i++ {
		id := NewMessageID()
		_, dup := seen[id]
		assert.False(t, dup, "duplicate message id %s", id)
		seen[id] = struct{}{}
	}
	assert.Len(t, seen, n)
}
