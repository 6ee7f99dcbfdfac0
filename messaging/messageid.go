package messaging

import (
	"math/rand"
	"strconv"
	"time"
)

const messageIDAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// NewMessageID returns "<epochMillis>-<base36 suffix>". Uniqueness within one
// process comes from the timestamp plus randomness composition; there is no
// global coordination.
func NewMessageID() string {
	var suffix [9]byte
	for i := range suffix {
		suffix[i] = messageIDAlphabet[rand.Intn(len(messageIDAlphabet))]
	}
	return strconv.FormatInt(time.Now().UnixMilli(), 10) + "-" + string(suffix[:])
}
