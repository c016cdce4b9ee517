package triggers

import (
	"crypto/rand"
	"encoding/binary"
	"regexp"
	"strconv"
	"strings"
)

// WebhookKeyPrefix starts every generated API trigger key.
const WebhookKeyPrefix = "wh_"

// segmentLength is the width of a base-36 encoded uint64.
const segmentLength = 13

var webhookKeyPattern = regexp.MustCompile(`^wh_[0-9a-z]{16,}$`)

// NewWebhookKey returns "wh_" followed by two independently generated random
// base-36 segments. Keys are not tracked: with 128 random bits a collision
// with a previously issued key is treated as impossible.
func NewWebhookKey() string {
	var buf [16]byte

	// crypto/rand.Read never returns an error.
	_, _ = rand.Read(buf[:])

	return WebhookKeyPrefix +
		segment(binary.BigEndian.Uint64(buf[:8])) +
		segment(binary.BigEndian.Uint64(buf[8:]))
}

// IsWebhookKey reports whether key has the generated key shape.
func IsWebhookKey(key string) bool {
	return webhookKeyPattern.MatchString(key)
}

func segment(v uint64) string {
	s := strconv.FormatUint(v, 36)

	return strings.Repeat("0", segmentLength-len(s)) + s
}
