package domain

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"
)

const referenceAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewReference generates a fresh, collision-resistant order reference of the
// form MF-<unix seconds>-<6 random characters>, e.g. MF-1700000000-AB12CD.
// It doubles as the gateway idempotency key, so it must never repeat.
func NewReference(now time.Time) (string, error) {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate reference: %w", err)
	}
	for i, b := range buf {
		buf[i] = referenceAlphabet[int(b)%len(referenceAlphabet)]
	}
	return fmt.Sprintf("MF-%d-%s", now.Unix(), string(buf)), nil
}

// NewCallbackToken generates the authorization token the gateway must echo
// back on every callback for a session.
func NewCallbackToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate callback token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
