package ws

import (
	"crypto/rand"
	"encoding/hex"
)

// newSessionToken issues a fresh token per Connect; Disconnect must present
// the matching token to take effect.
func newSessionToken() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return ""
	}
	return hex.EncodeToString(buf)
}
