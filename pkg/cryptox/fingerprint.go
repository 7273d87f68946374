package cryptox

import (
	"crypto/sha256"
	"encoding/base64"
)

// Fingerprint returns a short, stable, non-reversible tag for a credential.
// Logs carry the fingerprint so two log lines can be matched to the same
// token without the token itself ever being written.
func Fingerprint(token string) string {
	if token == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:6])
}
