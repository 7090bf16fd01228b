package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// SignatureHeader carries the hex HMAC-SHA256 of the raw request body.
const SignatureHeader = "X-Signature"

// VerifyWebhookSignature checks a Lemon Squeezy delivery against the shared
// secret. The digest is computed over the exact bytes received.
func VerifyWebhookSignature(payload []byte, signatureHeader, webhookSecret string) error {
	secret := strings.TrimSpace(webhookSecret)
	if secret == "" {
		return fmt.Errorf("%w: Lemon Squeezy Webhook Secret not set in .env", ErrConfiguration)
	}

	sig := strings.TrimSpace(signatureHeader)
	if sig == "" {
		return fmt.Errorf("%w: missing %s header", ErrSignature, SignatureHeader)
	}
	expected := []byte(SignWebhookPayload(payload, secret))
	// hmac.Equal returns false on length mismatch without leaking timing.
	if !hmac.Equal(expected, []byte(strings.ToLower(sig))) {
		return ErrSignature
	}
	return nil
}

// SignWebhookPayload returns the lowercase hex signature for payload.
func SignWebhookPayload(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
