package ipn

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"strings"

	"paybridge/internal/app/apperr"
	"paybridge/internal/app/logger"
)

// Verifier authenticates inbound gateway webhook payloads. The signature
// is an HMAC-SHA512, hex encoded, over the pipe-joined canonical field
// string of the payload.
type Verifier struct {
	secret []byte
	logger logger.Logger
}

func (v *Verifier) LoggerComponent() string {
	return "IPN.Verifier"
}

// NewVerifier with the shared secret. An empty secret disables
// verification entirely; this degraded mode is logged once at startup.
func NewVerifier(secret string, l logger.Logger) *Verifier {
	v := &Verifier{
		logger: l.WithComponent("IPN.Verifier"),
	}
	if secret == "" {
		v.logger.Warn().Msg("No IPN secret configured, webhook signature verification disabled")
		return v
	}
	v.secret = []byte(secret)

	return v
}

// Enabled reports whether a secret is configured.
func (v *Verifier) Enabled() bool {
	return len(v.secret) > 0
}

// Verify checks signature against the payload's canonical string. With no
// secret configured every payload passes; with a secret configured a
// missing or wrong signature fails closed.
func (v *Verifier) Verify(p *Payload, signature string) error {
	if !v.Enabled() {
		return nil
	}
	if signature == "" {
		return apperr.ErrUnauthorized
	}

	mac := hmac.New(sha512.New, v.secret)
	mac.Write([]byte(p.canonical()))
	want := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(want), []byte(strings.ToLower(signature))) {
		return apperr.ErrUnauthorized
	}

	return nil
}

// Sign produces the signature the gateway would send for p. Test helper
// and reference for the canonical field order.
func (v *Verifier) Sign(p *Payload) string {
	mac := hmac.New(sha512.New, v.secret)
	mac.Write([]byte(p.canonical()))
	return hex.EncodeToString(mac.Sum(nil))
}
