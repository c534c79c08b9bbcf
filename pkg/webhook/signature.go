package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const secretPrefix = "whsec_"

// Verifier validates signed identity lifecycle payloads.
//
// The identity provider signs each delivery with
// HMAC-SHA256(secret, "{id}.{timestamp}.{body}") and sends the result
// base64 encoded in the webhook-signature header, versioned as
// "v1,<signature>". Multiple space separated signatures may be present
// after a secret rotation; any valid one accepts the payload.
type Verifier struct {
	secret    []byte
	tolerance time.Duration
}

// NewVerifier constructs a Verifier from the shared secret.
func NewVerifier(secret string, tolerance time.Duration) (*Verifier, error) {
	if secret == "" {
		return nil, fmt.Errorf("webhook secret missing")
	}
	if tolerance <= 0 {
		tolerance = 5 * time.Minute
	}

	raw := strings.TrimPrefix(secret, secretPrefix)
	key, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		// Plain-text secrets are accepted for local development.
		key = []byte(raw)
	}

	return &Verifier{secret: key, tolerance: tolerance}, nil
}

// Verify checks the signature and timestamp of a delivery.
func (v *Verifier) Verify(id, timestamp, signatureHeader string, body []byte) error {
	if id == "" || timestamp == "" || signatureHeader == "" {
		return fmt.Errorf("missing webhook headers")
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid webhook timestamp")
	}
	sent := time.Unix(ts, 0)
	now := time.Now()
	if sent.Before(now.Add(-v.tolerance)) || sent.After(now.Add(v.tolerance)) {
		return fmt.Errorf("webhook timestamp outside tolerance")
	}

	expected := v.sign(id, timestamp, body)

	for _, candidate := range strings.Fields(signatureHeader) {
		parts := strings.SplitN(candidate, ",", 2)
		if len(parts) != 2 || parts[0] != "v1" {
			continue
		}
		if hmac.Equal([]byte(parts[1]), []byte(expected)) {
			return nil
		}
	}

	return fmt.Errorf("no matching webhook signature")
}

// Sign produces a versioned signature for the payload. Used by tests and
// by tooling that replays deliveries.
func (v *Verifier) Sign(id, timestamp string, body []byte) string {
	return "v1," + v.sign(id, timestamp, body)
}

func (v *Verifier) sign(id, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, v.secret)
	_, _ = fmt.Fprintf(mac, "%s.%s.", id, timestamp)
	_, _ = mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
