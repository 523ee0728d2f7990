package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidSignature rejects an event whose signature header is
// missing, malformed, stale, or does not match the shared secret.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// DefaultTolerance bounds how old a signed timestamp may be.
const DefaultTolerance = 5 * time.Minute

// Verifier authenticates inbound webhook payloads. The signature is
// computed over the raw request bytes, never a re-serialized form.
//
// An empty secret puts the verifier in development mode: the payload is
// trusted as-is. That mode must never reach production configuration.
type Verifier struct {
	secret    string
	tolerance time.Duration
	now       func() time.Time
}

// NewVerifier creates a Verifier for the given shared secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{
		secret:    secret,
		tolerance: DefaultTolerance,
		now:       time.Now,
	}
}

// DevMode reports whether signature verification is disabled.
func (v *Verifier) DevMode() bool {
	return v.secret == ""
}

// VerifyAndParse checks the signature header against the raw body and
// decodes the event. In development mode the header is ignored.
func (v *Verifier) VerifyAndParse(body []byte, header string) (*Event, error) {
	if !v.DevMode() {
		if err := v.verify(body, header); err != nil {
			return nil, err
		}
	}
	var event Event
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("failed to decode webhook event: %w", err)
	}
	return &event, nil
}

// verify parses a header of the form "t=<unix>,v1=<hex>" and compares
// HMAC-SHA256("<t>.<body>") in constant time.
func (v *Verifier) verify(body []byte, header string) error {
	if header == "" {
		return ErrInvalidSignature
	}

	var timestamp int64
	var signatures [][]byte
	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch key {
		case "t":
			ts, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return ErrInvalidSignature
			}
			timestamp = ts
		case "v1":
			sig, err := hex.DecodeString(value)
			if err != nil {
				continue
			}
			signatures = append(signatures, sig)
		}
	}
	if timestamp == 0 || len(signatures) == 0 {
		return ErrInvalidSignature
	}

	age := v.now().Sub(time.Unix(timestamp, 0))
	if age > v.tolerance || age < -v.tolerance {
		return ErrInvalidSignature
	}

	expected := computeSignature(v.secret, timestamp, body)
	for _, sig := range signatures {
		if hmac.Equal(sig, expected) {
			return nil
		}
	}
	return ErrInvalidSignature
}

func computeSignature(secret string, timestamp int64, body []byte) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", timestamp)
	mac.Write(body)
	return mac.Sum(nil)
}

// Sign produces a signature header for the given payload. Used by the
// provider simulator in tests and local tooling.
func Sign(secret string, at time.Time, body []byte) string {
	t := at.Unix()
	return fmt.Sprintf("t=%d,v1=%s", t, hex.EncodeToString(computeSignature(secret, t, body)))
}
