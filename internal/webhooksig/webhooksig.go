// Package webhooksig computes and verifies HMAC-SHA256 signatures for the
// spreadsheet webhook.
//
// A signature covers the decimal timestamp string followed by the exact raw
// request body bytes:
//
//	hex(HMAC-SHA256(secret, timestamp || body))
//
// Timestamps are Unix epoch seconds and must fall within Tolerance of the
// verifier's clock in either direction, which bounds how long a captured
// request can be replayed.
package webhooksig

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"
)

// Header names carrying the signature and its timestamp.
const (
	HeaderSignature = "X-Webhook-Signature"
	HeaderTimestamp = "X-Webhook-Timestamp"
)

// Tolerance is the maximum allowed skew between the signed timestamp and now.
const Tolerance = 5 * time.Minute

var (
	// ErrMissing is returned when the signature or the timestamp is empty.
	ErrMissing = errors.New("missing signature or timestamp")
	// ErrTimestamp is returned when the timestamp is not a decimal integer.
	ErrTimestamp = errors.New("invalid timestamp")
	// ErrStale is returned when the timestamp is outside Tolerance.
	ErrStale = errors.New("request timestamp outside tolerance")
	// ErrSignature is returned when the MAC does not match.
	ErrSignature = errors.New("invalid signature")
)

// Sign returns the lowercase hex signature of body at timestamp ts.
func Sign(secret []byte, ts string, body []byte) string {
	return hex.EncodeToString(mac(secret, ts, body))
}

// Timestamp formats t as the decimal epoch-seconds string used in
// HeaderTimestamp.
func Timestamp(t time.Time) string {
	return strconv.FormatInt(t.Unix(), 10)
}

// Verify checks sig and ts against body. Checks run in order: presence,
// timestamp syntax, freshness relative to now, then the MAC. The MAC
// comparison is constant-time.
func Verify(secret []byte, sig, ts string, body []byte, now time.Time) error {
	sig = strings.TrimSpace(sig)
	ts = strings.TrimSpace(ts)
	if sig == "" || ts == "" {
		return ErrMissing
	}

	sec, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return ErrTimestamp
	}
	// Whole seconds on both sides: ts+300.9s is still inside the window.
	skew := now.Unix() - sec
	if skew < 0 {
		skew = -skew
	}
	if skew > int64(Tolerance/time.Second) {
		return ErrStale
	}

	got, err := hex.DecodeString(sig)
	if err != nil {
		return ErrSignature
	}
	if !hmac.Equal(got, mac(secret, ts, body)) {
		return ErrSignature
	}
	return nil
}

func mac(secret []byte, ts string, body []byte) []byte {
	h := hmac.New(sha256.New, secret)
	h.Write([]byte(ts))
	h.Write(body)
	return h.Sum(nil)
}
