package webhooksig

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"
)

var secret = []byte("test-secret")

func TestSign_MatchesManualHMAC(t *testing.T) {
	body := []byte(`{"apartment_id":"A101","agency":"Sunrise"}`)
	ts := "1700000000"

	h := hmac.New(sha256.New, secret)
	h.Write([]byte(ts + string(body)))
	want := hex.EncodeToString(h.Sum(nil))

	if got := Sign(secret, ts, body); got != want {
		t.Fatalf("Sign = %s; want %s", got, want)
	}
}

func TestTimestamp(t *testing.T) {
	if got := Timestamp(time.Unix(1700000000, 999)); got != "1700000000" {
		t.Fatalf("Timestamp = %q", got)
	}
}

func TestVerify(t *testing.T) {
	now := time.Unix(1700000000, 0)
	body := []byte(`{"apartment_id":"A101"}`)
	ts := Timestamp(now)
	sig := Sign(secret, ts, body)

	cases := []struct {
		name string
		sig  string
		ts   string
		body []byte
		now  time.Time
		want error
	}{
		{"valid", sig, ts, body, now, nil},
		{"valid uppercase hex", strings.ToUpper(sig), ts, body, now, nil},
		{"missing signature", "", ts, body, now, ErrMissing},
		{"missing timestamp", sig, "  ", body, now, ErrMissing},
		{"non-integer timestamp", sig, "12.5", body, now, ErrTimestamp},
		{"timestamp garbage", sig, "yesterday", body, now, ErrTimestamp},
		{"stale by 10 minutes", sig, ts, body, now.Add(10 * time.Minute), ErrStale},
		{"future by 6 minutes", sig, ts, body, now.Add(-6 * time.Minute), ErrStale},
		{"edge of tolerance", sig, ts, body, now.Add(Tolerance), nil},
		{"tampered body", sig, ts, []byte(`{"apartment_id":"A102"}`), now, ErrSignature},
		{"wrong secret", Sign([]byte("other"), ts, body), ts, body, now, ErrSignature},
		{"non-hex signature", "zz" + sig[2:], ts, body, now, ErrSignature},
		{"truncated signature", sig[:10], ts, body, now, ErrSignature},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Verify(secret, tc.sig, tc.ts, tc.body, tc.now)
			if !errors.Is(err, tc.want) {
				t.Fatalf("Verify = %v; want %v", err, tc.want)
			}
		})
	}
}

func TestVerify_StaleWinsOverValidMAC(t *testing.T) {
	signedAt := time.Unix(1700000000, 0)
	body := []byte(`{}`)
	ts := strconv.FormatInt(signedAt.Unix(), 10)
	sig := Sign(secret, ts, body)

	// A correctly signed request replayed after the tolerance window.
	if err := Verify(secret, sig, ts, body, signedAt.Add(Tolerance+time.Second)); !errors.Is(err, ErrStale) {
		t.Fatalf("expected ErrStale, got %v", err)
	}
}

func TestVerify_RawBytesNotReencoded(t *testing.T) {
	now := time.Unix(1700000000, 0)
	ts := Timestamp(now)
	spaced := []byte(`{ "apartment_id" : "A101" }`)
	compact := []byte(`{"apartment_id":"A101"}`)

	sig := Sign(secret, ts, spaced)
	if err := Verify(secret, sig, ts, spaced, now); err != nil {
		t.Fatalf("exact bytes should verify: %v", err)
	}
	if err := Verify(secret, sig, ts, compact, now); !errors.Is(err, ErrSignature) {
		t.Fatalf("semantically equal but different bytes must not verify, got %v", err)
	}
}

func TestVerify_ToleranceInWholeSeconds(t *testing.T) {
	body := []byte(`{"apartment_id":"A101","agency":"Sunrise"}`)
	base := time.Unix(1700000000, 0)
	ts := Timestamp(base)
	sig := Sign(secret, ts, body)

	for _, tc := range []struct {
		name string
		now  time.Time
		want error
	}{
		{"edge plus fraction", base.Add(Tolerance + 500*time.Millisecond), nil},
		{"future edge", base.Add(-Tolerance), nil},
		{"one second past", base.Add(Tolerance + time.Second), ErrStale},
		{"one second early", base.Add(-Tolerance - time.Second), ErrStale},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if err := Verify(secret, sig, ts, body, tc.now); !errors.Is(err, tc.want) {
				t.Fatalf("Verify = %v; want %v", err, tc.want)
			}
		})
	}
}
