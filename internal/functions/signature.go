package functions

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/url"
	"strconv"
	"time"
)

// SignatureHeader carries "t=<unix seconds>&s=<hex hmac>" on every /functions request
const SignatureHeader = "X-Signalist-Signature"

// SignatureTolerance bounds the clock skew between signer and server
const SignatureTolerance = 5 * time.Minute

var (
	ErrSigningDisabled  = errors.New("functions signing key not configured")
	ErrSignatureMissing = errors.New("missing request signature")
	ErrSignatureInvalid = errors.New("invalid request signature")
	ErrSignatureExpired = errors.New("request signature expired")
)

// RequestSigner signs and verifies /functions requests with HMAC-SHA256 over
// the timestamp and the raw body. Without a key every request is rejected.
type RequestSigner struct {
	key []byte
	now func() time.Time
}

// NewRequestSigner creates a signer for key
func NewRequestSigner(key string) *RequestSigner {
	return &RequestSigner{key: []byte(key), now: time.Now}
}

// Enabled reports whether a signing key is configured
func (s *RequestSigner) Enabled() bool {
	return len(s.key) > 0
}

// Sign returns the header value for body sent at t
func (s *RequestSigner) Sign(body []byte, t time.Time) string {
	ts := strconv.FormatInt(t.Unix(), 10)
	v := url.Values{}
	v.Set("t", ts)
	v.Set("s", s.mac(ts, body))
	return v.Encode()
}

// Verify checks header against body
func (s *RequestSigner) Verify(header string, body []byte) error {
	if !s.Enabled() {
		return ErrSigningDisabled
	}
	if header == "" {
		return ErrSignatureMissing
	}

	v, err := url.ParseQuery(header)
	if err != nil {
		return ErrSignatureInvalid
	}
	ts, sig := v.Get("t"), v.Get("s")
	unix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil || sig == "" {
		return ErrSignatureInvalid
	}

	if !hmac.Equal([]byte(sig), []byte(s.mac(ts, body))) {
		return ErrSignatureInvalid
	}

	skew := s.now().Sub(time.Unix(unix, 0))
	if skew < 0 {
		skew = -skew
	}
	if skew > SignatureTolerance {
		return ErrSignatureExpired
	}
	return nil
}

func (s *RequestSigner) mac(ts string, body []byte) string {
	m := hmac.New(sha256.New, s.key)
	m.Write([]byte(ts))
	m.Write([]byte{'.'})
	m.Write(body)
	return hex.EncodeToString(m.Sum(nil))
}
