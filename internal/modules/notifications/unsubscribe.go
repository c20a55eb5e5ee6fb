package notifications

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// UnsubscribePath is the route that consumes signed unsubscribe links
const UnsubscribePath = "/api/email/unsubscribe"

// UnsubscribeSigner signs and verifies unsubscribe links.
// The signature is hex HMAC-SHA256 over "email|t" where t is a millisecond timestamp.
type UnsubscribeSigner struct {
	secret  []byte
	baseURL string
	now     func() time.Time
}

// NewUnsubscribeSigner creates a signer. baseURL is the public origin used in links.
func NewUnsubscribeSigner(secret, baseURL string) *UnsubscribeSigner {
	return &UnsubscribeSigner{
		secret:  []byte(secret),
		baseURL: strings.TrimRight(baseURL, "/"),
		now:     time.Now,
	}
}

// Sign returns the hex signature for email and t
func (s *UnsubscribeSigner) Sign(email, t string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(email + "|" + t))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether sig matches email and t, in constant time
func (s *UnsubscribeSigner) Verify(email, t, sig string) bool {
	got, err := hex.DecodeString(sig)
	if err != nil {
		return false
	}
	want, _ := hex.DecodeString(s.Sign(email, t))
	return hmac.Equal(got, want)
}

// Link builds a signed unsubscribe URL for email
func (s *UnsubscribeSigner) Link(email string) string {
	t := strconv.FormatInt(s.now().UnixMilli(), 10)
	q := url.Values{}
	q.Set("email", email)
	q.Set("t", t)
	q.Set("sig", s.Sign(email, t))
	return s.baseURL + UnsubscribePath + "?" + q.Encode()
}
