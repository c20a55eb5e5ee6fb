package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
	"time"
)

// CookieName is the session cookie
const CookieName = "signalist.session_token"

// CookieSigner signs session tokens as "token.hexmac"
type CookieSigner struct {
	secret []byte
	secure bool
}

// NewCookieSigner creates a signer. secure marks cookies Secure (HTTPS only).
func NewCookieSigner(secret string, secure bool) *CookieSigner {
	return &CookieSigner{secret: []byte(secret), secure: secure}
}

// Sign returns the cookie value for token
func (s *CookieSigner) Sign(token string) string {
	return token + "." + s.mac(token)
}

// Verify returns the token when value carries a valid signature
func (s *CookieSigner) Verify(value string) (string, bool) {
	i := strings.LastIndexByte(value, '.')
	if i <= 0 || i == len(value)-1 {
		return "", false
	}
	token, sig := value[:i], value[i+1:]
	if !hmac.Equal([]byte(sig), []byte(s.mac(token))) {
		return "", false
	}
	return token, true
}

func (s *CookieSigner) mac(token string) string {
	m := hmac.New(sha256.New, s.secret)
	m.Write([]byte(token))
	return hex.EncodeToString(m.Sum(nil))
}

// SetCookie writes the signed session cookie
func (s *CookieSigner) SetCookie(w http.ResponseWriter, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    s.Sign(token),
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCookie expires the session cookie
func (s *CookieSigner) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// TokenFromRequest returns the verified session token carried by r, if any
func (s *CookieSigner) TokenFromRequest(r *http.Request) (string, bool) {
	c, err := r.Cookie(CookieName)
	if err != nil || c.Value == "" {
		return "", false
	}
	return s.Verify(c.Value)
}
