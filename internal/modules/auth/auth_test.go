package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalist/signalist/internal/events"
	"github.com/signalist/signalist/internal/modules/users"
	testingutil "github.com/signalist/signalist/internal/testing"
)

type recordingEmitter struct {
	mu     sync.Mutex
	events []events.EventData
}

func (r *recordingEmitter) EmitTyped(_ string, data events.EventData) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, data)
	return "evt"
}

func newService(t *testing.T) (*Service, *recordingEmitter) {
	t.Helper()
	provider, _ := testingutil.NewTestProvider(t)
	log := zerolog.Nop()
	emitter := &recordingEmitter{}
	return NewService(users.NewRepository(provider, log), NewSessionRepository(provider, log), emitter, log), emitter
}

func validForm() SignUpForm {
	return SignUpForm{
		FullName:          "Ada Lovelace",
		Email:             "ada@example.com",
		Password:          "correct-horse",
		Country:           "gb",
		InvestmentGoals:   "Growth",
		RiskTolerance:     "Medium",
		PreferredIndustry: "Technology",
	}
}

func TestSignUpForm_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(f *SignUpForm)
	}{
		{"missing name", func(f *SignUpForm) { f.FullName = " " }},
		{"bad email", func(f *SignUpForm) { f.Email = "not-an-email" }},
		{"short password", func(f *SignUpForm) { f.Password = "short" }},
		{"long password", func(f *SignUpForm) { f.Password = string(make([]byte, 129)) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := validForm()
			tt.mutate(&f)
			assert.ErrorIs(t, f.Validate(), ErrValidation)
		})
	}

	assert.NoError(t, validForm().Validate())
}

func TestSignUp_EmitsUserCreated(t *testing.T) {
	svc, emitter := newService(t)
	ctx := context.Background()

	session, err := svc.SignUp(ctx, validForm())
	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)
	assert.Equal(t, "GB", session.User.Country)

	require.Len(t, emitter.events, 1)
	data, ok := emitter.events[0].(*events.UserCreatedData)
	require.True(t, ok)
	assert.Equal(t, "ada@example.com", data.Email)
	assert.Equal(t, "Ada Lovelace", data.Name)
	assert.Equal(t, "Technology", data.PreferredIndustry)

	_, err = svc.SignUp(ctx, validForm())
	assert.ErrorIs(t, err, users.ErrEmailTaken)
	assert.Len(t, emitter.events, 1)
}

func TestSignIn(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.SignUp(ctx, validForm())
	require.NoError(t, err)

	session, err := svc.SignIn(ctx, "ADA@example.com", "correct-horse")
	require.NoError(t, err)

	user, err := svc.UserForToken(ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", user.Email)

	_, err = svc.SignIn(ctx, "ada@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.SignIn(ctx, "ghost@example.com", "whatever1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	require.NoError(t, svc.SignOut(ctx, session.Token))
	_, err = svc.UserForToken(ctx, session.Token)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestCookieSigner(t *testing.T) {
	signer := NewCookieSigner("secret", false)

	value := signer.Sign("token-123")
	token, ok := signer.Verify(value)
	assert.True(t, ok)
	assert.Equal(t, "token-123", token)

	for _, tampered := range []string{"", "token-123", "token-123.", "token-124" + value[len("token-123"):], value + "0"} {
		_, ok := signer.Verify(tampered)
		assert.False(t, ok, tampered)
	}

	_, ok = NewCookieSigner("other", false).Verify(value)
	assert.False(t, ok)
}

func TestRequireSession(t *testing.T) {
	signer := NewCookieSigner("secret", false)
	m := NewMiddleware(signer, nil, zerolog.Nop())
	handler := m.RequireSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name     string
		path     string
		cookie   string
		wantCode int
	}{
		{"protected without cookie", "/watchlist", "", http.StatusSeeOther},
		{"protected with forged cookie", "/", "abc.def", http.StatusSeeOther},
		{"protected with signed cookie", "/", signer.Sign("abc"), http.StatusOK},
		{"api is public", "/api/watchlist", "", http.StatusOK},
		{"sign-in is public", "/sign-in", "", http.StatusOK},
		{"assets are public", "/assets/app.css", "", http.StatusOK},
		{"favicon is public", "/favicon.ico", "", http.StatusOK},
		{"prefix lookalike is protected", "/sign-input", "", http.StatusSeeOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: CookieName, Value: tt.cookie})
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantCode == http.StatusSeeOther {
				assert.Equal(t, "/sign-in", rec.Header().Get("Location"))
			}
		})
	}
}

func TestAuthenticate_AttachesUser(t *testing.T) {
	svc, _ := newService(t)
	signer := NewCookieSigner("secret", false)
	m := NewMiddleware(signer, svc, zerolog.Nop())

	session, err := svc.SignUp(context.Background(), validForm())
	require.NoError(t, err)

	var got string
	handler := m.Authenticate(RequireUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, _ := UserFromContext(r.Context())
		got = u.Email
	})))

	req := httptest.NewRequest(http.MethodGet, "/api/watchlist", nil)
	rec := httptest.NewRecorder()
	signer.SetCookie(rec, session.Token, time.Now().Add(time.Hour))
	req.AddCookie(rec.Result().Cookies()[0])

	handler.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "ada@example.com", got)

	anon := httptest.NewRecorder()
	handler.ServeHTTP(anon, httptest.NewRequest(http.MethodGet, "/api/watchlist", nil))
	assert.Equal(t, http.StatusUnauthorized, anon.Code)
}
