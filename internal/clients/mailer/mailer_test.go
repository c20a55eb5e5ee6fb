package mailer

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild(t *testing.T) {
	s := NewSMTPSender(Config{Host: "smtp.example.com", Port: 587, Username: "news@signalist.app"}, zerolog.Nop())

	m, err := s.Build(Message{
		FromName: "Signalist",
		To:       "ada@example.com",
		Subject:  "Welcome",
		HTML:     "<p>Hello</p>",
		Text:     "Hello",
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = m.WriteTo(&buf)
	require.NoError(t, err)

	raw := buf.String()
	assert.Contains(t, raw, `From: "Signalist" <news@signalist.app>`)
	assert.Contains(t, raw, "To: <ada@example.com>")
	assert.Contains(t, raw, "Subject: Welcome")
	assert.Contains(t, raw, "text/plain")
	assert.Contains(t, raw, "text/html")
}

func TestBuild_Validation(t *testing.T) {
	s := NewSMTPSender(Config{Username: "news@signalist.app"}, zerolog.Nop())

	_, err := s.Build(Message{To: " ", HTML: "x"})
	assert.Error(t, err)

	_, err = s.Build(Message{To: "not an address", HTML: "x"})
	assert.Error(t, err)
}

func TestLogSender(t *testing.T) {
	var buf bytes.Buffer
	s := NewLogSender(zerolog.New(&buf))

	require.NoError(t, s.Send(context.Background(), Message{To: "ada@example.com", Subject: "Welcome"}))
	assert.Contains(t, buf.String(), "ada@example.com")
	assert.Error(t, s.Send(context.Background(), Message{Subject: "no recipient"}))
}
