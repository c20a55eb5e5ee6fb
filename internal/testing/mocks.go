package testing

import (
	"context"
	"strings"
	"sync"

	"github.com/signalist/signalist/internal/clients/mailer"
	"github.com/signalist/signalist/internal/domain"
)

// MockUserDirectory is a mock implementation of domain.UserDirectory for testing
type MockUserDirectory struct {
	mu    sync.RWMutex
	users map[string]domain.User
	err   error
}

// NewMockUserDirectory creates a directory pre-loaded with users
func NewMockUserDirectory(users ...domain.User) *MockUserDirectory {
	m := &MockUserDirectory{users: make(map[string]domain.User)}
	for _, u := range users {
		m.users[strings.ToLower(u.Email)] = u
	}
	return m
}

// SetError sets the error to return
func (m *MockUserDirectory) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// FindIDByEmail returns the user's id
func (m *MockUserDirectory) FindIDByEmail(ctx context.Context, email string) (string, error) {
	u, err := m.FindByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	return u.ID, nil
}

// FindByEmail returns the user
func (m *MockUserDirectory) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	u, ok := m.users[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &u, nil
}

// MockTextGenerator is a mock implementation of domain.TextGenerator for testing
type MockTextGenerator struct {
	mu      sync.Mutex
	text    string
	err     error
	prompts []string
}

// NewMockTextGenerator returns a generator answering every prompt with text
func NewMockTextGenerator(text string, err error) *MockTextGenerator {
	return &MockTextGenerator{text: text, err: err}
}

// Generate records the prompt and returns the configured result
func (m *MockTextGenerator) Generate(_ context.Context, prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts = append(m.prompts, prompt)
	if m.err != nil {
		return "", m.err
	}
	return m.text, nil
}

// Prompts returns every prompt received so far
func (m *MockTextGenerator) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}

// MockSender records outgoing email and can fail for chosen recipients
type MockSender struct {
	mu     sync.Mutex
	sent   []mailer.Message
	failTo map[string]error
}

// NewMockSender creates an empty recording sender
func NewMockSender() *MockSender {
	return &MockSender{failTo: make(map[string]error)}
}

// FailFor makes every send to address return err
func (m *MockSender) FailFor(address string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failTo[strings.ToLower(address)] = err
}

// Send records msg unless its recipient is set to fail
func (m *MockSender) Send(_ context.Context, msg mailer.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failTo[strings.ToLower(msg.To)]; err != nil {
		return err
	}
	m.sent = append(m.sent, msg)
	return nil
}

// Sent returns a copy of every delivered message
func (m *MockSender) Sent() []mailer.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mailer.Message(nil), m.sent...)
}
