package client

import (
	"context"
	"fmt"
	"sync"

	"github.com/adanyl0v/go-todo/internal/todosync"
)

var _ todosync.Session = (*Session)(nil)

// Session tracks the user signed in through a Client.
type Session struct {
	client *Client

	mu     sync.RWMutex
	userID string
	email  string
}

func NewSession(client *Client) *Session {
	return &Session{client: client}
}

// SignIn logs in and remembers the user.
func (s *Session) SignIn(ctx context.Context, email, password string) error {
	_, err := s.client.Login(ctx, email, password)
	if err != nil {
		return fmt.Errorf("failed to sign in: %w", err)
	}
	return s.refreshUser(ctx)
}

// SignUp registers a new account and remembers it as signed in.
func (s *Session) SignUp(ctx context.Context, email, password string) error {
	_, err := s.client.Register(ctx, email, password)
	if err != nil {
		return fmt.Errorf("failed to sign up: %w", err)
	}
	return s.refreshUser(ctx)
}

func (s *Session) refreshUser(ctx context.Context) error {
	user, err := s.client.Me(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch current user: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.userID = user.ID
	s.email = user.Email
	return nil
}

// UserID is empty while nobody is signed in.
func (s *Session) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

func (s *Session) Email() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.email
}

// SignOut ends the server session. The user is kept if the server
// refuses.
func (s *Session) SignOut(ctx context.Context) error {
	err := s.client.Logout(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.userID = ""
	s.email = ""
	return nil
}
