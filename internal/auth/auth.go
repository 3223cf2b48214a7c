// Package auth provides local accounts and the signed-in session. There is
// no password: a user is identified by username only.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
)

// Palette is the set of colors a new user can pick from.
var Palette = []string{"#E53E3E", "#38A169", "#3182CE", "#805AD5", "#D53F8C"}

// Error codes mirrored in UI messages.
const (
	CodeUserNotFound  = "AUTH/USER_NOT_FOUND"
	CodeUsernameTaken = "AUTH/USERNAME_TAKEN"
	CodeUnknown       = "AUTH/UNKNOWN_ERROR"
)

// Sentinel errors returned by the Service.
var (
	ErrUserNotFound     = errors.New("user not found")
	ErrUsernameTaken    = errors.New("username is already taken")
	ErrUsernameRequired = errors.New("username is required")
	ErrColorRequired    = errors.New("color is required")
)

// Code maps an error from the Service to its UI error code.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrUserNotFound):
		return CodeUserNotFound
	case errors.Is(err, ErrUsernameTaken):
		return CodeUsernameTaken
	default:
		return CodeUnknown
	}
}

// Message returns the text shown to the user for an error from the Service.
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUserNotFound):
		return "User not found. Would you like to join?"
	case errors.Is(err, ErrUsernameTaken):
		return "Username is already taken."
	case errors.Is(err, ErrUsernameRequired):
		return "Please enter a username."
	case errors.Is(err, ErrColorRequired):
		return "Please select a color to join."
	default:
		return "Something went wrong. Please try again."
	}
}

// User is a local account.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Color    string `json:"color"`
}

// Initials returns the first letters of the first and last words of the
// username, or its first two characters for a single word, upper-cased.
func (u User) Initials() string {
	return Initials(u.Username)
}

// Initials is the free-function form of User.Initials.
func Initials(name string) string {
	words := strings.Split(name, " ")
	if len(words) > 1 && words[1] != "" {
		first := []rune(words[0])
		last := []rune(words[len(words)-1])
		var b strings.Builder
		if len(first) > 0 {
			b.WriteRune(first[0])
		}
		if len(last) > 0 {
			b.WriteRune(last[0])
		}
		return strings.ToUpper(b.String())
	}
	r := []rune(name)
	if len(r) > 2 {
		r = r[:2]
	}
	return strings.ToUpper(string(r))
}

// Store is the persistence the Service needs.
type Store interface {
	FindUserByName(ctx context.Context, username string) (*User, error)
	UserByID(ctx context.Context, id string) (*User, error)
	CreateUser(ctx context.Context, username, color string) (User, error)
	SetSessionUser(ctx context.Context, userID string) error
	SessionUserID(ctx context.Context) (string, error)
}

// Service signs users in and out and tracks the current user.
type Service struct {
	mu        sync.RWMutex
	store     Store
	current   *User
	listeners []func(*User)
}

// NewService creates a Service over store.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// OnChange registers a listener called after every sign-in or sign-out with
// the new current user (nil when signed out).
func (s *Service) OnChange(fn func(*User)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// Current returns the signed-in user, if any.
func (s *Service) Current() (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return User{}, false
	}
	return *s.current, true
}

// Restore signs in the user recorded by the last session, if any.
func (s *Service) Restore(ctx context.Context) (User, bool, error) {
	id, err := s.store.SessionUserID(ctx)
	if err != nil {
		return User{}, false, fmt.Errorf("read session: %w", err)
	}
	if id == "" {
		return User{}, false, nil
	}
	u, err := s.store.UserByID(ctx, id)
	if err != nil {
		return User{}, false, fmt.Errorf("restore session user %s: %w", id, err)
	}
	if u == nil {
		log.Warnf("Auth: session user %s no longer exists", id)
		return User{}, false, s.setCurrent(ctx, nil)
	}
	return *u, true, s.setCurrent(ctx, u)
}

// Login signs in an existing user by username.
func (s *Service) Login(ctx context.Context, username string) (User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return User{}, ErrUsernameRequired
	}
	u, err := s.store.FindUserByName(ctx, username)
	if err != nil {
		return User{}, fmt.Errorf("find user %q: %w", username, err)
	}
	if u == nil {
		return User{}, ErrUserNotFound
	}
	if err := s.setCurrent(ctx, u); err != nil {
		return User{}, err
	}
	log.Infof("Auth: %s signed in", u.Username)
	return *u, nil
}

// Enroll creates a new user and signs them in.
func (s *Service) Enroll(ctx context.Context, username, color string) (User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return User{}, ErrUsernameRequired
	}
	if strings.TrimSpace(color) == "" {
		return User{}, ErrColorRequired
	}
	existing, err := s.store.FindUserByName(ctx, username)
	if err != nil {
		return User{}, fmt.Errorf("find user %q: %w", username, err)
	}
	if existing != nil {
		return User{}, ErrUsernameTaken
	}
	u, err := s.store.CreateUser(ctx, username, color)
	if err != nil {
		return User{}, fmt.Errorf("create user %q: %w", username, err)
	}
	if err := s.setCurrent(ctx, &u); err != nil {
		return User{}, err
	}
	log.Infof("Auth: enrolled %s", u.Username)
	return u, nil
}

// Logout clears the current user.
func (s *Service) Logout(ctx context.Context) error {
	return s.setCurrent(ctx, nil)
}

func (s *Service) setCurrent(ctx context.Context, u *User) error {
	id := ""
	if u != nil {
		id = u.ID
	}
	if err := s.store.SetSessionUser(ctx, id); err != nil {
		return fmt.Errorf("write session: %w", err)
	}

	s.mu.Lock()
	if u != nil {
		cp := *u
		s.current = &cp
	} else {
		s.current = nil
	}
	listeners := append([]func(*User){}, s.listeners...)
	current := s.current
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(current)
	}
	return nil
}
