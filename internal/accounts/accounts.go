// Package accounts authenticates portal users against the users collection.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/malandaymnhs/MALANDAYEDUTRACK-sub000/internal/activity"
	"github.com/malandaymnhs/MALANDAYEDUTRACK-sub000/internal/docstore"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrDisabled           = errors.New("account disabled")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidInput       = errors.New("email and a password of at least 8 characters are required")
)

// User is a portal account.
type User struct {
	ID           string     `json:"id,omitempty"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"passwordHash,omitempty"`
	Role         string     `json:"role"`
	FirstName    string     `json:"firstName,omitempty"`
	LastName     string     `json:"lastName,omitempty"`
	Name         string     `json:"name,omitempty"`
	DisableDate  *time.Time `json:"disableDate,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// Disabled reports whether the account's disable date has passed.
func (u User) Disabled(now time.Time) bool {
	return u.DisableDate != nil && !now.Before(*u.DisableDate)
}

// ActivityLogger is the audit sink. *activity.Logger implements it.
type ActivityLogger interface {
	Log(ctx context.Context, e activity.Entry)
}

// Service checks credentials and account state.
type Service struct {
	store    docstore.Store
	activity ActivityLogger
	now      func() time.Time
	cost     int
}

// New creates an account service. log may be nil.
func New(store docstore.Store, log ActivityLogger) *Service {
	return &Service{store: store, activity: log, now: time.Now, cost: bcrypt.DefaultCost}
}

// Register creates an account with a hashed password.
func (s *Service) Register(ctx context.Context, email, password, role, firstName, lastName string) (User, error) {
	email = normalizeEmail(email)
	if email == "" || len(password) < 8 {
		return User{}, ErrInvalidInput
	}
	if _, err := s.byEmail(ctx, email); err == nil {
		return User{}, ErrEmailTaken
	} else if !errors.Is(err, ErrInvalidCredentials) {
		return User{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}
	u := User{
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		FirstName:    firstName,
		LastName:     lastName,
		Name:         strings.TrimSpace(firstName + " " + lastName),
		CreatedAt:    docstore.Now(),
	}
	doc, err := docstore.Encode(u)
	if err != nil {
		return User{}, err
	}
	id, err := s.store.Create(ctx, docstore.Users, "", doc)
	if err != nil {
		return User{}, fmt.Errorf("create user: %w", err)
	}
	u.ID = id
	u.PasswordHash = ""
	return u, nil
}

// Login verifies credentials. Disabled accounts are rejected even with a
// correct password.
func (s *Service) Login(ctx context.Context, email, password string) (User, error) {
	email = normalizeEmail(email)
	u, err := s.byEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			s.log(ctx, activity.Entry{Type: activity.TypeLoginFailed, UserEmail: email, Description: "Login failed: unknown email"})
		}
		return User{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		s.log(ctx, activity.Entry{Type: activity.TypeLoginFailed, UserID: u.ID, UserEmail: email, Role: u.Role, Description: "Login failed: wrong password"})
		return User{}, ErrInvalidCredentials
	}
	if u.Disabled(s.now()) {
		s.log(ctx, activity.Entry{Type: activity.TypeAccountDisabled, UserID: u.ID, UserEmail: email, Role: u.Role, Description: "Login refused: account disabled"})
		return User{}, ErrDisabled
	}
	u.PasswordHash = ""
	s.log(ctx, activity.Entry{Type: activity.TypeLogin, UserID: u.ID, UserEmail: email, Role: u.Role, Description: "Signed in"})
	return u, nil
}

// Get returns a profile without its password hash.
func (s *Service) Get(ctx context.Context, id string) (User, error) {
	doc, err := s.store.Get(ctx, docstore.Users, id)
	if err != nil {
		return User{}, err
	}
	var u User
	if err := docstore.Decode(doc, &u); err != nil {
		return User{}, err
	}
	u.ID = id
	u.PasswordHash = ""
	return u, nil
}

func (s *Service) byEmail(ctx context.Context, email string) (User, error) {
	snaps, err := s.store.Query(ctx, docstore.Users, docstore.Query{Limit: 1}.Where("email", docstore.Eq, email))
	if err != nil {
		return User{}, fmt.Errorf("find user: %w", err)
	}
	if len(snaps) == 0 {
		return User{}, ErrInvalidCredentials
	}
	var u User
	if err := snaps[0].DataTo(&u); err != nil {
		return User{}, err
	}
	u.ID = snaps[0].ID
	return u, nil
}

func (s *Service) log(ctx context.Context, e activity.Entry) {
	if s.activity != nil {
		s.activity.Log(ctx, e)
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
