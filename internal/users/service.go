package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/michaelsproul/website/internal/store"
	"github.com/michaelsproul/website/pkg"
)

var (
	// ErrDuplicateUser is returned when the username is already taken.
	ErrDuplicateUser = errors.New("someone with that username already exists")
	// ErrInvalidCredentials covers both an unknown username and a wrong
	// password, so a caller rendering the failure cannot be used for
	// username enumeration.
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// Service implements user management on top of a DataStore and the bcrypt
// hashing primitive.
type Service struct {
	store store.DataStore
	codec Codec

	// hash funcs are injectable so tests can avoid bcrypt's cost
	HashFunc  func(password string) (string, error)
	CheckFunc func(password, hash string) bool
}

func NewService(ds store.DataStore) *Service {
	return &Service{
		store:     ds,
		HashFunc:  pkg.HashPassword,
		CheckFunc: pkg.CheckPasswordHash,
	}
}

// CreateUser hashes the password and stores a new user record, returning
// it with the hash scrubbed. The lookup before the insert is a fast path
// for a friendly error, the store's unique index on the username is the
// authoritative duplicate check.
func (s *Service) CreateUser(ctx context.Context, username, password string, admin bool) (*User, error) {
	kind := "user"
	if admin {
		kind = "admin"
	}
	log.Infof("creating new %s %q", kind, username)

	if _, err := store.FindBy(ctx, s.store, s.codec, Collection, store.Filter{"name": username}); err == nil {
		return nil, ErrDuplicateUser
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("check existing user: %w", err)
	}

	hash, err := s.HashFunc(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := User{
		UUID:         uuid.New(),
		Name:         username,
		PasswordHash: hash,
		Admin:        admin,
	}

	if _, err := store.InsertRecord(ctx, s.store, s.codec, Collection, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrDuplicateUser
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	log.Debugf("user %q created", username)

	scrubbed := user.Scrubbed()
	return &scrubbed, nil
}

// Validate checks the credentials and returns the matching user with the
// hash scrubbed. An unknown username and a wrong password are deliberately
// indistinguishable to the caller.
func (s *Service) Validate(ctx context.Context, username, password string) (*User, error) {
	log.Debugf("validating username and password for %q", username)

	user, err := store.FindBy(ctx, s.store, s.codec, Collection, store.Filter{"name": username})
	if errors.Is(err, store.ErrNotFound) {
		log.Debugf("user not found: %q", username)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}

	if !s.CheckFunc(password, user.PasswordHash) {
		log.Debugf("incorrect password for %q", username)
		return nil, ErrInvalidCredentials
	}

	scrubbed := user.Scrubbed()
	return &scrubbed, nil
}

// GetByID returns the user with the given id, hash scrubbed, or
// store.ErrNotFound.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	user, err := store.FindBy(ctx, s.store, s.codec, Collection, store.Filter{"uuid": id.String()})
	if err != nil {
		return nil, err
	}
	scrubbed := user.Scrubbed()
	return &scrubbed, nil
}

// ListUsers returns every user, hashes scrubbed.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	all, err := store.FindAll(ctx, s.store, s.codec, Collection)
	if err != nil {
		return nil, fmt.Errorf("fetch user list: %w", err)
	}
	for i := range all {
		all[i] = all[i].Scrubbed()
	}
	return all, nil
}

// NumUsers returns the current number of users.
func (s *Service) NumUsers(ctx context.Context) (int, error) {
	all, err := store.FindAll(ctx, s.store, s.codec, Collection)
	if err != nil {
		return 0, err
	}
	return len(all), nil
}
