package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/example/team-calendar/internal/persistence"
	"github.com/example/team-calendar/internal/sanitize"
)

// AuthService owns the user lifecycle: registration, lookup, update,
// deletion and password verification. Free-text fields are entity-encoded
// before they reach the repository and decoded on the way out, so callers
// always see their original input.
type AuthService struct {
	users       persistence.UserRepository
	hashParams  Argon2idParams
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewAuthService wires dependencies for the auth service.
func NewAuthService(users persistence.UserRepository, idGenerator func() string, now func() time.Time, logger *slog.Logger) *AuthService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &AuthService{
		users:       users,
		hashParams:  DefaultArgon2idParams,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *AuthService) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AuthService", operation, attrs...)
}

// CreateUser registers a new account. Uniqueness is enforced on the encoded
// email first, then the encoded username. The returned user carries the
// original (decoded) text and a blank password.
func (s *AuthService) CreateUser(ctx context.Context, username, email, password string) (User, error) {
	if s == nil {
		return User{}, fmt.Errorf("AuthService is nil")
	}
	if s.users == nil {
		return User{}, fmt.Errorf("user repository not configured")
	}

	logger := s.log(ctx, "CreateUser", "username", username)

	vErr := &ValidationError{}
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" {
		vErr.add("username", "username is required")
	}
	if email == "" {
		vErr.add("email", "email is required")
	} else if _, err := mail.ParseAddress(email); err != nil {
		vErr.add("email", "email is invalid")
	}
	if password == "" {
		vErr.add("password", "password is required")
	}
	if vErr.HasErrors() {
		return User{}, vErr
	}

	encodedEmail := sanitize.Encode(email)
	encodedUsername := sanitize.Encode(username)

	if _, err := s.users.GetUserByEmail(ctx, encodedEmail); err == nil {
		return User{}, fmt.Errorf("%w: email already in use", ErrAlreadyExists)
	} else if !errors.Is(err, persistence.ErrNotFound) {
		return User{}, err
	}
	if _, err := s.users.GetUserByUsername(ctx, encodedUsername); err == nil {
		return User{}, fmt.Errorf("%w: username already in use", ErrAlreadyExists)
	} else if !errors.Is(err, persistence.ErrNotFound) {
		return User{}, err
	}

	hash, err := HashPassword(password, s.hashParams)
	if err != nil {
		return User{}, err
	}

	now := s.now()
	record := persistence.User{
		ID:           s.idGenerator(),
		Username:     encodedUsername,
		Email:        encodedEmail,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.CreateUser(ctx, record); err != nil {
		if errors.Is(err, persistence.ErrDuplicate) {
			return User{}, ErrAlreadyExists
		}
		logger.ErrorContext(ctx, "user creation failed", "error", err, "error_kind", ErrorKind(err))
		return User{}, err
	}

	logger.With("user_id", record.ID).InfoContext(ctx, "user created")
	return decodeUser(record), nil
}

// GetUser resolves a user by identifier.
func (s *AuthService) GetUser(ctx context.Context, id string) (User, error) {
	if s == nil {
		return User{}, fmt.Errorf("AuthService is nil")
	}
	if vErr := requireSafeID("id", id); vErr != nil {
		return User{}, vErr
	}

	record, err := s.users.GetUser(ctx, id)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	return decodeUser(record), nil
}

// FindUserByEmail resolves a user by email address.
func (s *AuthService) FindUserByEmail(ctx context.Context, email string) (User, error) {
	if s == nil {
		return User{}, fmt.Errorf("AuthService is nil")
	}

	record, err := s.users.GetUserByEmail(ctx, sanitize.Encode(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	return decodeUser(record), nil
}

// FindUserByUsername resolves a user by username.
func (s *AuthService) FindUserByUsername(ctx context.Context, username string) (User, error) {
	if s == nil {
		return User{}, fmt.Errorf("AuthService is nil")
	}

	record, err := s.users.GetUserByUsername(ctx, sanitize.Encode(strings.TrimSpace(username)))
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	return decodeUser(record), nil
}

// UpdateUser applies the allow-listed fields of the patch: username, email
// and password. A patch carrying a different id is rejected with
// ErrForbidden; anything else in the patch is ignored.
func (s *AuthService) UpdateUser(ctx context.Context, id string, patch UserPatch) (User, error) {
	if s == nil {
		return User{}, fmt.Errorf("AuthService is nil")
	}
	if vErr := requireSafeID("id", id); vErr != nil {
		return User{}, vErr
	}

	logger := s.log(ctx, "UpdateUser", "user_id", id)

	existing, err := s.users.GetUser(ctx, id)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}

	if patch.ID != "" && patch.ID != id {
		return User{}, ErrForbidden
	}

	updated := existing
	if patch.Username != nil {
		trimmed := strings.TrimSpace(*patch.Username)
		if trimmed == "" {
			return User{}, invalidField("username", "username is required")
		}
		updated.Username = sanitize.Encode(trimmed)
	}
	if patch.Email != nil {
		trimmed := strings.TrimSpace(*patch.Email)
		if _, err := mail.ParseAddress(trimmed); err != nil {
			return User{}, invalidField("email", "email is invalid")
		}
		updated.Email = sanitize.Encode(trimmed)
	}
	if patch.Password != nil {
		if *patch.Password == "" {
			return User{}, invalidField("password", "password is required")
		}
		hash, err := HashPassword(*patch.Password, s.hashParams)
		if err != nil {
			return User{}, err
		}
		updated.PasswordHash = hash
	}
	updated.UpdatedAt = s.now()

	if err := s.users.UpdateUser(ctx, updated); err != nil {
		switch {
		case errors.Is(err, persistence.ErrNotFound):
			return User{}, ErrNotFound
		case errors.Is(err, persistence.ErrDuplicate):
			return User{}, ErrAlreadyExists
		}
		logger.ErrorContext(ctx, "user update failed", "error", err, "error_kind", ErrorKind(err))
		return User{}, err
	}

	logger.InfoContext(ctx, "user updated")
	return decodeUser(updated), nil
}

// DeleteUser removes a user. Owned calendars and their appointments are
// removed by the storage layer's referential cascade.
func (s *AuthService) DeleteUser(ctx context.Context, id string) error {
	if s == nil {
		return fmt.Errorf("AuthService is nil")
	}
	if vErr := requireSafeID("id", id); vErr != nil {
		return vErr
	}

	logger := s.log(ctx, "DeleteUser", "user_id", id)

	if _, err := s.users.GetUser(ctx, id); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}

	if err := s.users.DeleteUser(ctx, id); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return ErrNotFound
		}
		logger.ErrorContext(ctx, "user deletion failed", "error", err, "error_kind", ErrorKind(err))
		return ErrStorageFailed
	}

	logger.InfoContext(ctx, "user deleted")
	return nil
}

// VerifyPassword checks a candidate password against the stored hash for
// the account registered under email.
func (s *AuthService) VerifyPassword(ctx context.Context, email, password string) (User, error) {
	if s == nil {
		return User{}, fmt.Errorf("AuthService is nil")
	}

	record, err := s.users.GetUserByEmail(ctx, sanitize.Encode(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}

	if err := ComparePassword(record.PasswordHash, password); err != nil {
		return User{}, ErrInvalidCredentials
	}

	return decodeUser(record), nil
}

// decodeUser maps a storage record to the service view: text decoded,
// password blanked.
func decodeUser(record persistence.User) User {
	return User{
		ID:        record.ID,
		Username:  sanitize.Decode(record.Username),
		Email:     sanitize.Decode(record.Email),
		Password:  "",
		CreatedAt: record.CreatedAt,
		UpdatedAt: record.UpdatedAt,
	}
}
