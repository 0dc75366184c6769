package auth

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/xenking/barista-pos/internal/domain/user"
)

var (
	// ErrInvalidCredentials is returned by Login for an unknown email or a
	// wrong password. The two cases are indistinguishable to callers.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrUserGone is returned when a valid token names a deleted user.
	ErrUserGone = errors.New("the user belonging to this token no longer exists")
	// ErrNoToken is wrapped in a TokenError when the request carried no token.
	ErrNoToken = errors.New("no token")
)

// TokenError indicates a missing, malformed, expired or forged token.
type TokenError struct {
	Err error
}

func (e *TokenError) Error() string { return "invalid token: " + e.Err.Error() }

func (e *TokenError) Unwrap() error { return e.Err }

// Expired reports whether the token was well formed but past its expiry.
func (e *TokenError) Expired() bool { return errors.Is(e.Err, jwt.ErrTokenExpired) }

// FieldError reports a registration or login field that failed validation.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError collects every field that failed validation.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Field + ": " + f.Message
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

const (
	// DefaultBcryptCost is used when no cost is configured.
	DefaultBcryptCost = 12

	minPasswordLen = 6
	minNameLen     = 2
)

// RegisterRequest is the input of Register.
type RegisterRequest struct {
	Email    string
	Password string
	Name     string
}

// Session is an authenticated user together with its token.
type Session struct {
	User  *user.User
	Token string
}

// Service registers users, checks credentials and resolves session tokens.
type Service struct {
	users  user.Repository
	tokens *Tokens
	cost   int
	now    func() time.Time
}

// NewService creates an auth Service. A cost of zero selects DefaultBcryptCost.
func NewService(users user.Repository, tokens *Tokens, cost int) *Service {
	if cost == 0 {
		cost = DefaultBcryptCost
	}
	return &Service{users: users, tokens: tokens, cost: cost, now: time.Now}
}

// NormalizeEmail trims and lowercases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

func validateRegister(req RegisterRequest) error {
	var fields []FieldError
	if !validEmail(req.Email) {
		fields = append(fields, FieldError{Field: "email", Message: "Please provide a valid email"})
	}
	if len(req.Password) < minPasswordLen {
		fields = append(fields, FieldError{Field: "password", Message: "Password must be at least 6 characters long"})
	}
	if len(strings.TrimSpace(req.Name)) < minNameLen {
		fields = append(fields, FieldError{Field: "name", Message: "Name must be at least 2 characters long"})
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// Register creates an account and returns a session for it.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*Session, error) {
	req.Email = NormalizeEmail(req.Email)
	if err := validateRegister(req); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return nil, errors.Wrap(err, "hash password")
	}
	u := &user.User{
		ID:           uuid.NewString(),
		Email:        req.Email,
		PasswordHash: string(hash),
		Name:         strings.TrimSpace(req.Name),
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			return nil, user.ErrEmailTaken
		}
		return nil, errors.Wrap(err, "create user")
	}
	zctx.From(ctx).Info("User registered", zap.String("user_id", u.ID))
	return s.session(u)
}

// Login checks credentials and returns a fresh session.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	email = NormalizeEmail(email)
	var fields []FieldError
	if !validEmail(email) {
		fields = append(fields, FieldError{Field: "email", Message: "Please provide a valid email"})
	}
	if password == "" {
		fields = append(fields, FieldError{Field: "password", Message: "Password is required"})
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, errors.Wrap(err, "get user")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.session(u)
}

// Authenticate resolves a session token to its user. The user is re-read on
// every call so deleted accounts lose access immediately.
func (s *Service) Authenticate(ctx context.Context, token string) (*user.User, error) {
	if token == "" {
		return nil, &TokenError{Err: ErrNoToken}
	}
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, err
	}
	u, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrUserGone
		}
		return nil, errors.Wrap(err, "get user")
	}
	return u, nil
}

// TokenTTL is the lifetime of issued session tokens.
func (s *Service) TokenTTL() time.Duration { return s.tokens.TTL() }

func (s *Service) session(u *user.User) (*Session, error) {
	token, err := s.tokens.Issue(u.ID, u.Email)
	if err != nil {
		return nil, err
	}
	return &Session{User: u, Token: token}, nil
}
