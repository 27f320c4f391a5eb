package user

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Store,TokenIssuer,Auditor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"atrium/internal/audit"
	id "atrium/pkg/domain"
	dErrors "atrium/pkg/domain-errors"
	"atrium/pkg/password"
	"atrium/pkg/platform/sentinel"
)

// Store persists users. Lookup methods exclude soft-deleted rows unless
// stated otherwise; implementations return sentinel errors for services to
// translate exactly once.
type Store interface {
	Create(ctx context.Context, u *User) error
	Update(ctx context.Context, u *User) error
	FindByID(ctx context.Context, userID id.UserID) (*User, error)
	// FindByIDAny also returns soft-deleted rows (restore path).
	FindByIDAny(ctx context.Context, userID id.UserID) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)
	List(ctx context.Context, limit, offset int) ([]User, int, error)
	// DeletePermanently physically removes the row. Reserved for the explicit
	// permanent-delete operation.
	DeletePermanently(ctx context.Context, userID id.UserID) error
}

// TokenIssuer mints session credentials.
type TokenIssuer interface {
	Issue(ctx context.Context, userID id.UserID, role id.Role, ttl time.Duration) (string, error)
}

// Auditor records audit entries. Satisfied by audit.Recorder.
type Auditor interface {
	Record(ctx context.Context, entry audit.Entry)
}

// Service orchestrates account management and authentication.
type Service struct {
	store    Store
	tokens   TokenIssuer
	logger   *slog.Logger
	auditor  Auditor
	hashOpts *password.Params
}

// Option configures the Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditor(auditor Auditor) Option {
	return func(s *Service) {
		s.auditor = auditor
	}
}

// WithHashParams overrides the Argon2id parameters (tests use cheap ones).
func WithHashParams(params *password.Params) Option {
	return func(s *Service) {
		s.hashOpts = params
	}
}

func New(store Store, tokens TokenIssuer, opts ...Option) *Service {
	s := &Service{store: store, tokens: tokens}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var errInvalidCredentials = dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")

// Login verifies credentials for an active, non-deleted account and issues a
// session credential. All failure modes collapse into the same unauthorized
// error; failed attempts are audited at warning severity with no actor.
func (s *Service) Login(ctx context.Context, req *LoginRequest) (*User, string, error) {
	u, err := s.store.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.auditLoginFailure(ctx, req.Email, "unknown account")
			return nil, "", errInvalidCredentials
		}
		return nil, "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to load account")
	}

	if !u.CanAuthenticate() {
		s.auditLoginFailure(ctx, req.Email, "inactive account")
		return nil, "", errInvalidCredentials
	}

	ok, err := password.Verify(req.Password, u.PasswordHash)
	if err != nil || !ok {
		s.auditLoginFailure(ctx, req.Email, "password mismatch")
		return nil, "", errInvalidCredentials
	}

	tok, err := s.tokens.Issue(ctx, u.ID, u.Role, 0)
	if err != nil {
		return nil, "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue session")
	}

	actorID := u.ID
	s.record(ctx, audit.Entry{
		ActorID:     &actorID,
		Action:      audit.ActionLoginUser,
		EntityType:  "user",
		EntityID:    u.ID.String(),
		Description: fmt.Sprintf("user %s logged in", u.Username),
	})
	return u, tok, nil
}

// Logout only audits; the credential itself is stateless and expires
// naturally, the handler clears the cookie.
func (s *Service) Logout(ctx context.Context, userID id.UserID) {
	s.record(ctx, audit.Entry{
		Action:      audit.ActionLogoutUser,
		EntityType:  "user",
		EntityID:    userID.String(),
		Description: "user logged out",
	})
}

// Get returns a live user.
func (s *Service) Get(ctx context.Context, userID id.UserID) (*User, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "user ID required")
	}
	u, err := s.store.FindByID(ctx, userID)
	if err != nil {
		return nil, wrapUserErr(err, "failed to load user")
	}
	return u, nil
}

// LiveRole re-fetches the current role and active state. Implements
// authz.UserDirectory so the admin surface never trusts the token claim.
func (s *Service) LiveRole(ctx context.Context, userID id.UserID) (id.Role, bool, error) {
	u, err := s.store.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return "", false, sentinel.ErrNotFound
		}
		return "", false, err
	}
	return u.Role, u.CanAuthenticate(), nil
}

func (s *Service) auditLoginFailure(ctx context.Context, email, reason string) {
	s.record(ctx, audit.Entry{
		// No actor: the caller never proved who they are.
		Action:      audit.ActionLoginFailed,
		EntityType:  "user",
		Description: "login rejected",
		Severity:    audit.SeverityWarning,
		Metadata:    map[string]any{"email": email, "reason": reason},
	})
}

func (s *Service) record(ctx context.Context, entry audit.Entry) {
	if s.auditor != nil {
		s.auditor.Record(ctx, entry)
	}
}

func (s *Service) logError(ctx context.Context, msg string, err error, args ...any) {
	if s.logger != nil {
		s.logger.ErrorContext(ctx, msg, append([]any{"error", err}, args...)...)
	}
}

// wrapUserErr translates store sentinels into domain errors exactly once.
func wrapUserErr(err error, msg string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "user not found")
	case errors.Is(err, sentinel.ErrAlreadyUsed):
		return dErrors.New(dErrors.CodeConflict, "email or username already in use")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, msg)
	}
}

// mangleUsername frees a unique username for reuse when the owning account is
// soft-deleted. Soft-deleted rows stay visible to uniqueness constraints, so
// the value itself has to move aside.
func mangleUsername(username string, userID id.UserID) string {
	return fmt.Sprintf("%s#deleted-%.8s", username, uuid.UUID(userID).String())
}

// unmangleUsername recovers the original username from a mangled one.
// Returns the input unchanged if it was never mangled.
func unmangleUsername(username string) string {
	if idx := strings.LastIndex(username, "#deleted-"); idx > 0 {
		return username[:idx]
	}
	return username
}
