// Package services contains server-side business logic. This file implements
// AccountService, which registers uploaders, logs them in, and maps session
// tokens back to an identity.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/durvaajgaonkar/secure-file-storage-system/internal/common"
	"github.com/durvaajgaonkar/secure-file-storage-system/internal/cryptox"
	"github.com/durvaajgaonkar/secure-file-storage-system/internal/dbx"
	"github.com/durvaajgaonkar/secure-file-storage-system/internal/server/auth"
	"github.com/durvaajgaonkar/secure-file-storage-system/internal/server/config"
	"github.com/durvaajgaonkar/secure-file-storage-system/internal/server/models"
	"github.com/durvaajgaonkar/secure-file-storage-system/internal/server/repositories/repomanager"
)

// MinPasswordLen is the shortest password Register accepts.
const MinPasswordLen = 8

// Session is what a successful Register or Login hands back to the caller.
type Session struct {
	Token     string
	ExpiresAt time.Time
	Identity  auth.Identity
}

// AccountService provides the account operations behind the HTTP API.
type AccountService struct {
	db              *sql.DB
	repomanager     repomanager.RepositoryManager
	jwtSecret       []byte
	sessionValidity time.Duration
	now             func() time.Time
	newSalt         func() ([]byte, error)
}

// NewAccountService constructs an AccountService from repositories and
// server config.
func NewAccountService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *AccountService {
	return &AccountService{
		db:              db,
		repomanager:     m,
		jwtSecret:       []byte(cfg.SecretKey),
		sessionValidity: cfg.SessionValidityDuration,
		now:             time.Now,
		newSalt:         cryptox.NewSalt,
	}
}

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	at := strings.IndexByte(email, '@')
	return at > 0 && at < len(email)-1 && !strings.ContainsAny(email, " \r\n\t")
}

// Register creates the account and opens its first session. A taken email
// yields common.ErrorAlreadyExists.
func (s *AccountService) Register(ctx context.Context, email, password string) (*Session, error) {
	email = NormalizeEmail(email)
	if !validEmail(email) || len(password) < MinPasswordLen {
		return nil, common.ErrorInvalidRequest
	}

	salt, err := s.newSalt()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorEntropy, err)
	}
	user := &models.User{
		Email:        email,
		Salt:         salt,
		PasswordHash: cryptox.HashPassword([]byte(password), salt),
	}

	var session *models.Session
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		users := s.repomanager.Users(tx)

		_, err := users.GetByEmail(ctx, email)
		switch {
		case err == nil:
			return common.ErrorAlreadyExists
		case !errors.Is(err, common.ErrorNotFound):
			return err
		}

		created, err := users.Create(ctx, user)
		if err != nil {
			return err
		}
		user = created

		session, err = s.repomanager.Sessions(tx).Create(ctx, user.ID, s.sessionValidity)
		return err
	})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("error registering user: %w", err)
	}

	return s.issue(user, session)
}

// Login verifies credentials and opens a new session. Unknown emails and
// wrong passwords both yield common.ErrorUnauthorized.
func (s *AccountService) Login(ctx context.Context, email, password string) (*Session, error) {
	email = NormalizeEmail(email)

	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			// Same argon2 cost as a real check.
			cryptox.HashPassword([]byte(password), make([]byte, cryptox.SaltSize))
			return nil, common.ErrorUnauthorized
		}
		return nil, fmt.Errorf("%w: looking up user: %w", common.ErrorInternal, err)
	}

	if !cryptox.VerifyPassword([]byte(password), user.Salt, user.PasswordHash) {
		return nil, common.ErrorUnauthorized
	}

	session, err := s.repomanager.Sessions(s.db).Create(ctx, user.ID, s.sessionValidity)
	if err != nil {
		return nil, fmt.Errorf("%w: creating session: %w", common.ErrorInternal, err)
	}
	return s.issue(user, session)
}

// Logout revokes the session. Unknown sessions are ignored.
func (s *AccountService) Logout(ctx context.Context, sessionID string) error {
	if err := s.repomanager.Sessions(s.db).Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("error deleting session: %w", err)
	}
	return nil
}

// Authenticate verifies a token and checks that its session is still live.
// Token problems surface as common.ErrInvalidToken or common.ErrTokenExpired;
// a revoked session as common.ErrorUnauthorized.
func (s *AccountService) Authenticate(ctx context.Context, token string) (auth.Identity, error) {
	id, err := auth.ParseToken(token, s.jwtSecret)
	if err != nil {
		return auth.Identity{}, err
	}

	session, err := s.repomanager.Sessions(s.db).Find(ctx, id.SessionID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return auth.Identity{}, common.ErrorUnauthorized
		}
		return auth.Identity{}, fmt.Errorf("%w: finding session: %w", common.ErrorInternal, err)
	}
	if session.UserID != id.UserID {
		return auth.Identity{}, common.ErrorUnauthorized
	}
	if !session.ExpiresAt.After(s.now()) {
		return auth.Identity{}, common.ErrTokenExpired
	}
	return id, nil
}

// DeleteExpiredSessions drops session rows past their expiry.
func (s *AccountService) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	return s.repomanager.Sessions(s.db).DeleteExpired(ctx)
}

func (s *AccountService) issue(user *models.User, session *models.Session) (*Session, error) {
	id := auth.Identity{UserID: user.ID, Email: user.Email, SessionID: session.ID}
	token, err := auth.GenerateToken(id, s.jwtSecret, session.ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("%w: signing token: %w", common.ErrorInternal, err)
	}
	return &Session{Token: token, ExpiresAt: session.ExpiresAt, Identity: id}, nil
}
