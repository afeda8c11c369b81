// Package auth signs users in and out with server-side sessions and loads the current user
// for each request.
package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/alexedwards/scs/v2"
	"github.com/kumagoya/kumagoya/internal/config"
	"github.com/kumagoya/kumagoya/internal/model"
	"github.com/kumagoya/kumagoya/internal/repository"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

var authLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	authLogger = l
}

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrTooManyRequests    = errors.New(config.ErrTooManyRequest)
	ErrEmailTaken         = errors.New("email already registered")
)

var EmailRX = regexp.MustCompile(`^[a-zA-Z0-9.!#$%&'*+/=?^_{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$`)

const bcryptCost = 12

// FormError lists field problems of a sign-up form.
type FormError struct {
	Errors map[string]string
}

func (e *FormError) Error() string {
	return fmt.Sprintf("invalid form: %+v", e.Errors)
}

type Options struct {
	MinPassword int
	RateLimit   float64
	RateBurst   int
}

type Service struct {
	users       repository.UserRepository
	sessions    *scs.SessionManager
	limiter     *limiter
	minPassword int
}

func NewService(users repository.UserRepository, sessions *scs.SessionManager, opts Options) *Service {
	if opts.MinPassword <= 0 {
		opts.MinPassword = 6
	}
	return &Service{
		users:       users,
		sessions:    sessions,
		limiter:     newLimiter(opts.RateLimit, opts.RateBurst),
		minPassword: opts.MinPassword,
	}
}

func HashPassword(password string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
}

// SignIn checks the credentials and binds the user to the session in ctx. ip is the
// client address used for rate limiting.
func (s *Service) SignIn(ctx context.Context, ip, email, password string) (*model.User, error) {
	if !s.limiter.allow(ip) {
		return nil, ErrTooManyRequests
	}

	user, err := s.users.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, repository.ErrNotFound) {
		// Spend the same time as a wrong password.
		bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("error looking up user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		authLogger.Info().Str("user_id", string(user.ID)).Msg("Failed sign in")
		return nil, ErrInvalidCredentials
	}

	if err := s.startSession(ctx, user.ID); err != nil {
		return nil, err
	}
	authLogger.Info().Str("user_id", string(user.ID)).Msg("User signed in")
	return user, nil
}

// SignUp creates an account and signs it in.
func (s *Service) SignUp(ctx context.Context, ip, email, password string) (*model.User, error) {
	if !s.limiter.allow(ip) {
		return nil, ErrTooManyRequests
	}

	email = strings.ToLower(strings.TrimSpace(email))
	formErr := &FormError{Errors: map[string]string{}}
	if !EmailRX.MatchString(email) {
		formErr.Errors["email"] = "メールアドレスの形式が正しくありません"
	}
	if utf8.RuneCountInString(password) < s.minPassword {
		formErr.Errors["password"] = fmt.Sprintf("パスワードは%d文字以上にしてください", s.minPassword)
	}
	if len(formErr.Errors) > 0 {
		return nil, formErr
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	user := &model.User{Email: email, PasswordHash: hash}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	if err := s.startSession(ctx, user.ID); err != nil {
		return nil, err
	}
	authLogger.Info().Str("user_id", string(user.ID)).Msg("User signed up")
	return user, nil
}

func (s *Service) startSession(ctx context.Context, id model.UserID) error {
	if err := s.sessions.RenewToken(ctx); err != nil {
		return fmt.Errorf("error renewing session token: %w", err)
	}
	s.sessions.Put(ctx, config.SessionKeyUserID, string(id))
	return nil
}

func (s *Service) SignOut(ctx context.Context) error {
	if err := s.sessions.Destroy(ctx); err != nil {
		return fmt.Errorf("error destroying session: %w", err)
	}
	return nil
}

// SessionUserID is the id bound to the session in ctx, or "".
func (s *Service) SessionUserID(ctx context.Context) model.UserID {
	return model.UserID(s.sessions.GetString(ctx, config.SessionKeyUserID))
}

func (s *Service) Flash(ctx context.Context, msg string) {
	s.sessions.Put(ctx, config.SessionKeyFlash, msg)
}

func (s *Service) PopFlash(ctx context.Context) string {
	return s.sessions.PopString(ctx, config.SessionKeyFlash)
}

var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("kumagoya-dummy-password"), bcryptCost)
