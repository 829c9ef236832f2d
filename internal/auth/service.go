package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/firewatch/firewatch/internal/access"
	"github.com/firewatch/firewatch/internal/shared"
)

// Mailer queues outbound e-mail.
type Mailer interface {
	EnqueueMail(ctx context.Context, to, subject, body string) error
}

// Service wraps authentication business rules.
type Service struct {
	repo   Repository
	codes  *CodeStore
	tokens *TokenIssuer
	mailer Mailer
	logger *slog.Logger
	now    func() time.Time
	cost   int
}

// NewService constructs a new Service.
func NewService(repo Repository, codes *CodeStore, tokens *TokenIssuer, mailer Mailer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:   repo,
		codes:  codes,
		tokens: tokens,
		mailer: mailer,
		logger: logger,
		now:    time.Now,
		cost:   bcrypt.DefaultCost,
	}
}

// RegisterInput carries a self-registration request.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// Session is the outcome of a completed login verification.
type Session struct {
	Account   *Account
	Principal *access.Principal
	Redirect  string
	Token     string
	ExpiresAt time.Time
}

// Register creates an unverified GUEST account and sends its REGISTER code.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Account, error) {
	email := normalizeEmail(in.Email)
	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, fmt.Errorf("%w: email already registered", shared.ErrDuplicate)
	} else if !errors.Is(err, shared.ErrNotFound) {
		return nil, fmt.Errorf("auth: lookup email: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("auth: hash password: %w", err)
	}
	account := Account{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(in.Name),
		Email:        email,
		PasswordHash: string(hash),
		Role:         string(access.RoleGuest),
		IsActive:     true,
	}
	if err := s.repo.Create(ctx, account); err != nil {
		return nil, fmt.Errorf("auth: create account: %w", err)
	}
	if err := s.sendCode(ctx, email, PurposeRegister); err != nil {
		return nil, err
	}
	s.logger.Info("account registered", slog.String("user_id", account.ID))
	return &account, nil
}

// Login checks the credentials and e-mails a LOGIN code. The caller is not
// signed in until the code is verified.
func (s *Service) Login(ctx context.Context, email, password string) (*Account, error) {
	account, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("auth: lookup email: %w", err)
	}
	if !account.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if account.EmailVerifiedAt == nil {
		return nil, shared.ErrEmailNotVerified
	}
	if err := s.sendCode(ctx, account.Email, PurposeLogin); err != nil {
		return nil, err
	}
	return account, nil
}

// VerifyRegistration confirms the e-mail address behind a REGISTER code.
func (s *Service) VerifyRegistration(ctx context.Context, email, code string) error {
	if err := s.codes.Consume(ctx, email, PurposeRegister, code); err != nil {
		return err
	}
	if err := s.repo.MarkVerified(ctx, email, s.now()); err != nil {
		return fmt.Errorf("auth: mark verified: %w", err)
	}
	return nil
}

// VerifyLogin completes a login. It returns the landing path of the role and
// a bearer token for API clients.
func (s *Service) VerifyLogin(ctx context.Context, email, code string) (*Session, error) {
	if err := s.codes.Consume(ctx, email, PurposeLogin, code); err != nil {
		return nil, err
	}
	account, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("auth: lookup email: %w", err)
	}
	principal := account.Principal()
	if principal == nil {
		return nil, shared.ErrInvalidCredentials
	}
	token, expiresAt, err := s.tokens.Issue(account.ID)
	if err != nil {
		return nil, err
	}
	return &Session{
		Account:   account,
		Principal: principal,
		Redirect:  principal.Role.HomePath(),
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}

// Resend issues a fresh code. Unknown addresses and codes that no longer make
// sense are ignored silently so the endpoint does not reveal accounts.
func (s *Service) Resend(ctx context.Context, email string, purpose Purpose) error {
	if !purpose.Valid() {
		return fmt.Errorf("%w: unknown purpose", shared.ErrValidation)
	}
	account, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("auth: lookup email: %w", err)
	}
	verified := account.EmailVerifiedAt != nil
	if !account.IsActive || (purpose == PurposeRegister && verified) || (purpose == PurposeLogin && !verified) {
		return nil
	}
	return s.sendCode(ctx, account.Email, purpose)
}

func (s *Service) sendCode(ctx context.Context, email string, purpose Purpose) error {
	code, err := s.codes.Issue(ctx, email, purpose)
	if err != nil {
		return err
	}
	subject, body := codeMessage(purpose, code, s.codes.ttl)
	if err := s.mailer.EnqueueMail(ctx, email, subject, body); err != nil {
		return fmt.Errorf("auth: enqueue code mail: %w", err)
	}
	return nil
}

func codeMessage(purpose Purpose, code string, ttl time.Duration) (string, string) {
	subject := "Your Firewatch login code"
	if purpose == PurposeRegister {
		subject = "Confirm your Firewatch account"
	}
	body := fmt.Sprintf("Your verification code is %s. It expires in %d minutes.", code, int(ttl.Minutes()))
	return subject, body
}
