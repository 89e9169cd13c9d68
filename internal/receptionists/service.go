package receptionists

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/wolfman30/frontdesk/internal/http/middleware"
	"github.com/wolfman30/frontdesk/pkg/logging"
)

var usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		return name
	})
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
	return v
}

// RegisterInput is a self-service registration request.
type RegisterInput struct {
	Username        string `json:"username" validate:"required,min=3,max=150,username"`
	Password        string `json:"password" validate:"required,min=8,max=72"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
}

// AuthConfig configures session issuing and the administrator identity.
type AuthConfig struct {
	JWTSecret         string
	SessionTTL        time.Duration
	AdminUsername     string
	AdminPasswordHash string
	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost int
}

// Session is a signed staff session.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Role      string    `json:"role"`
	Username  string    `json:"username"`
}

// Service registers receptionists, gates login on admin approval and issues sessions.
type Service struct {
	repo   Repository
	cfg    AuthConfig
	now    func() time.Time
	logger *logging.Logger
}

func NewService(repo Repository, cfg AuthConfig, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 12 * time.Hour
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		repo:   repo,
		cfg:    cfg,
		now:    func() time.Time { return time.Now().UTC() },
		logger: logger.Component("receptionists"),
	}
}

// Register creates an unapproved account.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Account, error) {
	in.Username = strings.TrimSpace(in.Username)
	if err := validate.Struct(in); err != nil {
		return nil, translate(err)
	}
	if s.cfg.AdminUsername != "" && strings.EqualFold(in.Username, s.cfg.AdminUsername) {
		return nil, ErrUsernameTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("receptionists: hash password: %w", err)
	}
	account := &Account{
		ID:           uuid.New(),
		Username:     in.Username,
		PasswordHash: string(hash),
		CreatedAt:    s.now(),
	}
	if err := s.repo.Create(ctx, account); err != nil {
		return nil, err
	}
	s.logger.Info("receptionists: account registered", "id", account.ID, "username", account.Username)
	return account, nil
}

// Login checks the password first and approval second, so an unapproved account
// is only revealed to someone who knows its password.
func (s *Service) Login(ctx context.Context, username, password string) (*Session, error) {
	account, err := s.repo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	if !account.Approved {
		return nil, ErrNotApproved
	}
	return s.issue(account.Username, middleware.RoleReceptionist)
}

// AdminLogin checks the configured administrator credentials.
func (s *Service) AdminLogin(username, password string) (*Session, error) {
	if s.cfg.AdminUsername == "" || s.cfg.AdminPasswordHash == "" {
		return nil, ErrAdminDisabled
	}
	userOK := subtle.ConstantTimeCompare([]byte(strings.TrimSpace(username)), []byte(s.cfg.AdminUsername)) == 1
	passOK := bcrypt.CompareHashAndPassword([]byte(s.cfg.AdminPasswordHash), []byte(password)) == nil
	if !userOK || !passOK {
		s.logger.Warn("receptionists: admin login rejected")
		return nil, ErrInvalidCredentials
	}
	return s.issue(s.cfg.AdminUsername, middleware.RoleAdmin)
}

func (s *Service) issue(username, role string) (*Session, error) {
	token, expires, err := middleware.IssueSessionToken(s.cfg.JWTSecret, username, role, s.cfg.SessionTTL, s.now())
	if err != nil {
		return nil, fmt.Errorf("receptionists: issue session: %w", err)
	}
	return &Session{Token: token, ExpiresAt: expires, Role: role, Username: username}, nil
}

// List returns every account, newest first.
func (s *Service) List(ctx context.Context) ([]Account, error) {
	return s.repo.List(ctx)
}

// Approve lets the account sign in.
func (s *Service) Approve(ctx context.Context, id uuid.UUID) (*Account, error) {
	if err := s.repo.Approve(ctx, id, s.now()); err != nil {
		return nil, err
	}
	s.logger.Info("receptionists: account approved", "id", id)
	return s.repo.Get(ctx, id)
}

// Reject removes a pending or approved account.
func (s *Service) Reject(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("receptionists: account removed", "id", id)
	return nil
}

func translate(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch {
		case fe.Tag() == "eqfield":
			msgs = append(msgs, "passwords do not match")
		case fe.Tag() == "required":
			msgs = append(msgs, fe.Field()+" is required")
		case fe.Tag() == "username":
			msgs = append(msgs, "username may contain only letters, digits and @/./+/-/_")
		default:
			msgs = append(msgs, fmt.Sprintf("%s must be %s %s characters", fe.Field(), boundWord(fe.Tag()), fe.Param()))
		}
	}
	return fmt.Errorf("%w: %s", ErrInvalidInput, strings.Join(msgs, "; "))
}

func boundWord(tag string) string {
	if tag == "max" {
		return "at most"
	}
	return "at least"
}
