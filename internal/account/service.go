package account

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/geocoder89/speakup/internal/auth"
	"github.com/geocoder89/speakup/internal/config"
	"github.com/geocoder89/speakup/internal/domain/user"
	"github.com/geocoder89/speakup/internal/security"
)

// CredentialStore persists users. Every write is a single-document patch.
type CredentialStore interface {
	FindByEmail(ctx context.Context, email string) (user.User, error)
	FindByID(ctx context.Context, id string) (user.User, error)
	Create(ctx context.Context, u user.User) (user.User, error)
	UpdateByEmail(ctx context.Context, email string, patch user.Patch) error
	UpdateByID(ctx context.Context, id string, patch user.Patch) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]user.User, error)
}

type EmailDispatcher interface {
	SendConfirmation(ctx context.Context, email, token string) error
	SendReset(ctx context.Context, email, token string) error
}

type ObjectStorage interface {
	Put(ctx context.Context, bucket, key string, data []byte, contentType string) error
	Remove(ctx context.Context, bucket, key string) error
	PublicURL(bucket, key string) string
}

type TokenCodec interface {
	IssueAccessToken(subject string) (string, time.Time, error)
	Decode(token string) (*auth.Claims, error)
}

// Recorder receives auth outcomes for metrics. Optional.
type Recorder interface {
	AuthEvent(event, result string)
	TokenRenewed()
}

type Deps struct {
	Store   CredentialStore
	Hasher  security.Hasher
	Tokens  TokenCodec
	Mailer  EmailDispatcher
	Storage ObjectStorage

	Metrics Recorder
	Logger  *slog.Logger
	Clock   func() time.Time
}

type Settings struct {
	VerificationTTL  time.Duration
	RenewalThreshold time.Duration
	AvatarBucket     string
}

func SettingsFrom(cfg config.Config) Settings {
	return Settings{
		VerificationTTL:  cfg.Auth.VerificationTTL,
		RenewalThreshold: cfg.Auth.RenewalThreshold,
		AvatarBucket:     cfg.S3.AvatarBucket,
	}
}

type Service struct {
	store    CredentialStore
	hasher   security.Hasher
	tokens   TokenCodec
	mailer   EmailDispatcher
	storage  ObjectStorage
	metrics  Recorder
	log      *slog.Logger
	now      func() time.Time
	settings Settings

	// verified against when the email is unknown, so login timing does not leak existence
	dummyHash string
}

func NewService(deps Deps, settings Settings) (*Service, error) {
	if deps.Store == nil {
		return nil, errors.New("credential store is required")
	}
	if deps.Hasher == nil {
		return nil, errors.New("password hasher is required")
	}
	if deps.Tokens == nil {
		return nil, errors.New("token codec is required")
	}
	if deps.Mailer == nil {
		return nil, errors.New("email dispatcher is required")
	}

	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.Metrics == nil {
		deps.Metrics = noopRecorder{}
	}

	dummy, err := deps.Hasher.Hash("speakup-timing-equaliser")
	if err != nil {
		return nil, err
	}

	return &Service{
		store:     deps.Store,
		hasher:    deps.Hasher,
		tokens:    deps.Tokens,
		mailer:    deps.Mailer,
		storage:   deps.Storage,
		metrics:   deps.Metrics,
		log:       deps.Logger,
		now:       deps.Clock,
		settings:  settings,
		dummyHash: dummy,
	}, nil
}

// Message is the acknowledgement returned by operations without a payload.
type Message struct {
	Message string `json:"message"`
}

func (s *Service) hashPassword(plain string) (string, error) {
	hash, err := s.hasher.Hash(plain)
	if err != nil {
		s.log.Error("password hashing failed", "err", err)
		return "", fault(KindHashingFailure, "hash password", err)
	}
	return hash, nil
}

func (s *Service) checkPassword(plain string) error {
	if err := security.ValidatePassword(plain); err != nil {
		return reject(KindWeakPassword, err)
	}
	return nil
}

// findByEmail maps store lookups onto the account error kinds.
func (s *Service) findByEmail(ctx context.Context, email string) (user.User, error) {
	u, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return user.User{}, fail(KindUserNotFound, "user not found")
		}
		return user.User{}, fault(KindInternal, "find user by email", err)
	}
	return u, nil
}

func (s *Service) findByID(ctx context.Context, id string) (user.User, error) {
	u, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return user.User{}, fail(KindUserNotFound, "user not found")
		}
		return user.User{}, fault(KindInternal, "find user by id", err)
	}
	return u, nil
}

// emailTaken reports whether another account already uses email.
func (s *Service) emailTaken(ctx context.Context, email string) (bool, error) {
	_, err := s.store.FindByEmail(ctx, email)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, user.ErrNotFound) {
		return false, nil
	}
	return false, fault(KindInternal, "check email", err)
}

type noopRecorder struct{}

func (noopRecorder) AuthEvent(string, string) {}
func (noopRecorder) TokenRenewed()            {}
