package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/zhouzirui/contact-desk/backend/internal/metrics"
	"github.com/zhouzirui/contact-desk/backend/internal/model/operator"
)

var (
	ErrInvalidCredentials = errors.New("incorrect username or password")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenRevoked       = errors.New("token revoked")
)

// MinSecretLength is the shortest accepted HMAC signing secret.
const MinSecretLength = 32

// Claims carried by session tokens.
type Claims struct {
	DisplayName string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Token is a freshly issued session token.
type Token struct {
	Value     string    `json:"token"`
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Config holds the token signing parameters.
type Config struct {
	Secret []byte
	TTL    time.Duration
	Issuer string
}

// Service authenticates operators and issues and verifies session tokens.
type Service struct {
	operators   operator.Store
	revocations RevocationStore
	cfg         Config
	dummyHash   []byte
	now         func() time.Time
	logger      zerolog.Logger
}

// NewService validates cfg and builds the identity service.
func NewService(operators operator.Store, revocations RevocationStore, cfg Config, logger zerolog.Logger) (*Service, error) {
	if len(cfg.Secret) < MinSecretLength {
		return nil, fmt.Errorf("token secret must be at least %d bytes", MinSecretLength)
	}
	if cfg.TTL <= 0 {
		cfg.TTL = time.Hour
	}
	if revocations == nil {
		revocations = NewMemoryRevocations()
	}

	// Unknown usernames still pay for one bcrypt comparison.
	dummy, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), bcrypt.MinCost)
	if err != nil {
		return nil, fmt.Errorf("generate dummy hash: %w", err)
	}

	return &Service{
		operators:   operators,
		revocations: revocations,
		cfg:         cfg,
		dummyHash:   dummy,
		now:         time.Now,
		logger:      logger.With().Str("component", "identity").Logger(),
	}, nil
}

// Login checks credentials and issues a signed session token.
func (s *Service) Login(ctx context.Context, username, password string) (Token, error) {
	op, ok := s.operators.FindByUsername(username)
	if !ok {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		metrics.Logins.WithLabelValues("rejected").Inc()
		s.logger.Info().Str("username", username).Msg("login rejected: unknown operator")
		return Token{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(op.PasswordHash), []byte(password)); err != nil {
		metrics.Logins.WithLabelValues("rejected").Inc()
		s.logger.Info().Str("username", username).Msg("login rejected: bad password")
		return Token{}, ErrInvalidCredentials
	}

	now := s.now()
	expiresAt := now.Add(s.cfg.TTL)
	claims := &Claims{
		DisplayName: op.DisplayName,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   op.Username,
			Issuer:    s.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.cfg.Secret)
	if err != nil {
		metrics.Logins.WithLabelValues("error").Inc()
		return Token{}, fmt.Errorf("sign token: %w", err)
	}

	metrics.Logins.WithLabelValues("accepted").Inc()
	s.logger.Info().Str("username", op.Username).Time("expires_at", expiresAt).Msg("operator logged in")
	return Token{Value: signed, Username: op.Username, ExpiresAt: claims.ExpiresAt.Time}, nil
}

// Verify checks signature, issuer, expiry and revocation of a raw token.
func (s *Service) Verify(ctx context.Context, raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return s.cfg.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.ID == "" || claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject or id", ErrInvalidToken)
	}

	revoked, err := s.revocations.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return nil, ErrTokenRevoked
	}
	return claims, nil
}

// Logout revokes the token until it would have expired anyway.
func (s *Service) Logout(ctx context.Context, raw string) error {
	claims, err := s.Verify(ctx, raw)
	if err != nil {
		return err
	}
	if err := s.revocations.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	s.logger.Info().Str("username", claims.Subject).Msg("operator logged out")
	return nil
}
