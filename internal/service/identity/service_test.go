package identity

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/zhouzirui/contact-desk/backend/internal/model/operator"
)

var testSecret = []byte(strings.Repeat("s", MinSecretLength))

func newTestService(t *testing.T, revocations RevocationStore) *Service {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	require.NoError(t, err)

	ops := operator.NewMemoryStore([]operator.Operator{
		{Username: "ada@example.com", DisplayName: "Ada", PasswordHash: string(hash)},
	})
	svc, err := NewService(ops, revocations, Config{Secret: testSecret, TTL: time.Hour, Issuer: "contact-desk"}, zerolog.Nop())
	require.NoError(t, err)
	return svc
}

func TestNewServiceRejectsShortSecret(t *testing.T) {
	_, err := NewService(operator.NewMemoryStore(nil), nil, Config{Secret: []byte("short")}, zerolog.Nop())
	assert.Error(t, err)
}

func TestLoginAndVerify(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	token, err := svc.Login(ctx, "ada@example.com", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", token.Username)
	assert.WithinDuration(t, time.Now().Add(time.Hour), token.ExpiresAt, 5*time.Second)

	claims, err := svc.Verify(ctx, token.Value)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", claims.Subject)
	assert.Equal(t, "Ada", claims.DisplayName)
	assert.NotEmpty(t, claims.ID)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	_, err := svc.Login(ctx, "ada@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, "nobody@example.com", "correct horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	svc := newTestService(t, nil)
	token, err := svc.Login(context.Background(), "ada@example.com", "correct horse")
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = svc.Verify(context.Background(), token.Value)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsForeignSignatures(t *testing.T) {
	svc := newTestService(t, nil)

	claims := &Claims{RegisteredClaims: jwt.RegisteredClaims{
		ID:        "x",
		Subject:   "ada@example.com",
		Issuer:    "contact-desk",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(strings.Repeat("x", 32)))
	require.NoError(t, err)

	_, err = svc.Verify(context.Background(), forged)
	assert.ErrorIs(t, err, ErrInvalidToken)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = svc.Verify(context.Background(), unsigned)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.Verify(context.Background(), "not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestLogoutRevokesToken(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	token, err := svc.Login(ctx, "ada@example.com", "correct horse")
	require.NoError(t, err)
	require.NoError(t, svc.Logout(ctx, token.Value))

	_, err = svc.Verify(ctx, token.Value)
	assert.ErrorIs(t, err, ErrTokenRevoked)

	// a fresh login is unaffected
	again, err := svc.Login(ctx, "ada@example.com", "correct horse")
	require.NoError(t, err)
	_, err = svc.Verify(ctx, again.Value)
	assert.NoError(t, err)
}

func TestRedisRevocations(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	svc := newTestService(t, NewRedisRevocations(client))
	ctx := context.Background()

	token, err := svc.Login(ctx, "ada@example.com", "correct horse")
	require.NoError(t, err)
	require.NoError(t, svc.Logout(ctx, token.Value))

	_, err = svc.Verify(ctx, token.Value)
	assert.ErrorIs(t, err, ErrTokenRevoked)

	mr.FastForward(2 * time.Hour)
	revoked, err := NewRedisRevocations(client).IsRevoked(ctx, "unknown")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestMemoryRevocationsExpire(t *testing.T) {
	revocations := NewMemoryRevocations()
	ctx := context.Background()
	now := time.Now()
	revocations.now = func() time.Time { return now }

	require.NoError(t, revocations.Revoke(ctx, "jti", now.Add(time.Minute)))
	revoked, err := revocations.IsRevoked(ctx, "jti")
	require.NoError(t, err)
	assert.True(t, revoked)

	revocations.now = func() time.Time { return now.Add(2 * time.Minute) }
	revoked, err = revocations.IsRevoked(ctx, "jti")
	require.NoError(t, err)
	assert.False(t, revoked)
}
