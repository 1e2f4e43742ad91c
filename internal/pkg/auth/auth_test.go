package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/circlehub/internal/app/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

func newTestService() *JWTService {
	return NewJWTService(JWTConfig{SecretKey: "test-secret", AccessTokenExp: time.Hour, TokenIssuer: "circlehub.test"})
}

func TestGenerateAndValidateToken(t *testing.T) {
	svc := newTestService()
	user := &models.User{ID: primitive.NewObjectID(), Username: "alice"}

	token, expiresIn, err := svc.GenerateToken(user)
	require.NoError(t, err)
	assert.Equal(t, int64(3600), expiresIn)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID.Hex(), claims.UserID)
	assert.Equal(t, "alice", claims.Username)
}

func TestValidateToken_Expired(t *testing.T) {
	svc := newTestService()
	svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, _, err := svc.GenerateToken(&models.User{ID: primitive.NewObjectID()})
	require.NoError(t, err)

	svc.now = time.Now
	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestValidateToken_WrongSecret(t *testing.T) {
	token, _, err := newTestService().GenerateToken(&models.User{ID: primitive.NewObjectID()})
	require.NoError(t, err)

	other := NewJWTService(JWTConfig{SecretKey: "other", AccessTokenExp: time.Hour, TokenIssuer: "circlehub.test"})
	_, err = other.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestExtractBearerToken(t *testing.T) {
	tok, err := ExtractBearerToken("Bearer abc.def")
	require.NoError(t, err)
	assert.Equal(t, "abc.def", tok)

	tok, err = ExtractBearerToken("bearer xyz")
	require.NoError(t, err)
	assert.Equal(t, "xyz", tok)

	_, err = ExtractBearerToken("  ")
	assert.ErrorIs(t, err, ErrInvalidFormat)
}

func TestBearerCredential(t *testing.T) {
	cred, err := BearerCredential("Bearer s3cret")
	require.NoError(t, err)
	assert.Equal(t, "s3cret", cred)

	for _, header := range []string{"s3cret", "Basic s3cret", "Bearer ", "Bearer    ", ""} {
		_, err := BearerCredential(header)
		assert.ErrorIs(t, err, ErrInvalidFormat, header)
	}
}

func TestSecretsEqual(t *testing.T) {
	assert.True(t, SecretsEqual("s3cret", "s3cret"))
	assert.False(t, SecretsEqual("s3cre", "s3cret"))
	assert.False(t, SecretsEqual("", ""))
}

func TestPasswordHashing(t *testing.T) {
	BcryptCost = bcrypt.MinCost
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "correct horse"))
	assert.False(t, CheckPassword(hash, "wrong horse"))
}
