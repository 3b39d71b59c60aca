package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hongminglow/clubhub/internal/models"
)

func TestTokenManager_RoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", "clubhub", time.Hour)
	user := models.User{ID: "u1", Email: "a@x.com"}
	sess := models.Session{ID: "s1", UserID: "u1", ExpiresAt: time.Now().Add(time.Hour)}

	raw, err := tm.Generate(user, sess)
	require.NoError(t, err)

	claims, err := tm.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Subject)
	assert.Equal(t, "s1", claims.SessionID)
	assert.Equal(t, "a@x.com", claims.Email)
	assert.Equal(t, "clubhub", claims.Issuer)
}

func TestTokenManager_RejectsWrongSecret(t *testing.T) {
	issuer := NewTokenManager("secret", "clubhub", time.Hour)
	verifier := NewTokenManager("other", "clubhub", time.Hour)
	raw, err := issuer.Generate(models.User{ID: "u1"}, models.Session{ID: "s1", ExpiresAt: time.Now().Add(time.Hour)})
	require.NoError(t, err)

	_, err = verifier.Parse(raw)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenManager_RejectsWrongIssuer(t *testing.T) {
	issuer := NewTokenManager("secret", "someone-else", time.Hour)
	verifier := NewTokenManager("secret", "clubhub", time.Hour)
	raw, err := issuer.Generate(models.User{ID: "u1"}, models.Session{ID: "s1", ExpiresAt: time.Now().Add(time.Hour)})
	require.NoError(t, err)

	_, err = verifier.Parse(raw)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenManager_RejectsExpired(t *testing.T) {
	tm := NewTokenManager("secret", "clubhub", time.Hour)
	issuedAt := time.Now().Add(-2 * time.Hour)
	tm.now = func() time.Time { return issuedAt }
	raw, err := tm.Generate(models.User{ID: "u1"}, models.Session{ID: "s1", ExpiresAt: issuedAt.Add(time.Hour)})
	require.NoError(t, err)

	tm.now = time.Now
	_, err = tm.Parse(raw)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenManager_RejectsGarbage(t *testing.T) {
	tm := NewTokenManager("secret", "clubhub", time.Hour)
	_, err := tm.Parse("not-a-token")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "correct horse"))
	assert.False(t, CheckPassword(hash, "wrong horse"))
}

func TestValidateCredentials(t *testing.T) {
	assert.NoError(t, ValidateCredentials("a@x.com", "longenough"))
	assert.Error(t, ValidateCredentials("", "longenough"))
	assert.Error(t, ValidateCredentials("not-an-email", "longenough"))
	assert.Error(t, ValidateCredentials("a@x.com", "short"))
}
