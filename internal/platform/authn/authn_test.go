package authn

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	token, err := GenerateToken("secret", Claims{EmployeeID: "e-1", Role: RoleOps}, time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken("secret", token)
	require.NoError(t, err)
	assert.Equal(t, "e-1", claims.EmployeeID)
	assert.Equal(t, RoleOps, claims.Role)
}

func TestParseTokenRejects(t *testing.T) {
	token, err := GenerateToken("secret", Claims{EmployeeID: "e-1"}, time.Hour)
	require.NoError(t, err)
	_, err = ParseToken("other-secret", token)
	assert.Error(t, err, "wrong secret")

	expired, err := GenerateToken("secret", Claims{EmployeeID: "e-1"}, -time.Minute)
	require.NoError(t, err)
	_, err = ParseToken("secret", expired)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	anonymous, err := GenerateToken("secret", Claims{Role: RoleEmployee}, time.Hour)
	require.NoError(t, err)
	_, err = ParseToken("secret", anonymous)
	assert.Error(t, err, "missing employee id")

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{EmployeeID: "e-1"})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = ParseToken("secret", unsigned)
	assert.Error(t, err, "unsigned token")
}
