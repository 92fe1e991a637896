package boundary

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestSplitStreamFile(t *testing.T) {
	id, ext, ok := splitStreamFile("9f1c2d3e.mp3")
	require.True(t, ok)
	require.Equal(t, "9f1c2d3e", id)
	require.Equal(t, "mp3", ext)

	_, _, ok = splitStreamFile("noextension")
	require.False(t, ok)

	_, _, ok = splitStreamFile(".mp3")
	require.False(t, ok)

	_, _, ok = splitStreamFile("trailing.")
	require.False(t, ok)
}

func TestWithCategory_MergesPayload(t *testing.T) {
	out := withCategory("sonos", "transportState", map[string]any{"speakerIp": "10.0.0.5", "state": "PLAYING"})
	require.Equal(t, "transportState", out["type"])
	require.Equal(t, "sonos", out["category"])
	require.Equal(t, "10.0.0.5", out["speakerIp"])
	require.Equal(t, "PLAYING", out["state"])
}

func mintPairingToken(t *testing.T, secret string, expiresIn time.Duration) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Issuer:    "sonos-hub",
		Audience:  jwt.ClaimStrings{"sonos-hub-client"},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestVerifyPairingToken_AcceptsValidToken(t *testing.T) {
	token := mintPairingToken(t, "shared-secret", time.Minute)
	require.NoError(t, verifyPairingToken("shared-secret", token))
}

func TestVerifyPairingToken_RejectsWrongSecret(t *testing.T) {
	token := mintPairingToken(t, "shared-secret", time.Minute)
	require.Error(t, verifyPairingToken("other-secret", token))
}

func TestVerifyPairingToken_RejectsExpired(t *testing.T) {
	token := mintPairingToken(t, "shared-secret", -time.Minute)
	require.Error(t, verifyPairingToken("shared-secret", token))
}

func TestVerifyPairingToken_RejectsEmpty(t *testing.T) {
	require.Error(t, verifyPairingToken("shared-secret", ""))
}
