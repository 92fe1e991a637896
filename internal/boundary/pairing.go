package boundary

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// verifyPairingToken validates the short-lived HS256 pairing token the
// desktop shell mints for the ingest WebSocket handshake. There is no
// issuance flow in this module: the desktop shell mints tokens out of band
// from the same shared secret.
func verifyPairingToken(secret, token string) error {
	if token == "" {
		return errors.New("boundary: missing pairing token")
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithAudience("sonos-hub-client"),
		jwt.WithIssuer("sonos-hub"),
	)

	claims := &jwt.RegisteredClaims{}
	parsed, err := parser.ParseWithClaims(token, claims, func(_ *jwt.Token) (any, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return err
	}
	if parsed == nil || !parsed.Valid {
		return errors.New("boundary: invalid pairing token")
	}
	return nil
}
