package vonage

import (
	"crypto/rsa"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// tokenTTL bounds the lifetime of application tokens.
const tokenTTL = 15 * time.Minute

// LoadPrivateKey reads a PEM encoded RSA application key.
func LoadPrivateKey(path string) (*rsa.PrivateKey, error) {
	data, err := os.ReadFile(path) // #nosec G304 - operator supplied key path
	if err != nil {
		return nil, fmt.Errorf("read private key: %w", err)
	}
	key, err := jwt.ParseRSAPrivateKeyFromPEM(data)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return key, nil
}

// applicationToken signs a short-lived RS256 token identifying the application.
func applicationToken(applicationID string, key *rsa.PrivateKey, now time.Time) (string, error) {
	if applicationID == "" || key == nil {
		return "", errors.New("application id and private key are required")
	}
	claims := jwt.MapClaims{
		"application_id": applicationID,
		"iat":            now.Unix(),
		"exp":            now.Add(tokenTTL).Unix(),
		"jti":            uuid.NewString(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
}

// ErrInvalidSignature is returned when a signed webhook fails verification.
var ErrInvalidSignature = errors.New("vonage: invalid webhook signature")

// VerifySignature checks the bearer token Vonage attaches to signed webhooks.
// The token is HS256 with the account signature secret; when it carries a
// payload_hash claim the body must hash to it.
func VerifySignature(authorization, secret string, body []byte) error {
	token := strings.TrimSpace(authorization)
	if len(token) > 7 && strings.EqualFold(token[:7], "bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	if token == "" || secret == "" {
		return ErrInvalidSignature
	}

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuedAt(), jwt.WithLeeway(time.Minute))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	if want, ok := claims["payload_hash"].(string); ok && want != "" {
		sum := sha256.Sum256(body)
		if !strings.EqualFold(hex.EncodeToString(sum[:]), want) {
			return fmt.Errorf("%w: payload hash mismatch", ErrInvalidSignature)
		}
	}
	return nil
}
