package api

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jakesanders16/mini-youtube/internal/model"
)

// Fingerprint derives the anonymous voter key of a client. The raw IP is
// never stored.
func Fingerprint(ip, userAgent, salt string) model.VoterKey {
	sum := sha256.Sum256([]byte(ip + "::" + userAgent + "::" + salt))
	return model.FingerprintVoterKey(hex.EncodeToString(sum[:]))
}

// ParseToken verifies an HS256 token and returns the user id it carries,
// taken from the "sub" claim or, failing that, a numeric "id" claim.
func ParseToken(secret []byte, raw string) (int64, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return 0, err
	}

	if sub, ok := claims["sub"].(string); ok && sub != "" {
		id, err := strconv.ParseInt(sub, 10, 64)
		if err != nil || id <= 0 {
			return 0, fmt.Errorf("invalid subject %q", sub)
		}
		return id, nil
	}
	if raw, ok := claims["id"].(float64); ok && raw > 0 {
		return int64(raw), nil
	}
	return 0, fmt.Errorf("token carries no user id")
}
