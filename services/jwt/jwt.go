package jwt

import (
	"encoding/json"
	"fmt"
	"time"

	jwtgo "github.com/golang-jwt/jwt"
)

const AccessTokenValidity = 24 * time.Hour

// GenerateToken signs an HS256 access token for the given identity. The admin claim is
// only written for admins.
func GenerateToken(id, name string, admin bool, secret string, now time.Time) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("JWT secret key is missing")
	}
	claims := jwtgo.MapClaims{
		"id":   id,
		"name": name,
		"iat":  now.Unix(),
		"exp":  now.Add(AccessTokenValidity).Unix(),
	}
	if admin {
		claims["admin"] = true
	}
	return jwtgo.NewWithClaims(jwtgo.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ValidateAndGetClaims verifies signature and expiry and returns the claims.
func ValidateAndGetClaims(tokenString string, secret string) (jwtgo.MapClaims, error) {
	token, err := jwtgo.Parse(tokenString, func(token *jwtgo.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwtgo.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwtgo.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if _, ok := claims["exp"]; !ok {
		return nil, fmt.Errorf("token has no expiry")
	}
	return claims, nil
}

// ExpiresAt returns the exp claim of validated claims.
func ExpiresAt(claims jwtgo.MapClaims) time.Time {
	switch exp := claims["exp"].(type) {
	case float64:
		return time.Unix(int64(exp), 0)
	case json.Number:
		v, _ := exp.Int64()
		return time.Unix(v, 0)
	}
	return time.Time{}
}
