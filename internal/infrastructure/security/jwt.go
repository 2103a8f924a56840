// Package security provides JWT token utilities
package security

import (
	"errors"
	"log"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// ValidateJWT validates a JWT token and returns the claims
func ValidateJWT(tokenString, jwtSecret string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		return []byte(jwtSecret), nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}

// GenerateEditorToken creates a JWT token granting editor access to a board.
func GenerateEditorToken(boardID, jwtSecret string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"boardId": boardID,
		"role":    "editor",
		"iat":     time.Now().UTC().Unix(),
		"exp":     time.Now().UTC().Add(ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	result, err := token.SignedString([]byte(jwtSecret))
	if err != nil {
		log.Printf("ERROR: Failed to sign JWT token: %v", err)
		return "", err
	}

	return result, nil
}

// BoardFromClaims extracts the board scope from editor token claims.
func BoardFromClaims(claims jwt.MapClaims) (string, bool) {
	boardID, ok := claims["boardId"].(string)
	return boardID, ok && boardID != ""
}
