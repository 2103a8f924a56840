package services

import (
	"fmt"

	"github.com/FableForge/canvasflow-go/internal/infrastructure/observability/logging"
	"github.com/FableForge/canvasflow-go/internal/infrastructure/security"
	"github.com/FableForge/canvasflow-go/pkg/config"
)

// AuthService issues board-scoped editor tokens.
type AuthService struct {
	logger *logging.ChanneledLogger
}

func NewAuthService(logger *logging.ChanneledLogger) *AuthService {
	return &AuthService{logger: logger}
}

// Login checks the admin password and returns a JWT granting editor
// access to the requested board.
func (s *AuthService) Login(boardID, password string) (string, error) {
	if config.JWTSecret == "" {
		return "", fmt.Errorf("JWT_SECRET is not configured")
	}
	if config.AdminPasswordHash == "" {
		return "", fmt.Errorf("ADMIN_PASSWORD_HASH is not configured")
	}

	if !security.CheckPassword(password, config.AdminPasswordHash) {
		s.logger.Auth().Warn("Login rejected, bad password", "boardId", boardID)
		return "", fmt.Errorf("invalid credentials")
	}

	token, err := security.GenerateEditorToken(boardID, config.JWTSecret, config.TokenTTL)
	if err != nil {
		return "", fmt.Errorf("failed to issue token: %w", err)
	}

	s.logger.Auth().Info("Editor token issued", "boardId", boardID)
	return token, nil
}

// Validate parses a token and returns the board it grants access to.
func (s *AuthService) Validate(token string) (string, error) {
	claims, err := security.ValidateJWT(token, config.JWTSecret)
	if err != nil {
		return "", err
	}
	boardID, ok := security.BoardFromClaims(claims)
	if !ok {
		return "", fmt.Errorf("token has no board scope")
	}
	return boardID, nil
}
