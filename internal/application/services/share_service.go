package services

import (
	"fmt"
	"sync"
	"time"

	"github.com/FableForge/canvasflow-go/internal/domain/graph"
	"github.com/FableForge/canvasflow-go/internal/infrastructure/caching/manager"
	"github.com/FableForge/canvasflow-go/internal/infrastructure/email"
	"github.com/FableForge/canvasflow-go/internal/infrastructure/observability/logging"
	"github.com/FableForge/canvasflow-go/internal/infrastructure/security"
)

// ShareLink grants read access to one node's published preview.
type ShareLink struct {
	Token     string    `json:"token"`
	BoardID   string    `json:"boardId"`
	NodeID    string    `json:"nodeId"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ShareService creates share links for published previews and emails
// them to reviewers. Links live in memory only.
type ShareService struct {
	cache  *manager.Manager
	email  email.Service
	logger *logging.ChanneledLogger

	mu    sync.Mutex
	links map[string]*ShareLink
}

// NewShareService creates the preview share service. emailSvc may be
// nil when no email provider is configured; links still work, they just
// are not delivered.
func NewShareService(cache *manager.Manager, emailSvc email.Service, logger *logging.ChanneledLogger) *ShareService {
	return &ShareService{
		cache:  cache,
		email:  emailSvc,
		logger: logger,
		links:  make(map[string]*ShareLink),
	}
}

// CreateLink mints a share link for a node's published preview and
// emails it when a recipient is given. The node must have published a
// visual result.
func (s *ShareService) CreateLink(boardID, nodeID, toEmail, message, baseURL string, ttl time.Duration) (*ShareLink, error) {
	result, ok := s.cache.GetPublished(boardID, nodeID, graph.SlotPreview)
	if !ok || !result.HasVisual() {
		return nil, fmt.Errorf("node %s has no published preview to share", nodeID)
	}

	now := time.Now().UTC()
	link := &ShareLink{
		Token:     security.GenerateULID(),
		BoardID:   boardID,
		NodeID:    nodeID,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}

	s.mu.Lock()
	s.links[link.Token] = link
	s.mu.Unlock()

	s.logger.Board().Info("Share link created", "boardId", boardID, "nodeId", nodeID, "token", link.Token)

	if toEmail != "" && s.email != nil {
		previewURL := fmt.Sprintf("%s/share/%s", baseURL, link.Token)
		if err := s.email.SendPreviewShareEmail(toEmail, boardID, previewURL, message); err != nil {
			s.logger.Board().Error("Share email failed", "error", err.Error(), "boardId", boardID)
			return link, fmt.Errorf("link created but email delivery failed: %w", err)
		}
	}

	return link, nil
}

// Resolve returns the preview image ref behind a share token.
func (s *ShareService) Resolve(token string) (string, error) {
	s.mu.Lock()
	link, ok := s.links[token]
	s.mu.Unlock()

	if !ok {
		return "", fmt.Errorf("unknown share token")
	}
	if time.Now().UTC().After(link.ExpiresAt) {
		s.mu.Lock()
		delete(s.links, token)
		s.mu.Unlock()
		return "", fmt.Errorf("share link expired")
	}

	result, ok := s.cache.GetPublished(link.BoardID, link.NodeID, graph.SlotPreview)
	if !ok || !result.HasVisual() {
		return "", fmt.Errorf("shared preview is no longer available")
	}
	return result.ImageRef, nil
}

// DropBoard discards every share link pointing at a board.
func (s *ShareService) DropBoard(boardID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for token, link := range s.links {
		if link.BoardID == boardID {
			delete(s.links, token)
		}
	}
}
