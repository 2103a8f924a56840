package messaging

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/FableForge/canvasflow-go/internal/infrastructure/observability/logging"
)

// SSEBroadcaster manages board-scoped, session-specific SSE connections.
type SSEBroadcaster struct {
	boardSessions map[string]map[string][]chan string // boardId -> sessionId -> []channels
	mu            sync.Mutex
	logger        *logging.ChanneledLogger
}

var (
	globalBroadcaster *SSEBroadcaster
	once              sync.Once
)

// NewSSEBroadcaster creates the singleton SSEBroadcaster instance.
func NewSSEBroadcaster(logger *logging.ChanneledLogger) *SSEBroadcaster {
	once.Do(func() {
		globalBroadcaster = &SSEBroadcaster{
			boardSessions: make(map[string]map[string][]chan string),
			logger:        logger,
		}
	})
	return globalBroadcaster
}

var _ Broadcaster = (*SSEBroadcaster)(nil)

// AddClientWithSession registers a new SSE client with board and session isolation.
func (b *SSEBroadcaster) AddClientWithSession(boardID, sessionID string) chan string {
	ch := make(chan string, 10)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.boardSessions[boardID] == nil {
		b.boardSessions[boardID] = make(map[string][]chan string)
	}

	if b.boardSessions[boardID][sessionID] == nil {
		b.boardSessions[boardID][sessionID] = make([]chan string, 0)
	}
	b.boardSessions[boardID][sessionID] = append(b.boardSessions[boardID][sessionID], ch)

	b.logger.SSE().Debug("SSE client registered", "boardId", boardID, "sessionId", sessionID)
	return ch
}

// RemoveClientWithSession removes an SSE client with board and session context.
func (b *SSEBroadcaster) RemoveClientWithSession(ch chan string, boardID, sessionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if boardSessions, exists := b.boardSessions[boardID]; exists {
		if sessionClients, exists := boardSessions[sessionID]; exists {
			newClients := make([]chan string, 0, len(sessionClients)-1)
			for _, client := range sessionClients {
				if client != ch {
					newClients = append(newClients, client)
				}
			}
			boardSessions[sessionID] = newClients

			if len(boardSessions[sessionID]) == 0 {
				delete(boardSessions, sessionID)
			}
		}

		if len(boardSessions) == 0 {
			delete(b.boardSessions, boardID)
		}
	}
	b.logger.SSE().Debug("SSE client unregistered", "boardId", boardID, "sessionId", sessionID)
}

// GetSessionConnectionCount returns the connection count for a specific board session.
func (b *SSEBroadcaster) GetSessionConnectionCount(boardID, sessionID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	if boardSessions, exists := b.boardSessions[boardID]; exists {
		if sessionClients, exists := boardSessions[sessionID]; exists {
			return len(sessionClients)
		}
	}
	return 0
}

// BroadcastRender fans out a preview update to every session watching
// the board. An empty imageRef signals a cleared preview.
func (b *SSEBroadcaster) BroadcastRender(boardID, nodeID, imageRef, generationID string) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.SSE().Error("Panic recovered in BroadcastRender", "error", r, "boardId", boardID, "nodeId", nodeID)
		}
	}()

	data, _ := json.Marshal(map[string]string{
		"nodeId":       nodeID,
		"imageRef":     imageRef,
		"generationId": generationID,
	})
	message := fmt.Sprintf("event: preview_updated\ndata: %s\n\n", data)

	b.logger.SSE().Debug("Broadcasting preview update", "message", strings.ReplaceAll(message, "\n", "\\n"), "boardId", boardID, "nodeId", nodeID)

	b.mu.Lock()
	defer b.mu.Unlock()

	if boardSessions, exists := b.boardSessions[boardID]; exists {
		for sessionID, sessionClients := range boardSessions {
			for _, ch := range sessionClients {
				select {
				case ch <- message:
				default:
					b.logger.SSE().Warn("SSE channel full, message dropped", "boardId", boardID, "sessionId", sessionID)
				}
			}
		}
	}
}

// HasViewingSessions checks if any sessions are watching a board.
func (b *SSEBroadcaster) HasViewingSessions(boardID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if boardSessions, exists := b.boardSessions[boardID]; exists {
		return len(boardSessions) > 0
	}
	return false
}
