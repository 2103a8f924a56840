package messaging

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/FableForge/canvasflow-go/internal/infrastructure/caching/manager"
)

// EditorClient represents a single connected editor dashboard client.
type EditorClient struct {
	Conn    *websocket.Conn
	BoardID string
	Send    chan []byte
}

// NodePreviewState describes a single node's published preview for the
// editor dashboard.
type NodePreviewState struct {
	NodeID      string    `json:"nodeId"`
	ImageRef    string    `json:"imageRef"`
	HasVisual   bool      `json:"hasVisual"`
	PublishedAt time.Time `json:"publishedAt"`
}

// BoardStatePayload is the full board snapshot sent to the frontend on
// each tick.
type BoardStatePayload struct {
	BoardID       string             `json:"boardId"`
	RenderVersion uint64             `json:"renderVersion"`
	NodeCount     int                `json:"nodeCount"`
	Previews      []NodePreviewState `json:"previews"`
}

// EditorHub manages all connected editor clients and broadcasts board
// state snapshots.
type EditorHub struct {
	boardClients map[string]map[*EditorClient]bool
	register     chan *EditorClient
	unregister   chan *EditorClient
	cacheManager *manager.Manager
	mu           sync.RWMutex
}

// NewEditorHub creates a new hub instance.
func NewEditorHub(cm *manager.Manager) *EditorHub {
	return &EditorHub{
		boardClients: make(map[string]map[*EditorClient]bool),
		register:     make(chan *EditorClient),
		unregister:   make(chan *EditorClient),
		cacheManager: cm,
	}
}

// Run starts the hub's main loop. This should be run as a goroutine.
func (h *EditorHub) Run() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if _, ok := h.boardClients[client.BoardID]; !ok {
				h.boardClients[client.BoardID] = make(map[*EditorClient]bool)
			}
			h.boardClients[client.BoardID][client] = true
			log.Printf("Editor client registered for board: %s", client.BoardID)
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.boardClients[client.BoardID]; ok {
				if _, ok := clients[client]; ok {
					delete(clients, client)
					close(client.Send)
					if len(clients) == 0 {
						delete(h.boardClients, client.BoardID)
					}
				}
			}
			log.Printf("Editor client unregistered for board: %s", client.BoardID)
			h.mu.Unlock()

		case <-ticker.C:
			h.broadcastBoardStates()
		}
	}
}

// Register queues a client for registration.
func (h *EditorHub) Register(client *EditorClient) {
	h.register <- client
}

// Unregister queues a client for unregistration.
func (h *EditorHub) Unregister(client *EditorClient) {
	h.unregister <- client
}

// broadcastBoardStates gathers and sends the board snapshot for all
// boards with active clients.
func (h *EditorHub) broadcastBoardStates() {
	h.mu.RLock()
	boardIDs := make([]string, 0, len(h.boardClients))
	for boardID := range h.boardClients {
		boardIDs = append(boardIDs, boardID)
	}
	h.mu.RUnlock()

	for _, boardID := range boardIDs {
		payload := h.getBoardState(boardID)

		message, err := json.Marshal(payload)
		if err != nil {
			log.Printf("Error marshaling board state for %s: %v", boardID, err)
			continue
		}

		h.mu.RLock()
		if clients, ok := h.boardClients[boardID]; ok {
			for client := range clients {
				select {
				case client.Send <- message:
				default:
				}
			}
		}
		h.mu.RUnlock()
	}
}

// getBoardState snapshots the board's published previews from the cache.
func (h *EditorHub) getBoardState(boardID string) BoardStatePayload {
	payload := BoardStatePayload{BoardID: boardID}

	published := h.cacheManager.GetAllPublished(boardID)
	payload.RenderVersion = h.cacheManager.RenderVersion(boardID)
	payload.NodeCount = len(published)

	previews := make([]NodePreviewState, 0, len(published))
	for nodeID, result := range published {
		previews = append(previews, NodePreviewState{
			NodeID:      nodeID,
			ImageRef:    result.ImageRef,
			HasVisual:   result.HasVisual(),
			PublishedAt: result.PublishedAt,
		})
	}
	payload.Previews = previews
	return payload
}
