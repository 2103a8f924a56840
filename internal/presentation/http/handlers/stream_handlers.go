package handlers

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/FableForge/canvasflow-go/internal/infrastructure/messaging"
	"github.com/FableForge/canvasflow-go/internal/infrastructure/observability/logging"
	"github.com/FableForge/canvasflow-go/internal/infrastructure/observability/performance"
	"github.com/FableForge/canvasflow-go/internal/presentation/http/middleware"
	"github.com/FableForge/canvasflow-go/pkg/config"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var activeStreamConnections int64

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// StreamHandlers contains SSE and websocket streaming handlers
type StreamHandlers struct {
	broadcaster *messaging.SSEBroadcaster
	editorHub   *messaging.EditorHub
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker
}

// NewStreamHandlers creates stream handlers with injected dependencies
func NewStreamHandlers(broadcaster *messaging.SSEBroadcaster, editorHub *messaging.EditorHub, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *StreamHandlers {
	return &StreamHandlers{
		broadcaster: broadcaster,
		editorHub:   editorHub,
		logger:      logger,
		perfTracker: perfTracker,
	}
}

// GetSSE establishes a Server-Sent Events connection carrying
// preview_updated events for the request's board.
func (h *StreamHandlers) GetSSE(c *gin.Context) {
	boardCtx, exists := middleware.GetBoardContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "board context not found"})
		return
	}

	start := time.Now()
	marker := h.perfTracker.StartOperation("get_sse_request", boardCtx.BoardID)
	defer marker.Complete()

	sessionID := c.Query("sessionId")
	if sessionID == "" {
		h.logger.SSE().Error("SSE connection request missing session ID", "boardId", boardCtx.BoardID)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Session ID required for SSE connection"})
		return
	}

	currentConnections := atomic.LoadInt64(&activeStreamConnections)
	if currentConnections >= int64(config.MaxStreamConnections) {
		h.logger.SSE().Warn("SSE connection limit reached",
			"boardId", boardCtx.BoardID,
			"sessionId", sessionID,
			"currentConnections", currentConnections)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "SSE connection limit reached. Please try again later.",
		})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("Access-Control-Allow-Origin", "*")
	c.Header("Access-Control-Allow-Headers", "Cache-Control")

	ch := h.broadcaster.AddClientWithSession(boardCtx.BoardID, sessionID)

	atomic.AddInt64(&activeStreamConnections, 1)
	defer func() {
		atomic.AddInt64(&activeStreamConnections, -1)
		h.broadcaster.RemoveClientWithSession(ch, boardCtx.BoardID, sessionID)
	}()

	if _, err := c.Writer.WriteString(fmt.Sprintf("data: {\"type\":\"connected\",\"sessionId\":\"%s\",\"timestamp\":\"%s\"}\n\n", sessionID, time.Now().Format(time.RFC3339))); err != nil {
		return
	}
	c.Writer.Flush()

	clientCtx := c.Request.Context()

	h.logger.SSE().Info("SSE connection established",
		"boardId", boardCtx.BoardID,
		"sessionId", sessionID,
		"totalConnections", atomic.LoadInt64(&activeStreamConnections),
		"setupDuration", time.Since(start))
	marker.SetSuccess(true)

	ticker := time.NewTicker(time.Duration(config.SSEHeartbeatIntervalSeconds) * time.Second)
	defer ticker.Stop()

	connectionStart := time.Now()
	for {
		select {
		case <-clientCtx.Done():
			h.logger.SSE().Info("SSE client disconnected",
				"boardId", boardCtx.BoardID,
				"sessionId", sessionID,
				"connectionDuration", time.Since(connectionStart))
			return

		case message, ok := <-ch:
			if !ok {
				return
			}
			if _, err := c.Writer.WriteString(message); err != nil {
				h.logger.SSE().Error("SSE write failed",
					"boardId", boardCtx.BoardID,
					"sessionId", sessionID,
					"error", err.Error())
				return
			}
			c.Writer.Flush()

		case <-ticker.C:
			heartbeat := fmt.Sprintf("data: {\"type\":\"heartbeat\",\"timestamp\":\"%s\"}\n\n", time.Now().Format(time.RFC3339))
			if _, err := c.Writer.WriteString(heartbeat); err != nil {
				h.logger.SSE().Error("SSE heartbeat failed",
					"boardId", boardCtx.BoardID,
					"sessionId", sessionID,
					"error", err.Error())
				return
			}
			c.Writer.Flush()
		}
	}
}

// GetEditorWS upgrades to a websocket carrying board state snapshots
// for the editor dashboard.
func (h *StreamHandlers) GetEditorWS(c *gin.Context) {
	boardCtx, exists := middleware.GetBoardContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "board context not found"})
		return
	}

	conn, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.SSE().Error("Websocket upgrade failed", "boardId", boardCtx.BoardID, "error", err.Error())
		return
	}

	client := &messaging.EditorClient{
		Conn:    conn,
		BoardID: boardCtx.BoardID,
		Send:    make(chan []byte, 16),
	}
	h.editorHub.Register(client)

	go h.writePump(client)
	go h.readPump(client)
}

// writePump forwards hub messages to the websocket.
func (h *StreamHandlers) writePump(client *messaging.EditorClient) {
	defer client.Conn.Close()
	for message := range client.Send {
		if err := client.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
}

// readPump drains inbound frames and unregisters on close.
func (h *StreamHandlers) readPump(client *messaging.EditorClient) {
	defer func() {
		h.editorHub.Unregister(client)
		client.Conn.Close()
	}()
	for {
		if _, _, err := client.Conn.ReadMessage(); err != nil {
			return
		}
	}
}

// StreamLogs handles the SSE connection for live log streaming.
func (h *StreamHandlers) StreamLogs(c *gin.Context) {
	broadcaster := logging.GetBroadcaster()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("Access-Control-Allow-Origin", "*")

	channelFilter := c.DefaultQuery("channel", "all")
	levelFilter := c.DefaultQuery("level", "INFO")
	var logLevel slog.Level
	switch levelFilter {
	case "DEBUG":
		logLevel = slog.LevelDebug
	case "WARN":
		logLevel = slog.LevelWarn
	case "ERROR":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	filters := logging.AppliedFilters{
		Channel: logging.Channel(channelFilter),
		Level:   logLevel,
	}

	client := broadcaster.NewClient(filters)
	broadcaster.RegisterClient(client)
	defer broadcaster.UnregisterClient(client)

	fmt.Fprintf(c.Writer, ": connection established\n\n")
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case message, ok := <-client.Channel:
			if !ok {
				return false
			}
			fmt.Fprintf(w, "data: %s\n\n", message)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
