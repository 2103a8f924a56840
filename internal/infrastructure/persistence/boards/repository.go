// Package boards provides the board graph repository
package boards

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/FableForge/canvasflow-go/internal/domain/entities/design"
	"github.com/FableForge/canvasflow-go/internal/domain/graph"
	"github.com/FableForge/canvasflow-go/internal/infrastructure/caching/interfaces"
	"github.com/FableForge/canvasflow-go/internal/infrastructure/observability/logging"
	"github.com/FableForge/canvasflow-go/pkg/config"
)

// Repository persists board graph state so a board survives restarts.
// Source binary bytes stay on disk; only their metadata is recorded.
type Repository struct {
	db     *sql.DB
	cache  interfaces.GraphCache
	logger *logging.ChanneledLogger
}

func NewRepository(db *sql.DB, cache interfaces.GraphCache, logger *logging.ChanneledLogger) *Repository {
	return &Repository{
		db:     db,
		cache:  cache,
		logger: logger,
	}
}

// EnsureSchema creates the board graph tables when they do not exist.
func (r *Repository) EnsureSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS board_edges (
			board_id TEXT NOT NULL,
			source_node TEXT NOT NULL,
			source_slot TEXT NOT NULL,
			target_node TEXT NOT NULL,
			target_slot TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS board_payloads (
			board_id TEXT NOT NULL,
			node_id TEXT NOT NULL,
			slot TEXT NOT NULL,
			polished INTEGER NOT NULL DEFAULT 0,
			payload TEXT NOT NULL,
			PRIMARY KEY (board_id, node_id, slot, polished)
		)`,
		`CREATE TABLE IF NOT EXISTS board_binaries (
			board_id TEXT NOT NULL,
			id TEXT NOT NULL,
			file_name TEXT NOT NULL,
			content_type TEXT NOT NULL,
			path TEXT NOT NULL,
			uploaded_at TEXT NOT NULL,
			PRIMARY KEY (board_id, id)
		)`,
	}

	for _, stmt := range statements {
		if _, err := r.db.Exec(stmt); err != nil {
			r.logger.Database().Error("Schema creation failed", "error", err.Error())
			return fmt.Errorf("failed to create board schema: %w", err)
		}
	}
	return nil
}

// SaveEdges replaces the stored edge list for a board.
func (r *Repository) SaveEdges(boardID string, edges []graph.Edge) error {
	start := time.Now()
	r.logger.Database().Debug("Executing edge replace", "boardId", boardID, "count", len(edges))

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin edge transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM board_edges WHERE board_id = ?`, boardID); err != nil {
		r.logger.Database().Error("Edge delete failed", "error", err.Error(), "boardId", boardID)
		return fmt.Errorf("failed to clear edges: %w", err)
	}

	query := `INSERT INTO board_edges (board_id, source_node, source_slot, target_node, target_slot) VALUES (?, ?, ?, ?, ?)`
	for _, edge := range edges {
		if _, err := tx.Exec(query, boardID, edge.SourceNode, string(edge.SourceSlot), edge.TargetNode, string(edge.TargetSlot)); err != nil {
			r.logger.Database().Error("Edge insert failed", "error", err.Error(), "boardId", boardID)
			return fmt.Errorf("failed to insert edge: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit edges: %w", err)
	}

	r.logger.Database().Info("Edge replace completed", "boardId", boardID, "count", len(edges), "duration", time.Since(start))
	duration := time.Since(start)
	if duration > config.SlowQueryThreshold {
		r.logger.LogSlowQuery(query, duration, boardID)
	}
	return nil
}

// LoadEdges returns the stored edge list for a board.
func (r *Repository) LoadEdges(boardID string) ([]graph.Edge, error) {
	query := `SELECT source_node, source_slot, target_node, target_slot FROM board_edges WHERE board_id = ?`

	start := time.Now()
	r.logger.Database().Debug("Loading edges from database", "boardId", boardID)

	rows, err := r.db.Query(query, boardID)
	if err != nil {
		r.logger.Database().Error("Failed to query edges", "error", err.Error(), "boardId", boardID)
		return nil, fmt.Errorf("failed to query edges: %w", err)
	}
	defer rows.Close()

	var edges []graph.Edge
	for rows.Next() {
		var edge graph.Edge
		var sourceSlot, targetSlot string
		if err := rows.Scan(&edge.SourceNode, &sourceSlot, &edge.TargetNode, &targetSlot); err != nil {
			return nil, fmt.Errorf("failed to scan edge: %w", err)
		}
		edge.SourceSlot = graph.Slot(sourceSlot)
		edge.TargetSlot = graph.Slot(targetSlot)
		edges = append(edges, edge)
	}

	r.logger.Database().Info("Loaded edges from database", "boardId", boardID, "count", len(edges), "duration", time.Since(start))
	duration := time.Since(start)
	if duration > config.SlowQueryThreshold {
		r.logger.LogSlowQuery(query, duration, boardID)
	}
	return edges, rows.Err()
}

// SavePayload upserts one registered payload for a node slot.
func (r *Repository) SavePayload(boardID, nodeID string, slot graph.Slot, payload *design.Payload, polished bool) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	polishedFlag := 0
	if polished {
		polishedFlag = 1
	}

	query := `INSERT OR REPLACE INTO board_payloads (board_id, node_id, slot, polished, payload) VALUES (?, ?, ?, ?, ?)`

	start := time.Now()
	r.logger.Database().Debug("Executing payload upsert", "boardId", boardID, "nodeId", nodeID, "slot", slot)

	_, err = r.db.Exec(query, boardID, nodeID, string(slot), polishedFlag, string(payloadJSON))
	if err != nil {
		r.logger.Database().Error("Payload upsert failed", "error", err.Error(), "boardId", boardID, "nodeId", nodeID)
		return fmt.Errorf("failed to upsert payload: %w", err)
	}

	r.logger.Database().Info("Payload upsert completed", "boardId", boardID, "nodeId", nodeID, "duration", time.Since(start))
	duration := time.Since(start)
	if duration > config.SlowQueryThreshold {
		r.logger.LogSlowQuery(query, duration, boardID)
	}
	return nil
}

// DeleteNode removes all stored payloads for a node.
func (r *Repository) DeleteNode(boardID, nodeID string) error {
	query := `DELETE FROM board_payloads WHERE board_id = ? AND node_id = ?`

	start := time.Now()
	r.logger.Database().Debug("Executing node payload delete", "boardId", boardID, "nodeId", nodeID)

	_, err := r.db.Exec(query, boardID, nodeID)
	if err != nil {
		r.logger.Database().Error("Node payload delete failed", "error", err.Error(), "boardId", boardID, "nodeId", nodeID)
		return fmt.Errorf("failed to delete node payloads: %w", err)
	}

	r.logger.Database().Info("Node payload delete completed", "boardId", boardID, "nodeId", nodeID, "duration", time.Since(start))
	duration := time.Since(start)
	if duration > config.SlowQueryThreshold {
		r.logger.LogSlowQuery(query, duration, boardID)
	}
	return nil
}

// SaveBinaryMeta upserts metadata for an uploaded source binary. The
// bytes themselves live on disk at binary.Path.
func (r *Repository) SaveBinaryMeta(boardID string, binary *design.SourceBinary) error {
	query := `INSERT OR REPLACE INTO board_binaries (board_id, id, file_name, content_type, path, uploaded_at) VALUES (?, ?, ?, ?, ?, ?)`

	start := time.Now()
	r.logger.Database().Debug("Executing binary meta upsert", "boardId", boardID, "sourceId", binary.ID)

	_, err := r.db.Exec(query, boardID, binary.ID, binary.FileName, binary.ContentType, binary.Path, binary.UploadedAt.Format(time.RFC3339))
	if err != nil {
		r.logger.Database().Error("Binary meta upsert failed", "error", err.Error(), "boardId", boardID, "sourceId", binary.ID)
		return fmt.Errorf("failed to upsert binary metadata: %w", err)
	}

	r.logger.Database().Info("Binary meta upsert completed", "boardId", boardID, "sourceId", binary.ID, "duration", time.Since(start))
	duration := time.Since(start)
	if duration > config.SlowQueryThreshold {
		r.logger.LogSlowQuery(query, duration, boardID)
	}
	return nil
}

// LoadBoardIDs returns the distinct boards with persisted state.
func (r *Repository) LoadBoardIDs() ([]string, error) {
	query := `SELECT DISTINCT board_id FROM board_payloads
	          UNION SELECT DISTINCT board_id FROM board_edges`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query board ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan board id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// HydrateBoard loads a board's persisted graph state into the cache.
// Binary bytes are re-read from disk; binaries whose files are gone are
// skipped so their nodes surface as missing sources.
func (r *Repository) HydrateBoard(boardID string) error {
	start := time.Now()

	edges, err := r.LoadEdges(boardID)
	if err != nil {
		return err
	}
	r.cache.SetEdges(boardID, edges)

	if err := r.hydratePayloads(boardID); err != nil {
		return err
	}
	if err := r.hydrateBinaries(boardID); err != nil {
		return err
	}

	r.logger.Board().Info("Board hydrated from database", "boardId", boardID, "duration", time.Since(start))
	return nil
}

func (r *Repository) hydratePayloads(boardID string) error {
	query := `SELECT node_id, slot, polished, payload FROM board_payloads WHERE board_id = ?`

	rows, err := r.db.Query(query, boardID)
	if err != nil {
		r.logger.Database().Error("Failed to query payloads", "error", err.Error(), "boardId", boardID)
		return fmt.Errorf("failed to query payloads: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var nodeID, slot, payloadStr string
		var polished int
		if err := rows.Scan(&nodeID, &slot, &polished, &payloadStr); err != nil {
			return fmt.Errorf("failed to scan payload: %w", err)
		}

		var payload design.Payload
		if err := json.Unmarshal([]byte(payloadStr), &payload); err != nil {
			// Skip malformed records but continue processing others
			continue
		}

		if polished == 1 {
			r.cache.RegisterPolishedPayload(boardID, nodeID, graph.Slot(slot), &payload)
		} else {
			r.cache.RegisterPayload(boardID, nodeID, graph.Slot(slot), &payload)
		}
	}
	return rows.Err()
}

func (r *Repository) hydrateBinaries(boardID string) error {
	query := `SELECT id, file_name, content_type, path, uploaded_at FROM board_binaries WHERE board_id = ?`

	rows, err := r.db.Query(query, boardID)
	if err != nil {
		r.logger.Database().Error("Failed to query binaries", "error", err.Error(), "boardId", boardID)
		return fmt.Errorf("failed to query binaries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var binary design.SourceBinary
		var uploadedAt string
		if err := rows.Scan(&binary.ID, &binary.FileName, &binary.ContentType, &binary.Path, &uploadedAt); err != nil {
			return fmt.Errorf("failed to scan binary: %w", err)
		}
		binary.UploadedAt, _ = time.Parse(time.RFC3339, uploadedAt)

		data, err := os.ReadFile(binary.Path)
		if err != nil {
			r.logger.Board().Warn("Source binary file missing, skipping", "boardId", boardID, "sourceId", binary.ID, "path", binary.Path)
			continue
		}
		binary.Data = data

		r.cache.RegisterBinary(boardID, &binary)
	}
	return rows.Err()
}
