package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/dan-solli/goplexus/pkg/graph"
)

// SQLiteStore implements ContextStore using SQLite as the backend.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-backed context store.
// The dbPath can be a file path or ":memory:" for an in-memory database.
// Creates tables and indexes if they don't exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

// initSchema creates the database schema if it doesn't exist.
func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS contexts (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT,
		metadata TEXT,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS nodes (
		id TEXT NOT NULL,
		context_id TEXT NOT NULL,
		node_type TEXT,
		content_type TEXT,
		dimension TEXT,
		source TEXT,
		properties TEXT,
		created_at DATETIME,
		modified_at DATETIME,
		PRIMARY KEY (context_id, id),
		FOREIGN KEY (context_id) REFERENCES contexts(id)
	);

	CREATE INDEX IF NOT EXISTS idx_nodes_context ON nodes(context_id);

	CREATE TABLE IF NOT EXISTS edges (
		id TEXT NOT NULL,
		context_id TEXT NOT NULL,
		source_id TEXT NOT NULL,
		relationship TEXT NOT NULL,
		target_id TEXT NOT NULL,
		raw_weight REAL DEFAULT 0,
		properties TEXT,
		contributions TEXT,
		created_at DATETIME,
		PRIMARY KEY (context_id, id),
		FOREIGN KEY (context_id) REFERENCES contexts(id)
	);

	CREATE INDEX IF NOT EXISTS idx_edges_context ON edges(context_id);
	CREATE INDEX IF NOT EXISTS idx_edges_source ON edges(context_id, source_id);
	CREATE INDEX IF NOT EXISTS idx_edges_target ON edges(context_id, target_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SaveContext persists the full state of a context in a single transaction.
// Existing rows for the context are replaced wholesale.
func (s *SQLiteStore) SaveContext(ctx context.Context, gc *graph.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	metadataJSON, err := json.Marshal(gc.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal context metadata: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO contexts (id, name, description, metadata, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		gc.ID, gc.Name, gc.Description, string(metadataJSON), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save context row: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM nodes WHERE context_id = ?", gc.ID); err != nil {
		return fmt.Errorf("failed to clear nodes: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM edges WHERE context_id = ?", gc.ID); err != nil {
		return fmt.Errorf("failed to clear edges: %w", err)
	}

	nodeStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO nodes (id, context_id, node_type, content_type, dimension, source, properties, created_at, modified_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare node insert: %w", err)
	}
	defer nodeStmt.Close()

	for _, node := range gc.Nodes {
		propsJSON, err := json.Marshal(node.Properties)
		if err != nil {
			return fmt.Errorf("failed to marshal node properties: %w", err)
		}
		_, err = nodeStmt.ExecContext(ctx,
			node.ID, gc.ID, node.NodeType, string(node.ContentType), node.Dimension,
			node.Source, string(propsJSON), node.CreatedAt, node.ModifiedAt)
		if err != nil {
			return fmt.Errorf("failed to insert node %s: %w", node.ID, err)
		}
	}

	edgeStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO edges (id, context_id, source_id, relationship, target_id, raw_weight, properties, contributions, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare edge insert: %w", err)
	}
	defer edgeStmt.Close()

	for _, edge := range gc.Edges {
		propsJSON, err := json.Marshal(edge.Properties)
		if err != nil {
			return fmt.Errorf("failed to marshal edge properties: %w", err)
		}
		contribJSON, err := json.Marshal(edge.Contributions)
		if err != nil {
			return fmt.Errorf("failed to marshal edge contributions: %w", err)
		}
		_, err = edgeStmt.ExecContext(ctx,
			edge.ID, gc.ID, edge.Source, edge.Relationship, edge.Target,
			edge.RawWeight, string(propsJSON), string(contribJSON), edge.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert edge %s: %w", edge.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// LoadContext retrieves a context by its ID.
// Returns (nil, nil) if the context is not found.
func (s *SQLiteStore) LoadContext(ctx context.Context, id string) (*graph.Context, error) {
	var name string
	var description sql.NullString
	var metadataJSON sql.NullString

	err := s.db.QueryRowContext(ctx,
		"SELECT name, description, metadata FROM contexts WHERE id = ?", id).
		Scan(&name, &description, &metadataJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query context: %w", err)
	}

	gc := graph.NewContextWithID(id, name)
	gc.Description = description.String
	if metadataJSON.Valid && metadataJSON.String != "" {
		if err := json.Unmarshal([]byte(metadataJSON.String), &gc.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal context metadata: %w", err)
		}
	}

	if err := s.loadNodes(ctx, gc); err != nil {
		return nil, err
	}
	if err := s.loadEdges(ctx, gc); err != nil {
		return nil, err
	}

	// Contribution statistics are derived state; rebuild them on load.
	gc.RecomputeRawWeights()
	return gc, nil
}

func (s *SQLiteStore) loadNodes(ctx context.Context, gc *graph.Context) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, node_type, content_type, dimension, source, properties, created_at, modified_at
		 FROM nodes WHERE context_id = ?`, gc.ID)
	if err != nil {
		return fmt.Errorf("failed to query nodes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		node := &graph.Node{}
		var contentType string
		var propsJSON sql.NullString
		var modifiedAt sql.NullTime
		err := rows.Scan(&node.ID, &node.NodeType, &contentType, &node.Dimension,
			&node.Source, &propsJSON, &node.CreatedAt, &modifiedAt)
		if err != nil {
			return fmt.Errorf("failed to scan node: %w", err)
		}
		node.ContentType = graph.ContentType(contentType)
		if modifiedAt.Valid {
			node.ModifiedAt = modifiedAt.Time
		}
		if propsJSON.Valid && propsJSON.String != "" {
			if err := json.Unmarshal([]byte(propsJSON.String), &node.Properties); err != nil {
				return fmt.Errorf("failed to unmarshal node properties: %w", err)
			}
		}
		gc.Nodes[node.ID] = node
	}
	return rows.Err()
}

func (s *SQLiteStore) loadEdges(ctx context.Context, gc *graph.Context) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source_id, relationship, target_id, raw_weight, properties, contributions, created_at
		 FROM edges WHERE context_id = ? ORDER BY created_at, id`, gc.ID)
	if err != nil {
		return fmt.Errorf("failed to query edges: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		edge := &graph.Edge{}
		var propsJSON, contribJSON sql.NullString
		err := rows.Scan(&edge.ID, &edge.Source, &edge.Relationship, &edge.Target,
			&edge.RawWeight, &propsJSON, &contribJSON, &edge.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to scan edge: %w", err)
		}
		if propsJSON.Valid && propsJSON.String != "" {
			if err := json.Unmarshal([]byte(propsJSON.String), &edge.Properties); err != nil {
				return fmt.Errorf("failed to unmarshal edge properties: %w", err)
			}
		}
		if contribJSON.Valid && contribJSON.String != "" {
			if err := json.Unmarshal([]byte(contribJSON.String), &edge.Contributions); err != nil {
				return fmt.Errorf("failed to unmarshal edge contributions: %w", err)
			}
		}
		gc.Edges = append(gc.Edges, edge)
	}
	return rows.Err()
}

// DeleteContext removes a context and all its nodes and edges.
func (s *SQLiteStore) DeleteContext(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		"DELETE FROM edges WHERE context_id = ?",
		"DELETE FROM nodes WHERE context_id = ?",
		"DELETE FROM contexts WHERE id = ?",
	} {
		if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
			return fmt.Errorf("failed to delete context: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ListContexts returns the IDs of all stored contexts, ordered by ID.
func (s *SQLiteStore) ListContexts(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id FROM contexts ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query contexts: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan context id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
