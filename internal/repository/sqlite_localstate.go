package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/thomhug/resumedit/internal/db"
	"github.com/thomhug/resumedit/internal/domain"
)

// SQLiteLocalStateRepo implements LocalStateRepo using a SQLite database.
// The tree is stored as one JSON document per store.
type SQLiteLocalStateRepo struct {
	db db.DBTX
}

// NewSQLiteLocalStateRepo creates a new SQLiteLocalStateRepo.
func NewSQLiteLocalStateRepo(conn db.DBTX) *SQLiteLocalStateRepo {
	return &SQLiteLocalStateRepo{db: conn}
}

func (r *SQLiteLocalStateRepo) Get(ctx context.Context, storeName string) (*domain.LocalState, error) {
	query := `SELECT store_name, schema_version, root_client_id, tree, updated_at, last_synced_at
		FROM local_state WHERE store_name = ?`
	var s domain.LocalState
	var treeJSON, updatedAtStr string
	var lastSynced sql.NullString

	err := r.db.QueryRowContext(ctx, query, storeName).Scan(
		&s.StoreName, &s.SchemaVersion, &s.RootClientID, &treeJSON, &updatedAtStr, &lastSynced,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("local state %q: %w", storeName, ErrNotFound)
		}
		return nil, fmt.Errorf("scanning local state: %w", err)
	}

	if treeJSON != "" && treeJSON != "null" {
		var snap domain.Snapshot
		if err := json.Unmarshal([]byte(treeJSON), &snap); err != nil {
			return nil, fmt.Errorf("decoding local tree %q: %w", storeName, err)
		}
		s.Tree = &snap
	}
	if s.UpdatedAt, err = parseTime(updatedAtStr); err != nil {
		return nil, err
	}
	s.LastSyncedAt = parseNullableTime(lastSynced)
	return &s, nil
}

// Save replaces the stored tree. The last sync time is preserved.
func (r *SQLiteLocalStateRepo) Save(ctx context.Context, s *domain.LocalState) error {
	treeJSON := []byte("null")
	if s.Tree != nil {
		var err error
		treeJSON, err = json.Marshal(s.Tree)
		if err != nil {
			return fmt.Errorf("encoding local tree %q: %w", s.StoreName, err)
		}
	}
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = time.Now().UTC()
	}
	query := `INSERT INTO local_state (store_name, schema_version, root_client_id, tree, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(store_name) DO UPDATE SET
			schema_version = excluded.schema_version,
			root_client_id = excluded.root_client_id,
			tree = excluded.tree,
			updated_at = excluded.updated_at`
	_, err := r.db.ExecContext(ctx, query,
		s.StoreName,
		s.SchemaVersion,
		s.RootClientID,
		string(treeJSON),
		formatTime(s.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("saving local state: %w", err)
	}
	return nil
}

func (r *SQLiteLocalStateRepo) Delete(ctx context.Context, storeName string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM local_state WHERE store_name = ?`, storeName)
	if err != nil {
		return fmt.Errorf("deleting local state: %w", err)
	}
	return nil
}

func (r *SQLiteLocalStateRepo) MarkSynced(ctx context.Context, storeName string, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE local_state SET last_synced_at = ? WHERE store_name = ?`,
		formatTime(at), storeName)
	if err != nil {
		return fmt.Errorf("marking local state synced: %w", err)
	}
	return requireRow(res, "local state")
}
