package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/thomhug/resumedit/internal/db"
	"github.com/thomhug/resumedit/internal/domain"
)

// nodeColumns is the canonical SELECT column list for nodes.
const nodeColumns = `id, client_id, parent_id, kind, fields, order_value,
		created_at, last_modified, deleted_at`

// siblingOrder is the tie-broken display order of children.
const siblingOrder = `ORDER BY order_value, created_at, id`

// SQLiteNodeRepo implements NodeRepo using a SQLite database.
type SQLiteNodeRepo struct {
	db db.DBTX
}

// NewSQLiteNodeRepo creates a new SQLiteNodeRepo.
func NewSQLiteNodeRepo(conn db.DBTX) *SQLiteNodeRepo {
	return &SQLiteNodeRepo{db: conn}
}

func (r *SQLiteNodeRepo) Create(ctx context.Context, n *domain.Snapshot) error {
	fields, err := encodeFields(n.Fields)
	if err != nil {
		return err
	}
	query := `INSERT INTO nodes (id, client_id, parent_id, kind, fields, order_value,
		created_at, last_modified, deleted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = r.db.ExecContext(ctx, query,
		n.ID,
		n.ClientID,
		nullableString(n.ParentID),
		string(n.Kind),
		fields,
		n.OrderValue,
		formatTime(n.CreatedAt),
		formatTime(n.LastModified),
		nullableTimeToString(n.DeletedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting node: %w", err)
	}
	return nil
}

func (r *SQLiteNodeRepo) GetByID(ctx context.Context, id string) (*domain.Snapshot, error) {
	query := `SELECT ` + nodeColumns + ` FROM nodes WHERE id = ?`
	return r.scanNode(r.db.QueryRowContext(ctx, query, id))
}

func (r *SQLiteNodeRepo) GetByClientID(ctx context.Context, clientID string) (*domain.Snapshot, error) {
	query := `SELECT ` + nodeColumns + ` FROM nodes WHERE client_id = ?`
	return r.scanNode(r.db.QueryRowContext(ctx, query, clientID))
}

func (r *SQLiteNodeRepo) ListChildren(ctx context.Context, parentID string, includeDeleted bool) ([]*domain.Snapshot, error) {
	query := `SELECT ` + nodeColumns + ` FROM nodes WHERE parent_id = ?`
	if !includeDeleted {
		query += ` AND deleted_at IS NULL`
	}
	query += ` ` + siblingOrder
	rows, err := r.db.QueryContext(ctx, query, parentID)
	if err != nil {
		return nil, fmt.Errorf("listing child nodes: %w", err)
	}
	defer rows.Close()
	return r.scanNodes(rows)
}

func (r *SQLiteNodeRepo) ListRoots(ctx context.Context, kind domain.Kind) ([]*domain.Snapshot, error) {
	query := `SELECT ` + nodeColumns + ` FROM nodes
		WHERE parent_id IS NULL AND kind = ? AND deleted_at IS NULL
		ORDER BY created_at, id`
	rows, err := r.db.QueryContext(ctx, query, string(kind))
	if err != nil {
		return nil, fmt.Errorf("listing root nodes: %w", err)
	}
	defer rows.Close()
	return r.scanNodes(rows)
}

// Update rewrites the mutable columns. Identity, parent and creation time
// never change.
func (r *SQLiteNodeRepo) Update(ctx context.Context, n *domain.Snapshot) error {
	fields, err := encodeFields(n.Fields)
	if err != nil {
		return err
	}
	query := `UPDATE nodes SET fields = ?, order_value = ?, last_modified = ?, deleted_at = ?
		WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query,
		fields,
		n.OrderValue,
		formatTime(n.LastModified),
		nullableTimeToString(n.DeletedAt),
		n.ID,
	)
	if err != nil {
		return fmt.Errorf("updating node: %w", err)
	}
	return requireRow(res, "node")
}

// MarkDeleted soft-deletes a node. An already deleted node keeps its
// original deletion time.
func (r *SQLiteNodeRepo) MarkDeleted(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE nodes SET deleted_at = COALESCE(deleted_at, ?),
		last_modified = MAX(last_modified, ?)
		WHERE id = ?`
	stamp := formatTime(at)
	res, err := r.db.ExecContext(ctx, query, stamp, stamp, id)
	if err != nil {
		return fmt.Errorf("deleting node: %w", err)
	}
	return requireRow(res, "node")
}

// MaxLastModified returns the latest last_modified over the live subtree
// rooted at id.
func (r *SQLiteNodeRepo) MaxLastModified(ctx context.Context, id string) (time.Time, error) {
	query := `WITH RECURSIVE sub(id) AS (
			SELECT id FROM nodes WHERE id = ? AND deleted_at IS NULL
			UNION ALL
			SELECT n.id FROM nodes n JOIN sub ON n.parent_id = sub.id
			WHERE n.deleted_at IS NULL
		)
		SELECT MAX(last_modified) FROM nodes WHERE id IN (SELECT id FROM sub)`
	var latest sql.NullString
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&latest); err != nil {
		return time.Time{}, fmt.Errorf("reading last modified: %w", err)
	}
	if !latest.Valid {
		return time.Time{}, fmt.Errorf("node %s: %w", id, ErrNotFound)
	}
	return parseTime(latest.String)
}

func requireRow(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return nil
}

// scanNode scans a single node from a *sql.Row.
func (r *SQLiteNodeRepo) scanNode(row *sql.Row) (*domain.Snapshot, error) {
	var n domain.Snapshot
	var parentID, deletedAt sql.NullString
	var kindStr, fieldsStr, createdAtStr, lastModifiedStr string

	err := row.Scan(&n.ID, &n.ClientID, &parentID, &kindStr, &fieldsStr, &n.OrderValue,
		&createdAtStr, &lastModifiedStr, &deletedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("node: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("scanning node: %w", err)
	}
	return r.populateNode(&n, parentID, kindStr, fieldsStr, createdAtStr, lastModifiedStr, deletedAt)
}

// scanNodes scans multiple nodes from *sql.Rows.
func (r *SQLiteNodeRepo) scanNodes(rows *sql.Rows) ([]*domain.Snapshot, error) {
	var nodes []*domain.Snapshot
	for rows.Next() {
		var n domain.Snapshot
		var parentID, deletedAt sql.NullString
		var kindStr, fieldsStr, createdAtStr, lastModifiedStr string

		err := rows.Scan(&n.ID, &n.ClientID, &parentID, &kindStr, &fieldsStr, &n.OrderValue,
			&createdAtStr, &lastModifiedStr, &deletedAt)
		if err != nil {
			return nil, fmt.Errorf("scanning node row: %w", err)
		}
		node, err := r.populateNode(&n, parentID, kindStr, fieldsStr, createdAtStr, lastModifiedStr, deletedAt)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating node rows: %w", err)
	}
	return nodes, nil
}

func (r *SQLiteNodeRepo) populateNode(
	n *domain.Snapshot,
	parentID sql.NullString,
	kindStr, fieldsStr, createdAtStr, lastModifiedStr string,
	deletedAt sql.NullString,
) (*domain.Snapshot, error) {
	kind, err := domain.ParseKind(kindStr)
	if err != nil {
		return nil, err
	}
	n.Kind = kind
	if parentID.Valid {
		n.ParentID = parentID.String
	}
	if n.Fields, err = decodeFields(fieldsStr); err != nil {
		return nil, err
	}
	if n.CreatedAt, err = parseTime(createdAtStr); err != nil {
		return nil, err
	}
	if n.LastModified, err = parseTime(lastModifiedStr); err != nil {
		return nil, err
	}
	n.DeletedAt = parseNullableTime(deletedAt)
	return n, nil
}
