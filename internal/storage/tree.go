package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/kyozai/toibako/internal/models"
)

// maxTreeDepth bounds the parent-pointer walk so a corrupt tree with a
// cycle cannot hang the service.
const maxTreeDepth = 32

// CreateTreeNode inserts a category tree node.
func (s *SQLiteStore) CreateTreeNode(ctx context.Context, node *models.TreeNode) error {
	if strings.TrimSpace(node.Name) == "" {
		return fmt.Errorf("tree node name is required")
	}
	var parent any
	if node.ParentID != nil {
		parent = *node.ParentID
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO exercise_tree (parent_id, name, level) VALUES (?, ?, ?)`,
		parent, node.Name, node.Level)
	if err != nil {
		return err
	}
	node.ID, err = res.LastInsertId()
	return err
}

// SubtreeIDs returns the ids of the tree node with the given level and
// name plus all of its descendants. Unknown names yield an empty set.
func (s *SQLiteStore) SubtreeIDs(ctx context.Context, level, name string) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`WITH RECURSIVE subtree(id) AS (
			SELECT id FROM exercise_tree WHERE name = ? AND level = ?
			UNION ALL
			SELECT et.id FROM exercise_tree et JOIN subtree ON et.parent_id = subtree.id
		)
		SELECT id FROM subtree`, name, level)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// TreePath walks the parent chain of treeID and returns the joined path,
// e.g. "Math > Grade 9 > Algebra". A zero treeID yields an empty path.
func (s *SQLiteStore) TreePath(ctx context.Context, treeID int64) (string, error) {
	if treeID == 0 {
		return "", nil
	}
	var parts []string
	current := treeID
	for depth := 0; depth < maxTreeDepth && current != 0; depth++ {
		var name string
		var parent sql.NullInt64
		err := s.db.QueryRowContext(ctx,
			`SELECT name, parent_id FROM exercise_tree WHERE id = ?`, current,
		).Scan(&name, &parent)
		if errors.Is(err, sql.ErrNoRows) {
			break
		}
		if err != nil {
			return "", err
		}
		parts = append([]string{name}, parts...)
		if !parent.Valid {
			break
		}
		current = parent.Int64
	}
	return strings.Join(parts, " > "), nil
}
