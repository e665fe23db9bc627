package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"assetgraph/internal/domain"
	"assetgraph/internal/repository"

	_ "modernc.org/sqlite"
)

// deleteBatchSize bounds the number of ids bound into one IN clause
const deleteBatchSize = 500

// querier is satisfied by *sql.DB and *sql.Tx
type querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Repository implements repository.Store using SQLite
type Repository struct {
	db *sql.DB
}

var _ repository.Store = (*Repository)(nil)

// New opens (or creates) the database at dbPath and migrates the schema.
// ":memory:" opens a private in-memory database.
func New(dbPath string) (*Repository, error) {
	memory := dbPath == ":memory:"
	// write transactions take the lock up front so read-modify-write
	// transactions wait on busy_timeout instead of failing to upgrade
	dsn := "file:" + dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate"
	if memory {
		dsn = "file::memory:?_pragma=foreign_keys(1)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if memory {
		// every connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	}

	repo := &Repository{db: db}
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return repo, nil
}

// NewWithDB wraps an already opened database without migrating it
func NewWithDB(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS nodes (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		class_id TEXT,
		name TEXT NOT NULL DEFAULT '',
		parent_id TEXT,
		properties JSON,
		created_at INTEGER NOT NULL DEFAULT 0,
		updated_at INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS edges (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		from_id TEXT NOT NULL,
		to_id TEXT NOT NULL,
		tag TEXT,
		ordinal INTEGER NOT NULL DEFAULT 0,
		FOREIGN KEY (from_id) REFERENCES nodes(id) ON DELETE CASCADE,
		FOREIGN KEY (to_id) REFERENCES nodes(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_nodes_kind ON nodes(kind);
	CREATE INDEX IF NOT EXISTS idx_nodes_class ON nodes(class_id);
	CREATE INDEX IF NOT EXISTS idx_nodes_parent ON nodes(parent_id);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_nodes_class_name ON nodes(name) WHERE kind = 'class';
	CREATE INDEX IF NOT EXISTS idx_edges_from ON edges(from_id, kind);
	CREATE INDEX IF NOT EXISTS idx_edges_to ON edges(to_id, kind);
	`

	_, err := r.db.Exec(schema)
	return err
}

// Close closes the database connection
func (r *Repository) Close() error {
	return r.db.Close()
}

// inTx runs fn in a transaction, rolling back on error
func (r *Repository) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// insertEdge inserts one edge inside tx
func insertEdge(ctx context.Context, tx *sql.Tx, id string, kind domain.EdgeKind, fromID, toID, tag string, ordinal int) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO edges (`+edgeColumns+`) VALUES (?, ?, ?, ?, ?, ?)
	`, id, string(kind), fromID, toID, stringToNull(tag), ordinal)
	if err != nil {
		return fmt.Errorf("failed to insert %s edge %s -> %s: %w", kind, fromID, toID, err)
	}
	return nil
}

// insertNode inserts one node row inside tx
func insertNode(ctx context.Context, tx *sql.Tx, args []interface{}) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO nodes (id, kind, class_id, name, parent_id, properties, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, args...)
	if err != nil {
		return fmt.Errorf("failed to insert node %v: %w", args[0], err)
	}
	return nil
}

// ============================================================================
// Schema
// ============================================================================

// LoadSchema loads every class, attribute and containment rule
func (r *Repository) LoadSchema(ctx context.Context) (*repository.Schema, error) {
	schema := &repository.Schema{}

	rows, err := r.db.QueryContext(ctx, nodeSelect+`
		WHERE n.kind IN (?, ?) ORDER BY n.rowid
	`, string(domain.NodeClass), string(domain.NodeAttribute))
	if err != nil {
		return nil, fmt.Errorf("failed to query schema nodes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var row nodeRow
		if err := rows.Scan(row.scanArgs()...); err != nil {
			return nil, fmt.Errorf("failed to scan schema node: %w", err)
		}
		switch domain.NodeKind(row.Kind) {
		case domain.NodeClass:
			class, err := row.toClass()
			if err != nil {
				return nil, err
			}
			schema.Classes = append(schema.Classes, class)
		case domain.NodeAttribute:
			attr, err := row.toAttribute()
			if err != nil {
				return nil, err
			}
			schema.Attributes = append(schema.Attributes, attr)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating schema nodes: %w", err)
	}
	rows.Close()

	edgeRows, err := r.db.QueryContext(ctx, `
		SELECT `+edgeColumns+` FROM edges WHERE kind IN (?, ?) ORDER BY rowid
	`, string(domain.EdgePossibleChild), string(domain.EdgePossibleChildSpecial))
	if err != nil {
		return nil, fmt.Errorf("failed to query containment rules: %w", err)
	}
	defer edgeRows.Close()

	for edgeRows.Next() {
		var row edgeRow
		if err := edgeRows.Scan(row.scanArgs()...); err != nil {
			return nil, fmt.Errorf("failed to scan containment rule: %w", err)
		}
		schema.Rules = append(schema.Rules, domain.ContainmentRule{
			ParentID: row.FromID,
			ChildID:  row.ToID,
			Special:  domain.EdgeKind(row.Kind) == domain.EdgePossibleChildSpecial,
		})
	}
	if err := edgeRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating containment rules: %w", err)
	}

	return schema, nil
}

// CreateClass inserts a class node and its INHERITS edge
func (r *Repository) CreateClass(ctx context.Context, class *domain.Class) error {
	args, err := classInsertArgs(class)
	if err != nil {
		return err
	}
	return r.inTx(ctx, func(tx *sql.Tx) error {
		if err := insertNode(ctx, tx, args); err != nil {
			return err
		}
		if class.ParentID == "" {
			return nil
		}
		return insertEdge(ctx, tx, structuralEdgeID(domain.EdgeInherits, class.ID, class.ParentID),
			domain.EdgeInherits, class.ID, class.ParentID, "", 0)
	})
}

// UpdateClass stores the class definition and re-points its INHERITS edge
func (r *Repository) UpdateClass(ctx context.Context, class *domain.Class) error {
	args, err := classInsertArgs(class)
	if err != nil {
		return err
	}
	return r.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE nodes SET name = ?, parent_id = ?, properties = ?, updated_at = ?
			WHERE id = ? AND kind = ?
		`, class.Name, stringToNull(class.ParentID), args[5], time.Now().UnixMilli(), class.ID, string(domain.NodeClass))
		if err != nil {
			return fmt.Errorf("failed to update class: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("class not found: %s", class.ID)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM edges WHERE from_id = ? AND kind = ?`,
			class.ID, string(domain.EdgeInherits)); err != nil {
			return fmt.Errorf("failed to delete inherits edge: %w", err)
		}
		if class.ParentID == "" {
			return nil
		}
		return insertEdge(ctx, tx, structuralEdgeID(domain.EdgeInherits, class.ID, class.ParentID),
			domain.EdgeInherits, class.ID, class.ParentID, "", 0)
	})
}

// DeleteClass removes a class node, its own attributes and every edge
// touching them
func (r *Repository) DeleteClass(ctx context.Context, id string) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM edges WHERE from_id = ? OR to_id = ?
			OR from_id IN (SELECT id FROM nodes WHERE class_id = ? AND kind = ?)
			OR to_id IN (SELECT id FROM nodes WHERE class_id = ? AND kind = ?)
		`, id, id, id, string(domain.NodeAttribute), id, string(domain.NodeAttribute)); err != nil {
			return fmt.Errorf("failed to delete class edges: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM nodes WHERE class_id = ? AND kind = ?`,
			id, string(domain.NodeAttribute)); err != nil {
			return fmt.Errorf("failed to delete class attributes: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM nodes WHERE id = ? AND kind = ?`,
			id, string(domain.NodeClass)); err != nil {
			return fmt.Errorf("failed to delete class: %w", err)
		}
		return nil
	})
}

// CreateAttribute inserts an attribute node and its HAS_ATTRIBUTE edge
func (r *Repository) CreateAttribute(ctx context.Context, attr *domain.Attribute) error {
	args, err := attributeInsertArgs(attr, time.Now().UnixMilli())
	if err != nil {
		return err
	}
	return r.inTx(ctx, func(tx *sql.Tx) error {
		if err := insertNode(ctx, tx, args); err != nil {
			return err
		}
		return insertEdge(ctx, tx, structuralEdgeID(domain.EdgeHasAttribute, attr.ClassID, attr.ID),
			domain.EdgeHasAttribute, attr.ClassID, attr.ID, "", 0)
	})
}

// UpdateAttribute stores the attribute and renames stored values when the
// name changed
func (r *Repository) UpdateAttribute(ctx context.Context, attr *domain.Attribute, oldName string, classIDs []string) error {
	args, err := attributeInsertArgs(attr, time.Now().UnixMilli())
	if err != nil {
		return err
	}
	return r.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE nodes SET name = ?, properties = ?, updated_at = ? WHERE id = ? AND kind = ?
		`, attr.Name, args[5], args[7], attr.ID, string(domain.NodeAttribute))
		if err != nil {
			return fmt.Errorf("failed to update attribute: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("attribute not found: %s", attr.ID)
		}

		if oldName == "" || oldName == attr.Name || len(classIDs) == 0 {
			return nil
		}
		if err := rewriteProperties(ctx, tx, classIDs, func(props map[string]string) bool {
			v, ok := props[oldName]
			if !ok {
				return false
			}
			delete(props, oldName)
			props[attr.Name] = v
			return true
		}); err != nil {
			return err
		}
		return retagEdges(ctx, tx, classIDs, oldName, attr.Name)
	})
}

// DeleteAttribute removes the attribute node and every stored value of it
func (r *Repository) DeleteAttribute(ctx context.Context, attr *domain.Attribute, classIDs []string) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		if len(classIDs) > 0 {
			if err := rewriteProperties(ctx, tx, classIDs, func(props map[string]string) bool {
				if _, ok := props[attr.Name]; !ok {
					return false
				}
				delete(props, attr.Name)
				return true
			}); err != nil {
				return err
			}

			in, args := inClause(classIDs)
			args = append([]interface{}{string(domain.EdgeRelatedTo), attr.Name}, args...)
			if _, err := tx.ExecContext(ctx, `
				DELETE FROM edges WHERE kind = ? AND tag = ?
				AND from_id IN (SELECT id FROM nodes WHERE class_id IN (`+in+`))
			`, args...); err != nil {
				return fmt.Errorf("failed to delete attribute edges: %w", err)
			}
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM edges WHERE to_id = ? OR from_id = ?`, attr.ID, attr.ID); err != nil {
			return fmt.Errorf("failed to delete attribute ownership: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM nodes WHERE id = ? AND kind = ?`,
			attr.ID, string(domain.NodeAttribute)); err != nil {
			return fmt.Errorf("failed to delete attribute: %w", err)
		}
		return nil
	})
}

// rewriteProperties applies fn to the properties of every instance of
// classIDs and stores the ones fn reports as changed
func rewriteProperties(ctx context.Context, tx *sql.Tx, classIDs []string, fn func(map[string]string) bool) error {
	in, args := inClause(classIDs)
	rows, err := tx.QueryContext(ctx, `
		SELECT id, properties FROM nodes WHERE class_id IN (`+in+`) AND properties IS NOT NULL
	`, args...)
	if err != nil {
		return fmt.Errorf("failed to query instance properties: %w", err)
	}

	changed := make(map[string]sql.NullString)
	for rows.Next() {
		var (
			id  string
			raw sql.NullString
		)
		if err := rows.Scan(&id, &raw); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan instance properties: %w", err)
		}
		props := make(map[string]string)
		if err := unmarshalJSONField(raw, &props); err != nil {
			rows.Close()
			return fmt.Errorf("unmarshal properties of %s: %w", id, err)
		}
		if !fn(props) {
			continue
		}
		encoded, err := marshalToNull(props)
		if err != nil {
			rows.Close()
			return fmt.Errorf("marshal properties of %s: %w", id, err)
		}
		changed[id] = encoded
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("error iterating instance properties: %w", err)
	}
	rows.Close()

	for id, props := range changed {
		if _, err := tx.ExecContext(ctx, `UPDATE nodes SET properties = ? WHERE id = ?`, props, id); err != nil {
			return fmt.Errorf("failed to update properties of %s: %w", id, err)
		}
	}
	return nil
}

// retagEdges renames the tag of RELATED_TO edges leaving instances of
// classIDs, regenerating their ids
func retagEdges(ctx context.Context, tx *sql.Tx, classIDs []string, oldTag, newTag string) error {
	in, args := inClause(classIDs)
	args = append([]interface{}{string(domain.EdgeRelatedTo), oldTag}, args...)
	rows, err := tx.QueryContext(ctx, `
		SELECT `+edgeColumns+` FROM edges WHERE kind = ? AND tag = ?
		AND from_id IN (SELECT id FROM nodes WHERE class_id IN (`+in+`))
	`, args...)
	if err != nil {
		return fmt.Errorf("failed to query tagged edges: %w", err)
	}

	var edges []edgeRow
	for rows.Next() {
		var row edgeRow
		if err := rows.Scan(row.scanArgs()...); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan tagged edge: %w", err)
		}
		edges = append(edges, row)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("error iterating tagged edges: %w", err)
	}
	rows.Close()

	for _, e := range edges {
		rel := domain.NewRelationship(e.FromID, e.ToID, newTag)
		if _, err := tx.ExecContext(ctx, `UPDATE edges SET id = ?, tag = ? WHERE id = ?`,
			rel.ID, newTag, e.ID); err != nil {
			return fmt.Errorf("failed to retag edge %s: %w", e.ID, err)
		}
	}
	return nil
}

// AddContainmentRules inserts every rule or none
func (r *Repository) AddContainmentRules(ctx context.Context, rules []domain.ContainmentRule) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		for _, rule := range rules {
			kind := rule.EdgeKind()
			if err := insertEdge(ctx, tx, structuralEdgeID(kind, rule.ParentID, rule.ChildID),
				kind, rule.ParentID, rule.ChildID, "", 0); err != nil {
				return err
			}
		}
		return nil
	})
}

// RemoveContainmentRules deletes the given rules; missing rules are ignored
func (r *Repository) RemoveContainmentRules(ctx context.Context, rules []domain.ContainmentRule) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		for _, rule := range rules {
			kind := rule.EdgeKind()
			if _, err := tx.ExecContext(ctx, `DELETE FROM edges WHERE id = ?`,
				structuralEdgeID(kind, rule.ParentID, rule.ChildID)); err != nil {
				return fmt.Errorf("failed to delete %s edge %s -> %s: %w", kind, rule.ParentID, rule.ChildID, err)
			}
		}
		return nil
	})
}

// ============================================================================
// Instances
// ============================================================================

// writeRelationships inserts the relationship edges of inst with their
// enumeration order as ordinal
func writeRelationships(ctx context.Context, tx *sql.Tx, inst *domain.Instance) error {
	for i, rel := range inst.Relationships {
		id := rel.ID
		if id == "" {
			id = domain.NewRelationship(inst.ID, rel.ToID, rel.Tag).ID
		}
		if err := insertEdge(ctx, tx, id, domain.EdgeRelatedTo, inst.ID, rel.ToID, rel.Tag, i); err != nil {
			return err
		}
	}
	return nil
}

// CreateInstance inserts an instance node with its class, containment and
// relationship edges
func (r *Repository) CreateInstance(ctx context.Context, inst *domain.Instance) error {
	args, err := instanceInsertArgs(inst)
	if err != nil {
		return err
	}
	return r.inTx(ctx, func(tx *sql.Tx) error {
		if err := insertNode(ctx, tx, args); err != nil {
			return err
		}
		if err := insertEdge(ctx, tx, structuralEdgeID(domain.EdgeInstanceOf, inst.ID, inst.ClassID),
			domain.EdgeInstanceOf, inst.ID, inst.ClassID, "", 0); err != nil {
			return err
		}
		if inst.ParentID != "" {
			if err := insertEdge(ctx, tx, structuralEdgeID(domain.EdgeContainedBy, inst.ID, inst.ParentID),
				domain.EdgeContainedBy, inst.ID, inst.ParentID, "", 0); err != nil {
				return err
			}
		}
		return writeRelationships(ctx, tx, inst)
	})
}

// GetInstance retrieves an instance with its relationships
func (r *Repository) GetInstance(ctx context.Context, id string) (*domain.Instance, error) {
	return getInstance(ctx, r.db, id)
}

func getInstance(ctx context.Context, q querier, id string) (*domain.Instance, error) {
	var row nodeRow
	err := q.QueryRowContext(ctx, nodeSelect+`
		WHERE n.id = ? AND n.kind IN (?, ?)
	`, id, string(domain.NodeInstance), string(domain.NodeListItem)).Scan(row.scanArgs()...)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get instance: %w", err)
	}

	inst, err := row.toInstance()
	if err != nil {
		return nil, err
	}

	rels, err := loadRelationships(ctx, q, `from_id = ?`, id)
	if err != nil {
		return nil, err
	}
	inst.Relationships = rels[id]
	return inst, nil
}

// loadRelationships loads RELATED_TO edges matching where, grouped by source
// and ordered by ordinal
func loadRelationships(ctx context.Context, q querier, where string, args ...interface{}) (map[string][]domain.Relationship, error) {
	args = append([]interface{}{string(domain.EdgeRelatedTo)}, args...)
	rows, err := q.QueryContext(ctx, `
		SELECT `+edgeColumns+` FROM edges WHERE kind = ? AND `+where+` ORDER BY from_id, ordinal, rowid
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query relationships: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]domain.Relationship)
	for rows.Next() {
		var row edgeRow
		if err := rows.Scan(row.scanArgs()...); err != nil {
			return nil, fmt.Errorf("failed to scan relationship: %w", err)
		}
		out[row.FromID] = append(out[row.FromID], row.toRelationship())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating relationships: %w", err)
	}
	return out, nil
}

// UpdateInstanceFunc loads the instance, lets fn modify it and stores its
// properties and relationships, all in one transaction. Nothing is written
// when fn fails.
func (r *Repository) UpdateInstanceFunc(ctx context.Context, id string, fn func(*domain.Instance) error) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		inst, err := getInstance(ctx, tx, id)
		if err != nil {
			return err
		}
		if inst == nil {
			return fmt.Errorf("%w: %s", repository.ErrInstanceNotFound, id)
		}
		if err := fn(inst); err != nil {
			return err
		}

		props, err := marshalToNull(inst.Properties)
		if err != nil {
			return fmt.Errorf("marshal properties: %w", err)
		}
		inst.UpdatedAt = time.Now()
		if _, err := tx.ExecContext(ctx, `
			UPDATE nodes SET name = ?, properties = ?, updated_at = ? WHERE id = ?
		`, inst.Name(), props, inst.UpdatedAt.UnixMilli(), inst.ID); err != nil {
			return fmt.Errorf("failed to update instance: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM edges WHERE from_id = ? AND kind = ?`,
			inst.ID, string(domain.EdgeRelatedTo)); err != nil {
			return fmt.Errorf("failed to clear relationships: %w", err)
		}
		return writeRelationships(ctx, tx, inst)
	})
}

// MoveInstance changes the containment parent of an instance
func (r *Repository) MoveInstance(ctx context.Context, id, parentID string) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE nodes SET parent_id = ?, updated_at = ? WHERE id = ?`,
			stringToNull(parentID), time.Now().UnixMilli(), id)
		if err != nil {
			return fmt.Errorf("failed to move instance: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("%w: %s", repository.ErrInstanceNotFound, id)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM edges WHERE from_id = ? AND kind = ?`,
			id, string(domain.EdgeContainedBy)); err != nil {
			return fmt.Errorf("failed to delete containment edge: %w", err)
		}
		if parentID == "" {
			return nil
		}
		return insertEdge(ctx, tx, structuralEdgeID(domain.EdgeContainedBy, id, parentID),
			domain.EdgeContainedBy, id, parentID, "", 0)
	})
}

// DeleteInstances deletes every edge touching ids, then the nodes, in one
// transaction
func (r *Repository) DeleteInstances(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	batches := chunk(ids, deleteBatchSize)
	return r.inTx(ctx, func(tx *sql.Tx) error {
		for _, batch := range batches {
			in, args := inClause(batch)
			edgeArgs := append(append([]interface{}{}, args...), args...)
			if _, err := tx.ExecContext(ctx, `
				DELETE FROM edges WHERE from_id IN (`+in+`) OR to_id IN (`+in+`)
			`, edgeArgs...); err != nil {
				return fmt.Errorf("failed to delete instance edges: %w", err)
			}
		}
		for _, batch := range batches {
			in, args := inClause(batch)
			if _, err := tx.ExecContext(ctx, `DELETE FROM nodes WHERE id IN (`+in+`)`, args...); err != nil {
				return fmt.Errorf("failed to delete instances: %w", err)
			}
		}
		return nil
	})
}

// ListChildren returns the ids of instances contained directly by parentID.
// An empty parentID lists the top-level instances.
func (r *Repository) ListChildren(ctx context.Context, parentID string) ([]string, error) {
	query := `SELECT id FROM nodes WHERE parent_id = ? AND kind IN (?, ?) ORDER BY rowid`
	args := []interface{}{parentID, string(domain.NodeInstance), string(domain.NodeListItem)}
	if parentID == "" {
		query = `SELECT id FROM nodes WHERE parent_id IS NULL AND kind = ? ORDER BY rowid`
		args = []interface{}{string(domain.NodeInstance)}
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query children: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan child: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating children: %w", err)
	}
	return ids, nil
}

// CountInstances counts instances and list items of the given classes
func (r *Repository) CountInstances(ctx context.Context, classIDs []string) (int, error) {
	if len(classIDs) == 0 {
		return 0, nil
	}
	in, args := inClause(classIDs)
	args = append(args, string(domain.NodeInstance), string(domain.NodeListItem))

	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM nodes WHERE class_id IN (`+in+`) AND kind IN (?, ?)
	`, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count instances: %w", err)
	}
	return count, nil
}

// ForEachInstance loads the instances of one class with their relationships,
// then calls fn for each of them
func (r *Repository) ForEachInstance(ctx context.Context, classID string, fn func(*domain.Instance) error) error {
	rows, err := r.db.QueryContext(ctx, nodeSelect+`
		WHERE n.class_id = ? AND n.kind IN (?, ?) ORDER BY n.rowid
	`, classID, string(domain.NodeInstance), string(domain.NodeListItem))
	if err != nil {
		return fmt.Errorf("failed to query instances: %w", err)
	}

	var instances []*domain.Instance
	for rows.Next() {
		var row nodeRow
		if err := rows.Scan(row.scanArgs()...); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan instance: %w", err)
		}
		inst, err := row.toInstance()
		if err != nil {
			rows.Close()
			return err
		}
		instances = append(instances, inst)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("error iterating instances: %w", err)
	}
	// released before the next query: in-memory databases hold one connection
	rows.Close()

	if len(instances) == 0 {
		return nil
	}

	rels, err := loadRelationships(ctx, r.db, `from_id IN (SELECT id FROM nodes WHERE class_id = ?)`, classID)
	if err != nil {
		return err
	}

	for _, inst := range instances {
		inst.Relationships = rels[inst.ID]
		if err := fn(inst); err != nil {
			return err
		}
	}
	return nil
}

