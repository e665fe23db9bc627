package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"assetgraph/internal/domain"
	"assetgraph/internal/repository"
)

// ============================================================================
// Test Helpers
// ============================================================================

// newTestRepo creates an in-memory SQLite repository for testing
func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := New(":memory:")
	require.NoError(t, err, "failed to create test repository")
	t.Cleanup(func() {
		repo.Close()
	})
	return repo
}

// seedClass creates and stores a class under parent
func seedClass(t *testing.T, repo *Repository, id, name, parentID string) *domain.Class {
	t.Helper()
	class := domain.NewClass(name, "")
	class.ID = id
	class.ParentID = parentID
	require.NoError(t, repo.CreateClass(context.Background(), class))
	return class
}

// seedAttribute creates and stores an attribute on classID
func seedAttribute(t *testing.T, repo *Repository, id, classID, name string, mapping domain.MappingKind, typ string) *domain.Attribute {
	t.Helper()
	attr := domain.NewAttribute(name, mapping, typ)
	attr.ID = id
	attr.ClassID = classID
	require.NoError(t, repo.CreateAttribute(context.Background(), attr))
	return attr
}

// seedInstance creates and stores an instance of class
func seedInstance(t *testing.T, repo *Repository, id string, class *domain.Class, parentID string) *domain.Instance {
	t.Helper()
	inst := domain.NewInstance(id, class)
	inst.ParentID = parentID
	require.NoError(t, repo.CreateInstance(context.Background(), inst))
	return inst
}

// ============================================================================
// Helper Function Tests
// ============================================================================

func TestNullToString(t *testing.T) {
	tests := []struct {
		name     string
		input    sql.NullString
		expected string
	}{
		{"valid", sql.NullString{String: "x", Valid: true}, "x"},
		{"null", sql.NullString{}, ""},
		{"valid empty", sql.NullString{String: "", Valid: true}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, nullToString(tt.input))
		})
	}
}

func TestMarshalToNull(t *testing.T) {
	ns, err := marshalToNull(map[string]string{})
	require.NoError(t, err)
	assert.False(t, ns.Valid, "empty maps are stored as NULL")

	ns, err = marshalToNull(map[string]string{"serial": "X"})
	require.NoError(t, err)
	assert.Equal(t, `{"serial":"X"}`, ns.String)
}

func TestInClauseAndChunk(t *testing.T) {
	in, args := inClause([]string{"a", "b", "c"})
	assert.Equal(t, "?, ?, ?", in)
	assert.Equal(t, []interface{}{"a", "b", "c"}, args)

	batches := chunk([]string{"1", "2", "3", "4", "5"}, 2)
	assert.Equal(t, [][]string{{"1", "2"}, {"3", "4"}, {"5"}}, batches)
	assert.Empty(t, chunk(nil, 2))
}

func TestMillisRoundTrip(t *testing.T) {
	now := time.UnixMilli(time.Now().UnixMilli()).UTC()
	assert.Equal(t, now, millisToTime(timeToMillis(now)))
	assert.True(t, millisToTime(0).IsZero())
	assert.Equal(t, int64(0), timeToMillis(time.Time{}))
}

// ============================================================================
// Schema Tests
// ============================================================================

func TestSchemaRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	root := seedClass(t, repo, "c-root", domain.RootClassName, "")
	root.Custom = false
	root.Abstract = true
	require.NoError(t, repo.UpdateClass(ctx, root))

	element := seedClass(t, repo, "c-elem", "GenericCommunicationsElement", "c-root")
	router := seedClass(t, repo, "c-router", "Router", "c-elem")
	seedAttribute(t, repo, "a-name", "c-root", domain.AttributeName, domain.MappingPrimitive, domain.TypeString)
	seedAttribute(t, repo, "a-vendor", "c-elem", "vendor", domain.MappingManyToOne, "Vendor")

	require.NoError(t, repo.AddContainmentRules(ctx, []domain.ContainmentRule{
		{ParentID: "c-root", ChildID: element.ID},
		{ParentID: element.ID, ChildID: router.ID, Special: true},
	}))

	schema, err := repo.LoadSchema(ctx)
	require.NoError(t, err)

	require.Len(t, schema.Classes, 3)
	assert.Equal(t, domain.RootClassName, schema.Classes[0].Name)
	assert.True(t, schema.Classes[0].Abstract)
	assert.False(t, schema.Classes[0].Custom)
	assert.Equal(t, "c-elem", schema.Classes[2].ParentID)

	require.Len(t, schema.Attributes, 2)
	assert.Equal(t, "vendor", schema.Attributes[1].Name)
	assert.Equal(t, domain.MappingManyToOne, schema.Attributes[1].Mapping)
	assert.Equal(t, "c-elem", schema.Attributes[1].ClassID)

	assert.Equal(t, []domain.ContainmentRule{
		{ParentID: "c-root", ChildID: "c-elem"},
		{ParentID: "c-elem", ChildID: "c-router", Special: true},
	}, schema.Rules)
}

func TestCreateClassDuplicateName(t *testing.T) {
	repo := newTestRepo(t)
	seedClass(t, repo, "c1", "Router", "")

	dup := domain.NewClass("Router", "")
	dup.ID = "c2"
	assert.Error(t, repo.CreateClass(context.Background(), dup))
}

func TestUpdateClassReparents(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	seedClass(t, repo, "a", "A", "")
	seedClass(t, repo, "b", "B", "a")
	c := seedClass(t, repo, "c", "C", "a")

	c.ParentID = "b"
	require.NoError(t, repo.UpdateClass(ctx, c))

	var count int
	require.NoError(t, repo.db.QueryRow(`SELECT COUNT(*) FROM edges WHERE from_id = 'c' AND kind = ?`,
		string(domain.EdgeInherits)).Scan(&count))
	assert.Equal(t, 1, count)

	var to string
	require.NoError(t, repo.db.QueryRow(`SELECT to_id FROM edges WHERE from_id = 'c' AND kind = ?`,
		string(domain.EdgeInherits)).Scan(&to))
	assert.Equal(t, "b", to)

	missing := domain.NewClass("Ghost", "")
	missing.ID = "ghost"
	assert.Error(t, repo.UpdateClass(ctx, missing))
}

func TestDeleteClassRemovesAttributes(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	seedClass(t, repo, "root", "Root", "")
	seedClass(t, repo, "x", "X", "root")
	seedAttribute(t, repo, "a1", "x", "serial", domain.MappingPrimitive, domain.TypeString)
	require.NoError(t, repo.AddContainmentRules(ctx, []domain.ContainmentRule{{ParentID: "root", ChildID: "x"}}))

	require.NoError(t, repo.DeleteClass(ctx, "x"))

	schema, err := repo.LoadSchema(ctx)
	require.NoError(t, err)
	assert.Len(t, schema.Classes, 1)
	assert.Empty(t, schema.Attributes)
	assert.Empty(t, schema.Rules)
}

func TestContainmentRulesAllOrNothing(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	seedClass(t, repo, "p", "P", "")
	seedClass(t, repo, "c1", "C1", "p")
	seedClass(t, repo, "c2", "C2", "p")

	require.NoError(t, repo.AddContainmentRules(ctx, []domain.ContainmentRule{{ParentID: "p", ChildID: "c1"}}))

	// second batch repeats an existing rule, so nothing is inserted
	err := repo.AddContainmentRules(ctx, []domain.ContainmentRule{
		{ParentID: "p", ChildID: "c2"},
		{ParentID: "p", ChildID: "c1"},
	})
	assert.Error(t, err)

	schema, err := repo.LoadSchema(ctx)
	require.NoError(t, err)
	assert.Len(t, schema.Rules, 1)

	// the same pair may exist as a special rule
	require.NoError(t, repo.AddContainmentRules(ctx, []domain.ContainmentRule{{ParentID: "p", ChildID: "c1", Special: true}}))

	require.NoError(t, repo.RemoveContainmentRules(ctx, []domain.ContainmentRule{
		{ParentID: "p", ChildID: "c1"},
		{ParentID: "p", ChildID: "c2"},
	}))
	schema, err = repo.LoadSchema(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.ContainmentRule{{ParentID: "p", ChildID: "c1", Special: true}}, schema.Rules)
}

// ============================================================================
// Attribute Value Maintenance
// ============================================================================

func TestUpdateAttributeRenamesValues(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	router := seedClass(t, repo, "router", "Router", "")
	vendorType := seedClass(t, repo, "vendor-type", "VendorType", "")
	serial := seedAttribute(t, repo, "a-serial", "router", "serial", domain.MappingPrimitive, domain.TypeString)
	vendor := seedAttribute(t, repo, "a-vendor", "router", "vendor", domain.MappingManyToOne, "VendorType")

	v1 := seedInstance(t, repo, "v1", vendorType, "")
	inst := domain.NewInstance("r1", router)
	inst.SetProperty("serial", "SN-1")
	inst.Relate(v1.ID, "vendor")
	require.NoError(t, repo.CreateInstance(ctx, inst))

	serial.Name = "serialNumber"
	require.NoError(t, repo.UpdateAttribute(ctx, serial, "serial", []string{"router"}))
	vendor.Name = "manufacturer"
	require.NoError(t, repo.UpdateAttribute(ctx, vendor, "vendor", []string{"router"}))

	got, err := repo.GetInstance(ctx, "r1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "SN-1", got.Properties["serialNumber"])
	assert.NotContains(t, got.Properties, "serial")
	assert.Equal(t, []string{"v1"}, got.RelatedTo("manufacturer"))
	assert.Empty(t, got.RelatedTo("vendor"))
	assert.Equal(t, domain.NewRelationship("r1", "v1", "manufacturer").ID, got.Relationships[0].ID)
}

func TestDeleteAttributeRemovesValues(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	router := seedClass(t, repo, "router", "Router", "")
	vendorType := seedClass(t, repo, "vendor-type", "VendorType", "")
	serial := seedAttribute(t, repo, "a-serial", "router", "serial", domain.MappingPrimitive, domain.TypeString)
	vendor := seedAttribute(t, repo, "a-vendor", "router", "vendor", domain.MappingManyToMany, "VendorType")

	seedInstance(t, repo, "v1", vendorType, "")
	inst := domain.NewInstance("r1", router)
	inst.SetProperty("serial", "SN-1")
	inst.Relate("v1", "vendor")
	require.NoError(t, repo.CreateInstance(ctx, inst))

	require.NoError(t, repo.DeleteAttribute(ctx, serial, []string{"router"}))
	require.NoError(t, repo.DeleteAttribute(ctx, vendor, []string{"router"}))

	got, err := repo.GetInstance(ctx, "r1")
	require.NoError(t, err)
	assert.NotContains(t, got.Properties, "serial")
	assert.Empty(t, got.Relationships)

	schema, err := repo.LoadSchema(ctx)
	require.NoError(t, err)
	assert.Empty(t, schema.Attributes)
}

// ============================================================================
// Instance Tests
// ============================================================================

func TestInstanceLifecycle(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	rack := seedClass(t, repo, "rack", "Rack", "")
	board := seedClass(t, repo, "board", "Board", "")
	vendorType := seedClass(t, repo, "vendor-type", "VendorType", "")

	seedInstance(t, repo, "v1", vendorType, "")
	seedInstance(t, repo, "v2", vendorType, "")
	seedInstance(t, repo, "rack-1", rack, "")

	b := domain.NewInstance("board-1", board)
	b.ParentID = "rack-1"
	b.SetProperty(domain.AttributeName, "slot 1")
	b.Relate("v2", "vendor")
	b.Relate("v1", "vendor")
	require.NoError(t, repo.CreateInstance(ctx, b))

	t.Run("get keeps relationship order", func(t *testing.T) {
		got, err := repo.GetInstance(ctx, "board-1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "Board", got.ClassName)
		assert.Equal(t, "rack-1", got.ParentID)
		assert.Equal(t, "slot 1", got.Name())
		assert.Equal(t, []string{"v2", "v1"}, got.RelatedTo("vendor"))
		assert.Equal(t, domain.NodeInstance, got.Kind)
	})

	t.Run("get missing returns nil", func(t *testing.T) {
		got, err := repo.GetInstance(ctx, "nope")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("update replaces relationships", func(t *testing.T) {
		err := repo.UpdateInstanceFunc(ctx, "board-1", func(inst *domain.Instance) error {
			assert.Equal(t, []string{"v2", "v1"}, inst.RelatedTo("vendor"))
			inst.Unrelate("vendor")
			inst.Relate("v1", "vendor")
			inst.SetProperty("serial", "B-1")
			return nil
		})
		require.NoError(t, err)

		again, err := repo.GetInstance(ctx, "board-1")
		require.NoError(t, err)
		assert.Equal(t, []string{"v1"}, again.RelatedTo("vendor"))
		assert.Equal(t, "B-1", again.Properties["serial"])
	})

	t.Run("failed update writes nothing", func(t *testing.T) {
		boom := errors.New("boom")
		err := repo.UpdateInstanceFunc(ctx, "board-1", func(inst *domain.Instance) error {
			inst.SetProperty("serial", "B-2")
			inst.Unrelate("vendor")
			return boom
		})
		assert.ErrorIs(t, err, boom)

		again, err := repo.GetInstance(ctx, "board-1")
		require.NoError(t, err)
		assert.Equal(t, "B-1", again.Properties["serial"])
		assert.Equal(t, []string{"v1"}, again.RelatedTo("vendor"))
	})

	t.Run("update missing instance", func(t *testing.T) {
		called := false
		err := repo.UpdateInstanceFunc(ctx, "nope", func(*domain.Instance) error {
			called = true
			return nil
		})
		assert.ErrorIs(t, err, repository.ErrInstanceNotFound)
		assert.False(t, called)
	})

	t.Run("children and counts", func(t *testing.T) {
		children, err := repo.ListChildren(ctx, "rack-1")
		require.NoError(t, err)
		assert.Equal(t, []string{"board-1"}, children)

		n, err := repo.CountInstances(ctx, []string{"vendor-type", "rack"})
		require.NoError(t, err)
		assert.Equal(t, 3, n)

		n, err = repo.CountInstances(ctx, nil)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("move", func(t *testing.T) {
		seedInstance(t, repo, "rack-2", rack, "")
		require.NoError(t, repo.MoveInstance(ctx, "board-1", "rack-2"))

		children, err := repo.ListChildren(ctx, "rack-2")
		require.NoError(t, err)
		assert.Equal(t, []string{"board-1"}, children)

		assert.Error(t, repo.MoveInstance(ctx, "nope", "rack-2"))
	})

	t.Run("delete removes incoming relationships", func(t *testing.T) {
		require.NoError(t, repo.DeleteInstances(ctx, []string{"v1"}))

		got, err := repo.GetInstance(ctx, "board-1")
		require.NoError(t, err)
		assert.Empty(t, got.RelatedTo("vendor"))
	})
}

func TestForEachInstance(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	router := seedClass(t, repo, "router", "Router", "")
	vendorType := seedClass(t, repo, "vendor-type", "VendorType", "")
	seedInstance(t, repo, "v1", vendorType, "")

	for _, id := range []string{"r1", "r2", "r3"} {
		inst := domain.NewInstance(id, router)
		inst.Relate("v1", "vendor")
		require.NoError(t, repo.CreateInstance(ctx, inst))
	}

	var seen []string
	err := repo.ForEachInstance(ctx, "router", func(inst *domain.Instance) error {
		seen = append(seen, inst.ID)
		assert.Equal(t, []string{"v1"}, inst.RelatedTo("vendor"))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"r1", "r2", "r3"}, seen)

	stop := errors.New("stop")
	calls := 0
	err = repo.ForEachInstance(ctx, "router", func(*domain.Instance) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

// ============================================================================
// Transaction Rollback (sqlmock)
// ============================================================================

func newMockRepo(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewWithDB(db), mock
}

func TestAddContainmentRulesRollsBack(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO edges`).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`INSERT INTO edges`).WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	err := repo.AddContainmentRules(context.Background(), []domain.ContainmentRule{
		{ParentID: "p", ChildID: "c1"},
		{ParentID: "p", ChildID: "c2"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk I/O error")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteInstancesRollsBack(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM edges`).WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectExec(`DELETE FROM nodes`).WillReturnError(errors.New("constraint failed"))
	mock.ExpectRollback()

	err := repo.DeleteInstances(context.Background(), []string{"a", "b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to delete instances")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateClassCommits(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO nodes`).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`INSERT INTO edges`).
		WithArgs(sqlmock.AnyArg(), string(domain.EdgeInherits), "c1", "root", sql.NullString{}, 0).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	class := domain.NewClass("Router", domain.RootClassName)
	class.ID = "c1"
	class.ParentID = "root"
	require.NoError(t, repo.CreateClass(context.Background(), class))
	assert.NoError(t, mock.ExpectationsWereMet())
}
