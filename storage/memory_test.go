package storage

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSchema = Schema{
	{Name: "event_time", Type: "DateTime"},
	{Name: "query", Type: "String"},
}

func TestMemoryEngine_CreateAndExists(t *testing.T) {
	t.Parallel()
	engine := NewMemoryEngine()
	ctx := context.Background()

	exists, err := engine.TableExists(ctx, "system", "query_log")
	require.NoError(t, err)
	assert.False(t, exists)

	handle, err := engine.CreateTable(ctx, "system", "query_log", testSchema, "event_time")
	require.NoError(t, err)
	assert.Equal(t, "system.query_log", handle.QualifiedName())

	exists, err = engine.TableExists(ctx, "system", "query_log")
	require.NoError(t, err)
	assert.True(t, exists)

	_, err = engine.CreateTable(ctx, "system", "query_log", testSchema, "event_time")
	assert.ErrorIs(t, err, ErrTableExists)
}

func TestMemoryEngine_TableStructure(t *testing.T) {
	t.Parallel()
	engine := NewMemoryEngine()
	ctx := context.Background()

	_, err := engine.TableStructure(ctx, "system", "missing")
	assert.ErrorIs(t, err, ErrTableNotFound)

	_, err = engine.CreateTable(ctx, "system", "query_log", testSchema, "event_time")
	require.NoError(t, err)

	structure, err := engine.TableStructure(ctx, "system", "query_log")
	require.NoError(t, err)
	assert.True(t, structure.Equal(testSchema))
}

func TestMemoryEngine_Rename(t *testing.T) {
	t.Parallel()
	engine := NewMemoryEngine()
	ctx := context.Background()

	handle, err := engine.CreateTable(ctx, "system", "query_log", testSchema, "event_time")
	require.NoError(t, err)
	require.NoError(t, engine.Insert(ctx, handle, Block{
		Columns: testSchema,
		Rows:    [][]any{{int64(1), "SELECT 1"}},
	}))

	require.NoError(t, engine.RenameTable(ctx, "system", "query_log", "query_log_1"))

	exists, err := engine.TableExists(ctx, "system", "query_log")
	require.NoError(t, err)
	assert.False(t, exists)

	// Данные переезжают вместе с таблицей.
	rows := engine.Rows("system", "query_log_1")
	require.Len(t, rows, 1)
	assert.Equal(t, "SELECT 1", rows[0][1])

	assert.ErrorIs(t, engine.RenameTable(ctx, "system", "query_log", "whatever"), ErrTableNotFound)
}

func TestMemoryEngine_InsertValidatesStructure(t *testing.T) {
	t.Parallel()
	engine := NewMemoryEngine()
	ctx := context.Background()

	handle, err := engine.CreateTable(ctx, "system", "query_log", testSchema, "event_time")
	require.NoError(t, err)

	wrongColumns := Schema{{Name: "other", Type: "UInt8"}}
	err = engine.Insert(ctx, handle, Block{Columns: wrongColumns, Rows: [][]any{{uint8(1)}}})
	require.Error(t, err)

	err = engine.Insert(ctx, handle, Block{Columns: testSchema, Rows: [][]any{{int64(1)}}})
	require.Error(t, err)

	err = engine.Insert(ctx, handle, Block{Columns: testSchema, Rows: nil})
	require.NoError(t, err)
	assert.Empty(t, engine.Rows("system", "query_log"))
}

func TestMemoryEngine_InsertHook(t *testing.T) {
	t.Parallel()
	engine := NewMemoryEngine()
	ctx := context.Background()
	engine.SetInsertHook(func(TableHandle, Block) error {
		return fmt.Errorf("simulated outage")
	})

	handle, err := engine.CreateTable(ctx, "system", "query_log", testSchema, "event_time")
	require.NoError(t, err)

	err = engine.Insert(ctx, handle, Block{Columns: testSchema, Rows: [][]any{{int64(1), "q"}}})
	require.Error(t, err)
	assert.Empty(t, engine.Rows("system", "query_log"))
}

func TestSchema_Equal(t *testing.T) {
	t.Parallel()
	a := Schema{{Name: "x", Type: "UInt8"}, {Name: "y", Type: "String"}}
	assert.True(t, a.Equal(Schema{{Name: "x", Type: "UInt8"}, {Name: "y", Type: "String"}}))
	assert.False(t, a.Equal(Schema{{Name: "x", Type: "UInt8"}}))
	assert.False(t, a.Equal(Schema{{Name: "x", Type: "UInt16"}, {Name: "y", Type: "String"}}))
	assert.False(t, a.Equal(Schema{{Name: "z", Type: "UInt8"}, {Name: "y", Type: "String"}}))
}
