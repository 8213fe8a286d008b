package storage

import (
	"context"
	"fmt"
	"sync"
)

// MemoryEngine — движок хранения в памяти.
// Используется во встроенном режиме и в тестах; контракт тот же, что у
// движка поверх ClickHouse, включая проверку схемы при вставке.
type MemoryEngine struct {
	mu     sync.Mutex
	tables map[string]*memTable

	// insertHook вызывается перед каждой вставкой; ненулевая ошибка
	// отменяет вставку. Нужен тестам для имитации сбоев хранилища.
	insertHook func(handle TableHandle, block Block) error
}

type memTable struct {
	schema  Schema
	orderBy string
	rows    [][]any
}

func NewMemoryEngine() *MemoryEngine {
	return &MemoryEngine{tables: make(map[string]*memTable)}
}

// SetInsertHook задаёт перехватчик вставки (для тестов).
func (e *MemoryEngine) SetInsertHook(hook func(handle TableHandle, block Block) error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.insertHook = hook
}

func tableKey(database, table string) string {
	return database + "." + table
}

func (e *MemoryEngine) TableExists(_ context.Context, database, table string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.tables[tableKey(database, table)]
	return ok, nil
}

func (e *MemoryEngine) TableStructure(_ context.Context, database, table string) (Schema, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	t, ok := e.tables[tableKey(database, table)]
	if !ok {
		return nil, fmt.Errorf("%s.%s: %w", database, table, ErrTableNotFound)
	}
	structure := make(Schema, len(t.schema))
	copy(structure, t.schema)
	return structure, nil
}

func (e *MemoryEngine) CreateTable(_ context.Context, database, table string, schema Schema, orderBy string) (TableHandle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	key := tableKey(database, table)
	if _, ok := e.tables[key]; ok {
		return TableHandle{}, fmt.Errorf("%s: %w", key, ErrTableExists)
	}
	stored := make(Schema, len(schema))
	copy(stored, schema)
	e.tables[key] = &memTable{schema: stored, orderBy: orderBy}
	return TableHandle{Database: database, Table: table}, nil
}

func (e *MemoryEngine) RenameTable(_ context.Context, database, oldName, newName string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	oldKey := tableKey(database, oldName)
	t, ok := e.tables[oldKey]
	if !ok {
		return fmt.Errorf("%s: %w", oldKey, ErrTableNotFound)
	}
	newKey := tableKey(database, newName)
	if _, ok := e.tables[newKey]; ok {
		return fmt.Errorf("%s: %w", newKey, ErrTableExists)
	}
	e.tables[newKey] = t
	delete(e.tables, oldKey)
	return nil
}

func (e *MemoryEngine) Insert(_ context.Context, handle TableHandle, block Block) error {
	e.mu.Lock()
	hook := e.insertHook
	e.mu.Unlock()
	if hook != nil {
		if err := hook(handle, block); err != nil {
			return err
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	t, ok := e.tables[tableKey(handle.Database, handle.Table)]
	if !ok {
		return fmt.Errorf("%s: %w", handle.QualifiedName(), ErrTableNotFound)
	}
	if !t.schema.Equal(block.Columns) {
		return fmt.Errorf("insert into %s: block columns do not match table structure", handle.QualifiedName())
	}
	for i, row := range block.Rows {
		if len(row) != len(t.schema) {
			return fmt.Errorf("insert into %s: row %d has %d values, want %d", handle.QualifiedName(), i, len(row), len(t.schema))
		}
	}
	for _, row := range block.Rows {
		stored := make([]any, len(row))
		copy(stored, row)
		t.rows = append(t.rows, stored)
	}
	return nil
}

// Rows возвращает копию всех строк таблицы в порядке вставки.
func (e *MemoryEngine) Rows(database, table string) [][]any {
	e.mu.Lock()
	defer e.mu.Unlock()
	t, ok := e.tables[tableKey(database, table)]
	if !ok {
		return nil
	}
	rows := make([][]any, len(t.rows))
	for i, row := range t.rows {
		rows[i] = make([]any, len(row))
		copy(rows[i], row)
	}
	return rows
}
