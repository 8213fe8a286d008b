package storage

import (
	"context"
	"errors"
	"fmt"
)

// Column — одна колонка таблицы: имя и тип данных движка.
type Column struct {
	Name string
	Type string
}

// Schema — упорядоченный список колонок. Порядок значим:
// он же определяет порядок значений в строках Block.
type Schema []Column

// Equal сравнивает схемы поколоночно, по имени и типу.
func (s Schema) Equal(other Schema) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Block — пачка строк для вставки одним запросом.
// Значения в каждой строке идут в порядке Columns.
type Block struct {
	Columns Schema
	Rows    [][]any
}

// TableHandle — непрозрачная ссылка на привязанную таблицу движка.
type TableHandle struct {
	Database string
	Table    string
}

// QualifiedName возвращает полное имя таблицы вида database.table.
func (t TableHandle) QualifiedName() string {
	if t.Database == "" {
		return t.Table
	}
	return fmt.Sprintf("%s.%s", t.Database, t.Table)
}

var (
	ErrTableNotFound = errors.New("table not found")
	ErrTableExists   = errors.New("table already exists")
)

// Engine — движок хранения, в таблицы которого пишет сервер.
// Все операции синхронные и могут завершиться ошибкой; вызывающая
// сторона сама решает, что делать с недоступным хранилищем.
type Engine interface {
	TableExists(ctx context.Context, database, table string) (bool, error)
	TableStructure(ctx context.Context, database, table string) (Schema, error)
	CreateTable(ctx context.Context, database, table string, schema Schema, orderBy string) (TableHandle, error)
	RenameTable(ctx context.Context, database, oldName, newName string) error
	Insert(ctx context.Context, handle TableHandle, block Block) error
}
