package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"go.uber.org/zap"
)

// ClickHouseOptions — настройки подключения к ClickHouse.
// Protocol: "native" или "http".
type ClickHouseOptions struct {
	Address  string
	Username string
	Password string
	Database string
	Protocol string
}

// ClickHouseEngine — движок хранения поверх внешнего ClickHouse.
type ClickHouseEngine struct {
	conn   clickhouse.Conn
	logger *zap.Logger
}

// OpenClickHouse открывает соединение с ClickHouse.
func OpenClickHouse(opts ClickHouseOptions, logger *zap.Logger) (*ClickHouseEngine, error) {
	protocol := clickhouse.Native
	if opts.Protocol == "http" {
		protocol = clickhouse.HTTP
	}

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{opts.Address},
		Auth: clickhouse.Auth{
			Database: opts.Database,
			Username: opts.Username,
			Password: opts.Password,
		},
		DialTimeout: 5 * time.Second,
		Compression: &clickhouse.Compression{Method: clickhouse.CompressionLZ4},
		Protocol:    protocol,
	})
	if err != nil {
		return nil, fmt.Errorf("clickhouse open: %w", err)
	}
	return &ClickHouseEngine{conn: conn, logger: logger}, nil
}

func (e *ClickHouseEngine) TableExists(ctx context.Context, database, table string) (bool, error) {
	var exists uint8
	row := e.conn.QueryRow(ctx, "EXISTS TABLE "+quoteQualified(database, table))
	if err := row.Scan(&exists); err != nil {
		return false, fmt.Errorf("exists table: %w", err)
	}
	return exists == 1, nil
}

func (e *ClickHouseEngine) TableStructure(ctx context.Context, database, table string) (Schema, error) {
	rows, err := e.conn.Query(ctx,
		"SELECT name, type FROM system.columns WHERE database = ? AND table = ? ORDER BY position",
		database, table)
	if err != nil {
		return nil, fmt.Errorf("table structure: %w", err)
	}
	defer rows.Close()

	var structure Schema
	for rows.Next() {
		var col Column
		if err := rows.Scan(&col.Name, &col.Type); err != nil {
			return nil, fmt.Errorf("table structure scan: %w", err)
		}
		structure = append(structure, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("table structure: %w", err)
	}
	if len(structure) == 0 {
		return nil, fmt.Errorf("%s.%s: %w", database, table, ErrTableNotFound)
	}
	return structure, nil
}

func (e *ClickHouseEngine) CreateTable(ctx context.Context, database, table string, schema Schema, orderBy string) (TableHandle, error) {
	ddl := createTableDDL(database, table, schema, orderBy)
	if err := e.conn.Exec(ctx, ddl); err != nil {
		e.logger.Error("Ошибка создания таблицы", zap.String("table", table), zap.Error(err))
		return TableHandle{}, fmt.Errorf("create table: %w", err)
	}
	return TableHandle{Database: database, Table: table}, nil
}

func (e *ClickHouseEngine) RenameTable(ctx context.Context, database, oldName, newName string) error {
	query := "RENAME TABLE " + quoteQualified(database, oldName) + " TO " + quoteQualified(database, newName)
	if err := e.conn.Exec(ctx, query); err != nil {
		return fmt.Errorf("rename table: %w", err)
	}
	return nil
}

func (e *ClickHouseEngine) Insert(ctx context.Context, handle TableHandle, block Block) error {
	batch, err := e.conn.PrepareBatch(ctx, insertQuery(handle, block.Columns))
	if err != nil {
		e.logger.Error("prepare batch", zap.Error(err))
		return fmt.Errorf("prepare batch: %w", err)
	}
	for _, row := range block.Rows {
		if err := batch.Append(row...); err != nil {
			e.logger.Error("append batch", zap.Error(err))
			return fmt.Errorf("append: %w", err)
		}
	}
	return batch.Send()
}

func (e *ClickHouseEngine) Close() error {
	return e.conn.Close()
}

func quoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "\\`") + "`"
}

func quoteQualified(database, table string) string {
	if database == "" {
		return quoteIdentifier(table)
	}
	return quoteIdentifier(database) + "." + quoteIdentifier(table)
}

func createTableDDL(database, table string, schema Schema, orderBy string) string {
	cols := make([]string, len(schema))
	for i, col := range schema {
		cols[i] = quoteIdentifier(col.Name) + " " + col.Type
	}
	return fmt.Sprintf("CREATE TABLE %s (%s) ENGINE = MergeTree ORDER BY %s",
		quoteQualified(database, table), strings.Join(cols, ", "), quoteIdentifier(orderBy))
}

func insertQuery(handle TableHandle, columns Schema) string {
	names := make([]string, len(columns))
	for i, col := range columns {
		names[i] = quoteIdentifier(col.Name)
	}
	return "INSERT INTO " + quoteQualified(handle.Database, handle.Table) + " (" + strings.Join(names, ", ") + ")"
}
