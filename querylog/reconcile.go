package querylog

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/andreyka/ClickHouse/storage"
)

// prepareTable привязывает таблицу назначения перед записью.
// Если таблицы нет — создаёт её с ожидаемой структурой и ключом по
// event_time. Если таблица есть и структура совпадает — использует её.
// Если структура не совпадает (например, осталась от другой версии
// сервера) — переименовывает таблицу, добавив суффикс _N с минимальным
// N >= 1, для которого имя свободно, и создаёт новую. Старые данные
// при этом сохраняются под новым именем, никогда не удаляются.
func (l *QueryLog) prepareTable(ctx context.Context) error {
	exists, err := l.engine.TableExists(ctx, l.cfg.Database, l.cfg.Table)
	if err != nil {
		return fmt.Errorf("table exists: %w", err)
	}
	if exists {
		structure, err := l.engine.TableStructure(ctx, l.cfg.Database, l.cfg.Table)
		if err != nil {
			return fmt.Errorf("table structure: %w", err)
		}
		if structure.Equal(tableSchema()) {
			handle := storage.TableHandle{Database: l.cfg.Database, Table: l.cfg.Table}
			l.bound = &handle
			return nil
		}
		rotated, err := l.rotateTable(ctx)
		if err != nil {
			return err
		}
		l.logger.Warn("Структура таблицы лога запросов не совпадает с ожидаемой, таблица отложена в сторону",
			zap.String("table", l.cfg.Table), zap.String("rotated", rotated))
	}

	handle, err := l.engine.CreateTable(ctx, l.cfg.Database, l.cfg.Table, tableSchema(), orderByColumn)
	if err != nil {
		return fmt.Errorf("create table: %w", err)
	}
	l.bound = &handle
	l.logger.Info("Создана таблица лога запросов",
		zap.String("database", l.cfg.Database), zap.String("table", l.cfg.Table))
	return nil
}

// rotateTable переименовывает несовместимую таблицу в table_N,
// подобрав минимальное свободное N.
func (l *QueryLog) rotateTable(ctx context.Context) (string, error) {
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s_%d", l.cfg.Table, n)
		exists, err := l.engine.TableExists(ctx, l.cfg.Database, candidate)
		if err != nil {
			return "", fmt.Errorf("table exists: %w", err)
		}
		if exists {
			continue
		}
		if err := l.engine.RenameTable(ctx, l.cfg.Database, l.cfg.Table, candidate); err != nil {
			return "", fmt.Errorf("rename table: %w", err)
		}
		return candidate, nil
	}
}
