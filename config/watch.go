package config

import (
	"context"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watch следит за файлом конфигурации и при каждом его изменении
// перечитывает конфиг и вызывает onReload. Ошибки чтения или валидации
// логгируются, действующая конфигурация при этом не меняется.
// Возвращается при отмене контекста.
func Watch(ctx context.Context, path string, logger *zap.Logger, onReload func(*Config)) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Error("Ошибка создания fsnotify для конфига", zap.Error(err))
		return
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		logger.Error("Ошибка добавления конфига в watcher", zap.Error(err), zap.String("path", path))
		return
	}
	logger.Info("Старт слежения за конфигом", zap.String("path", path))

	for {
		select {
		case <-ctx.Done():
			return
		case event := <-watcher.Events:
			if event.Op&fsnotify.Write == fsnotify.Write || event.Op&fsnotify.Create == fsnotify.Create {
				logger.Info("Обнаружено обновление конфига, перечитываем...", zap.String("path", path))
				cfg, err := LoadConfig(path)
				if err != nil {
					logger.Error("Ошибка при перечитывании конфига", zap.Error(err), zap.String("path", path))
					continue
				}
				onReload(cfg)
			}
		case err := <-watcher.Errors:
			logger.Error("Ошибка watcher-а конфига", zap.Error(err))
		}
	}
}
