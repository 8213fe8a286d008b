package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/andreyka/ClickHouse/config"
	"github.com/andreyka/ClickHouse/logger"
	"github.com/andreyka/ClickHouse/querylog"
	"github.com/andreyka/ClickHouse/storage"
	"github.com/andreyka/ClickHouse/telemetry"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	configPath := "config.yaml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка загрузки %s: %v\n", configPath, err)
		os.Exit(1)
	}

	rootLogger, consoleLevel, err := logger.InitZap(&cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка инициализации логгера: %v\n", err)
		os.Exit(1)
	}
	lg := rootLogger.Named("main")
	defer lg.Sync()
	lg.Info("Сервер стартует…", zap.String("config", configPath))

	engine, closeEngine, err := openEngine(cfg, lg.Named("storage"))
	if err != nil {
		lg.Fatal("Ошибка подключения к движку хранения", zap.Error(err))
	}
	defer closeEngine()

	// Провайдер метрик регистрируется до создания инструментов: без него
	// глобальный провайдер остаётся noop и метрики никуда не попадают.
	if cfg.Telemetry.Enabled {
		provider, err := telemetry.Init(ctx, "clickhouse-server")
		if err != nil {
			lg.Warn("Ошибка инициализации телеметрии, метрики отключены", zap.Error(err))
		} else {
			defer func() {
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer shutdownCancel()
				if err := provider.Shutdown(shutdownCtx); err != nil {
					lg.Warn("Ошибка остановки телеметрии", zap.Error(err))
				}
			}()
		}
	}

	qlog := querylog.New(engine, querylog.Config{
		Database:      cfg.QueryLog.Database,
		Table:         cfg.QueryLog.Table,
		FlushInterval: time.Duration(cfg.QueryLog.FlushIntervalMS) * time.Millisecond,
		QueueSize:     cfg.QueryLog.QueueSize,
	}, rootLogger.Named("querylog"), telemetry.NewInstruments())
	lg.Info("Лог запросов запущен",
		zap.String("table", cfg.QueryLog.Table),
		zap.Int("flush_interval_ms", cfg.QueryLog.FlushIntervalMS))

	// Перечитываем конфиг на лету: пока подхватывается только уровень логирования.
	go config.Watch(ctx, configPath, lg.Named("config"), func(updated *config.Config) {
		parsed, err := zapcore.ParseLevel(updated.Logging.Level)
		if err != nil {
			lg.Warn("Неизвестный уровень логирования в обновлённом конфиге",
				zap.String("level", updated.Logging.Level))
			return
		}
		consoleLevel.SetLevel(parsed)
		lg.Info("Уровень логирования обновлён", zap.String("level", updated.Logging.Level))
	})

	<-stop
	lg.Info("Получен сигнал остановки, начинаем завершение работы")
	cancel()
	qlog.Shutdown()
	lg.Info("Сервер завершил работу")
}

func openEngine(cfg *config.Config, lg *zap.Logger) (storage.Engine, func(), error) {
	switch cfg.Storage.Backend {
	case "clickhouse":
		engine, err := storage.OpenClickHouse(storage.ClickHouseOptions{
			Address:  cfg.Storage.Address,
			Username: cfg.Storage.Username,
			Password: cfg.Storage.Password,
			Database: cfg.Storage.Database,
			Protocol: cfg.Storage.Protocol,
		}, lg)
		if err != nil {
			return nil, nil, err
		}
		return engine, func() { _ = engine.Close() }, nil
	default:
		return storage.NewMemoryEngine(), func() {}, nil
	}
}
