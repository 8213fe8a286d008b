package querylog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/andreyka/ClickHouse/storage"
	"github.com/andreyka/ClickHouse/telemetry"
)

// DefaultFlushInterval — интервал сброса по умолчанию.
const DefaultFlushInterval = 7500 * time.Millisecond

// ErrClosed возвращается из Add после начала остановки.
// Для вызывающей стороны это не фатальная ошибка: запись просто не будет
// залоггирована.
var ErrClosed = errors.New("query log is shut down")

// Config — параметры лога запросов.
type Config struct {
	Database      string
	Table         string
	FlushInterval time.Duration
	QueueSize     int
}

// QueryLog асинхронно пишет события выполнения запросов (старт, завершение)
// в таблицу движка хранения. Записи передаются через ограниченную очередь в
// фоновую горутину, которая накапливает их и сбрасывает в таблицу не чаще,
// чем раз в FlushInterval.
//
// Сохранение даёт гарантию не строже "не более одного раза": при сбое
// хранилища накопленная пачка теряется. Это осознанный выбор — сбой
// логгирования никогда не должен мешать выполнению запросов.
type QueryLog struct {
	engine  storage.Engine
	cfg     Config
	logger  *zap.Logger
	metrics *telemetry.Instruments

	queue *ConcurrentBoundedQueue

	// Поля ниже принадлежат только горутине-потребителю:
	// синхронизация им не нужна по построению.
	data  []Element
	bound *storage.TableHandle

	closed   atomic.Bool
	shutdown sync.Once
	done     chan struct{}
}

// New создаёт лог запросов и сразу запускает фоновую горутину.
// Никакого обращения к хранилищу при создании не происходит: таблица
// привязывается лениво, при первом сбросе.
func New(engine storage.Engine, cfg Config, logger *zap.Logger, metrics *telemetry.Instruments) *QueryLog {
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = DefaultFlushInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = telemetry.NoopInstruments()
	}
	queue := NewConcurrentBoundedQueue(cfg.QueueSize)
	l := &QueryLog{
		engine:  engine,
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
		queue:   queue,
		data:    make([]Element, 0, queue.Cap()),
		done:    make(chan struct{}),
	}
	go l.run()
	return l
}

// Add добавляет запись в лог. Сохранение в таблицу происходит асинхронно,
// и в случае сбоя запись может никуда не попасть. Операция не выполняет
// ни ввода-вывода, ни проверок схемы; заблокироваться она может только
// при переполнении очереди.
func (l *QueryLog) Add(e Element) error {
	if l.closed.Load() {
		l.metrics.IncRejected(context.Background())
		return ErrClosed
	}
	// Между проверкой и постановкой в очередь может вклиниться Shutdown.
	// Ожидание на заполненной очереди прерывается после выхода
	// потребителя, иначе производитель повис бы навсегда.
	if !l.queue.PushUnless(e, l.done) {
		l.metrics.IncRejected(context.Background())
		return ErrClosed
	}
	l.metrics.IncSubmitted(context.Background())
	return nil
}

// Shutdown останавливает фоновую горутину, дождавшись последнего сброса.
// Повторный вызов безопасен. Записи, оказавшиеся в очереди позади
// служебной записи, не доставляются.
func (l *QueryLog) Shutdown() {
	l.shutdown.Do(func() {
		l.closed.Store(true)
		l.queue.Push(Element{Kind: KindShutdown})
	})
	<-l.done
}

// run — цикл горутины-потребителя. Пока пачка пуста, горутина блокируется
// на очереди без ограничения по времени; иначе ждёт не дольше остатка
// flush-интервала. Цикл не знает отказового терминального состояния:
// завершает его только служебная запись, и перед выходом выполняется
// последний сброс.
func (l *QueryLog) run() {
	defer close(l.done)
	ctx := context.Background()
	lastFlush := time.Now()

	for {
		var elem Element
		has := false

		if len(l.data) == 0 {
			elem = l.queue.Pop()
			has = true
		} else if remaining := l.cfg.FlushInterval - time.Since(lastFlush); remaining > 0 {
			elem, has = l.queue.TryPop(remaining)
		}

		if has {
			if elem.Kind == KindShutdown {
				l.flush(ctx)
				return
			}
			l.data = append(l.data, elem)
		}

		if time.Since(lastFlush) >= l.cfg.FlushInterval {
			l.flush(ctx)
			lastFlush = time.Now()
		}
	}
}

// flush записывает накопленную пачку в таблицу. Пачка очищается
// безусловно: при ошибке записи лучше потерять её, чем копить без
// ограничения или блокировать цикл. Ошибка логгируется и никуда дальше
// не распространяется.
func (l *QueryLog) flush(ctx context.Context) {
	if len(l.data) == 0 {
		return
	}
	count := len(l.data)
	start := time.Now()

	err := l.tryFlush(ctx)
	l.data = l.data[:0]

	if err != nil {
		l.metrics.IncFlushErrors(ctx)
		l.metrics.AddDropped(ctx, count)
		l.logger.Error("Ошибка сброса лога запросов, пачка потеряна",
			zap.Int("count", count), zap.Error(err))
		return
	}
	l.metrics.AddFlushed(ctx, count)
	l.metrics.RecordFlushDuration(ctx, float64(time.Since(start).Microseconds())/1000.0)
	l.logger.Debug("Пачка лога запросов записана",
		zap.Int("count", count), zap.Duration("elapsed", time.Since(start)))
}

// tryFlush выполняет собственно запись; паника движка хранения
// превращается в обычную ошибку.
func (l *QueryLog) tryFlush(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("flush panic: %v", r)
		}
	}()

	if l.bound == nil {
		if err := l.prepareTable(ctx); err != nil {
			return err
		}
	}
	block, err := buildBlock(l.data)
	if err != nil {
		return fmt.Errorf("build block: %w", err)
	}
	if err := l.engine.Insert(ctx, *l.bound, block); err != nil {
		// Привязка сбрасывается: следующий сброс заново сверит структуру
		// таблицы, а при необходимости отложит её в сторону и создаст новую.
		l.bound = nil
		return fmt.Errorf("insert: %w", err)
	}
	return nil
}
