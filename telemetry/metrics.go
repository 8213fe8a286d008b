package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const meterName = "github.com/andreyka/ClickHouse"

// Instruments — метрики конвейера лога запросов.
type Instruments struct {
	Submitted     metric.Int64Counter
	Rejected      metric.Int64Counter
	FlushedRows   metric.Int64Counter
	DroppedRows   metric.Int64Counter
	FlushErrors   metric.Int64Counter
	FlushDuration metric.Float64Histogram
}

// NewInstruments создаёт метрики через глобальный MeterProvider.
func NewInstruments() *Instruments {
	return newInstrumentsFromMeter(otel.Meter(meterName))
}

// NoopInstruments возвращает метрики, которые ничего не записывают.
func NoopInstruments() *Instruments {
	return newInstrumentsFromMeter(noop.NewMeterProvider().Meter(meterName))
}

func newInstrumentsFromMeter(meter metric.Meter) *Instruments {
	// При ошибке SDK возвращает noop-инструмент, ошибку можно не проверять.
	submitted, _ := meter.Int64Counter("querylog.submitted",
		metric.WithDescription("Records accepted into the query log queue"),
	)
	rejected, _ := meter.Int64Counter("querylog.rejected",
		metric.WithDescription("Records rejected because the query log is shut down"),
	)
	flushedRows, _ := meter.Int64Counter("querylog.flushed_rows",
		metric.WithDescription("Records persisted to the query log table"),
	)
	droppedRows, _ := meter.Int64Counter("querylog.dropped_rows",
		metric.WithDescription("Records discarded because a flush failed"),
	)
	flushErrors, _ := meter.Int64Counter("querylog.flush_errors",
		metric.WithDescription("Failed query log flushes"),
	)
	flushDuration, _ := meter.Float64Histogram("querylog.flush_duration",
		metric.WithDescription("Query log flush duration in milliseconds"),
		metric.WithUnit("ms"),
	)

	return &Instruments{
		Submitted:     submitted,
		Rejected:      rejected,
		FlushedRows:   flushedRows,
		DroppedRows:   droppedRows,
		FlushErrors:   flushErrors,
		FlushDuration: flushDuration,
	}
}

func (i *Instruments) IncSubmitted(ctx context.Context) {
	i.Submitted.Add(ctx, 1)
}

func (i *Instruments) IncRejected(ctx context.Context) {
	i.Rejected.Add(ctx, 1)
}

func (i *Instruments) AddFlushed(ctx context.Context, n int) {
	i.FlushedRows.Add(ctx, int64(n))
}

func (i *Instruments) AddDropped(ctx context.Context, n int) {
	i.DroppedRows.Add(ctx, int64(n))
}

func (i *Instruments) IncFlushErrors(ctx context.Context) {
	i.FlushErrors.Add(ctx, 1)
}

func (i *Instruments) RecordFlushDuration(ctx context.Context, ms float64) {
	i.FlushDuration.Record(ctx, ms)
}
