package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Provider хранит провайдер метрик для корректной остановки.
type Provider struct {
	mp *sdkmetric.MeterProvider
}

// Init создаёт провайдер метрик с OTLP gRPC экспортёром и регистрирует
// его глобально. Адрес коллектора SDK берёт из стандартной переменной
// окружения OTEL_EXPORTER_OTLP_ENDPOINT. Пока провайдер не
// зарегистрирован, инструменты из NewInstruments ничего не записывают.
func Init(ctx context.Context, serviceName string) (*Provider, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceName(serviceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("creating otel resource: %w", err)
	}

	metricExporter, err := otlpmetricgrpc.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	return &Provider{mp: mp}, nil
}

// Shutdown сбрасывает накопленные метрики и останавливает провайдер.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil || p.mp == nil {
		return nil
	}
	if err := p.mp.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down meter: %w", err)
	}
	return nil
}
