package observability

import (
	"github.com/aramabarzani/creditbook/internal/config"
	"github.com/aramabarzani/creditbook/internal/observability/logger"
	"github.com/aramabarzani/creditbook/internal/observability/metrics"
	"github.com/aramabarzani/creditbook/internal/observability/tracing"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
)

const serviceName = "creditbook"

var Module = fx.Module("observability",
	logger.Module,
	fx.Provide(newTracingConfig),
	fx.Invoke(tracing.NewProvider),
	fx.Provide(newMeterProvider),
	fx.Provide(metrics.NewHTTPMetrics),
)

func newTracingConfig(cfg config.Config) tracing.Config {
	return tracing.Config{
		Enabled:          cfg.Tracing.Enabled,
		ServiceName:      serviceName,
		Environment:      cfg.Environment,
		ExporterEndpoint: cfg.Tracing.ExporterEndpoint,
		ExporterProtocol: cfg.Tracing.ExporterProtocol,
		SamplingRatio:    cfg.Tracing.SamplingRatio,
	}
}

func newMeterProvider() metric.MeterProvider {
	return sdkmetric.NewMeterProvider()
}
