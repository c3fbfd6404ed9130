package module

import (
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/global"
)

func (m *Module) initMetrics() {
	meter := global.Meter("marketgate")
	m.metricListings = metric.Must(meter).NewInt64Counter("marketgate.listings")
	m.metricExchanges = metric.Must(meter).NewInt64Counter("marketgate.exchanges")
	m.metricResolutions = metric.Must(meter).NewInt64Counter("marketgate.resolutions")
	m.metricTransfers = metric.Must(meter).NewInt64Counter("marketgate.transfers")
}
