package dispatcher

import (
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/global"
)

func (d *Dispatcher) initMetrics() {
	meter := global.Meter("marketgate")
	d.metricInFlight = metric.Must(meter).NewInt64UpDownCounter("marketgate.dispatcher.inflight")
}
