package dispatch

import (
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const scopeName = "github.com/ayusman/mudra/internal/dispatch"

var (
	tracer   = otel.Tracer(scopeName)
	meter    = otel.Meter(scopeName)
	auditLog = otelslog.NewLogger(scopeName)

	dispatchCounter = newDispatchCounter()
)

func newDispatchCounter() metric.Int64Counter {
	c, err := meter.Int64Counter("mudra.dispatch",
		metric.WithDescription("Dispatch attempts by action kind and outcome."),
		metric.WithUnit("{dispatch}"),
	)
	if err != nil {
		otel.Handle(err)
		return noop.Int64Counter{}
	}
	return c
}
