package mapkit

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/OCAP2/mapkit/pkg/mapkit"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}
