// internal/widget/factory.go
package widget

import (
	"fmt"

	"github.com/OCAP2/mapkit/internal/config"
	"github.com/OCAP2/mapkit/internal/events"
	"github.com/OCAP2/mapkit/internal/widget/memory"
	mapwidget "github.com/OCAP2/mapkit/pkg/widget"
)

// New creates a widget backend based on configuration
func New(cfg config.WidgetConfig, logger events.Logger) (mapwidget.Widget, error) {
	switch cfg.Backend {
	case "memory", "":
		var opts []memory.Option
		if !cfg.Geometry {
			opts = append(opts, memory.WithoutGeometry())
		}
		if cfg.Viewport.Width > 0 && cfg.Viewport.Height > 0 {
			opts = append(opts, memory.WithViewport(cfg.Viewport))
		}
		return memory.New(logger, opts...)
	default:
		return nil, fmt.Errorf("unknown widget backend: %s", cfg.Backend)
	}
}
