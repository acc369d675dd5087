package mapkit

import (
	"fmt"
	"log/slog"

	"github.com/OCAP2/mapkit/pkg/core"
	"github.com/OCAP2/mapkit/pkg/widget"
	"github.com/google/uuid"
)

// MarkerOptions configure NewMarker. Position is required.
type MarkerOptions struct {
	Position *core.Point
	// Map attaches the marker right away.
	Map        *MapView
	Icon       *core.Icon
	Label      string
	LabelClass string
	Title      string
	// Popup is attached once the marker is on a map.
	Popup  *PopupSpec
	Data   any
	Logger *slog.Logger
}

// Marker is a point on a MapView with an optional icon, label and popup.
type Marker struct {
	id     string
	w      widget.Widget
	handle widget.Marker
	logger *slog.Logger

	position core.Point
	icon     *core.Icon
	label    string
	data     any

	popup        *Popup
	pendingPopup *PopupSpec
	listeners    []widget.Listener

	visible  bool
	attached *MapView
}

// NewMarker creates a marker. w may be nil when opts.Map is set, in which
// case the map's widget is used.
func NewMarker(w widget.Widget, opts MarkerOptions) (*Marker, error) {
	logger := opts.Logger
	if logger == nil && opts.Map != nil {
		logger = opts.Map.logger
	}
	logger = loggerOr(logger).With("component", "marker")

	if w == nil && opts.Map != nil {
		w = opts.Map.widget
	}
	if w == nil {
		logger.Error("widget not loaded", "op", "create")
		return nil, fmt.Errorf("new marker: %w", core.ErrMissingDependency)
	}
	if opts.Position == nil || !opts.Position.Valid() {
		pos := "none"
		if opts.Position != nil {
			pos = opts.Position.String()
		}
		logger.Error("invalid position", "op", "create", "position", pos)
		return nil, fmt.Errorf("new marker: %w", core.ErrInvalidGeometry)
	}

	handle, err := w.NewMarker(widget.MarkerOptions{
		Position:   *opts.Position,
		Icon:       opts.Icon,
		Label:      opts.Label,
		LabelClass: opts.LabelClass,
		Title:      opts.Title,
	})
	if err != nil {
		logger.Error("widget failed to create marker", "op", "create", "error", err)
		return nil, fmt.Errorf("new marker: %w", err)
	}

	id := uuid.NewString()
	m := &Marker{
		id:           id,
		w:            w,
		handle:       handle,
		logger:       logger.With("marker", id),
		position:     *opts.Position,
		icon:         opts.Icon,
		label:        opts.Label,
		visible:      true,
		pendingPopup: opts.Popup,
	}
	if opts.Data != nil {
		m.SetData(opts.Data)
	}
	if opts.Map != nil {
		m.AddToMap(opts.Map)
	}
	return m, nil
}

// ID returns the marker's unique identifier.
func (m *Marker) ID() string { return m.id }

// Position returns where the marker is drawn.
func (m *Marker) Position() core.Point { return m.position }

// Icon returns the custom icon, if any.
func (m *Marker) Icon() *core.Icon { return m.icon }

// Label returns the label markup.
func (m *Marker) Label() string { return m.label }

// Visible reports whether the marker is shown. Hidden markers are skipped
// by FitBounds and clustering.
func (m *Marker) Visible() bool { return m.visible }

// Map returns the MapView the marker is attached to, or nil.
func (m *Marker) Map() *MapView { return m.attached }

// Data returns the user data.
func (m *Marker) Data() any { return m.data }

// Handle returns the widget marker.
func (m *Marker) Handle() widget.Marker { return m.handle }

// Popup returns the attached popup, or nil.
func (m *Marker) Popup() *Popup { return m.popup }

// HasPopup reports whether a popup is attached.
func (m *Marker) HasPopup() bool { return m.popup != nil }

// PopupOpen reports whether the attached popup is showing.
func (m *Marker) PopupOpen() bool {
	return m.popup != nil && m.popup.handle.IsOpen()
}

// SetData stores data on the marker and its widget counterpart.
func (m *Marker) SetData(data any) {
	m.data = data
	m.handle.SetData(data)
}

// AddToMap registers the marker on v and renders it unless it is hidden. A
// marker moves off its previous map first.
func (m *Marker) AddToMap(v *MapView) {
	if v == nil {
		m.logger.Error("no map to attach to", "op", "addToMap")
		return
	}
	if m.attached != nil && m.attached != v {
		m.Remove()
	}
	m.attached = v
	if m.visible {
		m.handle.SetMap(v.handle)
	}
	v.register(m)

	if m.pendingPopup != nil {
		spec := *m.pendingPopup
		m.pendingPopup = nil
		if err := m.AddPopup(spec); err != nil {
			m.logger.Warn("popup not attached", "op", "addToMap", "error", err)
		}
	}
}

// Remove detaches the marker from its map. Cluster membership is not
// affected.
func (m *Marker) Remove() {
	m.ClosePopup()
	m.handle.SetMap(nil)
	if m.attached != nil {
		m.attached.unregister(m)
	}
	m.attached = nil
}

// Show redraws a hidden marker on its map. A marker that is not attached
// is left as it is.
func (m *Marker) Show() {
	if m.attached == nil {
		return
	}
	m.visible = true
	m.handle.SetMap(m.attached.handle)
}

// Hide stops drawing the marker while keeping it attached.
func (m *Marker) Hide() {
	m.ClosePopup()
	m.visible = false
	m.handle.SetMap(nil)
}

// AddEvent binds cb to the named widget event on the marker. Labelled
// markers bind the label's capture element.
func (m *Marker) AddEvent(name string, cb func(widget.Event)) widget.Listener {
	l := m.w.AddListener(m.handle.EventTarget(), name, cb)
	m.listeners = append(m.listeners, l)
	return l
}

// discard detaches the marker and drops everything bound to it. The marker
// is not reused afterwards.
func (m *Marker) discard() {
	m.Remove()
	m.detachPopup()
	for _, l := range m.listeners {
		l.Remove()
	}
	m.listeners = nil
}

// OnHover binds pointer enter and leave handlers. Either may be nil.
func (m *Marker) OnHover(over, leave func(widget.Event)) {
	if over != nil {
		m.AddEvent(widget.EventMouseOver, over)
	}
	if leave != nil {
		m.AddEvent(widget.EventMouseOut, leave)
	}
}

// OnClick binds a click handler.
func (m *Marker) OnClick(cb func(widget.Event)) {
	if cb != nil {
		m.AddEvent(widget.EventClick, cb)
	}
}
