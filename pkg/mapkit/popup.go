package mapkit

import (
	"fmt"
	"time"

	"github.com/OCAP2/mapkit/internal/schedule"
	"github.com/OCAP2/mapkit/pkg/core"
	"github.com/OCAP2/mapkit/pkg/widget"
)

// OpenTrigger selects the pointer action that opens a popup.
type OpenTrigger int

const (
	TriggerHover OpenTrigger = iota
	TriggerClick
)

func (t OpenTrigger) String() string {
	if t == TriggerClick {
		return "click"
	}
	return "hover"
}

// PopupSpec describes an infobox attached to a marker. Content is markup
// compiled in the map's binding scope each time the popup opens, with Data
// exposed as .Data.
type PopupSpec struct {
	Content        string
	Data           any
	CloseIcon      string
	ContainerClass string
	Offset         core.Offset
	Trigger        OpenTrigger
	// AutoCloseDelay closes the popup after the pointer has been away from
	// both the marker and the popup for this long. Zero disables it.
	AutoCloseDelay time.Duration
	Scrollable     bool
}

// Popup is the infobox owned by a marker.
type Popup struct {
	spec   PopupSpec
	marker *Marker
	handle widget.Popup

	timer     schedule.Timer
	listeners []widget.Listener
}

// Spec returns the popup description.
func (p *Popup) Spec() PopupSpec { return p.spec }

// Handle returns the widget popup.
func (p *Popup) Handle() widget.Popup { return p.handle }

// AddPopup attaches a popup, replacing any previous one. The marker must be
// on a map so content can be compiled.
func (m *Marker) AddPopup(spec PopupSpec) error {
	log := m.logger.With("op", "addPopup")
	if m.attached == nil {
		log.Error("marker has no map to compile content")
		return fmt.Errorf("add popup: %w", core.ErrCompileUnavailable)
	}
	if spec.ContainerClass == "" {
		spec.ContainerClass = DefaultContainerClass
	}
	// fail early on markup that will never compile
	if _, err := m.attached.Compile(spec.Content, spec.Data); err != nil {
		return fmt.Errorf("add popup: %w", err)
	}

	handle, err := m.w.NewPopup(widget.PopupOptions{
		CloseIcon:      spec.CloseIcon,
		ContainerClass: spec.ContainerClass,
		Offset:         spec.Offset,
		Scrollable:     spec.Scrollable,
	})
	if err != nil {
		log.Error("widget failed to create popup", "error", err)
		return fmt.Errorf("add popup: %w", err)
	}

	m.detachPopup()

	p := &Popup{spec: spec, marker: m, handle: handle}
	m.popup = p

	// popup listeners belong to the popup and go with it on replacement
	marker := m.handle.EventTarget()
	open := func(widget.Event) { m.OpenPopup() }
	if spec.Trigger == TriggerClick {
		p.listeners = append(p.listeners, m.w.AddListener(marker, widget.EventClick, open))
	} else {
		p.listeners = append(p.listeners, m.w.AddListener(marker, widget.EventMouseOver, open))
	}

	if spec.AutoCloseDelay > 0 {
		arm := func(widget.Event) { p.armAutoClose() }
		disarm := func(widget.Event) { p.disarmAutoClose() }
		target := handle.EventTarget()
		p.listeners = append(p.listeners,
			m.w.AddListener(marker, widget.EventMouseOut, arm),
			m.w.AddListener(marker, widget.EventMouseOver, disarm),
			m.w.AddListener(target, widget.EventMouseOut, arm),
			m.w.AddListener(target, widget.EventMouseOver, disarm),
		)
	}
	return nil
}

func (m *Marker) detachPopup() {
	if m.popup == nil {
		return
	}
	m.popup.disarmAutoClose()
	m.popup.handle.Close()
	for _, l := range m.popup.listeners {
		l.Remove()
	}
	m.popup = nil
}

// OpenPopup closes every other popup on the map, recompiles the content
// and opens this marker's popup. Without a popup it does nothing.
func (m *Marker) OpenPopup() {
	p := m.popup
	if p == nil || m.attached == nil {
		return
	}
	m.attached.CloseAllPopups()

	node, err := m.attached.Compile(p.spec.Content, p.spec.Data)
	if err != nil {
		m.logger.Warn("popup content unavailable", "op", "openPopup", "error", err)
		return
	}
	p.handle.SetContent(node)
	p.handle.Open(m.attached.handle, m.handle)
}

// ClosePopup closes the popup if one is attached.
func (m *Marker) ClosePopup() {
	if m.popup == nil {
		return
	}
	m.popup.disarmAutoClose()
	m.popup.handle.Close()
}

func (p *Popup) armAutoClose() {
	p.disarmAutoClose()
	v := p.marker.attached
	if v == nil || !p.handle.IsOpen() {
		return
	}
	p.timer = v.opts.Scheduler.AfterFunc(p.spec.AutoCloseDelay, p.marker.ClosePopup)
}

func (p *Popup) disarmAutoClose() {
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}
