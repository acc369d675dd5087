package mapkit

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"time"

	"github.com/OCAP2/mapkit/internal/schedule"
	"github.com/OCAP2/mapkit/pkg/core"
	"github.com/OCAP2/mapkit/pkg/widget"
	"go.opentelemetry.io/otel/metric"
)

// Appearance is the template for aggregate markers. Label is markup
// compiled with the Group as .Data; an empty Label shows the member count.
// Popup, when set, is attached to each aggregate with the Group as Data.
type Appearance struct {
	Icon       *core.Icon
	Label      string
	LabelClass string
	Popup      *PopupSpec
}

// MarkerOverride replaces parts of the aggregate built for a group. Nil
// fields keep the template value.
type MarkerOverride struct {
	Position   *core.Point
	Icon       *core.Icon
	Label      *string
	LabelClass *string
	Title      *string
	Popup      *PopupSpec
	Data       any
}

// Hooks customize clustering.
type Hooks struct {
	// BeforeCreate runs for every multi-member group before its aggregate
	// is built.
	BeforeCreate func(g Group) *MarkerOverride
	// AfterRender runs after a pass with the markers now displayed.
	AfterRender func(display []*Marker)
	// OnHover and OnLeave are bound to the pointer events of aggregates.
	OnHover func(m *Marker, e widget.Event)
	OnLeave func(m *Marker, e widget.Event)
	// OnClick is bound to aggregate clicks.
	OnClick func(m *Marker, e widget.Event)
}

// ClusterOptions configure NewCluster.
type ClusterOptions struct {
	Markers []*Marker
	Map     *MapView
	// Policy defaults to DefaultGroupingPolicy.
	Policy     *GroupingPolicy
	Appearance Appearance
	Hooks      Hooks
	// Debounce is the quiet period after a zoom change before
	// re-clustering. Defaults to DefaultDebounce.
	Debounce time.Duration
	Logger   *slog.Logger
}

// Cluster folds nearby markers into aggregate markers and keeps the map
// display in step with zoom changes.
type Cluster struct {
	w      widget.Widget
	logger *slog.Logger
	// set when the caller chose the logger; otherwise the map's is used
	ownLogger bool

	markers    []*Marker
	display    []*Marker
	aggregates []*Marker

	view       *MapView
	policy     GroupingPolicy
	appearance Appearance
	hooks      Hooks
	debounce   time.Duration

	zoomListener widget.Listener
	metrics      *clusterMetrics
}

// NewCluster creates a cluster. w may be nil when opts.Map is set.
func NewCluster(w widget.Widget, opts ClusterOptions) (*Cluster, error) {
	logger := opts.Logger
	if logger == nil && opts.Map != nil {
		logger = opts.Map.logger
	}
	logger = loggerOr(logger).With("component", "cluster")

	if w == nil && opts.Map != nil {
		w = opts.Map.widget
	}
	if w == nil {
		logger.Error("widget not loaded", "op", "create")
		return nil, fmt.Errorf("new cluster: %w", core.ErrMissingDependency)
	}

	c := &Cluster{
		w:          w,
		logger:     logger,
		ownLogger:  opts.Logger != nil,
		policy:     DefaultGroupingPolicy(),
		appearance: opts.Appearance,
		hooks:      opts.Hooks,
		debounce:   opts.Debounce,
		metrics:    newClusterMetrics(logger),
	}
	if opts.Policy != nil {
		c.policy = opts.Policy.Merge(GroupingPolicy{})
	}
	if c.debounce <= 0 {
		c.debounce = DefaultDebounce
	}
	for _, m := range opts.Markers {
		c.add(m)
	}

	if opts.Map != nil {
		if err := c.SetMap(opts.Map); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Markers returns the master list.
func (c *Cluster) Markers() []*Marker {
	return append([]*Marker(nil), c.markers...)
}

// DisplayMarkers returns what the last pass put on the map.
func (c *Cluster) DisplayMarkers() []*Marker {
	return append([]*Marker(nil), c.display...)
}

// IsAggregate reports whether m was built by the last pass.
func (c *Cluster) IsAggregate(m *Marker) bool {
	for _, agg := range c.aggregates {
		if agg == m {
			return true
		}
	}
	return false
}

// Map returns the MapView the cluster renders on, or nil.
func (c *Cluster) Map() *MapView {
	return c.view
}

// Policy returns the grouping policy.
func (c *Cluster) Policy() GroupingPolicy {
	return c.policy
}

// SetGroupingPolicy merges p into the current policy.
func (c *Cluster) SetGroupingPolicy(p GroupingPolicy) {
	c.policy = c.policy.Merge(p)
}

// ReplaceGroupingPolicy discards the current policy in favour of p.
func (c *Cluster) ReplaceGroupingPolicy(p GroupingPolicy) {
	c.policy = GroupingPolicy{}.Merge(p)
}

// OnHover sets the pointer handlers bound to aggregates built from now on.
func (c *Cluster) OnHover(over, leave func(m *Marker, e widget.Event)) {
	c.hooks.OnHover = over
	c.hooks.OnLeave = leave
}

// OnClick sets the click handler bound to aggregates built from now on.
func (c *Cluster) OnClick(cb func(m *Marker, e widget.Event)) {
	c.hooks.OnClick = cb
}

// SetMap renders the cluster on v and re-clusters whenever v's zoom
// settles.
func (c *Cluster) SetMap(v *MapView) error {
	if v == nil {
		c.logger.Error("no map view", "op", "setMap")
		return fmt.Errorf("set map: %w", core.ErrNoMapView)
	}
	if c.view != nil {
		c.detach()
	}
	c.view = v
	if !c.ownLogger {
		c.logger = v.logger.With("component", "cluster")
	}

	recluster := schedule.Debounce(v.opts.Scheduler, c.debounce, false, func() {
		if len(c.markers) > 0 {
			if err := c.ClusterMarkers(); err != nil {
				c.logger.Debug("zoom recluster skipped", "error", err)
			}
		}
	})
	c.zoomListener = c.w.AddListener(v.handle, widget.EventZoomChanged, func(widget.Event) {
		recluster()
	})

	if len(c.markers) > 0 {
		return c.ClusterMarkers()
	}
	return nil
}

func (c *Cluster) detach() {
	if c.zoomListener != nil {
		c.zoomListener.Remove()
		c.zoomListener = nil
	}
	c.clearDisplay()
	c.view = nil
}

// Group partitions the visible markers among markers, or the master list
// when markers is nil, into chains no farther apart than distance meters.
func (c *Cluster) Group(markers []*Marker, distance float64) ([]Group, error) {
	log := c.logger.With("op", "group")
	if markers == nil {
		markers = c.markers
	}
	if distance <= 0 || math.IsNaN(distance) || math.IsInf(distance, 0) {
		log.Error("cannot group with distance", "distance", distance)
		return nil, fmt.Errorf("group: %w", core.ErrUngroupableDistance)
	}

	g := c.w.Geometry()
	if g == nil {
		log.Error("widget has no geometry capability")
		return nil, fmt.Errorf("group: %w", core.ErrMissingGeometryCapability)
	}

	var visible []*Marker
	for _, m := range markers {
		if m != nil && m.visible {
			visible = append(visible, m)
		}
	}
	if len(visible) == 0 {
		log.Debug("no visible markers to group")
		return nil, nil
	}
	return partition(g, visible, distance), nil
}

func (c *Cluster) policyDistance() float64 {
	if c.view == nil {
		return c.policy.Default
	}
	return c.policy.Distance(c.view.CurrentZoom())
}

// ClusterMarkers replaces the previous aggregates with a fresh grouping of
// the master list at the current zoom. Singleton groups show the member
// itself; larger groups show one aggregate at their centroid.
func (c *Cluster) ClusterMarkers() error {
	log := c.logger.With("op", "clusterMarkers")
	if c.view == nil {
		log.Error("no map view")
		return fmt.Errorf("cluster: %w", core.ErrNoMapView)
	}
	v := c.view

	groups, err := c.Group(nil, c.policyDistance())
	if err != nil {
		// the previous pass stays on the map and tracked
		return err
	}

	c.discardAggregates()

	var display, aggregates []*Marker
	for _, g := range groups {
		if g.Count() == 1 {
			display = append(display, g.Members[0])
			continue
		}
		agg, err := c.buildAggregate(g)
		if err != nil {
			log.Warn("aggregate skipped, showing members", "members", g.Count(), "error", err)
			display = append(display, g.Members...)
			continue
		}
		for _, member := range g.Members {
			v.RemoveMarker(member)
		}
		display = append(display, agg)
		aggregates = append(aggregates, agg)
	}

	v.AddMarkers(display...)
	c.display = display
	c.aggregates = aggregates

	c.metrics.record(len(aggregates))
	log.Debug("cluster pass", "markers", len(c.markers), "groups", len(groups), "aggregates", len(aggregates))

	if c.hooks.AfterRender != nil {
		c.hooks.AfterRender(c.DisplayMarkers())
	}
	return nil
}

func (c *Cluster) buildAggregate(g Group) (*Marker, error) {
	position := g.Centroid
	icon := c.appearance.Icon
	labelClass := c.appearance.LabelClass
	title := ""
	var data any = g.Data

	label := strconv.Itoa(g.Count())
	if c.appearance.Label != "" {
		node, err := c.view.Compile(c.appearance.Label, g)
		if err != nil {
			return nil, err
		}
		label = node.HTML()
	}

	var popup *PopupSpec
	if c.appearance.Popup != nil {
		spec := *c.appearance.Popup
		spec.Data = g
		popup = &spec
	}

	if c.hooks.BeforeCreate != nil {
		if o := c.hooks.BeforeCreate(g); o != nil {
			if o.Position != nil {
				position = *o.Position
			}
			if o.Icon != nil {
				icon = o.Icon
			}
			if o.Label != nil {
				label = *o.Label
			}
			if o.LabelClass != nil {
				labelClass = *o.LabelClass
			}
			if o.Title != nil {
				title = *o.Title
			}
			if o.Popup != nil {
				popup = o.Popup
			}
			if o.Data != nil {
				data = o.Data
			}
		}
	}

	agg, err := NewMarker(c.w, MarkerOptions{
		Position:   &position,
		Icon:       icon,
		Label:      label,
		LabelClass: labelClass,
		Title:      title,
		Popup:      popup,
		Data:       data,
		Logger:     c.logger,
	})
	if err != nil {
		return nil, err
	}

	if h := c.hooks.OnHover; h != nil {
		agg.AddEvent(widget.EventMouseOver, func(e widget.Event) { h(agg, e) })
	}
	if h := c.hooks.OnLeave; h != nil {
		agg.AddEvent(widget.EventMouseOut, func(e widget.Event) { h(agg, e) })
	}
	if h := c.hooks.OnClick; h != nil {
		agg.AddEvent(widget.EventClick, func(e widget.Event) { h(agg, e) })
	}
	return agg, nil
}

func (c *Cluster) add(m *Marker) bool {
	if m == nil {
		return false
	}
	for _, cur := range c.markers {
		if cur == m {
			return false
		}
	}
	c.markers = append(c.markers, m)
	return true
}

func (c *Cluster) remove(m *Marker) bool {
	for i, cur := range c.markers {
		if cur == m {
			c.markers = append(c.markers[:i], c.markers[i+1:]...)
			return true
		}
	}
	return false
}

// AddMarkers appends markers to the master list and re-clusters. An empty
// call leaves the display as it is.
func (c *Cluster) AddMarkers(markers ...*Marker) error {
	added := 0
	for _, m := range markers {
		if c.add(m) {
			added++
		}
	}
	if added == 0 || c.view == nil {
		return nil
	}
	return c.ClusterMarkers()
}

// RemoveMarkers drops markers from the master list, takes them off the map
// and re-clusters. An empty call leaves the display as it is.
func (c *Cluster) RemoveMarkers(markers ...*Marker) error {
	removed := 0
	for _, m := range markers {
		if c.remove(m) {
			removed++
			if c.view != nil {
				c.view.RemoveMarker(m)
			}
		}
	}
	if removed == 0 || c.view == nil {
		return nil
	}
	return c.ClusterMarkers()
}

// RemoveMarker drops m from the master list without re-clustering and
// reports whether it was a member. A marker shown on its own is taken off
// the map.
func (c *Cluster) RemoveMarker(m *Marker) bool {
	if !c.remove(m) {
		return false
	}
	for i, cur := range c.display {
		if cur == m {
			c.display = append(c.display[:i], c.display[i+1:]...)
			if c.view != nil {
				c.view.RemoveMarker(m)
			}
			break
		}
	}
	return true
}

// ResetCluster takes everything the cluster displays off the map and
// empties the master list.
func (c *Cluster) ResetCluster() {
	c.clearDisplay()
	c.markers = nil
}

func (c *Cluster) clearDisplay() {
	c.discardAggregates()
	if c.view != nil {
		c.view.RemoveMarkers(c.display...)
	}
	c.display = nil
}

// discardAggregates takes the aggregates off the map and releases their
// listeners and popups.
func (c *Cluster) discardAggregates() {
	for _, agg := range c.aggregates {
		agg.discard()
	}
	c.aggregates = nil
}

type clusterMetrics struct {
	passes     metric.Int64Counter
	aggregates metric.Int64Counter
}

func newClusterMetrics(logger *slog.Logger) *clusterMetrics {
	m := meter()
	cm := &clusterMetrics{}

	var err error
	cm.passes, err = m.Int64Counter(
		"cluster.passes",
		metric.WithDescription("Total clustering passes"),
	)
	if err != nil {
		logger.Warn("creating passes counter", "error", err)
	}
	cm.aggregates, err = m.Int64Counter(
		"cluster.aggregates",
		metric.WithDescription("Total aggregate markers built"),
	)
	if err != nil {
		logger.Warn("creating aggregates counter", "error", err)
	}
	return cm
}

func (cm *clusterMetrics) record(aggregates int) {
	ctx := context.Background()
	if cm.passes != nil {
		cm.passes.Add(ctx, 1)
	}
	if cm.aggregates != nil && aggregates > 0 {
		cm.aggregates.Add(ctx, int64(aggregates))
	}
}
