// internal/export/export.go
package export

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/OCAP2/mapkit/internal/geo"
	"github.com/OCAP2/mapkit/pkg/core"
	"github.com/OCAP2/mapkit/pkg/mapkit"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/peterstace/simplefeatures/geom"
)

// Compression selects the output encoding
type Compression string

const (
	None Compression = ""
	Gzip Compression = "gzip"
	Zstd Compression = "zstd"
)

// ParseCompression accepts "", "none", "gzip"/"gz" and "zstd"/"zst".
func ParseCompression(s string) (Compression, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return None, nil
	case "gzip", "gz":
		return Gzip, nil
	case "zstd", "zst":
		return Zstd, nil
	default:
		return None, fmt.Errorf("unknown compression: %s", s)
	}
}

// Ext returns the file extension including the leading dot.
func (c Compression) Ext() string {
	switch c {
	case Gzip:
		return ".geojson.gz"
	case Zstd:
		return ".geojson.zst"
	default:
		return ".geojson"
	}
}

// Snapshot accumulates the display list of one or more zoom levels.
type Snapshot struct {
	features geom.GeoJSONFeatureCollection
}

// AddLayer records what a cluster shows at zoom.
func (s *Snapshot) AddLayer(zoom int, c *mapkit.Cluster) error {
	for _, m := range c.DisplayMarkers() {
		f, err := markerFeature(zoom, m, c.IsAggregate(m))
		if err != nil {
			return err
		}
		s.features = append(s.features, f)
	}
	return nil
}

// AddOverlays records every overlay on v. Overlays are zoom independent.
func (s *Snapshot) AddOverlays(v *mapkit.MapView) error {
	for _, o := range v.Overlays() {
		f, err := overlayFeature(o)
		if err != nil {
			return err
		}
		s.features = append(s.features, f)
	}
	return nil
}

// Len returns the number of recorded features.
func (s *Snapshot) Len() int {
	return len(s.features)
}

// Features returns the recorded features as a GeoJSON FeatureCollection.
func (s *Snapshot) Features() geom.GeoJSONFeatureCollection {
	return s.features
}

func markerFeature(zoom int, m *mapkit.Marker, aggregate bool) (geom.GeoJSONFeature, error) {
	g, err := geo.PointGeometry(m.Position())
	if err != nil {
		return geom.GeoJSONFeature{}, fmt.Errorf("marker %s: %w", m.ID(), err)
	}
	props := map[string]interface{}{
		"zoom":      zoom,
		"aggregate": aggregate,
		"count":     1,
	}
	if m.Label() != "" {
		props["label"] = m.Label()
	}
	if aggregate {
		if members, ok := m.Data().([]any); ok {
			props["count"] = len(members)
			props["members"] = members
		}
	} else if m.Data() != nil {
		props["data"] = m.Data()
	}
	return geom.GeoJSONFeature{
		ID:         m.ID(),
		Geometry:   g,
		Properties: props,
	}, nil
}

func overlayFeature(o *mapkit.Overlay) (geom.GeoJSONFeature, error) {
	path := o.Path()
	props := map[string]interface{}{"overlay": o.Kind().String()}
	if o.Kind() == mapkit.GroundOverlay {
		path = corners(o.Bounds())
		props["image"] = o.ImageURL()
	}
	// the widget draws any non-empty path, so export it as drawn
	poly, err := geo.PolygonFromPath(path, geom.DisableAllValidations)
	if err != nil {
		return geom.GeoJSONFeature{}, fmt.Errorf("%s overlay: %w", o.Kind(), err)
	}
	return geom.GeoJSONFeature{Geometry: poly.AsGeometry(), Properties: props}, nil
}

func corners(b core.Bounds) []core.Point {
	sw, ne := b.SouthWest, b.NorthEast
	return []core.Point{
		sw,
		{Lat: sw.Lat, Lng: ne.Lng},
		ne,
		{Lat: ne.Lat, Lng: sw.Lng},
	}
}

// Write encodes the snapshot to w.
func (s *Snapshot) Write(w io.Writer, c Compression) error {
	data, err := json.Marshal(s.features)
	if err != nil {
		return fmt.Errorf("failed to marshal features: %w", err)
	}

	switch c {
	case Gzip:
		gz := gzip.NewWriter(w)
		if _, err := gz.Write(data); err != nil {
			return fmt.Errorf("error writing to gzip: %w", err)
		}
		return gz.Close()
	case Zstd:
		enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
		if err != nil {
			return fmt.Errorf("failed to create zstd writer: %w", err)
		}
		if _, err := enc.Write(data); err != nil {
			enc.Close()
			return fmt.Errorf("error writing to zstd: %w", err)
		}
		return enc.Close()
	default:
		_, err := w.Write(data)
		return err
	}
}

// WriteFile writes the snapshot into dir, naming the file after name and
// start, and returns the path written.
func (s *Snapshot) WriteFile(dir, name string, start time.Time, c Compression) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	name = strings.NewReplacer(" ", "_", ":", "_").Replace(name)
	path := filepath.Join(dir, fmt.Sprintf("%s_%s%s", name, start.Format("20060102_150405"), c.Ext()))

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer func() { _ = f.Close() }()

	buf := bufio.NewWriterSize(f, 1<<20)
	if err := s.Write(buf, c); err != nil {
		return "", err
	}
	if err := buf.Flush(); err != nil {
		return "", err
	}
	return path, f.Close()
}
