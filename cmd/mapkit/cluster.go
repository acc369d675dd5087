package main

import (
	"fmt"
	"os"

	"github.com/OCAP2/mapkit/internal/config"
	"github.com/OCAP2/mapkit/internal/export"
	"github.com/OCAP2/mapkit/internal/geo"
	widgets "github.com/OCAP2/mapkit/internal/widget"
	"github.com/OCAP2/mapkit/pkg/binding"
	"github.com/OCAP2/mapkit/pkg/embed"
	"github.com/OCAP2/mapkit/pkg/mapkit"
	"github.com/spf13/cobra"
)

const aggregatePopup = "<b>{{.Data.Count}}</b> markers near {{.name}}"

type clusterFlags struct {
	input    string
	random   int
	seed     int64
	bbox     string
	zooms    []int
	fit      bool
	polygons []string
	outDir   string
	name     string
	compress string
}

type element string

func (e element) ID() string { return string(e) }

func newClusterCmd(a *app) *cobra.Command {
	f := &clusterFlags{}

	cmd := &cobra.Command{
		Use:   "cluster",
		Short: "Cluster points and export the display list per zoom level",
		Long: `Cluster loads points from a JSON file or generates random ones, groups
them the way a mounted map would at each requested zoom level and writes
the resulting markers as a GeoJSON FeatureCollection.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := runCluster(a, f, cmd)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&f.input, "input", "i", "", "points file: JSON array of {lat, lng, label, data}")
	cmd.Flags().IntVar(&f.random, "random", 0, "generate this many random points instead of reading a file")
	cmd.Flags().Int64Var(&f.seed, "seed", 1, "random point seed")
	cmd.Flags().StringVar(&f.bbox, "bbox", "-10,-10,10,10", "random point box as south,west,north,east")
	cmd.Flags().IntSliceVarP(&f.zooms, "zoom", "z", nil, "zoom levels to export (default: map.zoom)")
	cmd.Flags().BoolVar(&f.fit, "fit", false, "fit the viewport to the points first")
	cmd.Flags().StringArrayVar(&f.polygons, "polygon", nil, "polygon overlay as [[lat,lng],...] (repeatable)")
	cmd.Flags().StringVarP(&f.outDir, "out", "o", ".", "output directory")
	cmd.Flags().StringVar(&f.name, "name", appName, "output file name prefix")
	cmd.Flags().StringVar(&f.compress, "compress", "", "output compression: none, gzip or zstd")
	return cmd
}

func (f *clusterFlags) points() ([]pointRecord, error) {
	switch {
	case f.input != "" && f.random > 0:
		return nil, fmt.Errorf("--input and --random are exclusive")
	case f.input != "":
		file, err := os.Open(f.input)
		if err != nil {
			return nil, err
		}
		defer file.Close()
		return readPoints(file)
	case f.random > 0:
		box, err := parseBBox(f.bbox)
		if err != nil {
			return nil, err
		}
		return randomPoints(f.random, f.seed, box), nil
	default:
		return nil, fmt.Errorf("one of --input or --random is required")
	}
}

func runCluster(a *app, f *clusterFlags, cmd *cobra.Command) (string, error) {
	logger := a.logger().With("component", "cli")

	compression, err := export.ParseCompression(f.compress)
	if err != nil {
		return "", err
	}
	points, err := f.points()
	if err != nil {
		return "", err
	}

	w, err := widgets.New(config.GetWidgetConfig(), a.eventsLogger(cmd.ErrOrStderr()))
	if err != nil {
		return "", err
	}

	mc := config.GetMapConfig()
	cc := config.GetClusterConfig()
	pc := config.GetPopupConfig()

	host := embed.StaticHost{
		Element: element(f.name),
		Data:    binding.NewContext(map[string]any{"name": f.name}),
	}
	adapter := embed.Mount(host, embed.Options{
		Widget: w,
		Manual: true,
		Logger: a.logger(),
		Map: []mapkit.Option{
			mapkit.WithCenter(mc.Center),
			mapkit.WithZoom(mc.Zoom),
			mapkit.WithDefaultUI(mc.DefaultUI),
			mapkit.WithDebounce(cc.Debounce),
		},
	})
	// deferred work queues on the map's own loop and nothing runs it, so
	// every pass below is explicit and single-threaded
	defer adapter.Unmount()

	markers, err := buildMarkers(w, points)
	if err != nil {
		return "", err
	}

	// a fixed default distance replaces the pixel radius table
	policy := mapkit.DefaultGroupingPolicy()
	if cc.DefaultDistance > 0 {
		policy = mapkit.GroupingPolicy{Default: cc.DefaultDistance}
	}
	policy = policy.Merge(mapkit.GroupingPolicy{Levels: cc.Policy})

	var cluster *mapkit.Cluster
	var readyErr error
	adapter.OnReady(func(v *mapkit.MapView) {
		cluster, readyErr = mapkit.NewCluster(w, mapkit.ClusterOptions{
			Markers: markers,
			Map:     v,
			Policy:  &policy,
			Appearance: mapkit.Appearance{
				Popup: &mapkit.PopupSpec{
					Content:        aggregatePopup,
					ContainerClass: pc.ContainerClass,
					AutoCloseDelay: pc.AutoClose,
				},
			},
			Debounce: cc.Debounce,
			Logger:   a.logger(),
		})
	})

	v, err := adapter.Init()
	if err != nil {
		return "", err
	}
	if readyErr != nil {
		return "", readyErr
	}
	if cluster == nil {
		return "", fmt.Errorf("map ready notification was not delivered")
	}

	for i, raw := range f.polygons {
		path, err := geo.ParsePath(raw)
		if err != nil {
			return "", fmt.Errorf("polygon %d: %w", i, err)
		}
		if _, err := v.AddPolygonOverlay(path); err != nil {
			return "", fmt.Errorf("polygon %d: %w", i, err)
		}
	}

	zooms := f.zooms
	if f.fit {
		v.FitBounds()
	}
	if len(zooms) == 0 {
		zooms = []int{v.CurrentZoom()}
	}

	snap := &export.Snapshot{}
	for _, z := range zooms {
		if err := cmd.Context().Err(); err != nil {
			return "", err
		}
		if err := v.Zoom(z); err != nil {
			return "", err
		}
		if err := cluster.ClusterMarkers(); err != nil {
			return "", err
		}
		if err := snap.AddLayer(z, cluster); err != nil {
			return "", err
		}
		logger.Info("zoom exported", "zoom", z, "markers", len(markers), "display", len(cluster.DisplayMarkers()))
	}
	if err := snap.AddOverlays(v); err != nil {
		return "", err
	}

	path, err := snap.WriteFile(f.outDir, f.name, a.start, compression)
	if err != nil {
		return "", err
	}
	logger.Info("snapshot written", "path", path, "features", snap.Len())
	return path, nil
}
