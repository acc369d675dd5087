package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/OCAP2/mapkit/internal/geo"
	"github.com/OCAP2/mapkit/pkg/core"
	"github.com/spf13/viper"
)

// FileName is the config file looked up in the config directory
const FileName = "mapkit.cfg.json"

// MapConfig holds map view defaults
type MapConfig struct {
	Center    core.Point
	Zoom      int
	DefaultUI bool
	// Viewport is the headless widget's pixel size
	Viewport core.Size
}

// ClusterConfig holds clustering settings
type ClusterConfig struct {
	Debounce        time.Duration
	DefaultDistance float64
	// Policy maps zoom levels to grouping distances in meters
	Policy map[int]float64
}

// PopupConfig holds popup defaults
type PopupConfig struct {
	ContainerClass string
	AutoClose      time.Duration
}

// WidgetConfig selects the widget backend
type WidgetConfig struct {
	Backend  string
	Geometry bool
	Viewport core.Size
}

// OTelConfig holds OpenTelemetry settings
type OTelConfig struct {
	Enabled      bool
	ServiceName  string
	BatchTimeout time.Duration
	Endpoint     string
	Insecure     bool
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	setDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	return Validate()
}

// Defaults installs the default values without reading a file.
func Defaults() {
	setDefaults()
}

func setDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./mapkitlogs")

	viper.SetDefault("map.center", "0,0")
	viper.SetDefault("map.zoom", 8)
	viper.SetDefault("map.defaultUI", true)
	viper.SetDefault("map.width", 800)
	viper.SetDefault("map.height", 600)

	viper.SetDefault("cluster.debounce", "150ms")
	// 0 derives distances from the default pixel radius table
	viper.SetDefault("cluster.defaultDistance", 0)
	viper.SetDefault("cluster.policy", map[string]any{})

	viper.SetDefault("popup.containerClass", "infobox")
	viper.SetDefault("popup.autoClose", "0s")

	viper.SetDefault("widget.backend", "memory")
	viper.SetDefault("widget.geometry", true)

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "mapkit")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)
}

// known top-level sections and their keys; anything else is a typo
var knownKeys = map[string]map[string]bool{
	"map":     {"center": true, "zoom": true, "defaultUI": true, "width": true, "height": true},
	"cluster": {"debounce": true, "defaultDistance": true, "policy": true},
	"popup":   {"containerClass": true, "autoClose": true},
	"widget":  {"backend": true, "geometry": true},
	"otel":    {"enabled": true, "serviceName": true, "batchTimeout": true, "endpoint": true, "insecure": true},
}

var knownRoots = map[string]bool{"logLevel": true, "logsDir": true}

// Validate rejects unknown keys and malformed values.
func Validate() error {
	// AllSettings drops empty objects, so the file is checked as written
	if file := viper.ConfigFileUsed(); file != "" {
		raw, err := readRaw(file)
		if err != nil {
			return err
		}
		if err := checkKeys(raw); err != nil {
			return err
		}
	}
	if err := checkKeys(viper.AllSettings()); err != nil {
		return err
	}

	if _, err := geo.PointFromString(viper.GetString("map.center")); err != nil {
		return fmt.Errorf("map.center: %w", err)
	}
	if z := viper.GetInt("map.zoom"); z < core.MinZoom || z > core.MaxZoom {
		return fmt.Errorf("map.zoom %d: %w", z, core.ErrZoomOutOfRange)
	}
	if _, err := policy(); err != nil {
		return err
	}
	return nil
}

func checkKeys(settings map[string]any) error {
	for key, val := range settings {
		if hasKey(knownRoots, key) {
			continue
		}
		section, ok := findSection(key)
		if !ok {
			return fmt.Errorf("unknown config key %q", key)
		}
		sub, ok := val.(map[string]any)
		if !ok {
			return fmt.Errorf("config key %q must be an object", key)
		}
		for k := range sub {
			if !hasKey(knownKeys[section], k) {
				return fmt.Errorf("unknown config key %q", section+"."+k)
			}
		}
	}
	return nil
}

func readRaw(file string) (map[string]any, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}
	raw := map[string]any{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}
	return raw, nil
}

// viper lowercases keys; match sections and keys case-insensitively
func findSection(key string) (string, bool) {
	for section := range knownKeys {
		if strings.EqualFold(section, key) {
			return section, true
		}
	}
	return "", false
}

func hasKey(keys map[string]bool, k string) bool {
	for known := range keys {
		if strings.EqualFold(known, k) {
			return true
		}
	}
	return false
}

func policy() (map[int]float64, error) {
	raw := viper.GetStringMap("cluster.policy")
	out := make(map[int]float64, len(raw))
	for k, v := range raw {
		zoom, err := strconv.Atoi(k)
		if err != nil || zoom < core.MinZoom || zoom > core.MaxZoom {
			return nil, fmt.Errorf("cluster.policy: invalid zoom level %q", k)
		}
		meters, err := toFloat(v)
		if err != nil || meters < 0 {
			return nil, fmt.Errorf("cluster.policy.%s: invalid distance %v", k, v)
		}
		out[zoom] = meters
	}
	return out, nil
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case string:
		return strconv.ParseFloat(n, 64)
	default:
		return 0, fmt.Errorf("not a number: %T", v)
	}
}

// GetMapConfig returns the map view defaults.
// An unparsable center falls back to the origin.
func GetMapConfig() MapConfig {
	center, err := geo.PointFromString(viper.GetString("map.center"))
	if err != nil {
		center = core.Point{}
	}
	return MapConfig{
		Center:    center,
		Zoom:      viper.GetInt("map.zoom"),
		DefaultUI: viper.GetBool("map.defaultUI"),
		Viewport:  viewport(),
	}
}

func viewport() core.Size {
	return core.Size{
		Width:  viper.GetInt("map.width"),
		Height: viper.GetInt("map.height"),
	}
}

// GetClusterConfig returns clustering settings
func GetClusterConfig() ClusterConfig {
	p, err := policy()
	if err != nil {
		p = map[int]float64{}
	}
	return ClusterConfig{
		Debounce:        viper.GetDuration("cluster.debounce"),
		DefaultDistance: viper.GetFloat64("cluster.defaultDistance"),
		Policy:          p,
	}
}

// GetPopupConfig returns popup defaults
func GetPopupConfig() PopupConfig {
	return PopupConfig{
		ContainerClass: viper.GetString("popup.containerClass"),
		AutoClose:      viper.GetDuration("popup.autoClose"),
	}
}

// GetWidgetConfig returns the widget backend selection
func GetWidgetConfig() WidgetConfig {
	return WidgetConfig{
		Backend:  viper.GetString("widget.backend"),
		Geometry: viper.GetBool("widget.geometry"),
		Viewport: viewport(),
	}
}

// GetOTelConfig returns OpenTelemetry settings
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}
