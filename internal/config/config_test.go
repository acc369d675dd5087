package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/OCAP2/mapkit/pkg/core"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(body), 0644))
	return dir
}

func TestLoad_WithValidConfigFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := writeConfig(t, `{
		"logLevel": "debug",
		"map": { "center": "48.85,2.35", "zoom": 12 },
		"cluster": { "policy": { "10": 250, "12": "90.5" } }
	}`)

	err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "debug", viper.GetString("logLevel"))
	assert.Equal(t, "48.85,2.35", viper.GetString("map.center"))
	assert.Equal(t, 12, viper.GetInt("map.zoom"))
}

func TestLoad_DefaultValues(t *testing.T) {
	t.Cleanup(viper.Reset)

	err := Load(writeConfig(t, `{}`))
	require.NoError(t, err)

	assert.Equal(t, "info", viper.GetString("logLevel"))
	assert.Equal(t, "./mapkitlogs", viper.GetString("logsDir"))
	assert.Equal(t, "0,0", viper.GetString("map.center"))
	assert.Equal(t, 8, viper.GetInt("map.zoom"))
	assert.Equal(t, true, viper.GetBool("map.defaultUI"))
	assert.Equal(t, "150ms", viper.GetString("cluster.debounce"))
	assert.Equal(t, "infobox", viper.GetString("popup.containerClass"))
	assert.Equal(t, "memory", viper.GetString("widget.backend"))
	assert.Equal(t, false, viper.GetBool("otel.enabled"))
	assert.Equal(t, "mapkit", viper.GetString("otel.serviceName"))
}

func TestDefaults_WithoutFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	Defaults()
	require.NoError(t, Validate())
	assert.Equal(t, 8, GetMapConfig().Zoom)
	assert.Equal(t, "memory", GetWidgetConfig().Backend)
}

func TestLoad_MissingFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	err := Load("/nonexistent/path")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestLoad_RejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"unknown root", `{"storage": {"type": "memory"}}`, `unknown config key "storage"`},
		{"unknown nested", `{"map": {"centre": "1,1"}}`, `unknown config key "map.centre"`},
		{"unknown empty section", `{"storage": {}}`, `unknown config key "storage"`},
		{"unknown empty nested", `{"map": {"centre": {}}}`, `unknown config key "map.centre"`},
		{"section not object", `{"widget": "memory"}`, `config key "widget" must be an object`},
		{"bad center", `{"map": {"center": "north"}}`, "map.center"},
		{"zoom too high", `{"map": {"zoom": 22}}`, "map.zoom 22"},
		{"bad policy zoom", `{"cluster": {"policy": {"x": 10}}}`, "invalid zoom level"},
		{"negative distance", `{"cluster": {"policy": {"3": -1}}}`, "invalid distance"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Cleanup(viper.Reset)
			err := Load(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_ZoomOutOfRangeSentinel(t *testing.T) {
	t.Cleanup(viper.Reset)

	err := Load(writeConfig(t, `{"map": {"zoom": -1}}`))
	assert.ErrorIs(t, err, core.ErrZoomOutOfRange)
}

func TestGetString(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("testKey", "testValue")
	assert.Equal(t, "testValue", GetString("testKey"))
}

func TestGetInt(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("testInt", 42)
	assert.Equal(t, 42, GetInt("testInt"))
}

func TestGetBool(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("testBool", true)
	assert.Equal(t, true, GetBool("testBool"))
}

func TestGetMapConfig(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{
		"map": { "center": "51.5,-0.12", "zoom": 10, "defaultUI": false, "width": 1024, "height": 768 }
	}`)))

	mc := GetMapConfig()
	assert.Equal(t, core.NewPoint(51.5, -0.12), mc.Center)
	assert.Equal(t, 10, mc.Zoom)
	assert.False(t, mc.DefaultUI)
	assert.Equal(t, core.Size{Width: 1024, Height: 768}, mc.Viewport)
}

func TestGetClusterConfig_Defaults(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{}`)))

	cc := GetClusterConfig()
	assert.Equal(t, 150*time.Millisecond, cc.Debounce)
	assert.Equal(t, 0.0, cc.DefaultDistance)
	assert.Empty(t, cc.Policy)
}

func TestGetClusterConfig_Override(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{
		"cluster": { "debounce": "300ms", "defaultDistance": 75, "policy": { "10": 250, "12": "90.5" } }
	}`)))

	cc := GetClusterConfig()
	assert.Equal(t, 300*time.Millisecond, cc.Debounce)
	assert.Equal(t, 75.0, cc.DefaultDistance)
	assert.Equal(t, map[int]float64{10: 250, 12: 90.5}, cc.Policy)
}

func TestGetPopupConfig(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{"popup": {"containerClass": "card", "autoClose": "2s"}}`)))

	pc := GetPopupConfig()
	assert.Equal(t, "card", pc.ContainerClass)
	assert.Equal(t, 2*time.Second, pc.AutoClose)
}

func TestGetWidgetConfig(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{"widget": {"geometry": false}}`)))

	wc := GetWidgetConfig()
	assert.Equal(t, "memory", wc.Backend)
	assert.False(t, wc.Geometry)
	assert.Equal(t, core.Size{Width: 800, Height: 600}, wc.Viewport)
}

func TestGetOTelConfig_Defaults(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{}`)))

	cfg := GetOTelConfig()
	assert.Equal(t, false, cfg.Enabled)
	assert.Equal(t, "mapkit", cfg.ServiceName)
	assert.Equal(t, 5*time.Second, cfg.BatchTimeout)
	assert.Equal(t, "", cfg.Endpoint)
	assert.Equal(t, true, cfg.Insecure)
}

func TestGetOTelConfig_Override(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{
		"otel": {
			"enabled": true,
			"serviceName": "my-service",
			"batchTimeout": "30s",
			"endpoint": "localhost:4317",
			"insecure": false
		}
	}`)))

	oc := GetOTelConfig()
	assert.Equal(t, true, oc.Enabled)
	assert.Equal(t, "my-service", oc.ServiceName)
	assert.Equal(t, 30*time.Second, oc.BatchTimeout)
	assert.Equal(t, "localhost:4317", oc.Endpoint)
	assert.Equal(t, false, oc.Insecure)
}
