package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/assetgrid/internal/result"
	"github.com/specialistvlad/assetgrid/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const projectHCL = `
output {
  dir        = "dist"
  url_prefix = "/assets"
}

bundle "vendor" {
  dependencies = ["lib/browser.json"]
}
`

func writeProject(t *testing.T) string {
	t.Helper()
	return testutil.WriteProject(t, map[string]string{
		"assetgrid.hcl":    projectHCL,
		"lib/browser.json": `["b.js"]`,
		"lib/b.js":         "var b;",
		"pages/home.json":  `{"dependencies": ["home.js", "../lib/browser.json"], "async": {"chat": ["chat.js"]}}`,
		"pages/home.js":    "var home;",
		"pages/chat.js":    "var chat;",
	})
}

func TestNewLogger_Levels(t *testing.T) {
	cases := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
	}
	for _, tc := range cases {
		t.Run(tc.level, func(t *testing.T) {
			logger := newLogger(tc.level, "text", &bytes.Buffer{})
			assert.True(t, logger.Enabled(context.Background(), tc.want))
			assert.False(t, logger.Enabled(context.Background(), tc.want-1))
		})
	}
}

func TestNewLogger_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	newLogger("info", "json", &buf).Info("hello", "k", "v")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "hello", line["msg"])
	assert.Equal(t, "v", line["k"])
}

func TestParsePageSpec(t *testing.T) {
	p, err := ParsePageSpec("home=pages/home.json")
	require.NoError(t, err)
	assert.Equal(t, PageSpec{Name: "home", Manifest: "pages/home.json"}, p)

	p, err = ParsePageSpec("pages/about.yaml")
	require.NoError(t, err)
	assert.Equal(t, PageSpec{Name: "about", Manifest: "pages/about.yaml"}, p)

	_, err = ParsePageSpec("home=")
	require.Error(t, err)
}

func TestNewConfig_Validation(t *testing.T) {
	_, err := NewConfig(Config{Pages: []PageSpec{{Name: "a", Manifest: "a.json"}}})
	require.Error(t, err)

	_, err = NewConfig(Config{ConfigPath: "x"})
	require.Error(t, err)

	_, err = NewConfig(Config{ConfigPath: "x", Pages: []PageSpec{{Name: "a", Manifest: "a.json"}, {Name: "a", Manifest: "b.json"}}})
	require.ErrorContains(t, err, "more than once")
}

func TestRun_BuildsPagesAndWritesResults(t *testing.T) {
	root := writeProject(t)
	resultPath := filepath.Join(root, "result.json")

	appConfig := &Config{
		ConfigPath: root,
		Pages:      []PageSpec{{Name: "home", Manifest: "pages/home.json"}},
		ResultPath: resultPath,
	}
	testApp, logs := SetupAppTest(t, appConfig)

	require.NoError(t, testApp.Run(context.Background()))

	data, err := os.ReadFile(resultPath)
	require.NoError(t, err)
	var pages []*result.Page
	require.NoError(t, json.Unmarshal(data, &pages))
	require.Len(t, pages, 1)

	home := pages[0]
	assert.Equal(t, "home", home.Name)
	assert.Equal(t, []string{"/assets/home.js", "/assets/vendor.js"}, home.URLs["js"])
	assert.Equal(t, []string{"/assets/home-async.js"}, home.Async["chat"].JS)
	assert.FileExists(t, filepath.Join(root, "dist", "vendor.js"))
	assert.Contains(t, logs.String(), "Engine: Page ready.")
}

func TestRun_ReportsBuildErrors(t *testing.T) {
	root := writeProject(t)
	appConfig := &Config{
		ConfigPath: root,
		Pages:      []PageSpec{{Name: "missing", Manifest: "pages/missing.json"}},
	}
	testApp, _ := SetupAppTest(t, appConfig)

	err := testApp.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "build failed")
}

type failingCloser struct {
	bytes.Buffer
	err error
}

func (c *failingCloser) Close() error { return c.err }

func TestWriteResultFile_ReportsCloseError(t *testing.T) {
	root := writeProject(t)
	appConfig := &Config{
		ConfigPath: root,
		Pages:      []PageSpec{{Name: "home", Manifest: "pages/home.json"}},
		ResultPath: filepath.Join(root, "result.json"),
	}
	testApp, _ := SetupAppTest(t, appConfig)

	diskFull := errors.New("no space left on device")
	wc := &failingCloser{err: diskFull}
	err := testApp.writeResultFile(wc, []*result.Page{{Name: "home"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, diskFull)
	assert.Contains(t, err.Error(), "failed to close result file")
	assert.Contains(t, wc.String(), `"home"`)

	require.NoError(t, testApp.writeResultFile(&failingCloser{}, nil))
}

func TestHandler_HealthAndMetrics(t *testing.T) {
	root := writeProject(t)
	appConfig := &Config{
		ConfigPath: root,
		Pages:      []PageSpec{{Name: "home", Manifest: "pages/home.json"}},
	}
	testApp, _ := SetupAppTest(t, appConfig)
	_, err := testApp.BuildPages(context.Background())
	require.NoError(t, err)

	srv := httptest.NewServer(testApp.handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	var body bytes.Buffer
	_, err = body.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, body.String(), "assetgrid_page_builds_total")
}
