package app

import (
	"context"
	"os"
	"testing"

	"github.com/specialistvlad/assetgrid/internal/hcl"
	"github.com/specialistvlad/assetgrid/internal/registry"
	"github.com/specialistvlad/assetgrid/internal/testutil"
)

// SetupAppTest creates a new app instance for system testing. Logs are
// captured at debug level and printed on cleanup when
// ASSETGRID_TEST_LOGS=true.
func SetupAppTest(t *testing.T, appConfig *Config, modules ...registry.Module) (*App, *testutil.SafeBuffer) {
	t.Helper()

	logBuffer := &testutil.SafeBuffer{}
	appConfig.LogLevel = "debug"
	appConfig.LogFormat = "text"
	testApp, err := NewApp(context.Background(), logBuffer, appConfig, hcl.NewLoader(), modules...)
	if err != nil {
		t.Fatalf("failed to create app: %v\n%s", err, logBuffer.String())
	}

	t.Cleanup(func() {
		_ = testApp.Close()
		if os.Getenv("ASSETGRID_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logBuffer.String())
		}
	})

	return testApp, logBuffer
}
