package redisstore

import (
	"os"
	"testing"
)

func lookupURL(t *testing.T) string {
	t.Helper()
	url := os.Getenv("ASSETGRID_REDIS_URL")
	if url == "" {
		t.Skip("ASSETGRID_REDIS_URL not set")
	}
	return url
}
