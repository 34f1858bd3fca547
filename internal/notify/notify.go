// Package notify tells interested parties, such as a dev server reloading
// the browser, that a page build finished.
package notify

import (
	"context"
	"encoding/json"

	"github.com/specialistvlad/assetgrid/internal/result"
)

// DefaultEvent is the event name emitted after each page build.
const DefaultEvent = "bundles:built"

// Notifier publishes finished page builds.
type Notifier interface {
	Notify(ctx context.Context, p *result.Page, cached bool) error
	Close() error
}

// Noop discards every notification.
type Noop struct{}

func (Noop) Notify(context.Context, *result.Page, bool) error { return nil }
func (Noop) Close() error                                     { return nil }

// Payload is the body of a build notification.
type Payload struct {
	BuildID string              `json:"build_id"`
	Page    string              `json:"page"`
	Cached  bool                `json:"cached"`
	URLs    map[string][]string `json:"urls"`
	Files   []string            `json:"files"`
	Async   []string            `json:"async,omitempty"`
}

// NewPayload summarizes p.
func NewPayload(p *result.Page, cached bool) Payload {
	return Payload{
		BuildID: p.BuildID,
		Page:    p.Name,
		Cached:  cached,
		URLs:    p.URLs,
		Files:   p.Files,
		Async:   p.AsyncNames(),
	}
}

// asMap converts the payload into the generic form socket.io serializes.
func (pl Payload) asMap() (map[string]any, error) {
	b, err := json.Marshal(pl)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}
