package result

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderSlots(t *testing.T) {
	slots := RenderSlots([]Bundle{
		{ContentType: "css", Slot: "head", URL: "/assets/home.css"},
		{ContentType: "js", Slot: "body", URL: "/assets/home.js"},
		{ContentType: "js", Slot: "body", Inline: "end", Code: "boot();"},
		{ContentType: "js", Slot: "body", Inline: "end", MergeInline: true, Code: "track();"},
		{ContentType: "css", Slot: "head", Inline: "beginning", Code: "body{margin:0}"},
	})

	assert.Equal(t,
		"<style>body{margin:0}</style>\n<link rel=\"stylesheet\" href=\"/assets/home.css\">\n",
		slots["head"])
	assert.Equal(t,
		"<script src=\"/assets/home.js\"></script>\n<script>boot();\ntrack();</script>\n",
		slots["body"])
}

func TestPage_EncodeDecode(t *testing.T) {
	p := &Page{
		Name:  "home",
		Slots: map[string]string{"body": "x", "head": "y"},
		Async: map[string]AsyncEntry{"widget": {JS: []string{"/assets/home-async.js"}}},
	}

	b, err := Encode(p)
	require.NoError(t, err)
	decoded, err := Decode(b)
	require.NoError(t, err)
	assert.Equal(t, p.Async, decoded.Async)
	assert.Equal(t, []string{"body", "head"}, decoded.SlotNames())
	assert.Equal(t, []string{"widget"}, decoded.AsyncNames())

	loader, err := p.LoaderJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"widget":{"js":["/assets/home-async.js"]}}`, string(loader))
}
