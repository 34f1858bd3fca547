package result

import (
	"html"
	"strings"
)

// RenderSlots renders the HTML of each slot from bundles in order. Inline
// bundles positioned at the beginning or end of a slot are moved there;
// in-place ones stay where they are. A merge-inline bundle joins the
// preceding inline block of the same content type.
func RenderSlots(bundles []Bundle) map[string]string {
	type parts struct{ begin, middle, end []fragment }
	slots := make(map[string]*parts)
	var order []string

	for _, b := range bundles {
		p := slots[b.Slot]
		if p == nil {
			p = &parts{}
			slots[b.Slot] = p
			order = append(order, b.Slot)
		}
		f := fragment{contentType: b.ContentType, url: b.URL, code: b.Code, inline: b.Inline != "", merge: b.MergeInline}
		switch b.Inline {
		case "beginning":
			p.begin = appendFragment(p.begin, f)
		case "end":
			p.end = appendFragment(p.end, f)
		default:
			p.middle = appendFragment(p.middle, f)
		}
	}

	out := make(map[string]string, len(slots))
	for _, name := range order {
		p := slots[name]
		var sb strings.Builder
		for _, list := range [][]fragment{p.begin, p.middle, p.end} {
			for _, f := range list {
				f.render(&sb)
			}
		}
		out[name] = sb.String()
	}
	return out
}

type fragment struct {
	contentType string
	url         string
	code        string
	inline      bool
	merge       bool
}

func appendFragment(list []fragment, f fragment) []fragment {
	if f.inline && f.merge && len(list) > 0 {
		last := &list[len(list)-1]
		if last.inline && last.contentType == f.contentType {
			last.code += "\n" + f.code
			return list
		}
	}
	return append(list, f)
}

func (f fragment) render(sb *strings.Builder) {
	switch {
	case f.contentType == "css" && f.inline:
		sb.WriteString("<style>")
		sb.WriteString(f.code)
		sb.WriteString("</style>\n")
	case f.contentType == "css":
		sb.WriteString(`<link rel="stylesheet" href="`)
		sb.WriteString(html.EscapeString(f.url))
		sb.WriteString("\">\n")
	case f.inline:
		sb.WriteString("<script>")
		sb.WriteString(f.code)
		sb.WriteString("</script>\n")
	default:
		sb.WriteString(`<script src="`)
		sb.WriteString(html.EscapeString(f.url))
		sb.WriteString("\"></script>\n")
	}
}
