// Package writer turns finished bundles into files, URLs or inline code.
package writer

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/specialistvlad/assetgrid/internal/bundle"
	"github.com/specialistvlad/assetgrid/internal/ctxlog"
	"github.com/specialistvlad/assetgrid/internal/dep"
	"github.com/specialistvlad/assetgrid/internal/metrics"
	"golang.org/x/sync/singleflight"
)

// Writer emits a bundle and records its URL, output file or inline code
// on it.
type Writer interface {
	Write(ctx context.Context, b *bundle.Bundle) error
}

// FileWriter writes bundles below OutputDir and serves them from URLPrefix.
type FileWriter struct {
	OutputDir string
	URLPrefix string
	// Fingerprint adds a content hash to output file names.
	Fingerprint bool
	// ProjectRoot anchors the URLs of in-place bundles.
	ProjectRoot string
	Metrics     *metrics.Metrics

	group singleflight.Group
}

// Write is a no-op for bundles that were already written.
func (w *FileWriter) Write(ctx context.Context, b *bundle.Bundle) error {
	if b.Written() {
		return nil
	}
	members := b.Dependencies()
	if len(members) == 0 {
		return fmt.Errorf("bundle %s is empty", b)
	}

	switch {
	case b.External:
		e, ok := members[0].(dep.External)
		if !ok {
			return fmt.Errorf("bundle %s: %s has no url", b, members[0])
		}
		b.MarkWritten(e.URL(), "", "")
		w.Metrics.RecordBundleWritten("external", 0)
		return nil
	case b.InPlace:
		src := dep.SourcePath(members[0])
		if src == "" {
			return fmt.Errorf("bundle %s: %s has no source file", b, members[0])
		}
		b.MarkWritten(w.inPlaceURL(src), src, "")
		w.Metrics.RecordBundleWritten("in-place", 0)
		return nil
	}

	content, err := concat(ctx, members)
	if err != nil {
		return fmt.Errorf("bundle %s: %w", b, err)
	}
	if b.IsInline() {
		b.MarkWritten("", "", string(content))
		w.Metrics.RecordBundleWritten("inline", 0)
		return nil
	}

	rel := w.fileName(b, content)
	out := filepath.Join(w.OutputDir, filepath.FromSlash(rel))
	_, err, _ = w.group.Do(out, func() (any, error) {
		return nil, writeFile(out, content)
	})
	if err != nil {
		return fmt.Errorf("bundle %s: %w", b, err)
	}
	b.MarkWritten(w.url(rel), out, "")
	w.Metrics.RecordBundleWritten("file", len(content))
	ctxlog.FromContext(ctx).Debug("Writer: Bundle written.", "bundle", b.Key(), "file", out, "bytes", len(content))
	return nil
}

// fileName is the bundle name plus an optional content hash and the
// content type as extension.
func (w *FileWriter) fileName(b *bundle.Bundle, content []byte) string {
	name := sanitize(b.Name)
	if b.Slot != dep.DefaultSlot(b.ContentType) {
		name += "." + sanitize(b.Slot)
	}
	if w.Fingerprint {
		sum := sha256.Sum256(content)
		name += "-" + hex.EncodeToString(sum[:4])
	}
	return name + "." + string(b.ContentType)
}

func (w *FileWriter) url(rel string) string {
	prefix := strings.TrimSuffix(w.URLPrefix, "/")
	return prefix + "/" + strings.TrimPrefix(rel, "/")
}

func (w *FileWriter) inPlaceURL(src string) string {
	rel := src
	if w.ProjectRoot != "" {
		if r, err := filepath.Rel(w.ProjectRoot, src); err == nil && !strings.HasPrefix(r, "..") {
			rel = r
		}
	}
	return "/" + path.Clean(filepath.ToSlash(strings.TrimPrefix(rel, string(filepath.Separator))))
}

// sanitize keeps directory separators but drops anything that could
// escape the output directory.
func sanitize(name string) string {
	parts := strings.Split(filepath.ToSlash(name), "/")
	kept := parts[:0]
	for _, p := range parts {
		if p == "" || p == "." || p == ".." {
			continue
		}
		kept = append(kept, p)
	}
	if len(kept) == 0 {
		return "bundle"
	}
	return strings.Join(kept, "/")
}

func concat(ctx context.Context, members []dep.Dependency) ([]byte, error) {
	var buf bytes.Buffer
	for i, d := range members {
		r, ok := d.(dep.Reader)
		if !ok {
			return nil, fmt.Errorf("%s is not readable", d)
		}
		rc, err := r.Read(ctx)
		if err != nil {
			return nil, err
		}
		if i > 0 {
			buf.WriteByte('\n')
		}
		_, err = io.Copy(&buf, rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", d, err)
		}
	}
	return buf.Bytes(), nil
}

// writeFile replaces path atomically.
func writeFile(path string, content []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".assetgrid-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
