// Package fsutil provides file system utility functions.
package fsutil

import (
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// FindFilesByExtension recursively searches the given root path for all files ending
// with the specified extension. It returns a slice of their full paths.
func FindFilesByExtension(rootPath string, extension string) ([]string, error) {
	if extension == "" {
		panic("extension must not be empty")
	}

	var files []string
	err := filepath.WalkDir(rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), extension) {
			files = append(files, path)
		}
		return nil
	})

	if err != nil {
		return nil, err
	}

	return files, nil
}

// HasMeta reports whether p contains any glob metacharacter.
func HasMeta(p string) bool {
	return strings.ContainsAny(p, "*?[")
}

// Glob expands pattern into the sorted list of matching files. Besides the
// filepath.Match syntax it understands a single "**" segment, which matches
// any number of directories.
func Glob(pattern string) ([]string, error) {
	idx := strings.Index(pattern, "**")
	if idx < 0 {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid glob %q: %w", pattern, err)
		}
		sort.Strings(matches)
		return matches, nil
	}

	prefix, rest := pattern[:idx], strings.TrimLeft(pattern[idx+2:], `/\`)
	if HasMeta(prefix) || strings.Contains(rest, "**") {
		return nil, fmt.Errorf("invalid glob %q: only one \"**\" segment is supported and it must precede other wildcards", pattern)
	}
	rest = filepath.ToSlash(rest)
	if _, err := path.Match(rest, ""); err != nil {
		return nil, fmt.Errorf("invalid glob %q: %w", pattern, err)
	}

	base := filepath.Clean(prefix)
	if prefix == "" {
		base = "."
	}

	var files []string
	err := filepath.WalkDir(base, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(base, p)
		if err != nil {
			return err
		}
		if matchAnyDepth(rest, filepath.ToSlash(rel)) {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// matchAnyDepth matches pattern against every trailing run of segments of rel.
func matchAnyDepth(pattern, rel string) bool {
	if pattern == "" {
		return true
	}
	segments := strings.Split(rel, "/")
	for i := range segments {
		if ok, _ := path.Match(pattern, strings.Join(segments[i:], "/")); ok {
			return true
		}
	}
	return false
}
