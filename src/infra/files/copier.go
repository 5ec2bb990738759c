// Package files handles the filesystem side of bundle exports: converting
// between Rekordbox file:// locations and local paths, and copying audio
// files under content-derived names.
package files

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// PathToURI renders a filesystem path the way Rekordbox stores locations:
// file://localhost/ followed by the RFC3986-escaped absolute path.
func PathToURI(path string) string {
	if strings.HasPrefix(path, "file://") {
		return path
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	path = filepath.ToSlash(path)
	if !strings.HasPrefix(path, "/") {
		// Windows drive-letter paths (C:/...) sit under a leading slash.
		path = "/" + path
	}
	u := url.URL{Scheme: "file", Host: "localhost", Path: path}
	return u.String()
}

// URIToPath resolves a Rekordbox location (file:// URI or raw path) to a
// local filesystem path, percent-decoding and unwrapping Windows
// drive-letter forms like /C:/Music.
func URIToPath(location string) string {
	if !strings.HasPrefix(location, "file://") {
		return location
	}
	u, err := url.Parse(location)
	if err != nil {
		// Fall back to naive stripping for malformed URIs.
		return strings.TrimPrefix(strings.TrimPrefix(location, "file://localhost"), "file://")
	}
	p := u.Path
	if len(p) >= 3 && p[0] == '/' && p[2] == ':' {
		p = p[1:]
	}
	return p
}

// HashedName derives the bundle filename for a source path: a hash of the
// path plus the original extension. This avoids collisions between files
// that share a basename and avoids leaking the source directory layout.
func HashedName(srcPath string) string {
	sum := sha1.Sum([]byte(srcPath))
	return hex.EncodeToString(sum[:]) + strings.ToLower(filepath.Ext(srcPath))
}

// Copy copies src to dst, creating parent directories as needed.
func Copy(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open source file: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create destination file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("failed to copy file: %w", err)
	}
	return out.Sync()
}
