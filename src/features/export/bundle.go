package export

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"rbxport/src/infra/files"
)

// copyBundle copies every exported track's file into the bundle directory
// under a content-derived name, rewrites the copies' embedded tags with the
// transformed title/artist/album, and returns the old-URI to new-URI
// mapping for the Location rewrite. A missing source or failed tag write
// skips that track (its Location stays original) unless RequireAll is set.
func (s *Service) copyBundle(ctx context.Context, tracks []*ProjectedTrack, opts Options) (map[string]string, error) {
	if err := os.MkdirAll(opts.BundleDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create bundle directory %s: %w", opts.BundleDir, err)
	}

	moved := make(map[string]string, len(tracks))
	for i, t := range tracks {
		s.progress("bundle", i+1, len(tracks))

		src := files.URIToPath(t.Location)
		dst := filepath.Join(opts.BundleDir, files.HashedName(src))

		if err := files.Copy(src, dst); err != nil {
			if opts.BundleRequireAll {
				return nil, fmt.Errorf("failed to copy %s: %w", src, err)
			}
			slog.Warn("Failed to copy track file, keeping original location",
				"trackID", t.ID, "source", src, "error", err)
			continue
		}

		title, _ := t.Attrs.Get("Name")
		artist, _ := t.Attrs.Get("Artist")
		album, _ := t.Attrs.Get("Album")
		if err := s.tags.WriteTrackTags(ctx, dst, title, artist, album); err != nil {
			os.Remove(dst)
			if opts.BundleRequireAll {
				return nil, fmt.Errorf("failed to rewrite tags of %s: %w", dst, err)
			}
			slog.Warn("Failed to rewrite tags, dropping copy and keeping original location",
				"trackID", t.ID, "source", src, "error", err)
			continue
		}

		moved[t.Location] = files.PathToURI(dst)
	}

	if skipped := len(tracks) - len(moved); skipped > 0 {
		slog.Warn("Some tracks were not copied; their Location attributes point at the original files",
			"skipped", skipped, "copied", len(moved))
	}
	return moved, nil
}
