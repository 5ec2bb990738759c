package export

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"rbxport/src/infra/xmldoc"
	"rbxport/src/music"
)

// TagWriter rewrites the embedded title/artist/album tags of a copied
// audio file.
type TagWriter interface {
	WriteTrackTags(ctx context.Context, filePath, title, artist, album string) error
}

// Progress receives cosmetic progress updates while a stage runs.
type Progress func(stage string, done, total int)

// Options configures one export run.
type Options struct {
	Output    string
	Force     bool
	Romanize  bool
	BpmPrefix bool
	// OrderBy re-sorts playlist entries; the only supported mode is "bpm".
	OrderBy string
	// Playlists scopes the export to the given specs (ids, names or
	// /-joined paths). Empty means the whole tree.
	Playlists []string
	// BundleDir enables bundle mode: referenced files are copied there
	// and the XML Locations rewritten to the copies.
	BundleDir string
	// BundleRequireAll makes any failed bundle copy fatal.
	BundleRequireAll bool
	// ManagedPrefix filters out tracks stored in the application's
	// internal managed-content area.
	ManagedPrefix string
}

// Service sequences a full export run: project tracks, walk playlists,
// serialize the document, and optionally copy the referenced files.
type Service struct {
	lib      music.Library
	tags     TagWriter
	progress Progress
}

// NewService creates a new export service.
func NewService(lib music.Library, tags TagWriter, progress Progress) *Service {
	if progress == nil {
		progress = func(string, int, int) {}
	}
	return &Service{lib: lib, tags: tags, progress: progress}
}

// Export runs the pipeline and writes the XML to opts.Output. The output
// appears atomically: the document is written to a temporary sibling and
// renamed only once complete, so a failed run never leaves a file that
// looks finished.
func (s *Service) Export(ctx context.Context, opts Options) error {
	if _, err := os.Stat(opts.Output); err == nil && !opts.Force {
		return fmt.Errorf("output file %s already exists, use force to overwrite", opts.Output)
	}

	records, err := s.lib.AllTracks(ctx)
	if err != nil {
		return fmt.Errorf("failed to read tracks: %w", err)
	}
	slog.Info("Read track records", "count", len(records))

	projector := &Projector{
		Romanize:      opts.Romanize,
		BpmPrefix:     opts.BpmPrefix,
		ManagedPrefix: opts.ManagedPrefix,
	}
	candidates := projector.Candidates(records)
	s.progress("tracks", len(candidates), len(records))

	playlists, err := s.lib.AllPlaylists(ctx)
	if err != nil {
		return fmt.Errorf("failed to read playlists: %w", err)
	}

	scoped := len(opts.Playlists) > 0
	if scoped {
		include, err := ResolveScope(opts.Playlists, playlists)
		if err != nil {
			return err
		}
		kept := playlists[:0]
		for _, row := range playlists {
			if include[row.ID] {
				kept = append(kept, row)
			}
		}
		playlists = kept
		slog.Info("Scoped playlist tree", "specs", len(opts.Playlists), "playlists", len(playlists))
	}

	doc := xmldoc.New(s.lib.Version(ctx))

	walker := &Walker{
		Songs:      s.lib.PlaylistSongs,
		Romanize:   opts.Romanize,
		OrderByBPM: opts.OrderBy == "bpm",
		Eligible:   CandidateIDs(candidates),
	}
	referenced, err := walker.Walk(ctx, playlists, doc.RootFolder())
	if err != nil {
		return fmt.Errorf("failed to walk playlists: %w", err)
	}
	s.progress("playlists", len(playlists), len(playlists))

	// A scoped run only exports tracks reachable through the selected
	// playlists; otherwise every eligible candidate goes out.
	var include map[string]bool
	if scoped {
		include = referenced
	}
	tracks := projector.Render(candidates, include)
	for _, t := range tracks {
		doc.AddTrack(t.Attrs.Pairs())
	}
	slog.Info("Projected collection", "tracks", len(tracks), "referenced", len(referenced))

	if opts.BundleDir != "" {
		moved, err := s.copyBundle(ctx, tracks, opts)
		if err != nil {
			return err
		}
		doc.RewriteLocations(moved)
	}

	tmp := opts.Output + ".tmp-" + uuid.NewString()
	if err := doc.WriteTo(tmp); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write XML to %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, opts.Output); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to finalize output %s: %w", opts.Output, err)
	}

	slog.Info("Export complete", "output", opts.Output, "tracks", len(tracks))
	return nil
}

// DeriveManagedPrefix returns the managed-content sentinel for a database
// location: Rekordbox keeps imported internal content in the share
// directory next to master.db.
func DeriveManagedPrefix(dbPath string) string {
	if dbPath == "" {
		return ""
	}
	return filepath.Join(filepath.Dir(dbPath), "share") + string(filepath.Separator)
}
