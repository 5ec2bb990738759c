package export

import (
	"log/slog"
	"math"
	"path"
	"strconv"
	"strings"

	"rbxport/src/infra/files"
	"rbxport/src/music"
)

// locationAliases are the source fields that may carry a full location,
// either a raw filesystem path or a file:// URI. Older schema generations
// store FolderPath + FileNameL instead.
var locationAliases = []string{"Location", "location", "path", "file_path", "FilePath"}

// Candidate is a track that survived deduplication and location filtering,
// paired with its resolved file URI.
type Candidate struct {
	Rec      *music.TrackRecord
	Location string
}

// Projector turns raw track records into the attribute sets of COLLECTION
// TRACK elements.
type Projector struct {
	// Romanize transliterates Name, Artist and Album to ASCII.
	Romanize bool
	// BpmPrefix prepends the integer BPM to the title.
	BpmPrefix bool
	// ManagedPrefix is the sentinel path prefix of the application's
	// internal managed-content area; tracks under it are not exported.
	ManagedPrefix string
}

// ResolveLocation resolves a record's file URI: an explicit location field
// wins; otherwise FolderPath and FileNameL are joined, unless FolderPath
// already ends with the file name (both layouts exist in the wild).
// Returns "" when the record has no usable location.
func ResolveLocation(rec *music.TrackRecord) string {
	loc, ok := rec.Field(locationAliases...)
	if !ok {
		if rec.FolderPath == "" {
			return ""
		}
		loc = rec.FolderPath
		if rec.FileName != "" && !strings.HasSuffix(loc, rec.FileName) {
			loc = path.Join(loc, rec.FileName)
		}
	}
	return files.PathToURI(loc)
}

// Candidates deduplicates records by resolved location (first occurrence
// wins) and drops records whose location is empty or inside the managed
// content area. Enumeration order is preserved.
func (p *Projector) Candidates(records []*music.TrackRecord) []Candidate {
	seen := make(map[string]bool, len(records))
	var out []Candidate
	for _, rec := range records {
		loc := ResolveLocation(rec)
		if loc == "" {
			slog.Debug("Skipping track without location", "trackID", rec.ID)
			continue
		}
		if p.ManagedPrefix != "" && strings.HasPrefix(files.URIToPath(loc), p.ManagedPrefix) {
			slog.Debug("Skipping managed-content track", "trackID", rec.ID)
			continue
		}
		if seen[loc] {
			slog.Debug("Skipping duplicate location", "trackID", rec.ID, "location", loc)
			continue
		}
		seen[loc] = true
		out = append(out, Candidate{Rec: rec, Location: loc})
	}
	return out
}

// CandidateIDs returns the id set of the given candidates.
func CandidateIDs(candidates []Candidate) map[string]bool {
	ids := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		ids[c.Rec.ID] = true
	}
	return ids
}

// ProjectedTrack is one fully rendered COLLECTION entry.
type ProjectedTrack struct {
	ID       string
	Location string
	Attrs    *Attributes
}

// Render maps each candidate onto its TRACK attributes, applying the BPM
// title prefix and transliteration. include restricts the output to the
// given track ids; nil means all. A record that cannot be mapped is skipped
// with a warning, never aborting the run.
func (p *Projector) Render(candidates []Candidate, include map[string]bool) []*ProjectedTrack {
	var out []*ProjectedTrack
	for _, c := range candidates {
		if include != nil && !include[c.Rec.ID] {
			continue
		}
		attrs := MapFields(c.Rec, c.Location)

		if p.BpmPrefix {
			if bpm, ok := attrs.Get("AverageBpm"); ok {
				if name, named := attrs.Get("Name"); named {
					if f, err := strconv.ParseFloat(bpm, 64); err == nil && f > 0 && !math.IsInf(f, 0) {
						attrs.Set("Name", strconv.Itoa(int(f))+" "+name)
					}
				}
			}
		}

		for _, key := range []string{"Name", "Artist", "Album"} {
			if v, ok := attrs.Get(key); ok && v != "" {
				attrs.Set(key, Romanize(v, p.Romanize))
			}
		}

		out = append(out, &ProjectedTrack{ID: c.Rec.ID, Location: c.Location, Attrs: attrs})
	}
	return out
}
