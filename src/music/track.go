package music

import "context"

// TrackRecord is one row of the Rekordbox content table, read-only.
//
// Fields holds the raw source columns keyed by their database field name.
// Column names drifted across Rekordbox schema generations (Title vs name,
// Length vs duration, Commnt vs comment), so consumers resolve values
// through an alias table instead of binding to a single generation here.
type TrackRecord struct {
	ID         string
	Fields     map[string]string
	FolderPath string
	FileName   string
}

// Field returns the first present, non-empty value among the given aliases.
func (t *TrackRecord) Field(aliases ...string) (string, bool) {
	for _, alias := range aliases {
		if v, ok := t.Fields[alias]; ok && v != "" {
			return v, true
		}
	}
	return "", false
}

// SongRef is one entry of a playlist: a track reference with its authored
// position and the track's raw BPM (real BPM x100, 0 when unknown).
type SongRef struct {
	TrackID string
	Seq     int
	BPM     int
}

// Library is the accessor contract for a Rekordbox database. Key retrieval
// and decryption are the caller's concern; implementations receive a
// readable SQLite file.
type Library interface {
	// AllTracks enumerates every content row in ascending numeric id order.
	AllTracks(ctx context.Context) ([]*TrackRecord, error)
	// AllPlaylists enumerates every playlist and playlist folder row.
	AllPlaylists(ctx context.Context) ([]*PlaylistRecord, error)
	// PlaylistSongs returns the ordered track references of one playlist.
	PlaylistSongs(ctx context.Context, playlistID string) ([]SongRef, error)
	// Version reports the Rekordbox application version stored in the
	// database, or a default when it cannot be determined.
	Version(ctx context.Context) string
	Close() error
}
