// Package database implements the music.Library accessor over a Rekordbox 6
// SQLite database (master.db). It expects an already-readable file; key
// retrieval and decryption are out of scope.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"

	_ "github.com/mattn/go-sqlite3"

	"rbxport/src/music"
)

// defaultVersion is reported when the database carries no version row.
const defaultVersion = "6.8.0"

// djmdPlaylist.Attribute discriminator values.
const (
	attributePlaylist = 0
	attributeFolder   = 1
	attributeSmart    = 4
)

// RekordboxLibrary is the SQLite implementation of the music.Library
// accessor.
type RekordboxLibrary struct {
	db   *sql.DB
	path string
}

// NewRekordboxLibrary opens the database read-only and verifies it is
// reachable.
func NewRekordboxLibrary(path string) (*RekordboxLibrary, error) {
	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database %s: %w", path, err)
	}
	return &RekordboxLibrary{db: db, path: path}, nil
}

// Path returns the database file location.
func (l *RekordboxLibrary) Path() string {
	return l.path
}

// AllTracks enumerates every non-deleted content row with its related
// names resolved, in ascending numeric id order.
func (l *RekordboxLibrary) AllTracks(ctx context.Context) ([]*music.TrackRecord, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT c.ID, c.Title, c.BPM, c.Length, c.TrackNo, c.DiscNo,
		       c.BitRate, c.SampleRate, c.Commnt, c.FileNameL, c.FolderPath,
		       c.FileSize, c.Rating, c.ReleaseYear, c.DJPlayCount,
		       c.StockDate, c.FileType,
		       ar.Name, al.Name, ge.Name, ky.ScaleName, lb.Name,
		       rm.Name, co.Name
		FROM djmdContent c
		LEFT JOIN djmdArtist ar ON ar.ID = c.ArtistID
		LEFT JOIN djmdAlbum  al ON al.ID = c.AlbumID
		LEFT JOIN djmdGenre  ge ON ge.ID = c.GenreID
		LEFT JOIN djmdKey    ky ON ky.ID = c.KeyID
		LEFT JOIN djmdLabel  lb ON lb.ID = c.LabelID
		LEFT JOIN djmdArtist rm ON rm.ID = c.RemixerID
		LEFT JOIN djmdArtist co ON co.ID = c.ComposerID
		WHERE c.rb_local_deleted = 0
		ORDER BY CAST(c.ID AS INTEGER)`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracks: %w", err)
	}
	defer rows.Close()

	var tracks []*music.TrackRecord
	for rows.Next() {
		var (
			id                             string
			title, comment, fileName       sql.NullString
			folderPath, stockDate          sql.NullString
			artist, album, genre, key      sql.NullString
			label, remixer, composer       sql.NullString
			bpm, length, trackNo, discNo   sql.NullInt64
			bitRate, sampleRate, fileSize  sql.NullInt64
			rating, releaseYear, playCount sql.NullInt64
			fileType                       sql.NullInt64
		)
		if err := rows.Scan(&id, &title, &bpm, &length, &trackNo, &discNo,
			&bitRate, &sampleRate, &comment, &fileName, &folderPath,
			&fileSize, &rating, &releaseYear, &playCount, &stockDate,
			&fileType,
			&artist, &album, &genre, &key, &label, &remixer, &composer); err != nil {
			slog.Warn("Skipping unreadable track row", "error", err)
			continue
		}

		fields := map[string]string{"ID": id}
		putString(fields, "Title", title)
		putInt(fields, "BPM", bpm)
		putInt(fields, "Length", length)
		putInt(fields, "TrackNo", trackNo)
		putInt(fields, "DiscNo", discNo)
		putInt(fields, "BitRate", bitRate)
		putInt(fields, "SampleRate", sampleRate)
		putString(fields, "Commnt", comment)
		putInt(fields, "FileSize", fileSize)
		putInt(fields, "Rating", rating)
		putInt(fields, "ReleaseYear", releaseYear)
		putInt(fields, "DJPlayCount", playCount)
		putString(fields, "StockDate", stockDate)
		putString(fields, "ArtistName", artist)
		putString(fields, "AlbumName", album)
		putString(fields, "GenreName", genre)
		putString(fields, "ScaleName", key)
		putString(fields, "LabelName", label)
		putString(fields, "RemixerName", remixer)
		putString(fields, "ComposerName", composer)
		if fileType.Valid {
			if kind := kindName(int(fileType.Int64)); kind != "" {
				fields["Kind"] = kind
			}
		}

		tracks = append(tracks, &music.TrackRecord{
			ID:         id,
			Fields:     fields,
			FolderPath: folderPath.String,
			FileName:   fileName.String,
		})
	}
	return tracks, rows.Err()
}

// AllPlaylists enumerates every non-deleted playlist and folder row. Smart
// playlists are derived by Rekordbox at import time, so exporting them as
// empty leaves would be misleading; they are skipped.
func (l *RekordboxLibrary) AllPlaylists(ctx context.Context) ([]*music.PlaylistRecord, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT ID, Name, ParentID, Attribute, Seq
		FROM djmdPlaylist
		WHERE rb_local_deleted = 0 AND Attribute IN (?, ?)
		ORDER BY Seq`, attributePlaylist, attributeFolder)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlists: %w", err)
	}
	defer rows.Close()

	var playlists []*music.PlaylistRecord
	for rows.Next() {
		var (
			id, name, parentID sql.NullString
			attribute, seq     sql.NullInt64
		)
		if err := rows.Scan(&id, &name, &parentID, &attribute, &seq); err != nil {
			slog.Warn("Skipping unreadable playlist row", "error", err)
			continue
		}
		playlists = append(playlists, &music.PlaylistRecord{
			ID:       id.String,
			Name:     name.String,
			ParentID: parentID.String,
			Folder:   attribute.Int64 == attributeFolder,
			Seq:      int(seq.Int64),
		})
	}
	return playlists, rows.Err()
}

// PlaylistSongs returns the ordered track references of one playlist, each
// carrying the referenced track's raw BPM for optional re-sorting.
func (l *RekordboxLibrary) PlaylistSongs(ctx context.Context, playlistID string) ([]music.SongRef, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT sp.ContentID, sp.TrackNo, IFNULL(c.BPM, 0)
		FROM djmdSongPlaylist sp
		LEFT JOIN djmdContent c ON c.ID = sp.ContentID
		WHERE sp.PlaylistID = ? AND sp.rb_local_deleted = 0
		ORDER BY sp.TrackNo`, playlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlist %s entries: %w", playlistID, err)
	}
	defer rows.Close()

	var refs []music.SongRef
	for rows.Next() {
		var (
			contentID sql.NullString
			trackNo   sql.NullInt64
			bpm       sql.NullInt64
		)
		if err := rows.Scan(&contentID, &trackNo, &bpm); err != nil {
			slog.Warn("Skipping unreadable playlist entry", "playlistID", playlistID, "error", err)
			continue
		}
		if contentID.String == "" {
			continue
		}
		refs = append(refs, music.SongRef{
			TrackID: contentID.String,
			Seq:     int(trackNo.Int64),
			BPM:     int(bpm.Int64),
		})
	}
	return refs, rows.Err()
}

// Version reports the Rekordbox application version stored in the database,
// falling back to a default when the setting is absent.
func (l *RekordboxLibrary) Version(ctx context.Context) string {
	var value sql.NullString
	err := l.db.QueryRowContext(ctx,
		`SELECT value FROM djmdSetting WHERE name = 'applicationVersionStatus'`).Scan(&value)
	if err != nil || value.String == "" {
		return defaultVersion
	}
	return value.String
}

// Close releases the database connection.
func (l *RekordboxLibrary) Close() error {
	return l.db.Close()
}

func putString(fields map[string]string, key string, v sql.NullString) {
	if v.Valid && v.String != "" {
		fields[key] = v.String
	}
}

func putInt(fields map[string]string, key string, v sql.NullInt64) {
	if v.Valid {
		fields[key] = strconv.FormatInt(v.Int64, 10)
	}
}

// kindName maps the FileType code of djmdContent onto the Kind string the
// XML export carries.
func kindName(code int) string {
	switch code {
	case 0, 1:
		return "MP3 File"
	case 4:
		return "M4A File"
	case 5:
		return "FLAC File"
	case 11:
		return "WAV File"
	case 12:
		return "AIFF File"
	}
	return ""
}
