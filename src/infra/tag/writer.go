// Package tag rewrites the embedded title/artist/album tags of bundle
// copies so they match the transformed values written to the XML.
package tag

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/bogem/id3v2/v2"
	"github.com/dhowden/tag"
	"github.com/go-flac/flacvorbis"
	goflac "github.com/go-flac/go-flac"
)

// Writer implements writing tags into files for MP3 and FLAC formats.
// Other formats are left untouched.
type Writer struct{}

// NewWriter creates a new Writer.
func NewWriter() *Writer {
	return &Writer{}
}

// WriteTrackTags rewrites the title, artist and album tags of the file.
// Unsupported formats are not an error; the file keeps its original tags.
func (w *Writer) WriteTrackTags(ctx context.Context, filePath, title, artist, album string) error {
	switch w.detectFormat(filePath) {
	case ".mp3":
		return w.tagMP3(filePath, title, artist, album)
	case ".flac":
		return w.tagFLAC(filePath, title, artist, album)
	default:
		slog.Debug("Unsupported format for tag rewrite, keeping original tags", "filePath", filePath)
		return nil
	}
}

// detectFormat resolves the audio format from the file extension, sniffing
// the content when the extension is missing or unrecognized.
func (w *Writer) detectFormat(filePath string) string {
	ext := strings.ToLower(filepath.Ext(filePath))
	switch ext {
	case ".mp3", ".flac":
		return ext
	}

	f, err := os.Open(filePath)
	if err != nil {
		return ext
	}
	defer f.Close()

	meta, err := tag.ReadFrom(f)
	if err != nil {
		return ext
	}
	switch meta.FileType() {
	case tag.MP3:
		return ".mp3"
	case tag.FLAC:
		return ".flac"
	}
	return ext
}

// tagMP3 handles MP3 tagging using id3v2.
func (w *Writer) tagMP3(filePath, title, artist, album string) error {
	t, err := id3v2.Open(filePath, id3v2.Options{Parse: true})
	if err != nil {
		return fmt.Errorf("failed to open MP3 file for tagging: %w", err)
	}
	defer t.Close()

	t.SetDefaultEncoding(id3v2.EncodingUTF8)
	if title != "" {
		t.SetTitle(title)
	}
	if artist != "" {
		t.SetArtist(artist)
	}
	if album != "" {
		t.SetAlbum(album)
	}

	if err := t.Save(); err != nil {
		return fmt.Errorf("failed to save MP3 tags: %w", err)
	}

	slog.Debug("Tagged MP3 file", "filePath", filePath, "title", title)
	return nil
}

// tagFLAC handles FLAC tagging using Vorbis comments.
func (w *Writer) tagFLAC(filePath, title, artist, album string) error {
	f, err := goflac.ParseFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to parse FLAC file: %w", err)
	}

	var vorbisComment *flacvorbis.MetaDataBlockVorbisComment
	commentIndex := -1
	for idx, meta := range f.Meta {
		if meta.Type == goflac.VorbisComment {
			vorbisComment, err = flacvorbis.ParseFromMetaDataBlock(*meta)
			if err != nil {
				return fmt.Errorf("failed to parse Vorbis comment: %w", err)
			}
			commentIndex = idx
			break
		}
	}
	if vorbisComment == nil {
		vorbisComment = flacvorbis.New()
	}

	// Replace instead of append: drop the fields we rewrite, keep the rest.
	kept := vorbisComment.Comments[:0]
	for _, c := range vorbisComment.Comments {
		upper := strings.ToUpper(c)
		if strings.HasPrefix(upper, "TITLE=") && title != "" {
			continue
		}
		if strings.HasPrefix(upper, "ARTIST=") && artist != "" {
			continue
		}
		if strings.HasPrefix(upper, "ALBUM=") && album != "" {
			continue
		}
		kept = append(kept, c)
	}
	vorbisComment.Comments = kept

	if title != "" {
		vorbisComment.Add(flacvorbis.FIELD_TITLE, title)
	}
	if artist != "" {
		vorbisComment.Add(flacvorbis.FIELD_ARTIST, artist)
	}
	if album != "" {
		vorbisComment.Add(flacvorbis.FIELD_ALBUM, album)
	}

	commentMeta := vorbisComment.Marshal()
	if commentIndex >= 0 {
		f.Meta[commentIndex] = &commentMeta
	} else {
		f.Meta = append(f.Meta, &commentMeta)
	}

	if err := f.Save(filePath); err != nil {
		return fmt.Errorf("failed to save FLAC file: %w", err)
	}

	slog.Debug("Tagged FLAC file", "filePath", filePath, "title", title)
	return nil
}
