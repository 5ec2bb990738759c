package export

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/beevik/etree"

	"rbxport/src/music"
)

// fakeLibrary is an in-memory music.Library.
type fakeLibrary struct {
	tracks    []*music.TrackRecord
	playlists []*music.PlaylistRecord
	songs     map[string][]music.SongRef
	version   string
}

func (f *fakeLibrary) AllTracks(ctx context.Context) ([]*music.TrackRecord, error) {
	return f.tracks, nil
}

func (f *fakeLibrary) AllPlaylists(ctx context.Context) ([]*music.PlaylistRecord, error) {
	return f.playlists, nil
}

func (f *fakeLibrary) PlaylistSongs(ctx context.Context, playlistID string) ([]music.SongRef, error) {
	return f.songs[playlistID], nil
}

func (f *fakeLibrary) Version(ctx context.Context) string { return f.version }

func (f *fakeLibrary) Close() error { return nil }

// nopTagWriter satisfies TagWriter without touching any file.
type nopTagWriter struct{}

func (nopTagWriter) WriteTrackTags(ctx context.Context, filePath, title, artist, album string) error {
	return nil
}

func exportFixture() *fakeLibrary {
	return &fakeLibrary{
		version: "7.0.1",
		tracks: []*music.TrackRecord{
			record("1", map[string]string{"Title": "One", "BPM": "12800", "Location": "/Music/one.mp3"}),
			record("2", map[string]string{"Title": "Two", "BPM": "13200", "Location": "/Music/two.mp3"}),
		},
		playlists: []*music.PlaylistRecord{
			playlistRow("10", "Gigs", "", true, 1),
			playlistRow("11", "Warmup", "10", false, 1),
		},
		songs: map[string][]music.SongRef{
			"11": {{TrackID: "1", Seq: 1}, {TrackID: "2", Seq: 2}},
		},
	}
}

func parseOutput(t *testing.T, path string) *etree.Document {
	t.Helper()
	doc := etree.NewDocument()
	if err := doc.ReadFromFile(path); err != nil {
		t.Fatalf("failed to parse output: %v", err)
	}
	return doc
}

func TestExport_FullDocument(t *testing.T) {
	out := filepath.Join(t.TempDir(), "rekordbox.xml")
	svc := NewService(exportFixture(), nopTagWriter{}, nil)

	if err := svc.Export(context.Background(), Options{Output: out}); err != nil {
		t.Fatalf("export failed: %v", err)
	}

	doc := parseOutput(t, out)
	root := doc.Root()
	if root.Tag != "DJ_PLAYLISTS" || root.SelectAttrValue("Version", "") != "1.0.0" {
		t.Fatalf("unexpected document root %s %v", root.Tag, root.Attr)
	}

	product := root.SelectElement("PRODUCT")
	if product.SelectAttrValue("Name", "") != "rekordbox" ||
		product.SelectAttrValue("Version", "") != "7.0.1" ||
		product.SelectAttrValue("Company", "") != "AlphaTheta" {
		t.Errorf("unexpected PRODUCT header %v", product.Attr)
	}

	collection := root.SelectElement("COLLECTION")
	if got := collection.SelectAttrValue("Entries", ""); got != "2" {
		t.Errorf("expected COLLECTION Entries 2, got %q", got)
	}
	tracks := collection.SelectElements("TRACK")
	if len(tracks) != 2 {
		t.Fatalf("expected 2 TRACK elements, got %d", len(tracks))
	}
	if tracks[0].SelectAttrValue("TrackID", "") != "1" ||
		tracks[0].SelectAttrValue("AverageBpm", "") != "128.00" {
		t.Errorf("unexpected first track %v", tracks[0].Attr)
	}

	playlists := root.SelectElement("PLAYLISTS")
	rootEl := playlists.SelectElement("NODE")
	gigs := rootEl.SelectElement("NODE")
	if gigs.SelectAttrValue("Name", "") != "Gigs" {
		t.Fatalf("expected Gigs folder, got %v", gigs.Attr)
	}
	warmup := gigs.SelectElement("NODE")
	refs := warmup.SelectElements("TRACK")
	if len(refs) != 2 || refs[0].SelectAttrValue("Key", "") != "1" || refs[1].SelectAttrValue("Key", "") != "2" {
		t.Errorf("unexpected playlist references %v", refs)
	}
}

func TestExport_RefusesToOverwriteWithoutForce(t *testing.T) {
	out := filepath.Join(t.TempDir(), "rekordbox.xml")
	if err := os.WriteFile(out, []byte("precious"), 0644); err != nil {
		t.Fatal(err)
	}
	svc := NewService(exportFixture(), nopTagWriter{}, nil)

	if err := svc.Export(context.Background(), Options{Output: out}); err == nil {
		t.Fatal("expected an error for an existing output file")
	}
	data, _ := os.ReadFile(out)
	if string(data) != "precious" {
		t.Error("existing file was modified")
	}

	if err := svc.Export(context.Background(), Options{Output: out, Force: true}); err != nil {
		t.Fatalf("expected force to overwrite, got %v", err)
	}
}

func TestExport_ScopedRunRestrictsCollection(t *testing.T) {
	lib := exportFixture()
	lib.playlists = append(lib.playlists, playlistRow("20", "Crate", "", false, 2))
	lib.songs["20"] = []music.SongRef{{TrackID: "2", Seq: 1}}

	out := filepath.Join(t.TempDir(), "rekordbox.xml")
	svc := NewService(lib, nopTagWriter{}, nil)
	if err := svc.Export(context.Background(), Options{Output: out, Playlists: []string{"Crate"}}); err != nil {
		t.Fatalf("export failed: %v", err)
	}

	doc := parseOutput(t, out)
	collection := doc.Root().SelectElement("COLLECTION")
	tracks := collection.SelectElements("TRACK")
	if len(tracks) != 1 || tracks[0].SelectAttrValue("TrackID", "") != "2" {
		t.Fatalf("expected only track 2 in a scoped export, got %v", tracks)
	}
	if got := collection.SelectAttrValue("Entries", ""); got != "1" {
		t.Errorf("expected Entries 1, got %q", got)
	}

	playlists := doc.Root().SelectElement("PLAYLISTS")
	nodes := playlists.SelectElement("NODE").SelectElements("NODE")
	if len(nodes) != 1 || nodes[0].SelectAttrValue("Name", "") != "Crate" {
		t.Errorf("expected only the Crate playlist, got %v", nodes)
	}
}

func TestExport_UnresolvedScopeWritesNothing(t *testing.T) {
	out := filepath.Join(t.TempDir(), "rekordbox.xml")
	svc := NewService(exportFixture(), nopTagWriter{}, nil)

	err := svc.Export(context.Background(), Options{Output: out, Playlists: []string{"Nope"}})
	if err == nil {
		t.Fatal("expected an error for the unresolved playlist spec")
	}
	if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
		t.Error("expected no output file after a failed run")
	}
}

func TestDeriveManagedPrefix(t *testing.T) {
	got := DeriveManagedPrefix(filepath.Join("/home", "dj", "rekordbox", "master.db"))
	want := filepath.Join("/home", "dj", "rekordbox", "share") + string(filepath.Separator)
	if got != want {
		t.Errorf("DeriveManagedPrefix = %q, want %q", got, want)
	}
	if DeriveManagedPrefix("") != "" {
		t.Error("expected empty prefix for an empty database path")
	}
}
