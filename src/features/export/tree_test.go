package export

import (
	"context"
	"errors"
	"testing"

	"github.com/beevik/etree"

	"rbxport/src/infra/xmldoc"
	"rbxport/src/music"
)

func playlistRow(id, name, parentID string, folder bool, seq int) *music.PlaylistRecord {
	return &music.PlaylistRecord{ID: id, Name: name, ParentID: parentID, Folder: folder, Seq: seq}
}

func songsFixture(refs map[string][]music.SongRef) func(context.Context, string) ([]music.SongRef, error) {
	return func(_ context.Context, playlistID string) ([]music.SongRef, error) {
		return refs[playlistID], nil
	}
}

func rootNode(t *testing.T, doc *xmldoc.Document) *etree.Element {
	t.Helper()
	playlists := doc.Root().SelectElement("PLAYLISTS")
	if playlists == nil {
		t.Fatal("PLAYLISTS section missing")
	}
	root := playlists.SelectElement("NODE")
	if root == nil {
		t.Fatal("ROOT node missing")
	}
	return root
}

func TestWalk_NestedFoldersAndPlaylists(t *testing.T) {
	rows := []*music.PlaylistRecord{
		playlistRow("10", "Gigs", "", true, 1),
		playlistRow("11", "Warmup", "10", false, 1),
		playlistRow("12", "Peak", "10", false, 2),
		playlistRow("20", "Crate", "0", false, 2),
	}
	w := &Walker{Songs: songsFixture(map[string][]music.SongRef{
		"11": {{TrackID: "1", Seq: 1}, {TrackID: "2", Seq: 2}},
		"12": {{TrackID: "3", Seq: 1}},
		"20": {{TrackID: "2", Seq: 1}},
	})}

	doc := xmldoc.New("6.8.0")
	referenced, err := w.Walk(context.Background(), rows, doc.RootFolder())
	if err != nil {
		t.Fatalf("walk failed: %v", err)
	}

	for _, id := range []string{"1", "2", "3"} {
		if !referenced[id] {
			t.Errorf("expected track %s in the referenced set", id)
		}
	}

	root := rootNode(t, doc)
	if got := root.SelectAttrValue("Count", ""); got != "2" {
		t.Errorf("expected root Count 2, got %q", got)
	}

	kids := root.SelectElements("NODE")
	if len(kids) != 2 {
		t.Fatalf("expected 2 top-level nodes, got %d", len(kids))
	}
	gigs, crate := kids[0], kids[1]
	if gigs.SelectAttrValue("Name", "") != "Gigs" || gigs.SelectAttrValue("Type", "") != "0" {
		t.Errorf("expected Gigs folder first, got %v", gigs.Attr)
	}
	if crate.SelectAttrValue("Name", "") != "Crate" || crate.SelectAttrValue("Type", "") != "1" {
		t.Errorf("expected Crate playlist second, got %v", crate.Attr)
	}

	inner := gigs.SelectElements("NODE")
	if len(inner) != 2 {
		t.Fatalf("expected 2 playlists inside Gigs, got %d", len(inner))
	}
	if inner[0].SelectAttrValue("Name", "") != "Warmup" || inner[1].SelectAttrValue("Name", "") != "Peak" {
		t.Errorf("expected Seq order Warmup, Peak, got %s, %s",
			inner[0].SelectAttrValue("Name", ""), inner[1].SelectAttrValue("Name", ""))
	}
	if got := inner[0].SelectAttrValue("Entries", ""); got != "2" {
		t.Errorf("expected Warmup Entries 2, got %q", got)
	}
	refs := inner[0].SelectElements("TRACK")
	if len(refs) != 2 || refs[0].SelectAttrValue("Key", "") != "1" || refs[1].SelectAttrValue("Key", "") != "2" {
		t.Errorf("unexpected Warmup references %v", refs)
	}
}

func TestWalk_SiblingTieBreaksOnNameThenID(t *testing.T) {
	rows := []*music.PlaylistRecord{
		playlistRow("3", "Beta", "", false, 1),
		playlistRow("2", "Alpha", "", false, 1),
		playlistRow("1", "Alpha", "", false, 1),
	}
	w := &Walker{Songs: songsFixture(nil)}
	doc := xmldoc.New("6.8.0")
	if _, err := w.Walk(context.Background(), rows, doc.RootFolder()); err != nil {
		t.Fatalf("walk failed: %v", err)
	}

	kids := rootNode(t, doc).SelectElements("NODE")
	if len(kids) != 3 {
		t.Fatalf("expected 3 nodes, got %d", len(kids))
	}
	// Same Seq: name breaks the tie, then id.
	names := []string{
		kids[0].SelectAttrValue("Name", ""),
		kids[1].SelectAttrValue("Name", ""),
		kids[2].SelectAttrValue("Name", ""),
	}
	if names[0] != "Alpha" || names[1] != "Alpha" || names[2] != "Beta" {
		t.Errorf("unexpected sibling order %v", names)
	}
}

func TestWalk_OrderByBPMResortsEntries(t *testing.T) {
	rows := []*music.PlaylistRecord{playlistRow("5", "Set", "", false, 1)}
	w := &Walker{
		OrderByBPM: true,
		Songs: songsFixture(map[string][]music.SongRef{
			"5": {
				{TrackID: "a", Seq: 1, BPM: 14000},
				{TrackID: "b", Seq: 2, BPM: 0},
				{TrackID: "c", Seq: 3, BPM: 12600},
			},
		}),
	}
	doc := xmldoc.New("6.8.0")
	if _, err := w.Walk(context.Background(), rows, doc.RootFolder()); err != nil {
		t.Fatalf("walk failed: %v", err)
	}

	set := rootNode(t, doc).SelectElement("NODE")
	refs := set.SelectElements("TRACK")
	want := []string{"b", "c", "a"} // unknown BPM first, then ascending
	for i, ref := range refs {
		if got := ref.SelectAttrValue("Key", ""); got != want[i] {
			t.Errorf("entry %d: expected %s, got %s", i, want[i], got)
		}
	}
}

func TestWalk_DropsReferencesOutsideCollection(t *testing.T) {
	rows := []*music.PlaylistRecord{playlistRow("5", "Set", "", false, 1)}
	w := &Walker{
		Eligible: map[string]bool{"1": true},
		Songs: songsFixture(map[string][]music.SongRef{
			"5": {{TrackID: "1", Seq: 1}, {TrackID: "999", Seq: 2}},
		}),
	}
	doc := xmldoc.New("6.8.0")
	referenced, err := w.Walk(context.Background(), rows, doc.RootFolder())
	if err != nil {
		t.Fatalf("walk failed: %v", err)
	}

	if referenced["999"] {
		t.Error("ineligible track leaked into the referenced set")
	}
	set := rootNode(t, doc).SelectElement("NODE")
	if got := set.SelectAttrValue("Entries", ""); got != "1" {
		t.Errorf("expected Entries 1 after dropping the dangling reference, got %q", got)
	}
}

func TestWalk_FetchFailureLeavesPlaylistEmpty(t *testing.T) {
	rows := []*music.PlaylistRecord{playlistRow("5", "Broken", "", false, 1)}
	w := &Walker{Songs: func(context.Context, string) ([]music.SongRef, error) {
		return nil, errors.New("disk fell over")
	}}
	doc := xmldoc.New("6.8.0")
	referenced, err := w.Walk(context.Background(), rows, doc.RootFolder())
	if err != nil {
		t.Fatalf("expected fetch failure to be tolerated, got %v", err)
	}
	if len(referenced) != 0 {
		t.Errorf("expected no references, got %v", referenced)
	}

	set := rootNode(t, doc).SelectElement("NODE")
	if got := set.SelectAttrValue("Entries", ""); got != "0" {
		t.Errorf("expected empty playlist, got Entries %q", got)
	}
}
