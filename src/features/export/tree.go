package export

import (
	"context"
	"log/slog"
	"sort"

	"rbxport/src/infra/xmldoc"
	"rbxport/src/music"
)

// Walker reconstructs the playlist hierarchy from flat rows and emits it as
// nested NODE elements. An explicit stack keeps arbitrarily deep trees safe
// from recursion limits.
type Walker struct {
	// Songs fetches the ordered track references of one leaf playlist.
	Songs func(ctx context.Context, playlistID string) ([]music.SongRef, error)
	// Romanize transliterates folder and playlist display names.
	Romanize bool
	// OrderByBPM re-sorts every playlist's entries by ascending raw BPM;
	// entries without a BPM sort first.
	OrderByBPM bool
	// Eligible is the id set of tracks present in COLLECTION. References
	// outside it are dropped so the document stays internally consistent.
	Eligible map[string]bool
}

type treeFrame struct {
	parentID string
	node     *xmldoc.Node
}

// Walk emits the playlist tree under root and returns the set of track ids
// referenced by the visited playlists.
func (w *Walker) Walk(ctx context.Context, rows []*music.PlaylistRecord, root *xmldoc.Node) (map[string]bool, error) {
	children := make(map[string][]*music.PlaylistRecord)
	for _, row := range rows {
		children[row.Parent()] = append(children[row.Parent()], row)
	}
	for _, siblings := range children {
		sort.SliceStable(siblings, func(i, j int) bool {
			a, b := siblings[i], siblings[j]
			if a.Seq != b.Seq {
				return a.Seq < b.Seq
			}
			if a.Name != b.Name {
				return a.Name < b.Name
			}
			return a.ID < b.ID
		})
	}

	referenced := make(map[string]bool)
	stack := []treeFrame{{parentID: music.RootPlaylistID, node: root}}
	for len(stack) > 0 {
		frame := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		kids := children[frame.parentID]
		var folders []treeFrame
		for _, kid := range kids {
			name := Romanize(kid.Name, w.Romanize)
			if kid.Folder {
				node := frame.node.AddFolder(name)
				folders = append(folders, treeFrame{parentID: kid.ID, node: node})
				continue
			}
			node := frame.node.AddPlaylist(name)
			if err := w.populate(ctx, node, kid, referenced); err != nil {
				return nil, err
			}
		}
		// Most-recently-pushed first: reversing keeps sibling subtrees in
		// document order while the stack expands depth-first.
		for i := len(folders) - 1; i >= 0; i-- {
			stack = append(stack, folders[i])
		}
	}
	return referenced, nil
}

// populate emits one track reference per playlist entry and records the
// referenced ids. A playlist whose entries cannot be fetched is left empty
// with a warning rather than failing the run.
func (w *Walker) populate(ctx context.Context, node *xmldoc.Node, pl *music.PlaylistRecord, referenced map[string]bool) error {
	refs, err := w.Songs(ctx, pl.ID)
	if err != nil {
		slog.Warn("Failed to fetch playlist entries, leaving playlist empty",
			"playlist", pl.Name, "playlistID", pl.ID, "error", err)
		return nil
	}

	if w.OrderByBPM {
		sort.SliceStable(refs, func(i, j int) bool {
			return refs[i].BPM < refs[j].BPM
		})
	}

	for _, ref := range refs {
		if w.Eligible != nil && !w.Eligible[ref.TrackID] {
			slog.Debug("Dropping reference to track absent from collection",
				"playlist", pl.Name, "trackID", ref.TrackID)
			continue
		}
		node.AddTrackKey(ref.TrackID)
		referenced[ref.TrackID] = true
	}
	return nil
}
