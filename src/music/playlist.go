package music

// RootPlaylistID is the virtual root of the playlist tree. Real rows never
// carry this id; rows whose ParentID is empty, "0" or "root" hang off it.
const RootPlaylistID = "root"

// PlaylistRecord is one row of the playlist table: either a folder
// (container) or a leaf playlist holding an ordered list of track
// references.
type PlaylistRecord struct {
	ID       string
	Name     string
	ParentID string
	Folder   bool
	Seq      int
}

// Parent returns the normalized parent id, mapping every root sentinel the
// database uses onto RootPlaylistID.
func (p *PlaylistRecord) Parent() string {
	switch p.ParentID {
	case "", "0", RootPlaylistID:
		return RootPlaylistID
	}
	return p.ParentID
}
