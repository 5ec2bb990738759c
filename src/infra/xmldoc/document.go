// Package xmldoc builds the DJ_PLAYLISTS document Rekordbox accepts as a
// re-import: a PRODUCT header, a COLLECTION of TRACK elements, and a
// PLAYLISTS tree of folder and playlist NODEs.
package xmldoc

import (
	"strconv"

	"github.com/beevik/etree"
)

// Node types used by the Rekordbox playlist tree.
const (
	nodeTypeFolder   = "0"
	nodeTypePlaylist = "1"
)

// Attr is one XML attribute. Order is significant: Rekordbox emits TRACK
// attributes in a fixed sequence and we reproduce it.
type Attr struct {
	Key   string
	Value string
}

// Document is the in-progress export document.
type Document struct {
	doc        *etree.Document
	collection *etree.Element
	root       *Node
	entries    int
}

// Node is a folder or playlist node inside the PLAYLISTS section.
type Node struct {
	el *etree.Element
}

// New creates an empty DJ_PLAYLISTS document carrying the given product
// version, with an empty COLLECTION and the ROOT playlist folder.
func New(productVersion string) *Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement("DJ_PLAYLISTS")
	root.CreateAttr("Version", "1.0.0")

	product := root.CreateElement("PRODUCT")
	product.CreateAttr("Name", "rekordbox")
	product.CreateAttr("Version", productVersion)
	product.CreateAttr("Company", "AlphaTheta")

	collection := root.CreateElement("COLLECTION")
	collection.CreateAttr("Entries", "0")

	playlists := root.CreateElement("PLAYLISTS")
	rootNode := playlists.CreateElement("NODE")
	rootNode.CreateAttr("Type", nodeTypeFolder)
	rootNode.CreateAttr("Name", "ROOT")
	rootNode.CreateAttr("Count", "0")

	return &Document{
		doc:        doc,
		collection: collection,
		root:       &Node{el: rootNode},
	}
}

// AddTrack appends one TRACK element to COLLECTION with the attributes in
// the given order and bumps the Entries count.
func (d *Document) AddTrack(attrs []Attr) {
	track := d.collection.CreateElement("TRACK")
	for _, a := range attrs {
		track.CreateAttr(a.Key, a.Value)
	}
	d.entries++
	d.collection.RemoveAttr("Entries")
	d.collection.CreateAttr("Entries", strconv.Itoa(d.entries))
}

// RootFolder returns the ROOT node of the PLAYLISTS section.
func (d *Document) RootFolder() *Node {
	return d.root
}

// AddFolder appends a folder NODE under n and maintains n's Count.
func (n *Node) AddFolder(name string) *Node {
	child := n.el.CreateElement("NODE")
	child.CreateAttr("Name", name)
	child.CreateAttr("Type", nodeTypeFolder)
	child.CreateAttr("Count", "0")
	n.bump("Count")
	return &Node{el: child}
}

// AddPlaylist appends a playlist NODE under n. KeyType 0 means entries
// reference tracks by TrackID.
func (n *Node) AddPlaylist(name string) *Node {
	child := n.el.CreateElement("NODE")
	child.CreateAttr("Name", name)
	child.CreateAttr("Type", nodeTypePlaylist)
	child.CreateAttr("KeyType", "0")
	child.CreateAttr("Entries", "0")
	n.bump("Count")
	return &Node{el: child}
}

// AddTrackKey appends one track reference to a playlist node and maintains
// its Entries count.
func (n *Node) AddTrackKey(trackID string) {
	ref := n.el.CreateElement("TRACK")
	ref.CreateAttr("Key", trackID)
	n.bump("Entries")
}

func (n *Node) bump(counter string) {
	count := 0
	if attr := n.el.SelectAttr(counter); attr != nil {
		count, _ = strconv.Atoi(attr.Value)
		n.el.RemoveAttr(counter)
	}
	n.el.CreateAttr(counter, strconv.Itoa(count+1))
}

// RewriteLocations replaces Location attributes on COLLECTION tracks
// according to the old-URI to new-URI mapping and returns how many were
// rewritten. Tracks absent from the mapping keep their Location.
func (d *Document) RewriteLocations(moved map[string]string) int {
	rewritten := 0
	for _, track := range d.collection.SelectElements("TRACK") {
		attr := track.SelectAttr("Location")
		if attr == nil {
			continue
		}
		if dst, ok := moved[attr.Value]; ok {
			attr.Value = dst
			rewritten++
		}
	}
	return rewritten
}

// WriteTo serializes the document to the given path, indented the way
// Rekordbox's own export is.
func (d *Document) WriteTo(path string) error {
	d.doc.Indent(2)
	return d.doc.WriteToFile(path)
}

// Root exposes the underlying DJ_PLAYLISTS element for inspection in tests.
func (d *Document) Root() *etree.Element {
	return d.doc.Root()
}
