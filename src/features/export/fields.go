package export

import (
	"fmt"
	"log/slog"
	"strconv"

	"rbxport/src/infra/xmldoc"
	"rbxport/src/music"
)

// fieldAliases maps each canonical TRACK attribute to the source field
// names observed across schema generations, in priority order: the first
// present, non-empty value wins. The table is evaluated top to bottom, which
// also fixes the attribute order of the emitted TRACK element. AverageBpm
// and Location are slotted here but filled by their special-case paths.
var fieldAliases = []struct {
	attr    string
	aliases []string
}{
	{"TrackID", []string{"ID", "Id", "id", "TrackId", "track_id"}},
	{"Name", []string{"Title", "title", "name", "track_title"}},
	{"Artist", []string{"Artist", "ArtistName", "artist", "artist_name"}},
	{"Composer", []string{"Composer", "ComposerName", "composer"}},
	{"Album", []string{"Album", "AlbumName", "album"}},
	{"Grouping", []string{"Grouping", "grouping"}},
	{"Genre", []string{"Genre", "GenreName", "genre"}},
	{"Kind", []string{"Kind", "kind"}},
	{"Size", []string{"Size", "FileSize", "file_size", "filesize"}},
	{"TotalTime", []string{"TotalTime", "Length", "duration", "length", "time"}},
	{"DiscNumber", []string{"DiscNumber", "DiscNo", "disc_no"}},
	{"TrackNumber", []string{"TrackNumber", "TrackNo", "track_no"}},
	{"Year", []string{"Year", "ReleaseYear", "year"}},
	{"AverageBpm", nil},
	{"DateAdded", []string{"DateAdded", "StockDate", "date_added", "added_date", "added_at"}},
	{"BitRate", []string{"BitRate", "bitrate"}},
	{"SampleRate", []string{"SampleRate", "sample_rate"}},
	{"Comments", []string{"Comments", "Commnt", "comment"}},
	{"PlayCount", []string{"PlayCount", "DJPlayCount", "play_count"}},
	{"Rating", []string{"Rating", "rating"}},
	{"Location", nil},
	{"Remixer", []string{"Remixer", "RemixerName", "remixer"}},
	{"Tonality", []string{"Tonality", "KeyName", "ScaleName", "key", "musical_key"}},
	{"Label", []string{"Label", "LabelName", "label"}},
	{"Mix", []string{"Mix", "mix"}},
}

// bpmAliases is the priority order for the raw BPM source field. The value
// is stored as real BPM x100.
var bpmAliases = []string{"BPM", "AverageBpm", "Bpm", "bpm", "average_bpm"}

// mandatoryEmpty lists the attributes Rekordbox expects on every TRACK even
// when the library has no value for them.
var mandatoryEmpty = map[string]bool{
	"Album":    true,
	"Artist":   true,
	"Composer": true,
	"Genre":    true,
	"Grouping": true,
	"Label":    true,
	"Mix":      true,
	"Remixer":  true,
	"Tonality": true,
}

// Attributes is the ordered attribute set of one exported TRACK element.
type Attributes struct {
	pairs []xmldoc.Attr
	index map[string]int
}

func NewAttributes() *Attributes {
	return &Attributes{index: make(map[string]int)}
}

// Set adds or overwrites an attribute, keeping its original position when
// overwriting.
func (a *Attributes) Set(key, value string) {
	if i, ok := a.index[key]; ok {
		a.pairs[i].Value = value
		return
	}
	a.index[key] = len(a.pairs)
	a.pairs = append(a.pairs, xmldoc.Attr{Key: key, Value: value})
}

// Get returns the value of an attribute.
func (a *Attributes) Get(key string) (string, bool) {
	if i, ok := a.index[key]; ok {
		return a.pairs[i].Value, true
	}
	return "", false
}

// Pairs returns the attributes in emission order.
func (a *Attributes) Pairs() []xmldoc.Attr {
	return a.pairs
}

// ConvertBPM turns a raw stored BPM value (real BPM x100) into the
// two-decimal string the XML carries. Non-numeric raw values are passed
// through unchanged rather than failing the record.
func ConvertBPM(raw string) string {
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		slog.Warn("Non-numeric BPM value, emitting as-is", "raw", raw)
		return raw
	}
	return fmt.Sprintf("%.2f", f/100)
}

// MapFields projects a track record onto the ordered attribute set of its
// TRACK element. locationURI is the track's resolved file URI, already
// formatted; an empty string omits the Location attribute. AverageBpm is
// computed once, before the alias loop runs, and no alias may overwrite it.
func MapFields(rec *music.TrackRecord, locationURI string) *Attributes {
	attrs := NewAttributes()

	bpm := ""
	if raw, ok := rec.Field(bpmAliases...); ok {
		bpm = ConvertBPM(raw)
	}

	for _, m := range fieldAliases {
		switch m.attr {
		case "AverageBpm":
			if bpm != "" {
				attrs.Set("AverageBpm", bpm)
			}
			continue
		case "Location":
			if locationURI != "" {
				attrs.Set("Location", locationURI)
			}
			continue
		}
		if _, done := attrs.Get(m.attr); done {
			continue
		}
		if v, ok := rec.Field(m.aliases...); ok {
			attrs.Set(m.attr, v)
		} else if mandatoryEmpty[m.attr] {
			attrs.Set(m.attr, "")
		}
	}
	return attrs
}
