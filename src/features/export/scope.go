package export

import (
	"fmt"
	"strings"

	"rbxport/src/music"
)

// ResolveScope resolves playlist specs (numeric id, exact name, or
// /-joined hierarchical path) to the set of playlist ids the export should
// cover. The matched set is closed under descendants and ancestors so the
// exported subtree stays structurally valid. Any unresolved spec fails the
// whole operation, before any output is written.
func ResolveScope(specs []string, rows []*music.PlaylistRecord) (map[string]bool, error) {
	byID := make(map[string]*music.PlaylistRecord, len(rows))
	children := make(map[string][]string)
	for _, row := range rows {
		byID[row.ID] = row
		children[row.Parent()] = append(children[row.Parent()], row.ID)
	}

	byPath := make(map[string]string, len(rows))
	for _, row := range rows {
		if p, ok := fullPath(row, byID); ok {
			byPath[p] = row.ID
		}
	}

	matched := make(map[string]bool)
	var unresolved []string
	for _, spec := range specs {
		spec = strings.TrimSpace(spec)
		if spec == "" {
			continue
		}
		if isNumeric(spec) {
			if _, ok := byID[spec]; ok {
				matched[spec] = true
				continue
			}
		} else if id, ok := byPath[spec]; ok {
			matched[id] = true
			continue
		}
		unresolved = append(unresolved, spec)
	}
	if len(unresolved) > 0 {
		return nil, fmt.Errorf("unresolved playlist specs: %s", strings.Join(unresolved, ", "))
	}

	include := make(map[string]bool)
	for id := range matched {
		// Descendants keep the selected subtree complete.
		queue := []string{id}
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			if include[cur] {
				continue
			}
			include[cur] = true
			queue = append(queue, children[cur]...)
		}
		// Ancestors keep the path from the root intact.
		for cur := byID[id]; cur != nil; {
			parent := cur.Parent()
			if parent == music.RootPlaylistID {
				break
			}
			if include[parent] {
				break
			}
			include[parent] = true
			cur = byID[parent]
		}
	}
	return include, nil
}

// fullPath joins the names from the root down to the row with slashes.
// Rows with a broken parent chain report no path.
func fullPath(row *music.PlaylistRecord, byID map[string]*music.PlaylistRecord) (string, bool) {
	parts := []string{row.Name}
	cur := row
	for i := 0; i < len(byID)+1; i++ {
		parent := cur.Parent()
		if parent == music.RootPlaylistID {
			for l, r := 0, len(parts)-1; l < r; l, r = l+1, r-1 {
				parts[l], parts[r] = parts[r], parts[l]
			}
			return strings.Join(parts, "/"), true
		}
		next, ok := byID[parent]
		if !ok {
			return "", false
		}
		parts = append(parts, next.Name)
		cur = next
	}
	// Cycle in the parent chain.
	return "", false
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
