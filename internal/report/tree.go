package report

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"

	"github.com/dustin/go-humanize"

	"github.com/idelchi/diskcheck/internal/dirstat"
)

// node is one entry of the rendered tree.
type node struct {
	name     string
	size     int64
	dir      bool
	children []*node
}

// WriteTree renders the entries of result as a size-sorted tree below its root.
//
// The result is expected to come from a walk with a zero threshold and the
// desired depth, so that every entry down to that depth is present.
func WriteTree(w io.Writer, result *dirstat.Result) error {
	root := &node{name: result.Root, size: result.TotalBytes, dir: true}
	nodes := map[string]*node{result.Root: root}

	// Parents sort before their children, so every parent exists when a child is attached.
	entries := append([]dirstat.Entry(nil), result.Entries...)
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })

	for _, e := range entries {
		n := &node{name: filepath.Base(e.Path), size: e.Size, dir: e.Dir}
		nodes[e.Path] = n

		if parent, ok := nodes[filepath.Dir(e.Path)]; ok {
			parent.children = append(parent.children, n)
		}
	}

	if _, err := fmt.Fprintf(w, "%s (%s)\n", root.name, size(root.size)); err != nil {
		return err
	}

	return writeChildren(w, root, "")
}

func writeChildren(w io.Writer, n *node, prefix string) error {
	sort.Slice(n.children, func(i, j int) bool {
		if n.children[i].size != n.children[j].size {
			return n.children[i].size > n.children[j].size
		}

		return n.children[i].name < n.children[j].name
	})

	for i, child := range n.children {
		last := i == len(n.children)-1

		connector, indent := "├── ", "│   "
		if last {
			connector, indent = "└── ", "    "
		}

		name := child.name
		if child.dir {
			name += string(filepath.Separator)
		}

		if _, err := fmt.Fprintf(w, "%s%s%s (%s)\n", prefix, connector, name, size(child.size)); err != nil {
			return err
		}

		if err := writeChildren(w, child, prefix+indent); err != nil {
			return err
		}
	}

	return nil
}

func size(n int64) string {
	return humanize.IBytes(uint64(n)) //nolint:gosec // Sizes are never negative
}
