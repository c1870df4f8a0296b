package index

import (
	"fmt"
	"io"
)

// Dump writes a level-by-level sketch of the tree to w, one line per
// level, for debugging. It does not
// attempt to be a stable or parseable format.
func (t *Tree) Dump(w io.Writer) error {
	if t.root == noNode {
		_, err := fmt.Fprintln(w, "(empty)")
		return err
	}

	level := []nodeID{t.root}
	depth := 0
	for len(level) > 0 {
		fmt.Fprintf(w, "level %d:", depth)
		var next []nodeID
		for _, id := range level {
			nd := t.node(id)
			fmt.Fprintf(w, " [")
			for i, k := range nd.keys {
				if i > 0 {
					fmt.Fprint(w, " ")
				}
				fmt.Fprint(w, k.String())
			}
			fmt.Fprint(w, "]")
			if !nd.isLeaf {
				next = append(next, nd.children...)
			}
		}
		fmt.Fprintln(w)
		level = next
		depth++
	}
	return nil
}
