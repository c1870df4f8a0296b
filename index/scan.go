package index

import (
	"fmt"

	"github.com/ado-labs/pagestore/common"
)

// Scan walks every key in ascending order by following the leaf sibling
// chain, the same mechanism a range scan over a sorted file would use.
type Scan struct {
	tree *Tree
	leaf nodeID
	pos  int
}

// OpenScan starts an ordered, full scan from the smallest key.
func (t *Tree) OpenScan() (*Scan, error) {
	leaf := t.root
	if leaf == noNode {
		return &Scan{tree: t, leaf: noNode}, nil
	}
	for !t.node(leaf).isLeaf {
		leaf = t.node(leaf).children[0]
	}
	return &Scan{tree: t, leaf: leaf, pos: 0}, nil
}

// NextEntry returns the next key/RID pair in ascending order, or
// ErrNoMoreEntries once the scan is exhausted.
func (s *Scan) NextEntry() (keyT, common.RID, error) {
	for s.leaf != noNode {
		nd := s.tree.node(s.leaf)
		if s.pos < len(nd.keys) {
			k, rid := nd.keys[s.pos], nd.rids[s.pos]
			s.pos++
			return k, rid, nil
		}
		s.leaf = nd.next
		s.pos = 0
	}
	return keyT{}, common.RID{}, fmt.Errorf("scan: %w", common.ErrNoMoreEntries)
}

// CloseScan releases the scan. The scan holds no resources beyond the
// in-memory cursor, so this only guards against further use.
func (s *Scan) CloseScan() error {
	s.tree = nil
	s.leaf = noNode
	return nil
}
