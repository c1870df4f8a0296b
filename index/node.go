package index

import "github.com/ado-labs/pagestore/common"

// nodeID is a stable index into Tree.nodes. Nodes live in an arena:
// children, parent and sibling links are indices, never addresses, so
// the arena can be grown, compacted or (if ever persisted) serialized
// without pointer-fixup.
type nodeID int

const noNode nodeID = -1

// node is one B+ tree node. Internal nodes use children (len(children) ==
// len(keys)+1); leaves use rids (len(rids) == len(keys)) and next, the
// sibling link full scans walk.
type node struct {
	isLeaf   bool
	parent   nodeID
	keys     []keyT
	children []nodeID
	rids     []common.RID
	next     nodeID
}

func newLeaf() node {
	return node{isLeaf: true, parent: noNode, next: noNode}
}

func newInternal() node {
	return node{isLeaf: false, parent: noNode, children: []nodeID{noNode}}
}

// alloc returns a fresh node id, reusing a freed slot when one exists so
// deletes don't leave the arena growing without bound.
func (t *Tree) alloc(n node) nodeID {
	if len(t.free) > 0 {
		id := t.free[len(t.free)-1]
		t.free = t.free[:len(t.free)-1]
		t.nodes[id] = n
		return id
	}
	id := nodeID(len(t.nodes))
	t.nodes = append(t.nodes, n)
	return id
}

func (t *Tree) release(id nodeID) {
	t.nodes[id] = node{}
	t.free = append(t.free, id)
}

func (t *Tree) node(id nodeID) *node { return &t.nodes[id] }

// liveNodes counts arena slots currently in use (NumNodes introspection).
func (t *Tree) liveNodes() int {
	return len(t.nodes) - len(t.free)
}
