package index

import (
	"github.com/ado-labs/pagestore/common"
	"github.com/ado-labs/pagestore/value"
)

// DeleteKey removes k and its RID. Deleting a key that is not present is
// a silent no-op rather than ErrKeyNotFound.
func (t *Tree) DeleteKey(k keyT) error {
	if err := t.checkKind(k); err != nil {
		return err
	}
	if t.root == noNode {
		return nil
	}
	leaf := t.findLeaf(k)
	if leaf == noNode {
		return nil
	}
	nd := t.node(leaf)
	found := false
	for _, kk := range nd.keys {
		if value.Equal(kk, k) {
			found = true
			break
		}
	}
	if !found {
		return nil
	}
	t.deleteEntry(leaf, k, noNode)
	t.numEntries--
	return nil
}

func removeFromLeaf(nd *node, key keyT) {
	for i, kk := range nd.keys {
		if value.Equal(kk, key) {
			nd.keys = append(nd.keys[:i], nd.keys[i+1:]...)
			nd.rids = append(nd.rids[:i], nd.rids[i+1:]...)
			return
		}
	}
}

func removeFromInternal(nd *node, key keyT, child nodeID) {
	for i, kk := range nd.keys {
		if value.Equal(kk, key) {
			nd.keys = append(nd.keys[:i], nd.keys[i+1:]...)
			break
		}
	}
	for i, c := range nd.children {
		if c == child {
			nd.children = append(nd.children[:i], nd.children[i+1:]...)
			break
		}
	}
}

func (t *Tree) minKeys(isLeaf bool) int {
	if isLeaf {
		return cut(t.order - 1)
	}
	return cut(t.order) - 1
}

// deleteEntry removes key (and, for internal nodes, child) from id, then
// restores the minimum-occupancy invariant by borrowing from or merging
// with a sibling, propagating upward as needed.
func (t *Tree) deleteEntry(id nodeID, key keyT, child nodeID) {
	nd := t.node(id)
	if nd.isLeaf {
		removeFromLeaf(nd, key)
	} else {
		removeFromInternal(nd, key, child)
	}

	if id == t.root {
		t.adjustRoot()
		return
	}

	if len(t.node(id).keys) >= t.minKeys(t.node(id).isLeaf) {
		return
	}

	parent := t.node(id).parent
	pnode := t.node(parent)
	childIdx := -1
	for i, c := range pnode.children {
		if c == id {
			childIdx = i
			break
		}
	}

	capacity := t.order - 1

	if childIdx > 0 {
		leftIdx := childIdx - 1
		leftSib := pnode.children[leftIdx]
		kPrimeIndex := leftIdx
		kPrime := pnode.keys[kPrimeIndex]
		ls := t.node(leftSib)
		cur := t.node(id)

		var fits bool
		if cur.isLeaf {
			fits = len(ls.keys)+len(cur.keys) <= capacity
		} else {
			fits = len(ls.keys)+len(cur.keys)+1 <= capacity
		}
		if fits {
			t.mergeIntoLeft(leftSib, id, kPrime, cur.isLeaf)
			t.deleteEntry(parent, kPrime, id)
			return
		}
		t.borrowFromLeft(parent, kPrimeIndex, leftSib, id)
		return
	}

	rightIdx := childIdx + 1
	rightSib := pnode.children[rightIdx]
	kPrimeIndex := childIdx
	kPrime := pnode.keys[kPrimeIndex]
	rs := t.node(rightSib)
	cur := t.node(id)

	var fits bool
	if cur.isLeaf {
		fits = len(cur.keys)+len(rs.keys) <= capacity
	} else {
		fits = len(cur.keys)+len(rs.keys)+1 <= capacity
	}
	if fits {
		t.mergeIntoLeft(id, rightSib, kPrime, cur.isLeaf)
		t.deleteEntry(parent, kPrime, rightSib)
		return
	}
	t.borrowFromRight(parent, kPrimeIndex, id, rightSib)
}

// mergeIntoLeft folds right's entries into left and frees right's arena
// slot. kPrime is the parent separator being absorbed (ignored for leaf
// merges, whose keys are already self-describing).
func (t *Tree) mergeIntoLeft(left, right nodeID, kPrime keyT, isLeaf bool) {
	l := t.node(left)
	r := t.node(right)
	if isLeaf {
		l.keys = append(l.keys, r.keys...)
		l.rids = append(l.rids, r.rids...)
		l.next = r.next
	} else {
		l.keys = append(append(l.keys, kPrime), r.keys...)
		l.children = append(l.children, r.children...)
		for _, c := range r.children {
			t.node(c).parent = left
		}
	}
	t.release(right)
}

// borrowFromLeft moves leftSib's last entry to the front of id and
// updates the parent separator accordingly.
func (t *Tree) borrowFromLeft(parent nodeID, kPrimeIndex int, leftSib, id nodeID) {
	pnode := t.node(parent)
	ls := t.node(leftSib)
	cur := t.node(id)

	if cur.isLeaf {
		n := len(ls.keys)
		bk, br := ls.keys[n-1], ls.rids[n-1]
		ls.keys = ls.keys[:n-1]
		ls.rids = ls.rids[:n-1]
		cur.keys = append([]keyT{bk}, cur.keys...)
		cur.rids = append([]common.RID{br}, cur.rids...)
		pnode.keys[kPrimeIndex] = bk
		return
	}

	oldKPrime := pnode.keys[kPrimeIndex]
	n := len(ls.keys)
	bk := ls.keys[n-1]
	bc := ls.children[len(ls.children)-1]
	ls.keys = ls.keys[:n-1]
	ls.children = ls.children[:len(ls.children)-1]
	cur.keys = append([]keyT{oldKPrime}, cur.keys...)
	cur.children = append([]nodeID{bc}, cur.children...)
	t.node(bc).parent = id
	pnode.keys[kPrimeIndex] = bk
}

// borrowFromRight moves rightSib's first entry to the end of id and
// updates the parent separator accordingly.
func (t *Tree) borrowFromRight(parent nodeID, kPrimeIndex int, id, rightSib nodeID) {
	pnode := t.node(parent)
	cur := t.node(id)
	rs := t.node(rightSib)

	if cur.isLeaf {
		bk, br := rs.keys[0], rs.rids[0]
		rs.keys = rs.keys[1:]
		rs.rids = rs.rids[1:]
		cur.keys = append(cur.keys, bk)
		cur.rids = append(cur.rids, br)
		pnode.keys[kPrimeIndex] = rs.keys[0]
		return
	}

	oldKPrime := pnode.keys[kPrimeIndex]
	bc := rs.children[0]
	bk := rs.keys[0]
	rs.keys = rs.keys[1:]
	rs.children = rs.children[1:]
	cur.keys = append(cur.keys, oldKPrime)
	cur.children = append(cur.children, bc)
	t.node(bc).parent = id
	pnode.keys[kPrimeIndex] = bk
}

func (t *Tree) adjustRoot() {
	r := t.node(t.root)
	if len(r.keys) > 0 {
		return
	}
	if r.isLeaf {
		t.release(t.root)
		t.root = noNode
		return
	}
	newRoot := r.children[0]
	t.node(newRoot).parent = noNode
	oldRoot := t.root
	t.root = newRoot
	t.release(oldRoot)
}
