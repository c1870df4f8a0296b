package index

import (
	"fmt"

	"github.com/ado-labs/pagestore/common"
	"github.com/ado-labs/pagestore/value"
)

// Find returns the RID stored under k.
func (t *Tree) Find(k keyT) (common.RID, error) {
	if err := t.checkKind(k); err != nil {
		return common.RID{}, err
	}
	leaf := t.findLeaf(k)
	if leaf == noNode {
		return common.RID{}, fmt.Errorf("find %s: %w", k, common.ErrKeyNotFound)
	}
	nd := t.node(leaf)
	for i, kk := range nd.keys {
		if value.Equal(kk, k) {
			return nd.rids[i], nil
		}
	}
	return common.RID{}, fmt.Errorf("find %s: %w", k, common.ErrKeyNotFound)
}

// findLeaf walks from the root to the leaf that would hold k. Returns
// noNode if the tree is empty.
func (t *Tree) findLeaf(k keyT) nodeID {
	if t.root == noNode {
		return noNode
	}
	c := t.root
	for {
		nd := t.node(c)
		if nd.isLeaf {
			return c
		}
		i := 0
		for i < len(nd.keys) && !value.Less(k, nd.keys[i]) {
			i++
		}
		c = nd.children[i]
	}
}

// Insert adds k -> rid. ErrKeyAlreadyExists if k is already present.
func (t *Tree) Insert(k keyT, rid common.RID) error {
	if err := t.checkKind(k); err != nil {
		return err
	}

	if t.root == noNode {
		leafID := t.alloc(newLeaf())
		leaf := t.node(leafID)
		leaf.keys = []keyT{k}
		leaf.rids = []common.RID{rid}
		t.root = leafID
		t.numEntries++
		return nil
	}

	leaf := t.findLeaf(k)
	nd := t.node(leaf)
	for _, kk := range nd.keys {
		if value.Equal(kk, k) {
			return fmt.Errorf("insert %s: %w", k, common.ErrKeyAlreadyExists)
		}
	}

	if len(nd.keys) < t.order-1 {
		t.insertIntoLeaf(leaf, k, rid)
	} else {
		t.insertIntoLeafAfterSplit(leaf, k, rid)
	}
	t.numEntries++
	return nil
}

func (t *Tree) insertIntoLeaf(leaf nodeID, k keyT, rid common.RID) {
	nd := t.node(leaf)
	pos := 0
	for pos < len(nd.keys) && value.Less(nd.keys[pos], k) {
		pos++
	}
	nd.keys = append(nd.keys, keyT{})
	copy(nd.keys[pos+1:], nd.keys[pos:])
	nd.keys[pos] = k

	nd.rids = append(nd.rids, common.RID{})
	copy(nd.rids[pos+1:], nd.rids[pos:])
	nd.rids[pos] = rid
}

func (t *Tree) insertIntoLeafAfterSplit(leaf nodeID, k keyT, rid common.RID) {
	old := t.node(leaf)
	pos := 0
	for pos < len(old.keys) && value.Less(old.keys[pos], k) {
		pos++
	}
	keys := make([]keyT, 0, len(old.keys)+1)
	keys = append(keys, old.keys[:pos]...)
	keys = append(keys, k)
	keys = append(keys, old.keys[pos:]...)

	rids := make([]common.RID, 0, len(old.rids)+1)
	rids = append(rids, old.rids[:pos]...)
	rids = append(rids, rid)
	rids = append(rids, old.rids[pos:]...)

	oldNext := old.next
	parentOfOld := old.parent

	split := cut(t.order - 1)
	leftKeys := append([]keyT{}, keys[:split]...)
	leftRids := append([]common.RID{}, rids[:split]...)
	rightKeys := append([]keyT{}, keys[split:]...)
	rightRids := append([]common.RID{}, rids[split:]...)

	newID := t.alloc(newLeaf())

	oldNode := t.node(leaf)
	oldNode.keys = leftKeys
	oldNode.rids = leftRids
	oldNode.next = newID

	newNode := t.node(newID)
	newNode.keys = rightKeys
	newNode.rids = rightRids
	newNode.next = oldNext
	newNode.parent = parentOfOld

	t.insertIntoParent(leaf, rightKeys[0], newID)
}

func (t *Tree) childIndex(parent, child nodeID) int {
	pnode := t.node(parent)
	for i, c := range pnode.children {
		if c == child {
			return i
		}
	}
	return -1
}

func (t *Tree) insertIntoParent(left nodeID, key keyT, right nodeID) {
	parent := t.node(left).parent
	if parent == noNode {
		t.insertIntoNewRoot(left, key, right)
		return
	}
	t.node(right).parent = parent

	leftIndex := t.childIndex(parent, left)
	if len(t.node(parent).keys) < t.order-1 {
		t.insertIntoNode(parent, leftIndex, key, right)
	} else {
		t.insertIntoNodeAfterSplit(parent, leftIndex, key, right)
	}
}

func (t *Tree) insertIntoNewRoot(left nodeID, key keyT, right nodeID) {
	rootID := t.alloc(newInternal())
	r := t.node(rootID)
	r.keys = []keyT{key}
	r.children = []nodeID{left, right}
	t.node(left).parent = rootID
	t.node(right).parent = rootID
	t.root = rootID
}

func (t *Tree) insertIntoNode(parent nodeID, leftIndex int, key keyT, right nodeID) {
	pnode := t.node(parent)

	pnode.keys = append(pnode.keys, keyT{})
	copy(pnode.keys[leftIndex+1:], pnode.keys[leftIndex:])
	pnode.keys[leftIndex] = key

	pnode.children = append(pnode.children, noNode)
	copy(pnode.children[leftIndex+2:], pnode.children[leftIndex+1:])
	pnode.children[leftIndex+1] = right
}

func (t *Tree) insertIntoNodeAfterSplit(oldInternal nodeID, leftIndex int, key keyT, right nodeID) {
	old := t.node(oldInternal)

	children := make([]nodeID, 0, len(old.children)+1)
	children = append(children, old.children[:leftIndex+1]...)
	children = append(children, right)
	children = append(children, old.children[leftIndex+1:]...)

	keys := make([]keyT, 0, len(old.keys)+1)
	keys = append(keys, old.keys[:leftIndex]...)
	keys = append(keys, key)
	keys = append(keys, old.keys[leftIndex:]...)

	parentOfOld := old.parent

	split := cut(t.order)
	leftChildren := append([]nodeID{}, children[:split]...)
	leftKeys := append([]keyT{}, keys[:split-1]...)
	rightChildren := append([]nodeID{}, children[split:]...)
	rightKeys := append([]keyT{}, keys[split:]...)
	kPrime := keys[split-1]

	newID := t.alloc(newInternal())

	oldNode := t.node(oldInternal)
	oldNode.children = leftChildren
	oldNode.keys = leftKeys

	newNode := t.node(newID)
	newNode.children = rightChildren
	newNode.keys = rightKeys
	newNode.parent = parentOfOld

	for _, c := range rightChildren {
		t.node(c).parent = newID
	}

	t.insertIntoParent(oldInternal, kPrime, newID)
}
