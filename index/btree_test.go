package index

import (
	"math/rand"
	"path/filepath"
	"sort"
	"testing"

	"github.com/ado-labs/pagestore/common"
	"github.com/ado-labs/pagestore/common/testutil"
	"github.com/ado-labs/pagestore/value"
	"github.com/stretchr/testify/require"
)

func newTestTree(t *testing.T, n int) *Tree {
	t.Helper()
	dir := testutil.TempDir(t)
	tree, err := Create(filepath.Join(dir, "idx.btr"), value.Int32, n)
	require.NoError(t, err)
	return tree
}

func TestInsertAndFindSingleEntry(t *testing.T) {
	tree := newTestTree(t, 2)
	require.NoError(t, tree.Insert(value.NewInt32(7), common.RID{Page: 1, Slot: 2}))

	rid, err := tree.Find(value.NewInt32(7))
	require.NoError(t, err)
	require.Equal(t, common.RID{Page: 1, Slot: 2}, rid)
	require.Equal(t, 1, tree.NumEntries())
}

func TestFindMissingKeyFails(t *testing.T) {
	tree := newTestTree(t, 2)
	require.NoError(t, tree.Insert(value.NewInt32(1), common.RID{}))

	_, err := tree.Find(value.NewInt32(99))
	require.ErrorIs(t, err, common.ErrKeyNotFound)
}

func TestInsertDuplicateKeyFails(t *testing.T) {
	tree := newTestTree(t, 2)
	require.NoError(t, tree.Insert(value.NewInt32(1), common.RID{}))
	err := tree.Insert(value.NewInt32(1), common.RID{})
	require.ErrorIs(t, err, common.ErrKeyAlreadyExists)
}

func TestInsertCausesLeafAndInternalSplits(t *testing.T) {
	tree := newTestTree(t, 2) // order = 4
	for i := int32(0); i < 50; i++ {
		require.NoError(t, tree.Insert(value.NewInt32(i), common.RID{Page: uint32(i)}))
	}
	require.Equal(t, 50, tree.NumEntries())
	require.Greater(t, tree.NumNodes(), 1)

	for i := int32(0); i < 50; i++ {
		rid, err := tree.Find(value.NewInt32(i))
		require.NoError(t, err)
		require.EqualValues(t, i, rid.Page)
	}
}

func TestScanVisitsEveryKeyInOrder(t *testing.T) {
	tree := newTestTree(t, 2)
	keys := []int32{30, 10, 50, 20, 40, 0, 60, 15}
	for _, k := range keys {
		require.NoError(t, tree.Insert(value.NewInt32(k), common.RID{Page: uint32(k)}))
	}

	sc, err := tree.OpenScan()
	require.NoError(t, err)

	var got []int32
	for {
		k, rid, err := sc.NextEntry()
		if err != nil {
			require.ErrorIs(t, err, common.ErrNoMoreEntries)
			break
		}
		require.EqualValues(t, k.I, rid.Page)
		got = append(got, k.I)
	}
	require.NoError(t, sc.CloseScan())

	sorted := append([]int32{}, keys...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	require.Equal(t, sorted, got)
}

func TestDeleteAbsentKeyIsSilentNoOp(t *testing.T) {
	tree := newTestTree(t, 2)
	require.NoError(t, tree.Insert(value.NewInt32(1), common.RID{}))
	require.NoError(t, tree.DeleteKey(value.NewInt32(999)))
	require.Equal(t, 1, tree.NumEntries())
}

func TestDeleteShrinksTreeBackToEmpty(t *testing.T) {
	tree := newTestTree(t, 2)
	for i := int32(0); i < 20; i++ {
		require.NoError(t, tree.Insert(value.NewInt32(i), common.RID{Page: uint32(i)}))
	}
	for i := int32(0); i < 20; i++ {
		require.NoError(t, tree.DeleteKey(value.NewInt32(i)))
	}
	require.Equal(t, 0, tree.NumEntries())
	require.Equal(t, 0, tree.NumNodes())

	_, err := tree.Find(value.NewInt32(0))
	require.ErrorIs(t, err, common.ErrKeyNotFound)
}

func TestInsertFindDeleteAgainstReferenceMap(t *testing.T) {
	tree := newTestTree(t, 3) // order = 5
	rng := rand.New(rand.NewSource(42))
	reference := map[int32]common.RID{}

	const n = 500
	keys := rng.Perm(n)
	for _, k := range keys {
		kk := int32(k)
		require.NoError(t, tree.Insert(value.NewInt32(kk), common.RID{Page: uint32(kk)}))
		reference[kk] = common.RID{Page: uint32(kk)}
	}
	require.Equal(t, len(reference), tree.NumEntries())

	toDelete := keys[:n/2]
	for _, k := range toDelete {
		kk := int32(k)
		require.NoError(t, tree.DeleteKey(value.NewInt32(kk)))
		delete(reference, kk)
	}
	require.Equal(t, len(reference), tree.NumEntries())

	for kk, want := range reference {
		got, err := tree.Find(value.NewInt32(kk))
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
	for _, k := range toDelete {
		_, err := tree.Find(value.NewInt32(int32(k)))
		require.ErrorIs(t, err, common.ErrKeyNotFound)
	}
}

func TestCreateRejectsOrderTooLowOrTooHigh(t *testing.T) {
	dir := testutil.TempDir(t)
	_, err := Create(filepath.Join(dir, "a.btr"), value.Int32, -1)
	require.ErrorIs(t, err, common.ErrOrderTooHigh)

	_, err = Create(filepath.Join(dir, "b.btr"), value.Int32, maxOrder)
	require.ErrorIs(t, err, common.ErrOrderTooHigh)
}

func TestKeyKindMismatchRejected(t *testing.T) {
	tree := newTestTree(t, 2)
	err := tree.Insert(value.NewString("x"), common.RID{})
	require.Error(t, err)
}

func TestOpenAttachesPoolButTreeStaysEmpty(t *testing.T) {
	dir := testutil.TempDir(t)
	name := filepath.Join(dir, "idx.btr")

	tree, err := Create(name, value.Int32, 2)
	require.NoError(t, err)
	require.NoError(t, tree.Insert(value.NewInt32(1), common.RID{Page: 1}))
	require.NoError(t, tree.Close())

	reopened, err := Open(name, value.Int32, 2)
	require.NoError(t, err)
	require.Equal(t, 0, reopened.NumEntries())
	_, err = reopened.Find(value.NewInt32(1))
	require.ErrorIs(t, err, common.ErrKeyNotFound)
	require.NoError(t, reopened.Close())
}
