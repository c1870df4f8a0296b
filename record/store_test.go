package record

import (
	"path/filepath"
	"testing"

	"github.com/ado-labs/pagestore/common"
	"github.com/ado-labs/pagestore/common/testutil"
	"github.com/ado-labs/pagestore/value"
	"github.com/stretchr/testify/require"
)

func testSchema() Schema {
	return Schema{
		Attrs: []Attr{
			{Name: "id", Type: value.Int32},
			{Name: "name", Type: value.String, Length: 20},
			{Name: "active", Type: value.Bool},
		},
		KeyAttr: 0,
	}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := testutil.TempDir(t)
	s, err := Create(filepath.Join(dir, "t.rec"), testSchema())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func tuple(id int32, name string, active bool) []value.Value {
	return []value.Value{value.NewInt32(id), value.NewString(name), value.NewBool(active)}
}

func TestInsertAndGetTuple(t *testing.T) {
	s := newTestStore(t)
	rid, err := s.InsertTuple(tuple(1, "alice", true))
	require.NoError(t, err)

	got, err := s.GetTuple(rid)
	require.NoError(t, err)
	require.Equal(t, int32(1), got[0].I)
	require.Equal(t, "alice", got[1].S)
	require.True(t, got[2].B)
	require.EqualValues(t, 1, s.NumTuples())
}

func TestGetTupleOnDeletedSlotFails(t *testing.T) {
	s := newTestStore(t)
	rid, err := s.InsertTuple(tuple(1, "bob", false))
	require.NoError(t, err)
	require.NoError(t, s.DeleteTuple(rid))

	_, err = s.GetTuple(rid)
	require.ErrorIs(t, err, common.ErrNoTupleWithRid)
}

func TestDeleteTwiceFails(t *testing.T) {
	s := newTestStore(t)
	rid, err := s.InsertTuple(tuple(1, "carl", false))
	require.NoError(t, err)
	require.NoError(t, s.DeleteTuple(rid))
	err = s.DeleteTuple(rid)
	require.ErrorIs(t, err, common.ErrNoTupleWithRid)
}

func TestDeletedSlotIsReusedByNextInsert(t *testing.T) {
	s := newTestStore(t)
	rid1, err := s.InsertTuple(tuple(1, "dana", false))
	require.NoError(t, err)
	require.NoError(t, s.DeleteTuple(rid1))

	rid2, err := s.InsertTuple(tuple(2, "erin", true))
	require.NoError(t, err)
	require.Equal(t, rid1.Page, rid2.Page)
	require.Equal(t, rid1.Slot, rid2.Slot)
}

func TestUpdateTupleInPlace(t *testing.T) {
	s := newTestStore(t)
	rid, err := s.InsertTuple(tuple(1, "frank", false))
	require.NoError(t, err)

	require.NoError(t, s.UpdateTuple(rid, tuple(1, "frank", true)))
	got, err := s.GetTuple(rid)
	require.NoError(t, err)
	require.True(t, got[2].B)
}

func TestScanWithoutConditionVisitsEveryLiveTuple(t *testing.T) {
	s := newTestStore(t)
	for i := int32(0); i < 10; i++ {
		_, err := s.InsertTuple(tuple(i, "x", i%2 == 0))
		require.NoError(t, err)
	}

	sc, err := s.OpenScan(nil)
	require.NoError(t, err)

	count := 0
	for {
		_, _, err := sc.NextTuple()
		if err != nil {
			require.ErrorIs(t, err, common.ErrScanConditionNotFound)
			break
		}
		count++
	}
	require.Equal(t, 10, count)
	require.NoError(t, sc.CloseScan())
}

func TestScanWithConditionFiltersTuples(t *testing.T) {
	s := newTestStore(t)
	for i := int32(0); i < 10; i++ {
		_, err := s.InsertTuple(tuple(i, "x", false))
		require.NoError(t, err)
	}

	cond := &Condition{AttrIndex: 0, Op: Ge, Operand: value.NewInt32(5)}
	sc, err := s.OpenScan(cond)
	require.NoError(t, err)

	var ids []int32
	for {
		_, tup, err := sc.NextTuple()
		if err != nil {
			require.ErrorIs(t, err, common.ErrScanConditionNotFound)
			break
		}
		ids = append(ids, tup[0].I)
	}
	require.Equal(t, []int32{5, 6, 7, 8, 9}, ids)
}

func TestOpenScanOnEmptyTableFails(t *testing.T) {
	s := newTestStore(t)
	_, err := s.OpenScan(nil)
	require.ErrorIs(t, err, common.ErrNoRecordsToScan)
}

func TestReopenRecoversSchemaAndTuples(t *testing.T) {
	dir := testutil.TempDir(t)
	path := filepath.Join(dir, "t.rec")

	s, err := Create(path, testSchema())
	require.NoError(t, err)
	_, err = s.InsertTuple(tuple(1, "persist", true))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	require.EqualValues(t, 1, reopened.NumTuples())
	require.Equal(t, testSchema().Attrs[0].Name, reopened.Schema().Attrs[0].Name)
}
