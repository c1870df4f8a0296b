package storage

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/ado-labs/pagestore/common"
	"github.com/ado-labs/pagestore/common/testutil"
	"github.com/stretchr/testify/require"
)

func TestCreateInitializesOnePage(t *testing.T) {
	dir := testutil.TempDir(t)
	name := filepath.Join(dir, "t.db")

	d, err := Create(name)
	require.NoError(t, err)
	defer d.Close()

	require.EqualValues(t, 1, d.TotalPages())

	buf := make([]byte, PageSize)
	require.NoError(t, d.ReadPage(0, buf))
	require.True(t, bytes.Equal(buf, make([]byte, PageSize)))
}

func TestReadNonExistingPage(t *testing.T) {
	dir := testutil.TempDir(t)
	name := filepath.Join(dir, "t.db")
	d, err := Create(name)
	require.NoError(t, err)
	defer d.Close()

	buf := make([]byte, PageSize)
	err = d.ReadPage(1, buf)
	require.ErrorIs(t, err, common.ErrReadNonExisting)
}

func TestWritePageAppendsAtBoundary(t *testing.T) {
	dir := testutil.TempDir(t)
	name := filepath.Join(dir, "t.db")
	d, err := Create(name)
	require.NoError(t, err)
	defer d.Close()

	payload := bytes.Repeat([]byte{0xAB}, PageSize)
	require.NoError(t, d.WritePage(1, payload))
	require.EqualValues(t, 2, d.TotalPages())

	out := make([]byte, PageSize)
	require.NoError(t, d.ReadPage(1, out))
	require.True(t, bytes.Equal(payload, out))
}

func TestWritePageOutOfRangeFails(t *testing.T) {
	dir := testutil.TempDir(t)
	name := filepath.Join(dir, "t.db")
	d, err := Create(name)
	require.NoError(t, err)
	defer d.Close()

	payload := make([]byte, PageSize)
	err = d.WritePage(5, payload)
	require.ErrorIs(t, err, common.ErrWriteFailed)
}

func TestEnsureCapacity(t *testing.T) {
	dir := testutil.TempDir(t)
	name := filepath.Join(dir, "t.db")
	d, err := Create(name)
	require.NoError(t, err)
	defer d.Close()

	require.NoError(t, d.EnsureCapacity(4))
	require.EqualValues(t, 4, d.TotalPages())

	// idempotent
	require.NoError(t, d.EnsureCapacity(2))
	require.EqualValues(t, 4, d.TotalPages())
}

func TestOpenDerivesTotalPages(t *testing.T) {
	dir := testutil.TempDir(t)
	name := filepath.Join(dir, "t.db")
	d, err := Create(name)
	require.NoError(t, err)
	require.NoError(t, d.EnsureCapacity(3))
	require.NoError(t, d.Close())

	reopened, err := Open(name)
	require.NoError(t, err)
	defer reopened.Close()
	require.EqualValues(t, 3, reopened.TotalPages())
}

func TestSequentialHelpers(t *testing.T) {
	dir := testutil.TempDir(t)
	name := filepath.Join(dir, "t.db")
	d, err := Create(name)
	require.NoError(t, err)
	defer d.Close()
	require.NoError(t, d.EnsureCapacity(3))

	buf := make([]byte, PageSize)
	require.NoError(t, d.ReadFirst(buf))
	require.EqualValues(t, 0, d.Cursor())

	require.NoError(t, d.ReadNext(buf))
	require.EqualValues(t, 1, d.Cursor())

	require.NoError(t, d.ReadPrev(buf))
	require.EqualValues(t, 0, d.Cursor())

	require.NoError(t, d.ReadLast(buf))
	require.EqualValues(t, 2, d.Cursor())
}

func TestDestroy(t *testing.T) {
	dir := testutil.TempDir(t)
	name := filepath.Join(dir, "t.db")
	d, err := Create(name)
	require.NoError(t, err)
	require.NoError(t, d.Close())

	require.NoError(t, Destroy(name))
	_, err = Open(name)
	require.ErrorIs(t, err, common.ErrFileNotFound)
}
