// Package storage implements a paged block device: a linear array of
// fixed-size pages materialized on disk, with no header and no
// self-describing layout of its own. It is the bottom layer the buffer
// pool (package buffer) reads and writes through.
package storage

import (
	"fmt"
	"os"

	"github.com/ado-labs/pagestore/common"
	"go.uber.org/zap"
)

// PageSize is the compile-time page size. On-disk files are not portable
// across builds with a different value.
const PageSize = 4096

// PageId addresses a page within one Device. common.NoPage is the
// sentinel meaning "no page".
type PageId = uint32

// Device is a single backing file holding TotalPages()*PageSize bytes of
// page data and nothing else.
type Device struct {
	name       string
	file       *os.File
	totalPages uint32
	cursor     uint32
	log        *zap.Logger
}

// Option configures a Device at construction time.
type Option func(*Device)

// WithLogger attaches a structured logger; the zero value logs nothing.
func WithLogger(l *zap.Logger) Option {
	return func(d *Device) { d.log = l }
}

func applyOptions(d *Device, opts []Option) {
	for _, opt := range opts {
		opt(d)
	}
	if d.log == nil {
		d.log = zap.NewNop()
	}
}

// Create creates a new backing file and initializes it with exactly one
// zero-filled page.
func Create(name string, opts ...Option) (*Device, error) {
	f, err := os.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("create %q: %w", name, common.ErrFileNotFound)
	}

	zero := make([]byte, PageSize)
	if _, err := f.WriteAt(zero, 0); err != nil {
		f.Close()
		return nil, fmt.Errorf("create %q: %w", name, common.ErrWriteFailed)
	}

	d := &Device{name: name, file: f, totalPages: 1}
	applyOptions(d, opts)
	d.log.Debug("device created", zap.String("file", name))
	return d, nil
}

// Open opens an existing backing file, deriving TotalPages from its size.
func Open(name string, opts ...Option) (*Device, error) {
	f, err := os.OpenFile(name, os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("open %q: %w", name, common.ErrFileNotFound)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("open %q: %w", name, common.ErrFileNotFound)
	}

	d := &Device{
		name:       name,
		file:       f,
		totalPages: uint32(info.Size() / PageSize),
		cursor:     0,
	}
	applyOptions(d, opts)
	d.log.Debug("device opened", zap.String("file", name), zap.Uint32("totalPages", d.totalPages))
	return d, nil
}

// Close closes the backing file.
func (d *Device) Close() error {
	return d.file.Close()
}

// Destroy removes the backing file. It does not close any open Device on
// that file.
func Destroy(name string) error {
	if err := os.Remove(name); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("destroy %q: %w", name, common.ErrFileNotFound)
		}
		return err
	}
	return nil
}

// TotalPages returns the number of pages currently allocated.
func (d *Device) TotalPages() uint32 {
	return d.totalPages
}

// Name returns the backing file name.
func (d *Device) Name() string {
	return d.name
}

// ReadPage loads page i into out, which must be PageSize bytes. Fails
// with ErrReadNonExisting when i is out of [0, TotalPages), strictly:
// i == TotalPages is already out of range.
func (d *Device) ReadPage(i PageId, out []byte) error {
	if len(out) != PageSize {
		return fmt.Errorf("readPage %d: buffer must be %d bytes", i, PageSize)
	}
	if i >= d.totalPages {
		return fmt.Errorf("readPage %d of %d: %w", i, d.totalPages, common.ErrReadNonExisting)
	}

	n, err := d.file.ReadAt(out, int64(i)*PageSize)
	if err != nil && n != PageSize {
		return fmt.Errorf("readPage %d: %w", i, err)
	}
	d.cursor = i
	return nil
}

// WritePage overwrites page i. When i equals TotalPages the device
// appends a new page; otherwise i must already be allocated.
func (d *Device) WritePage(i PageId, in []byte) error {
	if len(in) != PageSize {
		return fmt.Errorf("writePage %d: buffer must be %d bytes", i, PageSize)
	}
	if i > d.totalPages {
		return fmt.Errorf("writePage %d of %d: %w", i, d.totalPages, common.ErrWriteFailed)
	}

	if _, err := d.file.WriteAt(in, int64(i)*PageSize); err != nil {
		return fmt.Errorf("writePage %d: %w: %v", i, common.ErrWriteFailed, err)
	}
	if i == d.totalPages {
		d.totalPages++
	}
	d.cursor = i
	return nil
}

// AppendEmpty appends one zero-filled page and returns its id.
func (d *Device) AppendEmpty() (PageId, error) {
	zero := make([]byte, PageSize)
	id := d.totalPages
	if err := d.WritePage(id, zero); err != nil {
		return 0, err
	}
	return id, nil
}

// EnsureCapacity appends pages until TotalPages >= k.
func (d *Device) EnsureCapacity(k uint32) error {
	for d.totalPages < k {
		if _, err := d.AppendEmpty(); err != nil {
			return err
		}
	}
	return nil
}

// Cursor returns the last page touched by a read or write.
func (d *Device) Cursor() uint32 {
	return d.cursor
}

// ReadFirst reads page 0.
func (d *Device) ReadFirst(out []byte) error { return d.ReadPage(0, out) }

// ReadCurrent reads the page at the cursor.
func (d *Device) ReadCurrent(out []byte) error { return d.ReadPage(d.cursor, out) }

// ReadNext reads the page following the cursor.
func (d *Device) ReadNext(out []byte) error { return d.ReadPage(d.cursor+1, out) }

// ReadPrev reads the page preceding the cursor.
func (d *Device) ReadPrev(out []byte) error {
	if d.cursor == 0 {
		return fmt.Errorf("readPrev: %w", common.ErrReadNonExisting)
	}
	return d.ReadPage(d.cursor-1, out)
}

// ReadLast reads the last allocated page.
func (d *Device) ReadLast(out []byte) error {
	if d.totalPages == 0 {
		return fmt.Errorf("readLast: %w", common.ErrReadNonExisting)
	}
	return d.ReadPage(d.totalPages-1, out)
}
