package record

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/ado-labs/pagestore/buffer"
	"github.com/ado-labs/pagestore/common"
	"github.com/ado-labs/pagestore/storage"
	"github.com/ado-labs/pagestore/value"
	"go.uber.org/zap"
)

const (
	tombstoneLive    = '+'
	tombstoneDeleted = '-'

	// headerFixedSize is numTuples, firstFreePage, numAttrs, keyAttr,
	// each a little-endian int32 in the page-0 schema header.
	headerFixedSize = 4 * 4
	// headerAttrSize is one attribute descriptor: a 15-byte padded name,
	// an int32 datatype tag and an int32 length.
	headerAttrSize = maxAttrNameLen + 4 + 4

	defaultPoolFrames = 16
)

// Store is one fixed-schema table.
type Store struct {
	device *storage.Device
	pool   *buffer.Pool
	schema Schema

	numTuples     int32
	firstFreePage int32
	slotsPerPage  int32
	recordSize    int32

	log *zap.Logger
}

// Option configures a Store at construction time.
type Option func(*storeConfig)

type storeConfig struct {
	poolFrames int
	log        *zap.Logger
}

// WithPoolFrames sets how many buffer-pool frames back the store.
func WithPoolFrames(n int) Option {
	return func(c *storeConfig) { c.poolFrames = n }
}

// WithLogger attaches a structured logger; the zero value logs nothing.
func WithLogger(l *zap.Logger) Option {
	return func(c *storeConfig) { c.log = l }
}

func resolveConfig(opts []Option) storeConfig {
	c := storeConfig{poolFrames: defaultPoolFrames}
	for _, opt := range opts {
		opt(&c)
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}
	return c
}

// Create makes a new table file with an empty page-0 header.
func Create(name string, schema Schema, opts ...Option) (*Store, error) {
	if err := schema.validate(); err != nil {
		return nil, err
	}
	cfg := resolveConfig(opts)

	device, err := storage.Create(name)
	if err != nil {
		return nil, err
	}
	pool, err := buffer.New(device, cfg.poolFrames, buffer.NewFIFO())
	if err != nil {
		device.Close()
		return nil, err
	}

	s := &Store{
		device:        device,
		pool:          pool,
		schema:        schema,
		firstFreePage: 1,
		slotsPerPage:  storage.PageSize / schema.recordSize(),
		recordSize:    schema.recordSize(),
		log:           cfg.log,
	}
	if s.slotsPerPage < 1 {
		return nil, fmt.Errorf("record store %q: record size %d exceeds page size", name, s.recordSize)
	}
	if err := s.writeHeader(); err != nil {
		return nil, err
	}
	return s, nil
}

// Open reopens an existing table file, reading the schema back out of
// its page-0 header.
func Open(name string, opts ...Option) (*Store, error) {
	cfg := resolveConfig(opts)

	device, err := storage.Open(name)
	if err != nil {
		return nil, err
	}
	pool, err := buffer.New(device, cfg.poolFrames, buffer.NewFIFO())
	if err != nil {
		device.Close()
		return nil, err
	}

	s := &Store{device: device, pool: pool, log: cfg.log}
	if err := s.readHeader(); err != nil {
		return nil, err
	}
	s.recordSize = s.schema.recordSize()
	s.slotsPerPage = storage.PageSize / s.recordSize
	return s, nil
}

// Close shuts the backing buffer pool and device down.
func (s *Store) Close() error {
	if err := s.pool.Shutdown(); err != nil {
		return err
	}
	return s.device.Close()
}

// Schema returns the table's column layout.
func (s *Store) Schema() Schema { return s.schema }

// NumTuples reports how many live tuples the table holds.
func (s *Store) NumTuples() int32 { return s.numTuples }

// PoolStats reports the backing buffer pool's cumulative I/O counters.
func (s *Store) PoolStats() common.PoolStats { return s.pool.Stats() }

func (s *Store) writeHeader() error {
	h, err := s.pool.Pin(0)
	if err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	defer h.Unpin()

	buf := h.Data()
	for i := range buf {
		buf[i] = 0
	}
	binary.LittleEndian.PutUint32(buf[0:4], uint32(s.numTuples))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(s.firstFreePage))
	binary.LittleEndian.PutUint32(buf[8:12], uint32(len(s.schema.Attrs)))
	binary.LittleEndian.PutUint32(buf[12:16], uint32(s.schema.KeyAttr))

	off := headerFixedSize
	for _, a := range s.schema.Attrs {
		copy(buf[off:off+maxAttrNameLen], a.Name)
		binary.LittleEndian.PutUint32(buf[off+maxAttrNameLen:off+maxAttrNameLen+4], uint32(a.Type))
		binary.LittleEndian.PutUint32(buf[off+maxAttrNameLen+4:off+headerAttrSize], uint32(a.Length))
		off += headerAttrSize
	}
	return h.MarkDirty()
}

func (s *Store) readHeader() error {
	h, err := s.pool.Pin(0)
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	defer h.Unpin()

	buf := h.Data()
	s.numTuples = int32(binary.LittleEndian.Uint32(buf[0:4]))
	s.firstFreePage = int32(binary.LittleEndian.Uint32(buf[4:8]))
	numAttrs := int(binary.LittleEndian.Uint32(buf[8:12]))
	keyAttr := int(binary.LittleEndian.Uint32(buf[12:16]))

	attrs := make([]Attr, numAttrs)
	off := headerFixedSize
	for i := 0; i < numAttrs; i++ {
		nameBytes := buf[off : off+maxAttrNameLen]
		end := len(nameBytes)
		for end > 0 && nameBytes[end-1] == 0 {
			end--
		}
		typ := value.Type(binary.LittleEndian.Uint32(buf[off+maxAttrNameLen : off+maxAttrNameLen+4]))
		length := int32(binary.LittleEndian.Uint32(buf[off+maxAttrNameLen+4 : off+headerAttrSize]))
		attrs[i] = Attr{Name: string(nameBytes[:end]), Type: typ, Length: length}
		off += headerAttrSize
	}
	s.schema = Schema{Attrs: attrs, KeyAttr: keyAttr}
	return nil
}

// writeValue encodes every fixed-width kind except String, whose width
// depends on the schema rather than the value; writeTuple handles
// String columns itself since it already has the attribute in hand.
func writeValue(buf []byte, off int32, v value.Value) {
	switch v.Kind {
	case value.Int32:
		binary.LittleEndian.PutUint32(buf[off:off+4], uint32(v.I))
	case value.Float32:
		binary.LittleEndian.PutUint32(buf[off:off+4], math.Float32bits(v.F))
	case value.Bool:
		if v.B {
			buf[off] = 1
		} else {
			buf[off] = 0
		}
	}
}

func readValue(buf []byte, off int32, a Attr) value.Value {
	switch a.Type {
	case value.Int32:
		return value.NewInt32(int32(binary.LittleEndian.Uint32(buf[off : off+4])))
	case value.Float32:
		return value.NewFloat32(math.Float32frombits(binary.LittleEndian.Uint32(buf[off : off+4])))
	case value.Bool:
		return value.NewBool(buf[off] != 0)
	case value.String:
		raw := buf[off : off+a.Length]
		end := len(raw)
		for end > 0 && raw[end-1] == 0 {
			end--
		}
		return value.NewString(string(raw[:end]))
	default:
		return value.Value{}
	}
}

func (s *Store) writeTuple(buf []byte, slotOff int32, tuple []value.Value) {
	buf[slotOff] = tombstoneLive
	off := slotOff + 1
	for i, a := range s.schema.Attrs {
		v := tuple[i]
		if a.Type == value.String {
			n := copy(buf[off:off+a.Length], v.S)
			for j := off + int32(n); j < off+a.Length; j++ {
				buf[j] = 0
			}
		} else {
			writeValue(buf, off, v)
		}
		off += attrSize(a)
	}
}

func (s *Store) readTuple(buf []byte, slotOff int32) []value.Value {
	out := make([]value.Value, len(s.schema.Attrs))
	off := slotOff + 1
	for i, a := range s.schema.Attrs {
		out[i] = readValue(buf, off, a)
		off += attrSize(a)
	}
	return out
}

func (s *Store) validateTuple(tuple []value.Value) error {
	if len(tuple) != len(s.schema.Attrs) {
		return fmt.Errorf("tuple has %d values, schema has %d attributes", len(tuple), len(s.schema.Attrs))
	}
	for i, a := range s.schema.Attrs {
		if tuple[i].Kind != a.Type {
			return fmt.Errorf("attribute %q: value kind %s does not match schema type %s", a.Name, tuple[i].Kind, a.Type)
		}
	}
	return nil
}

// InsertTuple stores tuple, reusing a tombstoned slot if one is found
// starting from the cached first-free-page hint, otherwise appending a
// new page.
func (s *Store) InsertTuple(tuple []value.Value) (common.RID, error) {
	if err := s.validateTuple(tuple); err != nil {
		return common.RID{}, err
	}

	start := s.firstFreePage
	if start < 1 {
		start = 1
	}
	for page := start; uint32(page) < s.device.TotalPages(); page++ {
		rid, ok, err := s.tryInsertInPage(uint32(page), tuple)
		if err != nil {
			return common.RID{}, err
		}
		if ok {
			return rid, nil
		}
		s.firstFreePage = page + 1
	}

	newPage, err := s.device.AppendEmpty()
	if err != nil {
		return common.RID{}, err
	}
	rid, ok, err := s.tryInsertInPage(newPage, tuple)
	if err != nil {
		return common.RID{}, err
	}
	if !ok {
		return common.RID{}, fmt.Errorf("insertTuple: freshly appended page has no room")
	}
	return rid, nil
}

func (s *Store) tryInsertInPage(page uint32, tuple []value.Value) (common.RID, bool, error) {
	h, err := s.pool.Pin(int64(page))
	if err != nil {
		return common.RID{}, false, fmt.Errorf("insertTuple: %w", err)
	}
	defer h.Unpin()

	buf := h.Data()
	for slot := int32(0); slot < s.slotsPerPage; slot++ {
		off := slot * s.recordSize
		if buf[off] != tombstoneLive {
			s.writeTuple(buf, off, tuple)
			if err := h.MarkDirty(); err != nil {
				return common.RID{}, false, err
			}
			s.numTuples++
			if err := s.writeHeader(); err != nil {
				return common.RID{}, false, err
			}
			return common.RID{Page: page, Slot: uint32(slot)}, true, nil
		}
	}
	return common.RID{}, false, nil
}

func (s *Store) pinSlot(rid common.RID) (*buffer.Handle, int32, error) {
	if rid.Slot >= uint32(s.slotsPerPage) {
		return nil, 0, fmt.Errorf("rid %+v: %w", rid, common.ErrNoTupleWithRid)
	}
	h, err := s.pool.Pin(int64(rid.Page))
	if err != nil {
		return nil, 0, fmt.Errorf("rid %+v: %w", rid, err)
	}
	return h, int32(rid.Slot) * s.recordSize, nil
}

// GetTuple reads the tuple at rid. ErrNoTupleWithRid if the slot is
// empty or tombstoned.
func (s *Store) GetTuple(rid common.RID) ([]value.Value, error) {
	h, off, err := s.pinSlot(rid)
	if err != nil {
		return nil, err
	}
	defer h.Unpin()

	buf := h.Data()
	if buf[off] != tombstoneLive {
		return nil, fmt.Errorf("rid %+v: %w", rid, common.ErrNoTupleWithRid)
	}
	return s.readTuple(buf, off), nil
}

// UpdateTuple overwrites the tuple at rid in place. ErrNoTupleWithRid if
// the slot is empty or tombstoned.
func (s *Store) UpdateTuple(rid common.RID, tuple []value.Value) error {
	if err := s.validateTuple(tuple); err != nil {
		return err
	}
	h, off, err := s.pinSlot(rid)
	if err != nil {
		return err
	}
	defer h.Unpin()

	buf := h.Data()
	if buf[off] != tombstoneLive {
		return fmt.Errorf("rid %+v: %w", rid, common.ErrNoTupleWithRid)
	}
	s.writeTuple(buf, off, tuple)
	return h.MarkDirty()
}

// DeleteTuple tombstones the slot at rid. ErrNoTupleWithRid if the slot
// is already empty or tombstoned.
func (s *Store) DeleteTuple(rid common.RID) error {
	h, off, err := s.pinSlot(rid)
	if err != nil {
		return err
	}
	defer h.Unpin()

	buf := h.Data()
	if buf[off] != tombstoneLive {
		return fmt.Errorf("rid %+v: %w", rid, common.ErrNoTupleWithRid)
	}
	buf[off] = tombstoneDeleted
	if err := h.MarkDirty(); err != nil {
		return err
	}
	s.numTuples--
	if int32(rid.Page) < s.firstFreePage {
		s.firstFreePage = int32(rid.Page)
	}
	return s.writeHeader()
}
