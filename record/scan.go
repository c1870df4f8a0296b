package record

import (
	"fmt"

	"github.com/ado-labs/pagestore/common"
	"github.com/ado-labs/pagestore/value"
)

// CompareOp is the comparison a Condition applies to one attribute.
type CompareOp int

const (
	Eq CompareOp = iota
	Ne
	Lt
	Le
	Gt
	Ge
)

// Condition restricts a scan to tuples whose AttrIndex column compares
// to Operand via Op.
type Condition struct {
	AttrIndex int
	Op        CompareOp
	Operand   value.Value
}

func (c Condition) matches(tuple []value.Value) bool {
	v := tuple[c.AttrIndex]
	cmp := value.Compare(v, c.Operand)
	switch c.Op {
	case Eq:
		return cmp == 0
	case Ne:
		return cmp != 0
	case Lt:
		return cmp < 0
	case Le:
		return cmp <= 0
	case Gt:
		return cmp > 0
	case Ge:
		return cmp >= 0
	default:
		return false
	}
}

// Scan walks live tuples in page/slot order, optionally filtered by a
// Condition.
type Scan struct {
	store *Store
	cond  *Condition
	page  uint32
	slot  int32
}

// OpenScan starts a scan. cond may be nil to visit every live tuple.
// ErrNoRecordsToScan if the table currently holds no live tuples.
func (s *Store) OpenScan(cond *Condition) (*Scan, error) {
	if s.numTuples == 0 {
		return nil, fmt.Errorf("openScan: %w", common.ErrNoRecordsToScan)
	}
	return &Scan{store: s, cond: cond, page: 1, slot: 0}, nil
}

// NextTuple returns the next tuple matching the scan's condition.
// ErrScanConditionNotFound once no further tuple matches (this is the
// scan's end-of-results signal, matching the record store's error
// taxonomy rather than a generic "no more entries").
func (sc *Scan) NextTuple() (common.RID, []value.Value, error) {
	s := sc.store
	for uint32(sc.page) < s.device.TotalPages() {
		h, err := s.pool.Pin(int64(sc.page))
		if err != nil {
			return common.RID{}, nil, fmt.Errorf("scan: %w", err)
		}
		buf := h.Data()
		for sc.slot < s.slotsPerPage {
			off := sc.slot * s.recordSize
			slot := sc.slot
			sc.slot++
			if buf[off] != tombstoneLive {
				continue
			}
			tuple := s.readTuple(buf, off)
			if sc.cond == nil || sc.cond.matches(tuple) {
				rid := common.RID{Page: sc.page, Slot: uint32(slot)}
				h.Unpin()
				return rid, tuple, nil
			}
		}
		h.Unpin()
		sc.page++
		sc.slot = 0
	}
	return common.RID{}, nil, fmt.Errorf("scan: %w", common.ErrScanConditionNotFound)
}

// CloseScan releases the scan's cursor state.
func (sc *Scan) CloseScan() error {
	sc.store = nil
	return nil
}
