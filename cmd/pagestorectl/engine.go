package main

import (
	"fmt"
	"path/filepath"

	"github.com/ado-labs/pagestore/index"
	"github.com/ado-labs/pagestore/record"
	"github.com/ado-labs/pagestore/value"
	"go.uber.org/zap"
)

// demoSchema is the fixed two-column table pagestorectl operates on: an
// int32 id (the key the index is built over) and a short string value.
func demoSchema() record.Schema {
	return record.Schema{
		Attrs: []record.Attr{
			{Name: "id", Type: value.Int32},
			{Name: "value", Type: value.String, Length: 120},
		},
		KeyAttr: 0,
	}
}

const demoIndexOrder = 30 // n in Create(name, keyType, n); actual order is n+2

// engine wires the record store and its key index together: the index
// maps id -> RID, the record store maps RID -> tuple bytes. Neither
// layer knows about the other; engine is the glue a real caller would
// write to compose them the same way buffer sits between index and
// device.
type engine struct {
	store *record.Store
	idx   *index.Tree
	log   *zap.Logger
}

func dataPath(dir string) string  { return filepath.Join(dir, "data.rec") }
func indexPath(dir string) string { return filepath.Join(dir, "index.btr") }

func createEngine(dir string, log *zap.Logger) (*engine, error) {
	store, err := record.Create(dataPath(dir), demoSchema(), record.WithLogger(log))
	if err != nil {
		return nil, fmt.Errorf("create data file: %w", err)
	}
	idx, err := index.Create(indexPath(dir), value.Int32, demoIndexOrder, index.WithLogger(log))
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("create index file: %w", err)
	}
	return &engine{store: store, idx: idx, log: log}, nil
}

func openEngine(dir string, log *zap.Logger) (*engine, error) {
	store, err := record.Open(dataPath(dir), record.WithLogger(log))
	if err != nil {
		return nil, fmt.Errorf("open data file: %w", err)
	}
	idx, err := index.Open(indexPath(dir), value.Int32, demoIndexOrder, index.WithLogger(log))
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("open index file: %w", err)
	}
	// The index never persists: rebuild it from the record
	// store's live tuples every time the database is opened.
	sc, err := store.OpenScan(nil)
	if err == nil {
		for {
			rid, tuple, err := sc.NextTuple()
			if err != nil {
				break
			}
			if ierr := idx.Insert(tuple[0], rid); ierr != nil {
				sc.CloseScan()
				store.Close()
				return nil, fmt.Errorf("rebuild index: %w", ierr)
			}
		}
		sc.CloseScan()
	}
	return &engine{store: store, idx: idx, log: log}, nil
}

func (e *engine) close() error {
	if err := e.idx.Close(); err != nil {
		return err
	}
	return e.store.Close()
}

func (e *engine) put(id int32, val string) error {
	key := value.NewInt32(id)
	if rid, err := e.idx.Find(key); err == nil {
		return e.store.UpdateTuple(rid, []value.Value{key, value.NewString(val)})
	}
	rid, err := e.store.InsertTuple([]value.Value{key, value.NewString(val)})
	if err != nil {
		return err
	}
	return e.idx.Insert(key, rid)
}

func (e *engine) get(id int32) (string, error) {
	rid, err := e.idx.Find(value.NewInt32(id))
	if err != nil {
		return "", err
	}
	tuple, err := e.store.GetTuple(rid)
	if err != nil {
		return "", err
	}
	return tuple[1].S, nil
}

func (e *engine) delete(id int32) error {
	key := value.NewInt32(id)
	rid, err := e.idx.Find(key)
	if err != nil {
		return err
	}
	if err := e.store.DeleteTuple(rid); err != nil {
		return err
	}
	return e.idx.DeleteKey(key)
}

type row struct {
	ID    int32
	Value string
}

// scanOrdered walks every entry in ascending key order via the index,
// fetching each tuple's current value from the record store.
func (e *engine) scanOrdered() ([]row, error) {
	sc, err := e.idx.OpenScan()
	if err != nil {
		return nil, err
	}
	defer sc.CloseScan()

	var rows []row
	for {
		k, rid, err := sc.NextEntry()
		if err != nil {
			break
		}
		tuple, err := e.store.GetTuple(rid)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row{ID: k.I, Value: tuple[1].S})
	}
	return rows, nil
}
