package registry

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tobsdb/sqlanalyzer/pkg"
	"github.com/tobsdb/sqlanalyzer/pkg/catalog"
	sorted "github.com/tobshub/go-sortedmap"
)

var ErrInvalidCatalog = errors.New("invalid catalog")

type WriteSettings struct {
	WritePath     string
	InMem         bool
	WriteInterval time.Duration
}

func NewWriteSettings(write_path string, in_mem bool, write_interval_ms int) (*WriteSettings, error) {
	if !in_mem && len(write_path) == 0 {
		return nil, errors.New("must either provide a state dir or use in-memory mode")
	}
	if write_interval_ms <= 0 {
		write_interval_ms = 1000
	}
	write_interval := time.Duration(write_interval_ms) * time.Millisecond
	return &WriteSettings{write_path, in_mem, write_interval}, nil
}

// Entry is one registered catalog.
type Entry struct {
	ID           int64                  `json:"id"`
	Catalog      *catalog.SimpleCatalog `json:"catalog"`
	RegisteredAt time.Time              `json:"registeredAt"`
}

func entryComparisonFunc(a, b *Entry) bool { return a.ID < b.ID }

type Registry struct {
	Locker sync.RWMutex
	// id -> entry, ordered by id
	entries *sorted.SortedMap[int64, *Entry]
	// ids are never reused, even after unregistering
	next_id int64

	WriteSettings *WriteSettings
	LastChange    time.Time
}

func New(write_settings *WriteSettings) (*Registry, error) {
	r := &Registry{
		entries:       sorted.New[int64, *Entry](0, entryComparisonFunc),
		next_id:       1,
		WriteSettings: write_settings,
	}
	if err := r.ReadFromFile(); err != nil {
		return nil, err
	}
	r.LastChange = time.Now()
	return r, nil
}

func (r *Registry) GetLocker() *sync.RWMutex { return &r.Locker }

func (r *Registry) touch() { r.LastChange = time.Now() }

// Register stores cat under a fresh id.
func (r *Registry) Register(cat *catalog.SimpleCatalog) (int64, error) {
	if cat == nil {
		return 0, fmt.Errorf("%w: missing catalog", ErrInvalidCatalog)
	}
	if err := cat.Validate(); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidCatalog, err)
	}

	var id int64
	pkg.LockWrap(r, func() {
		id = r.next_id
		r.next_id++
		r.entries.Insert(id, &Entry{ID: id, Catalog: cat, RegisteredAt: time.Now().UTC()})
		r.touch()
	})
	pkg.InfoLog("registered catalog", cat.Name, "with id", id)
	return id, nil
}

func (r *Registry) Get(id int64) (*catalog.SimpleCatalog, bool) {
	var entry *Entry
	var ok bool
	pkg.RLockWrap(r, func() {
		entry, ok = r.entries.Get(id)
	})
	if !ok {
		return nil, false
	}
	return entry.Catalog, true
}

// Unregister reports whether id was registered.
func (r *Registry) Unregister(id int64) bool {
	var ok bool
	pkg.LockWrap(r, func() {
		ok = r.entries.Delete(id)
		if ok {
			r.touch()
		}
	})
	if ok {
		pkg.InfoLog("unregistered catalog", id)
	}
	return ok
}

// List returns the registered entries in id order.
func (r *Registry) List() []*Entry {
	list := []*Entry{}
	pkg.RLockWrap(r, func() {
		list = r.list()
	})
	return list
}

func (r *Registry) list() []*Entry {
	list := []*Entry{}
	iter_ch, err := r.entries.IterCh()
	if err != nil {
		// empty map
		return list
	}
	for rec := range iter_ch.Records() {
		list = append(list, rec.Val)
	}
	return list
}

func (r *Registry) Len() int {
	return pkg.RLockGet(r, func() int { return r.entries.Len() })
}

func (r *Registry) NextID() int64 {
	return pkg.RLockGet(r, func() int64 { return r.next_id })
}
