package storage

import (
	"fmt"
	"sort"
	"sync"

	"github.com/brightledger/matchengine/internal/applog"
	"github.com/brightledger/matchengine/internal/cache"
	"github.com/brightledger/matchengine/internal/diskstore"
	"github.com/brightledger/matchengine/internal/domain"
	"github.com/brightledger/matchengine/internal/offset"
	"github.com/brightledger/matchengine/internal/records"
)

const orderIndexMagic = "OIDX"

// orderCacheCapacity bounds the in-memory hot-order cache fronting
// LoadByID, mirroring the original engine's orderCache sizing.
const orderCacheCapacity = 1000

type orderIndexEntry struct {
	ID     uint64
	Offset offset.Offset
	Symbol string
	User   string
}

// DiskOrderStore is the disk-first OrderStore: fixed-width records
// appended to a data file, with an in-memory id/symbol/user index backed
// by a sidecar that is always safe to discard and rebuild.
type DiskOrderStore struct {
	mu       sync.RWMutex
	file     *diskstore.Store
	idxPath  string
	byID     map[uint64]offset.Offset
	bySymbol map[string][]uint64
	byUser   map[string][]uint64
	cache    *cache.LRU[uint64, *domain.Order]
}

// OpenOrderStore opens (or creates) the order data file at dataPath and
// loads/rebuilds its index sidecar at idxPath.
func OpenOrderStore(dataPath, idxPath string) (*DiskOrderStore, error) {
	f, err := diskstore.Open(dataPath)
	if err != nil {
		return nil, err
	}
	s := &DiskOrderStore{
		file:     f,
		idxPath:  idxPath,
		byID:     make(map[uint64]offset.Offset),
		bySymbol: make(map[string][]uint64),
		byUser:   make(map[string][]uint64),
		cache:    cache.New[uint64, *domain.Order](orderCacheCapacity),
	}
	if err := s.loadIndex(); err != nil {
		applog.Warn("order index sidecar unusable, rebuilding from data file", applog.Fields{"error": err.Error()})
		if err := s.rebuildIndex(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *DiskOrderStore) loadIndex() error {
	f, r, err := openSidecarReader(s.idxPath)
	if err != nil {
		return err
	}
	defer f.Close()

	magic := make([]byte, len(orderIndexMagic))
	if _, err := r.Read(magic); err != nil {
		return fmt.Errorf("order index: read magic: %w", err)
	}
	if string(magic) != orderIndexMagic {
		return fmt.Errorf("order index: bad magic %q", magic)
	}
	count, err := readCount(r)
	if err != nil {
		return fmt.Errorf("order index: read count: %w", err)
	}

	byID := make(map[uint64]offset.Offset, count)
	bySymbol := make(map[string][]uint64)
	byUser := make(map[string][]uint64)
	for i := uint64(0); i < count; i++ {
		id, err := readU64(r)
		if err != nil {
			return fmt.Errorf("order index: entry %d: %w", i, err)
		}
		off, err := readU64(r)
		if err != nil {
			return fmt.Errorf("order index: entry %d: %w", i, err)
		}
		sym, err := readStr(r, maxSidecarString)
		if err != nil {
			return fmt.Errorf("order index: entry %d: %w", i, err)
		}
		user, err := readStr(r, maxSidecarString)
		if err != nil {
			return fmt.Errorf("order index: entry %d: %w", i, err)
		}
		byID[id] = offset.FromStored(off)
		bySymbol[sym] = append(bySymbol[sym], id)
		byUser[user] = append(byUser[user], id)
	}

	expected := s.file.RecordCount(records.OrderSize)
	if int64(count) > expected {
		return fmt.Errorf("order index: count %d exceeds data file record count %d", count, expected)
	}

	s.byID, s.bySymbol, s.byUser = byID, bySymbol, byUser
	return nil
}

// rebuildIndex re-derives the index by scanning the data file from the
// start, stopping at the first short (truncated) record.
func (s *DiskOrderStore) rebuildIndex() error {
	byID := make(map[uint64]offset.Offset)
	bySymbol := make(map[string][]uint64)
	byUser := make(map[string][]uint64)

	size := s.file.Size()
	var raw int64
	for raw+int64(records.OrderSize) <= size {
		b, err := s.file.ReadAt(raw, records.OrderSize)
		if err != nil {
			applog.Warn("order data file truncated mid-record, stopping scan", applog.Fields{"offset": raw})
			break
		}
		o, err := records.DecodeOrder(b)
		if err != nil {
			applog.Warn("order record failed to decode during rebuild, stopping scan", applog.Fields{"offset": raw, "error": err.Error()})
			break
		}
		off := offset.New(raw)
		byID[o.ID] = off
		bySymbol[o.Symbol] = append(bySymbol[o.Symbol], o.ID)
		byUser[o.UserID] = append(byUser[o.UserID], o.ID)
		raw += int64(records.OrderSize)
	}

	s.byID, s.bySymbol, s.byUser = byID, bySymbol, byUser
	return s.saveIndexLocked()
}

func (s *DiskOrderStore) saveIndexLocked() error {
	f, w, err := openSidecarWriter(s.idxPath)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := w.WriteString(orderIndexMagic); err != nil {
		return err
	}
	if err := writeU64(w, uint64(len(s.byID))); err != nil {
		return err
	}

	// Need symbol/user per id; invert bySymbol/byUser for the write path.
	symOf := make(map[uint64]string, len(s.byID))
	for sym, ids := range s.bySymbol {
		for _, id := range ids {
			symOf[id] = sym
		}
	}
	userOf := make(map[uint64]string, len(s.byID))
	for user, ids := range s.byUser {
		for _, id := range ids {
			userOf[id] = user
		}
	}

	for id, off := range s.byID {
		if err := writeU64(w, id); err != nil {
			return err
		}
		if err := writeU64(w, off.Stored()); err != nil {
			return err
		}
		if err := writeStr(w, symOf[id]); err != nil {
			return err
		}
		if err := writeStr(w, userOf[id]); err != nil {
			return err
		}
	}
	return w.Flush()
}

// Persist appends o as a new record and updates the index.
func (s *DiskOrderStore) Persist(o *domain.Order) (offset.Offset, error) {
	b, err := records.EncodeOrder(o)
	if err != nil {
		return offset.None, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := s.file.Append(b)
	if err != nil {
		return offset.None, err
	}
	off := offset.New(raw)
	s.byID[o.ID] = off
	s.bySymbol[o.Symbol] = append(s.bySymbol[o.Symbol], o.ID)
	s.byUser[o.UserID] = append(s.byUser[o.UserID], o.ID)
	if err := s.saveIndexLocked(); err != nil {
		applog.Warn("order index save failed after persist", applog.Fields{"error": err.Error()})
	}
	s.cache.Put(o.ID, o.Clone())
	return off, nil
}

// Load reads the order at off without consulting the index.
func (s *DiskOrderStore) Load(off offset.Offset) (*domain.Order, error) {
	if !off.Valid() {
		return nil, fmt.Errorf("storage: load order: invalid offset")
	}
	b, err := s.file.ReadAt(off.Raw(), records.OrderSize)
	if err != nil {
		return nil, err
	}
	return records.DecodeOrder(b)
}

// LoadByID looks the order up by id via the index, then loads it, serving
// from the hot-order cache when possible.
func (s *DiskOrderStore) LoadByID(id uint64) (*domain.Order, offset.Offset, bool, error) {
	s.mu.RLock()
	off, ok := s.byID[id]
	s.mu.RUnlock()
	if !ok {
		return nil, offset.None, false, nil
	}
	if cached, hit := s.cache.Get(id); hit {
		return cached.Clone(), off, true, nil
	}
	o, err := s.Load(off)
	if err != nil {
		return nil, offset.None, false, err
	}
	s.cache.Put(id, o.Clone())
	return o, off, true, nil
}

// Exists reports whether id is known to the index.
func (s *DiskOrderStore) Exists(id uint64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byID[id]
	return ok
}

// Update rewrites o in place at off; indexes are unchanged (symbol/user/id
// never change across an update).
func (s *DiskOrderStore) Update(o *domain.Order, off offset.Offset) error {
	b, err := records.EncodeOrder(o)
	if err != nil {
		return err
	}
	if err := s.file.OverwriteAt(off.Raw(), b); err != nil {
		return err
	}
	s.cache.Put(o.ID, o.Clone())
	return nil
}

// LoadForSymbol returns every order ever submitted for symbol, in the
// order their ids were assigned.
func (s *DiskOrderStore) LoadForSymbol(symbol string) ([]*domain.Order, error) {
	s.mu.RLock()
	ids := append([]uint64(nil), s.bySymbol[symbol]...)
	s.mu.RUnlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return s.loadMany(ids)
}

// LoadForUser returns every order submitted by userID.
func (s *DiskOrderStore) LoadForUser(userID string) ([]*domain.Order, error) {
	s.mu.RLock()
	ids := append([]uint64(nil), s.byUser[userID]...)
	s.mu.RUnlock()
	return s.loadMany(ids)
}

// LoadAll returns every order on disk.
func (s *DiskOrderStore) LoadAll() ([]*domain.Order, error) {
	s.mu.RLock()
	ids := make([]uint64, 0, len(s.byID))
	for id := range s.byID {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	return s.loadMany(ids)
}

func (s *DiskOrderStore) loadMany(ids []uint64) ([]*domain.Order, error) {
	out := make([]*domain.Order, 0, len(ids))
	for _, id := range ids {
		o, _, ok, err := s.LoadByID(id)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, o)
		}
	}
	return out, nil
}

// Close flushes the sidecar and closes the data file.
func (s *DiskOrderStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.saveIndexLocked(); err != nil {
		applog.Warn("order index flush on close failed", applog.Fields{"error": err.Error()})
	}
	return s.file.Close()
}
