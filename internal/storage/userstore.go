package storage

import (
	"fmt"
	"sync"

	"github.com/brightledger/matchengine/internal/applog"
	"github.com/brightledger/matchengine/internal/cache"
	"github.com/brightledger/matchengine/internal/diskstore"
	"github.com/brightledger/matchengine/internal/domain"
	"github.com/brightledger/matchengine/internal/offset"
	"github.com/brightledger/matchengine/internal/records"
)

const userIndexMagic = "UIDX"

// userCacheCapacity bounds the in-memory hot-user cache fronting
// LoadByID, mirroring the original engine's userCache sizing.
const userCacheCapacity = 100

// DiskUserStore is the disk-first UserStore, indexed by user id.
type DiskUserStore struct {
	mu      sync.RWMutex
	file    *diskstore.Store
	idxPath string
	byID    map[string]offset.Offset
	cache   *cache.LRU[string, *domain.User]
}

// OpenUserStore opens (or creates) the user data file and loads/rebuilds
// its index sidecar.
func OpenUserStore(dataPath, idxPath string) (*DiskUserStore, error) {
	f, err := diskstore.Open(dataPath)
	if err != nil {
		return nil, err
	}
	s := &DiskUserStore{
		file:    f,
		idxPath: idxPath,
		byID:    make(map[string]offset.Offset),
		cache:   cache.New[string, *domain.User](userCacheCapacity),
	}
	if err := s.loadIndex(); err != nil {
		applog.Warn("user index sidecar unusable, rebuilding from data file", applog.Fields{"error": err.Error()})
		if err := s.rebuildIndex(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *DiskUserStore) loadIndex() error {
	f, r, err := openSidecarReader(s.idxPath)
	if err != nil {
		return err
	}
	defer f.Close()

	magic := make([]byte, len(userIndexMagic))
	if _, err := r.Read(magic); err != nil {
		return fmt.Errorf("user index: read magic: %w", err)
	}
	if string(magic) != userIndexMagic {
		return fmt.Errorf("user index: bad magic %q", magic)
	}
	count, err := readCount(r)
	if err != nil {
		return fmt.Errorf("user index: read count: %w", err)
	}

	byID := make(map[string]offset.Offset, count)
	for i := uint64(0); i < count; i++ {
		id, err := readStr(r, maxSidecarString)
		if err != nil {
			return fmt.Errorf("user index: entry %d: %w", i, err)
		}
		off, err := readU64(r)
		if err != nil {
			return fmt.Errorf("user index: entry %d: %w", i, err)
		}
		byID[id] = offset.FromStored(off)
	}

	expected := s.file.RecordCount(records.UserSize)
	if int64(count) > expected {
		return fmt.Errorf("user index: count %d exceeds data file record count %d", count, expected)
	}
	s.byID = byID
	return nil
}

func (s *DiskUserStore) rebuildIndex() error {
	byID := make(map[string]offset.Offset)
	size := s.file.Size()
	var raw int64
	for raw+int64(records.UserSize) <= size {
		b, err := s.file.ReadAt(raw, records.UserSize)
		if err != nil {
			applog.Warn("user data file truncated mid-record, stopping scan", applog.Fields{"offset": raw})
			break
		}
		u, err := records.DecodeUser(b)
		if err != nil {
			applog.Warn("user record failed to decode during rebuild, stopping scan", applog.Fields{"offset": raw, "error": err.Error()})
			break
		}
		byID[u.ID] = offset.New(raw)
		raw += int64(records.UserSize)
	}
	s.byID = byID
	return s.saveIndexLocked()
}

func (s *DiskUserStore) saveIndexLocked() error {
	f, w, err := openSidecarWriter(s.idxPath)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := w.WriteString(userIndexMagic); err != nil {
		return err
	}
	if err := writeU64(w, uint64(len(s.byID))); err != nil {
		return err
	}
	for id, off := range s.byID {
		if err := writeStr(w, id); err != nil {
			return err
		}
		if err := writeU64(w, off.Stored()); err != nil {
			return err
		}
	}
	return w.Flush()
}

// Persist appends u as a new record.
func (s *DiskUserStore) Persist(u *domain.User) (offset.Offset, error) {
	b, err := records.EncodeUser(u)
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
	s.byID[u.ID] = off
	if err := s.saveIndexLocked(); err != nil {
		applog.Warn("user index save failed after persist", applog.Fields{"error": err.Error()})
	}
	s.cache.Put(u.ID, u.Clone())
	return off, nil
}

// Load reads the user at off.
func (s *DiskUserStore) Load(off offset.Offset) (*domain.User, error) {
	if !off.Valid() {
		return nil, fmt.Errorf("storage: load user: invalid offset")
	}
	b, err := s.file.ReadAt(off.Raw(), records.UserSize)
	if err != nil {
		return nil, err
	}
	return records.DecodeUser(b)
}

// LoadByID looks the user up by id via the index, then loads it, serving
// from the hot-user cache when possible.
func (s *DiskUserStore) LoadByID(id string) (*domain.User, offset.Offset, bool, error) {
	s.mu.RLock()
	off, ok := s.byID[id]
	s.mu.RUnlock()
	if !ok {
		return nil, offset.None, false, nil
	}
	if cached, hit := s.cache.Get(id); hit {
		return cached.Clone(), off, true, nil
	}
	u, err := s.Load(off)
	if err != nil {
		return nil, offset.None, false, err
	}
	s.cache.Put(id, u.Clone())
	return u, off, true, nil
}

// Exists reports whether id is known to the index.
func (s *DiskUserStore) Exists(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byID[id]
	return ok
}

// Update rewrites u in place at off.
func (s *DiskUserStore) Update(u *domain.User, off offset.Offset) error {
	b, err := records.EncodeUser(u)
	if err != nil {
		return err
	}
	if err := s.file.OverwriteAt(off.Raw(), b); err != nil {
		return err
	}
	s.cache.Put(u.ID, u.Clone())
	return nil
}

// LoadAll returns every user on disk.
func (s *DiskUserStore) LoadAll() ([]*domain.User, error) {
	s.mu.RLock()
	ids := make([]string, 0, len(s.byID))
	for id := range s.byID {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	out := make([]*domain.User, 0, len(ids))
	for _, id := range ids {
		u, _, ok, err := s.LoadByID(id)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, u)
		}
	}
	return out, nil
}

// Close flushes the sidecar and closes the data file.
func (s *DiskUserStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.saveIndexLocked(); err != nil {
		applog.Warn("user index flush on close failed", applog.Fields{"error": err.Error()})
	}
	return s.file.Close()
}
