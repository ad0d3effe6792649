package storage

import (
	"fmt"
	"sync"

	"github.com/brightledger/matchengine/internal/applog"
	"github.com/brightledger/matchengine/internal/diskstore"
	"github.com/brightledger/matchengine/internal/domain"
	"github.com/brightledger/matchengine/internal/offset"
	"github.com/brightledger/matchengine/internal/records"
)

const tradeIndexMagic = "TIDX"

// DiskTradeStore is the disk-first TradeStore. Trades are append-only and
// never mutated, so the index only ever grows by appending.
type DiskTradeStore struct {
	mu      sync.RWMutex
	file    *diskstore.Store
	idxPath string
	byID    map[uint64]offset.Offset
	byUser  map[string][]uint64
}

// OpenTradeStore opens (or creates) the trade data file and loads/rebuilds
// its index sidecar.
func OpenTradeStore(dataPath, idxPath string) (*DiskTradeStore, error) {
	f, err := diskstore.Open(dataPath)
	if err != nil {
		return nil, err
	}
	s := &DiskTradeStore{
		file:    f,
		idxPath: idxPath,
		byID:    make(map[uint64]offset.Offset),
		byUser:  make(map[string][]uint64),
	}
	if err := s.loadIndex(); err != nil {
		applog.Warn("trade index sidecar unusable, rebuilding from data file", applog.Fields{"error": err.Error()})
		if err := s.rebuildIndex(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *DiskTradeStore) loadIndex() error {
	f, r, err := openSidecarReader(s.idxPath)
	if err != nil {
		return err
	}
	defer f.Close()

	magic := make([]byte, len(tradeIndexMagic))
	if _, err := r.Read(magic); err != nil {
		return fmt.Errorf("trade index: read magic: %w", err)
	}
	if string(magic) != tradeIndexMagic {
		return fmt.Errorf("trade index: bad magic %q", magic)
	}
	count, err := readCount(r)
	if err != nil {
		return fmt.Errorf("trade index: read count: %w", err)
	}

	byID := make(map[uint64]offset.Offset, count)
	for i := uint64(0); i < count; i++ {
		id, err := readU64(r)
		if err != nil {
			return fmt.Errorf("trade index: entry %d: %w", i, err)
		}
		off, err := readU64(r)
		if err != nil {
			return fmt.Errorf("trade index: entry %d: %w", i, err)
		}
		byID[id] = offset.FromStored(off)
	}

	expected := s.file.RecordCount(records.TradeSize)
	if int64(count) > expected {
		return fmt.Errorf("trade index: count %d exceeds data file record count %d", count, expected)
	}

	// byUser is derived from the data file rather than stored in the
	// sidecar (the on-disk TradeRecord already carries both user ids).
	byUser, err := s.deriveUserIndex(byID)
	if err != nil {
		return err
	}
	s.byID, s.byUser = byID, byUser
	return nil
}

func (s *DiskTradeStore) deriveUserIndex(byID map[uint64]offset.Offset) (map[string][]uint64, error) {
	byUser := make(map[string][]uint64)
	for id, off := range byID {
		b, err := s.file.ReadAt(off.Raw(), records.TradeSize)
		if err != nil {
			return nil, err
		}
		t, err := records.DecodeTrade(b)
		if err != nil {
			return nil, err
		}
		byUser[t.BuyUserID] = append(byUser[t.BuyUserID], id)
		byUser[t.SellUserID] = append(byUser[t.SellUserID], id)
	}
	return byUser, nil
}

func (s *DiskTradeStore) rebuildIndex() error {
	byID := make(map[uint64]offset.Offset)
	byUser := make(map[string][]uint64)

	size := s.file.Size()
	var raw int64
	for raw+int64(records.TradeSize) <= size {
		b, err := s.file.ReadAt(raw, records.TradeSize)
		if err != nil {
			applog.Warn("trade data file truncated mid-record, stopping scan", applog.Fields{"offset": raw})
			break
		}
		t, err := records.DecodeTrade(b)
		if err != nil {
			applog.Warn("trade record failed to decode during rebuild, stopping scan", applog.Fields{"offset": raw, "error": err.Error()})
			break
		}
		off := offset.New(raw)
		byID[t.ID] = off
		byUser[t.BuyUserID] = append(byUser[t.BuyUserID], t.ID)
		byUser[t.SellUserID] = append(byUser[t.SellUserID], t.ID)
		raw += int64(records.TradeSize)
	}

	s.byID, s.byUser = byID, byUser
	return s.saveIndexLocked()
}

func (s *DiskTradeStore) saveIndexLocked() error {
	f, w, err := openSidecarWriter(s.idxPath)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := w.WriteString(tradeIndexMagic); err != nil {
		return err
	}
	if err := writeU64(w, uint64(len(s.byID))); err != nil {
		return err
	}
	for id, off := range s.byID {
		if err := writeU64(w, id); err != nil {
			return err
		}
		if err := writeU64(w, off.Stored()); err != nil {
			return err
		}
	}
	return w.Flush()
}

// Persist appends t as a new record.
func (s *DiskTradeStore) Persist(t *domain.Trade) (offset.Offset, error) {
	b, err := records.EncodeTrade(t)
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
	s.byID[t.ID] = off
	s.byUser[t.BuyUserID] = append(s.byUser[t.BuyUserID], t.ID)
	s.byUser[t.SellUserID] = append(s.byUser[t.SellUserID], t.ID)
	if err := s.saveIndexLocked(); err != nil {
		applog.Warn("trade index save failed after persist", applog.Fields{"error": err.Error()})
	}
	return off, nil
}

// Load reads the trade at off.
func (s *DiskTradeStore) Load(off offset.Offset) (*domain.Trade, error) {
	if !off.Valid() {
		return nil, fmt.Errorf("storage: load trade: invalid offset")
	}
	b, err := s.file.ReadAt(off.Raw(), records.TradeSize)
	if err != nil {
		return nil, err
	}
	return records.DecodeTrade(b)
}

// LoadByID looks the trade up by id via the index, then loads it.
func (s *DiskTradeStore) LoadByID(id uint64) (*domain.Trade, bool, error) {
	s.mu.RLock()
	off, ok := s.byID[id]
	s.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	t, err := s.Load(off)
	if err != nil {
		return nil, false, err
	}
	return t, true, nil
}

// LoadForUser returns every trade involving userID as buyer or seller.
func (s *DiskTradeStore) LoadForUser(userID string) ([]*domain.Trade, error) {
	s.mu.RLock()
	ids := append([]uint64(nil), s.byUser[userID]...)
	s.mu.RUnlock()

	out := make([]*domain.Trade, 0, len(ids))
	for _, id := range ids {
		t, ok, err := s.LoadByID(id)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, t)
		}
	}
	return out, nil
}

// LoadAll returns every trade on disk.
func (s *DiskTradeStore) LoadAll() ([]*domain.Trade, error) {
	s.mu.RLock()
	ids := make([]uint64, 0, len(s.byID))
	for id := range s.byID {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	out := make([]*domain.Trade, 0, len(ids))
	for _, id := range ids {
		t, ok, err := s.LoadByID(id)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, t)
		}
	}
	return out, nil
}

// Close flushes the sidecar and closes the data file.
func (s *DiskTradeStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.saveIndexLocked(); err != nil {
		applog.Warn("trade index flush on close failed", applog.Fields{"error": err.Error()})
	}
	return s.file.Close()
}
