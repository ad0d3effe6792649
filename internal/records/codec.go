// Package records defines the fixed-width, little-endian, on-disk layouts
// for orders, trades, users and metadata, and the conversions to/from the
// domain value types. Every struct here is encoded with encoding/binary so
// that field order is the byte order — no implicit padding is introduced
// beyond the reserved bytes the layout itself names.
package records

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/brightledger/matchengine/internal/domain"
)

// MaxHoldings and MaxActiveOrders bound the fixed-size arrays embedded in
// UserWire, matching the source's UserRecord layout.
const (
	MaxHoldings     = 50
	MaxActiveOrders = 100
)

// OrderSize, TradeSize, UserSize and MetadataSize are the exact on-disk
// record widths; callers use them to seek/size data files.
const (
	OrderSize    = 4 + 32 + 8 + 1 + 8 + 4 + 4 + 1 + 8
	TradeSize    = 4 + 4 + 4 + 64 + 64 + 32 + 8 + 4 + 8 + 64
	UserSize     = 64 + 8 + 4 + MaxHoldings*(32+4) + 4 + MaxActiveOrders*4 + 128
	MetadataSize = 4 + 4 + 4 + 4 + 4 + 8 + 256
)

// --- wire layouts -----------------------------------------------------

type orderWire struct {
	OrderID      int32
	UserID       [32]byte
	Symbol       [8]byte
	Side         uint8
	Price        float64
	OriginalQty  int32
	RemainingQty int32
	Status       uint8
	Timestamp    int64
}

type holdingWire struct {
	Symbol   [32]byte
	Quantity int32
}

type userWire struct {
	UserID          [64]byte
	CashBalance     float64
	NumHoldings     int32
	Holdings        [MaxHoldings]holdingWire
	NumActiveOrders int32
	ActiveOrderIDs  [MaxActiveOrders]int32
	Reserved        [128]byte
}

type tradeWire struct {
	TradeID     int32
	BuyOrderID  int32
	SellOrderID int32
	BuyUserID   [64]byte
	SellUserID  [64]byte
	Symbol      [32]byte
	Price       float64
	Quantity    int32
	Timestamp   int64
	Reserved    [64]byte
}

type metadataWire struct {
	NextOrderID  int32
	NextTradeID  int32
	TotalUsers   int32
	TotalOrders  int32
	TotalTrades  int32
	LastSaveTime int64
	Reserved     [256]byte
}

// --- string <-> fixed byte array helpers -------------------------------

func putFixed(dst []byte, s string) error {
	if len(s) > len(dst) {
		return fmt.Errorf("records: value %q exceeds field width %d", s, len(dst))
	}
	for i := range dst {
		dst[i] = 0
	}
	copy(dst, s)
	return nil
}

func getFixed(src []byte) string {
	n := bytes.IndexByte(src, 0)
	if n == -1 {
		n = len(src)
	}
	return string(src[:n])
}

func sideByte(s domain.Side) uint8 {
	if s == domain.Buy {
		return 'B'
	}
	return 'S'
}

func sideFromByte(b uint8) domain.Side {
	if b == 'S' {
		return domain.Sell
	}
	return domain.Buy
}

func statusByte(s domain.OrderStatus) uint8 {
	switch s {
	case domain.StatusActive:
		return 'A'
	case domain.StatusPartial:
		return 'P'
	case domain.StatusFilled:
		return 'F'
	case domain.StatusCancelled:
		return 'C'
	default:
		return 'A'
	}
}

func statusFromByte(b uint8) domain.OrderStatus {
	switch b {
	case 'P':
		return domain.StatusPartial
	case 'F':
		return domain.StatusFilled
	case 'C':
		return domain.StatusCancelled
	default:
		return domain.StatusActive
	}
}

// --- Order --------------------------------------------------------------

// EncodeOrder serializes o into its fixed-width OrderRecord layout. The
// 64-bit in-memory OrderID is narrowed to the record's i32 field, matching
// the on-disk format inherited from the source. DecodeOrder reads that
// field back as uint32, so ids up to 2^32-1 round-trip; larger ids are
// truncated to their low 32 bits. Trade ids and metadata counters are
// narrowed the same way.
func EncodeOrder(o *domain.Order) ([]byte, error) {
	w := orderWire{
		OrderID:      int32(o.ID),
		Side:         sideByte(o.Side),
		Price:        o.Price.InexactFloat64(),
		OriginalQty:  o.OriginalQty,
		RemainingQty: o.RemainingQty,
		Status:       statusByte(o.Status),
		Timestamp:    o.Timestamp.Unix(),
	}
	if err := putFixed(w.UserID[:], o.UserID); err != nil {
		return nil, fmt.Errorf("records: encode order %d: %w", o.ID, err)
	}
	if err := putFixed(w.Symbol[:], o.Symbol); err != nil {
		return nil, fmt.Errorf("records: encode order %d: %w", o.ID, err)
	}
	buf := new(bytes.Buffer)
	buf.Grow(OrderSize)
	if err := binary.Write(buf, binary.LittleEndian, w); err != nil {
		return nil, fmt.Errorf("records: encode order %d: %w", o.ID, err)
	}
	return buf.Bytes(), nil
}

// DecodeOrder parses a fixed-width OrderRecord back into a domain.Order.
func DecodeOrder(b []byte) (*domain.Order, error) {
	if len(b) != OrderSize {
		return nil, fmt.Errorf("records: order record has %d bytes, want %d", len(b), OrderSize)
	}
	var w orderWire
	if err := binary.Read(bytes.NewReader(b), binary.LittleEndian, &w); err != nil {
		return nil, fmt.Errorf("records: decode order: %w", err)
	}
	return &domain.Order{
		ID:           uint64(uint32(w.OrderID)),
		UserID:       getFixed(w.UserID[:]),
		Symbol:       getFixed(w.Symbol[:]),
		Side:         sideFromByte(w.Side),
		Price:        decimal.NewFromFloat(w.Price),
		OriginalQty:  w.OriginalQty,
		RemainingQty: w.RemainingQty,
		Status:       statusFromByte(w.Status),
		Timestamp:    time.Unix(w.Timestamp, 0).UTC(),
	}, nil
}

// --- Trade ---------------------------------------------------------------

// EncodeTrade serializes t into its fixed-width TradeRecord layout.
func EncodeTrade(t *domain.Trade) ([]byte, error) {
	w := tradeWire{
		TradeID:     int32(t.ID),
		BuyOrderID:  int32(t.BuyOrderID),
		SellOrderID: int32(t.SellOrderID),
		Price:       t.Price.InexactFloat64(),
		Quantity:    t.Quantity,
		Timestamp:   t.Timestamp.Unix(),
	}
	if err := putFixed(w.BuyUserID[:], t.BuyUserID); err != nil {
		return nil, fmt.Errorf("records: encode trade %d: %w", t.ID, err)
	}
	if err := putFixed(w.SellUserID[:], t.SellUserID); err != nil {
		return nil, fmt.Errorf("records: encode trade %d: %w", t.ID, err)
	}
	if err := putFixed(w.Symbol[:], t.Symbol); err != nil {
		return nil, fmt.Errorf("records: encode trade %d: %w", t.ID, err)
	}
	buf := new(bytes.Buffer)
	buf.Grow(TradeSize)
	if err := binary.Write(buf, binary.LittleEndian, w); err != nil {
		return nil, fmt.Errorf("records: encode trade %d: %w", t.ID, err)
	}
	return buf.Bytes(), nil
}

// DecodeTrade parses a fixed-width TradeRecord back into a domain.Trade.
func DecodeTrade(b []byte) (*domain.Trade, error) {
	if len(b) != TradeSize {
		return nil, fmt.Errorf("records: trade record has %d bytes, want %d", len(b), TradeSize)
	}
	var w tradeWire
	if err := binary.Read(bytes.NewReader(b), binary.LittleEndian, &w); err != nil {
		return nil, fmt.Errorf("records: decode trade: %w", err)
	}
	return &domain.Trade{
		ID:          uint64(uint32(w.TradeID)),
		BuyOrderID:  uint64(uint32(w.BuyOrderID)),
		SellOrderID: uint64(uint32(w.SellOrderID)),
		BuyUserID:   getFixed(w.BuyUserID[:]),
		SellUserID:  getFixed(w.SellUserID[:]),
		Symbol:      getFixed(w.Symbol[:]),
		Price:       decimal.NewFromFloat(w.Price),
		Quantity:    w.Quantity,
		Timestamp:   time.Unix(w.Timestamp, 0).UTC(),
	}, nil
}

// --- User ------------------------------------------------------------------

// EncodeUser serializes u into its fixed-width UserRecord layout. Holdings
// and active order ids beyond the fixed capacity are a configuration error
// (the source has the same limitation) and return an error rather than
// silently truncating.
func EncodeUser(u *domain.User) ([]byte, error) {
	if len(u.Holdings) > MaxHoldings {
		return nil, fmt.Errorf("records: user %s has %d holdings, max %d", u.ID, len(u.Holdings), MaxHoldings)
	}
	if len(u.ActiveOrderIDs) > MaxActiveOrders {
		return nil, fmt.Errorf("records: user %s has %d active orders, max %d", u.ID, len(u.ActiveOrderIDs), MaxActiveOrders)
	}

	w := userWire{
		CashBalance: u.CashBalance.InexactFloat64(),
		NumHoldings: int32(len(u.Holdings)),
	}
	if err := putFixed(w.UserID[:], u.ID); err != nil {
		return nil, fmt.Errorf("records: encode user: %w", err)
	}

	i := 0
	for sym, qty := range u.Holdings {
		if err := putFixed(w.Holdings[i].Symbol[:], sym); err != nil {
			return nil, fmt.Errorf("records: encode user %s: %w", u.ID, err)
		}
		w.Holdings[i].Quantity = qty
		i++
	}

	w.NumActiveOrders = int32(len(u.ActiveOrderIDs))
	i = 0
	for id := range u.ActiveOrderIDs {
		w.ActiveOrderIDs[i] = int32(id)
		i++
	}

	buf := new(bytes.Buffer)
	buf.Grow(UserSize)
	if err := binary.Write(buf, binary.LittleEndian, w); err != nil {
		return nil, fmt.Errorf("records: encode user %s: %w", u.ID, err)
	}
	return buf.Bytes(), nil
}

// DecodeUser parses a fixed-width UserRecord back into a domain.User.
func DecodeUser(b []byte) (*domain.User, error) {
	if len(b) != UserSize {
		return nil, fmt.Errorf("records: user record has %d bytes, want %d", len(b), UserSize)
	}
	var w userWire
	if err := binary.Read(bytes.NewReader(b), binary.LittleEndian, &w); err != nil {
		return nil, fmt.Errorf("records: decode user: %w", err)
	}
	if w.NumHoldings < 0 || int(w.NumHoldings) > MaxHoldings {
		return nil, fmt.Errorf("records: decode user: num_holdings %d out of range", w.NumHoldings)
	}
	if w.NumActiveOrders < 0 || int(w.NumActiveOrders) > MaxActiveOrders {
		return nil, fmt.Errorf("records: decode user: num_active_orders %d out of range", w.NumActiveOrders)
	}

	u := &domain.User{
		ID:             getFixed(w.UserID[:]),
		CashBalance:    decimal.NewFromFloat(w.CashBalance),
		Holdings:       make(map[string]int32, w.NumHoldings),
		ActiveOrderIDs: make(map[uint64]struct{}, w.NumActiveOrders),
	}
	for i := 0; i < int(w.NumHoldings); i++ {
		sym := getFixed(w.Holdings[i].Symbol[:])
		u.Holdings[sym] = w.Holdings[i].Quantity
	}
	for i := 0; i < int(w.NumActiveOrders); i++ {
		u.ActiveOrderIDs[uint64(uint32(w.ActiveOrderIDs[i]))] = struct{}{}
	}
	return u, nil
}

// --- Metadata ----------------------------------------------------------

// Metadata mirrors the domain-level counters the engine needs to survive a
// restart. It lives here rather than in package domain because nothing
// outside storage/recovery ever needs a partial view of it.
type Metadata struct {
	NextOrderID  uint64
	NextTradeID  uint64
	TotalUsers   int32
	TotalOrders  int32
	TotalTrades  int32
	LastSaveTime time.Time
}

// EncodeMetadata serializes m into its fixed-width record.
func EncodeMetadata(m *Metadata) ([]byte, error) {
	w := metadataWire{
		NextOrderID:  int32(m.NextOrderID),
		NextTradeID:  int32(m.NextTradeID),
		TotalUsers:   m.TotalUsers,
		TotalOrders:  m.TotalOrders,
		TotalTrades:  m.TotalTrades,
		LastSaveTime: m.LastSaveTime.Unix(),
	}
	buf := new(bytes.Buffer)
	buf.Grow(MetadataSize)
	if err := binary.Write(buf, binary.LittleEndian, w); err != nil {
		return nil, fmt.Errorf("records: encode metadata: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeMetadata parses a fixed-width Metadata record.
func DecodeMetadata(b []byte) (*Metadata, error) {
	if len(b) != MetadataSize {
		return nil, fmt.Errorf("records: metadata record has %d bytes, want %d", len(b), MetadataSize)
	}
	var w metadataWire
	if err := binary.Read(bytes.NewReader(b), binary.LittleEndian, &w); err != nil {
		return nil, fmt.Errorf("records: decode metadata: %w", err)
	}
	return &Metadata{
		NextOrderID:  uint64(uint32(w.NextOrderID)),
		NextTradeID:  uint64(uint32(w.NextTradeID)),
		TotalUsers:   w.TotalUsers,
		TotalOrders:  w.TotalOrders,
		TotalTrades:  w.TotalTrades,
		LastSaveTime: time.Unix(w.LastSaveTime, 0).UTC(),
	}, nil
}
