package book

import (
	"github.com/google/btree"
	"github.com/shopspring/decimal"
)

// degree mirrors the branching factor the source's own B-tree used; any
// balanced ordered structure satisfies the contract, this one just keeps
// the historical shape.
const degree = 5

// priceLevelItem adapts a priceLevel to btree.Item (classic, non-generic
// v1.1.2 API: Less is the only method an Item needs).
type priceLevelItem struct {
	level *priceLevel
}

func (a *priceLevelItem) Less(than btree.Item) bool {
	return a.level.price.LessThan(than.(*priceLevelItem).level.price)
}

// side is one half of an order book: an ordered map from price to the
// FIFO queue resting there. desc=true for bids (best = highest price),
// desc=false for asks (best = lowest price).
type side struct {
	tree *btree.BTree
	desc bool
}

func newSide(desc bool) *side {
	return &side{tree: btree.New(degree), desc: desc}
}

func (s *side) get(price decimal.Decimal) *priceLevel {
	item := s.tree.Get(&priceLevelItem{level: &priceLevel{price: price}})
	if item == nil {
		return nil
	}
	return item.(*priceLevelItem).level
}

func (s *side) getOrCreate(price decimal.Decimal) *priceLevel {
	if lvl := s.get(price); lvl != nil {
		return lvl
	}
	lvl := newPriceLevel(price)
	s.tree.ReplaceOrInsert(&priceLevelItem{level: lvl})
	return lvl
}

func (s *side) removeLevel(price decimal.Decimal) {
	s.tree.Delete(&priceLevelItem{level: &priceLevel{price: price}})
}

// best returns the top-of-book level, or nil if the side is empty.
func (s *side) best() *priceLevel {
	var item btree.Item
	if s.desc {
		item = s.tree.Max()
	} else {
		item = s.tree.Min()
	}
	if item == nil {
		return nil
	}
	return item.(*priceLevelItem).level
}

// bestTradeable walks levels in priority order (best first) and returns
// the first one that both satisfies crossOK and is not in excluded.
// crossOK returning false stops the walk entirely: price ordering
// guarantees no level further out can cross either.
func (s *side) bestTradeable(excluded map[string]bool, crossOK func(decimal.Decimal) bool) *priceLevel {
	var found *priceLevel
	visit := func(item btree.Item) bool {
		lvl := item.(*priceLevelItem).level
		if !crossOK(lvl.price) {
			return false
		}
		if excluded[lvl.price.String()] {
			return true
		}
		found = lvl
		return false
	}
	if s.desc {
		s.tree.Descend(visit)
	} else {
		s.tree.Ascend(visit)
	}
	return found
}

func (s *side) len() int {
	return s.tree.Len()
}

// ascend walks every level in the side's priority order.
func (s *side) ascend(fn func(*priceLevel) bool) {
	visit := func(item btree.Item) bool {
		return fn(item.(*priceLevelItem).level)
	}
	if s.desc {
		s.tree.Descend(visit)
	} else {
		s.tree.Ascend(visit)
	}
}
