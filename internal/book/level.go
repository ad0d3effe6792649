package book

import (
	"container/list"

	"github.com/shopspring/decimal"
)

// priceLevel is the FIFO queue of order ids resting at one price. Removal
// by id is O(1) via the index map; everything else is O(1) deque work.
type priceLevel struct {
	price decimal.Decimal
	queue *list.List
	index map[uint64]*list.Element
}

func newPriceLevel(price decimal.Decimal) *priceLevel {
	return &priceLevel{
		price: price,
		queue: list.New(),
		index: make(map[uint64]*list.Element),
	}
}

func (l *priceLevel) pushBack(orderID uint64) {
	l.index[orderID] = l.queue.PushBack(orderID)
}

// front peeks the oldest resting order id without removing it.
func (l *priceLevel) front() (uint64, bool) {
	e := l.queue.Front()
	if e == nil {
		return 0, false
	}
	return e.Value.(uint64), true
}

func (l *priceLevel) popFront() {
	e := l.queue.Front()
	if e == nil {
		return
	}
	l.queue.Remove(e)
	delete(l.index, e.Value.(uint64))
}

// remove deletes orderID from anywhere in the queue (used by cancel).
func (l *priceLevel) remove(orderID uint64) bool {
	e, ok := l.index[orderID]
	if !ok {
		return false
	}
	l.queue.Remove(e)
	delete(l.index, orderID)
	return true
}

func (l *priceLevel) empty() bool {
	return l.queue.Len() == 0
}

func (l *priceLevel) len() int {
	return l.queue.Len()
}
