package book

import "errors"

var (
	// ErrOrderNotFound is returned by Cancel when the order id doesn't
	// resolve to any persisted order.
	ErrOrderNotFound = errors.New("book: order not found")
	// ErrNotOwner is returned by Cancel when the requester doesn't own
	// the order.
	ErrNotOwner = errors.New("book: order not owned by requester")
	// ErrOrderTerminal is returned by Cancel when the order has already
	// filled or been cancelled.
	ErrOrderTerminal = errors.New("book: order already in a terminal state")
)
