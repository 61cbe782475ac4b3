package domain

import "errors"

// Lookup errors
var (
	ErrNotFound = errors.New("not found")
	ErrNoBid    = errors.New("no current bid")
)

// Bid rejections
var (
	ErrInvalidOffer  = errors.New("offer must be a positive integer")
	ErrOwnListing    = errors.New("cannot bid on own item")
	ErrAuctionClosed = errors.New("auction is closed")
	ErrBidTooLow     = errors.New("bid too low")
)

// ErrStaleBid is returned by a compare-and-swap when the current bid changed
// between read and write.
var ErrStaleBid = errors.New("current bid changed concurrently")

// ErrForbidden is returned when a user acts on a listing or comment they do
// not own.
var ErrForbidden = errors.New("not permitted")
