package repository

import "carmarket/pkg/errors"

// Conflict messages shared by every store implementation.
const (
	MsgRequestNotOpen       = "request not open"
	MsgDuplicateOffer       = "duplicate offer"
	MsgOfferNotPending      = "offer is not pending"
	MsgNegotiationFulfilled = "cannot cancel a fulfilled negotiation"
)

func ErrRequestNotOpen() error {
	return errors.Conflict(MsgRequestNotOpen)
}

func ErrDuplicateOffer() error {
	return errors.Conflict(MsgDuplicateOffer)
}

func ErrOfferNotPending() error {
	return errors.Conflict(MsgOfferNotPending)
}

func ErrNegotiationFulfilled() error {
	return errors.Conflict(MsgNegotiationFulfilled)
}
