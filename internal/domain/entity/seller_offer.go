package entity

import "time"

const (
	OfferStatusPending  = "Pending"
	OfferStatusAccepted = "Accepted"
	OfferStatusRejected = "Rejected"
	OfferStatusExpired  = "Expired"
)

// Reasons recorded when an offer leaves Pending without being accepted.
const (
	ReasonRejectedByBuyer   = "rejected_by_buyer"
	ReasonWithdrawnBySeller = "withdrawn_by_seller"
	ReasonOutbid            = "outbid"
	ReasonRequestCancelled  = "request_cancelled"
	ReasonExpired           = "expired"
)

type SellerOffer struct {
	ID            string    `json:"id" firestore:"id" bson:"_id"`
	RequestID     string    `json:"request_id" firestore:"requestId" bson:"requestId"`
	SellerID      string    `json:"seller_id" firestore:"sellerId" bson:"sellerId"`
	CarID         string    `json:"car_id,omitempty" firestore:"carId,omitempty" bson:"carId,omitempty"`
	Images        []string  `json:"images" firestore:"images" bson:"images"`
	Price         float64   `json:"price" firestore:"price" bson:"price"`
	Title         string    `json:"title,omitempty" firestore:"title,omitempty" bson:"title,omitempty"`
	Description   string    `json:"description,omitempty" firestore:"description,omitempty" bson:"description,omitempty"`
	Status        string    `json:"status" firestore:"status" bson:"status"`
	StatusReason  string    `json:"status_reason,omitempty" firestore:"statusReason,omitempty" bson:"statusReason,omitempty"`
	ExpiryDate    time.Time `json:"expiry_date" firestore:"expiryDate" bson:"expiryDate"`
	IsCustomOffer bool      `json:"is_custom_offer" firestore:"isCustomOffer" bson:"isCustomOffer"`

	// ActiveSlot is true while the offer occupies the seller's single slot on the request.
	ActiveSlot bool `json:"-" firestore:"activeSlot" bson:"activeSlot"`

	CreatedAt time.Time `json:"created_at" firestore:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updated_at" firestore:"updatedAt" bson:"updatedAt"`
}

func (o *SellerOffer) IsPending() bool {
	return o.Status == OfferStatusPending
}

// SlotKey identifies the (request, seller) pair that may hold one live offer.
func SlotKey(requestID, sellerID string) string {
	return requestID + "_" + sellerID
}
