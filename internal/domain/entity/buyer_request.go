package entity

import "time"

const (
	RequestStatusActive    = "Active"
	RequestStatusFulfilled = "Fulfilled"
	RequestStatusExpired   = "Expired"
	RequestStatusCancelled = "Cancelled"
)

type BuyerRequest struct {
	ID                 string    `json:"id" firestore:"id" bson:"_id"`
	BuyerID            string    `json:"buyer_id" firestore:"buyerId" bson:"buyerId"`
	Title              string    `json:"title" firestore:"title" bson:"title"`
	Description        string    `json:"description" firestore:"description" bson:"description"`
	Make               string    `json:"make,omitempty" firestore:"make,omitempty" bson:"make,omitempty"`
	Model              string    `json:"model,omitempty" firestore:"model,omitempty" bson:"model,omitempty"`
	Type               string    `json:"type,omitempty" firestore:"type,omitempty" bson:"type,omitempty"`
	BudgetMin          float64   `json:"budget_min" firestore:"budgetMin" bson:"budgetMin"`
	BudgetMax          float64   `json:"budget_max" firestore:"budgetMax" bson:"budgetMax"`
	PreferredCondition string    `json:"preferred_condition,omitempty" firestore:"preferredCondition,omitempty" bson:"preferredCondition,omitempty"`
	Location           *GeoPoint `json:"location,omitempty" firestore:"location,omitempty" bson:"location,omitempty"`
	Status             string    `json:"status" firestore:"status" bson:"status"`
	ExpiryDate         time.Time `json:"expiry_date" firestore:"expiryDate" bson:"expiryDate"`
	AcceptedOfferID    string    `json:"accepted_offer_id,omitempty" firestore:"acceptedOfferId,omitempty" bson:"acceptedOfferId,omitempty"`
	OfferCount         int       `json:"offer_count" firestore:"offerCount" bson:"offerCount"`
	CreatedAt          time.Time `json:"created_at" firestore:"createdAt" bson:"createdAt"`
	UpdatedAt          time.Time `json:"updated_at" firestore:"updatedAt" bson:"updatedAt"`
}

// IsOpen reports whether the request still accepts offers at the given time.
func (r *BuyerRequest) IsOpen(now time.Time) bool {
	if r.Status != RequestStatusActive {
		return false
	}
	return r.ExpiryDate.IsZero() || now.Before(r.ExpiryDate)
}
