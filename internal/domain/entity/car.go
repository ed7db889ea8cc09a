package entity

import "time"

const (
	CarStatusPending  = "Pending"
	CarStatusApproved = "Approved"
	CarStatusRejected = "Rejected"
)

type Financial struct {
	PriceNet       float64  `json:"price_net" firestore:"priceNet" bson:"priceNet"`
	SellOptions    []string `json:"sell_options" firestore:"sellOptions" bson:"sellOptions"`
	InvoiceOptions []string `json:"invoice_options" firestore:"invoiceOptions" bson:"invoiceOptions"`
	SellerType     string   `json:"seller_type" firestore:"sellerType" bson:"sellerType"`
}

type Car struct {
	ID           string    `json:"id" firestore:"id" bson:"_id"`
	OwnerID      string    `json:"owner_id" firestore:"ownerId" bson:"ownerId"`
	Make         string    `json:"make" firestore:"make" bson:"make"`
	Model        string    `json:"model" firestore:"model" bson:"model"`
	Trim         string    `json:"trim,omitempty" firestore:"trim,omitempty" bson:"trim,omitempty"`
	Year         int       `json:"year" firestore:"year" bson:"year"`
	Mileage      int       `json:"mileage" firestore:"mileage" bson:"mileage"`
	FuelType     string    `json:"fuel_type,omitempty" firestore:"fuelType,omitempty" bson:"fuelType,omitempty"`
	Transmission string    `json:"transmission,omitempty" firestore:"transmission,omitempty" bson:"transmission,omitempty"`
	Description  string    `json:"description,omitempty" firestore:"description,omitempty" bson:"description,omitempty"`
	Images       []string  `json:"images" firestore:"images" bson:"images"`
	Financial    Financial `json:"financial" firestore:"financial" bson:"financial"`
	Status       string    `json:"status" firestore:"status" bson:"status"`
	Location     *GeoPoint `json:"location,omitempty" firestore:"location,omitempty" bson:"location,omitempty"`
	CreatedAt    time.Time `json:"created_at" firestore:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time `json:"updated_at" firestore:"updatedAt" bson:"updatedAt"`
}
