package entity

import (
	"time"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"

	SellerTypePrivate = "private"
	SellerTypeCompany = "company"
)

type User struct {
	ID          string `json:"id" firestore:"id" bson:"_id"`
	Email       string `json:"email,omitempty" firestore:"email,omitempty" bson:"email,omitempty"`
	Phone       string `json:"phone,omitempty" firestore:"phone,omitempty" bson:"phone,omitempty"`
	DisplayName string `json:"display_name" firestore:"displayName" bson:"displayName"`
	Role        string `json:"role" firestore:"role" bson:"role"`
	Blocked     bool   `json:"blocked" firestore:"blocked" bson:"blocked"`

	// Seller profile
	SellerType string    `json:"seller_type" firestore:"sellerType" bson:"sellerType"`
	Brands     []string  `json:"brands,omitempty" firestore:"brands,omitempty" bson:"brands,omitempty"`
	Location   *GeoPoint `json:"location,omitempty" firestore:"location,omitempty" bson:"location,omitempty"`

	CreatedAt time.Time `json:"created_at" firestore:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updated_at" firestore:"updatedAt" bson:"updatedAt"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
