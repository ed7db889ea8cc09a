package entity

type GeoPoint struct {
	Lat float64 `json:"lat" firestore:"lat" bson:"lat" validate:"gte=-90,lte=90"`
	Lng float64 `json:"lng" firestore:"lng" bson:"lng" validate:"gte=-180,lte=180"`
}
