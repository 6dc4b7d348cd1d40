package dto

type DistanceResponse struct {
	Origin         string `json:"origin"`
	Destination    string `json:"destination"`
	DistanceMeters int    `json:"distance_meters"`
	Source         string `json:"source"`
	Reversed       bool   `json:"reversed"`
}
