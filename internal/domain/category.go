package domain

import "time"

type WasteCategory struct {
	ID          string    `json:"id"`
	LocationID  string    `json:"locationId"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Color       string    `json:"color,omitempty"`
	PointsPerKg int64     `json:"pointsPerKg"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
