package domain

import "time"

// Location is a tenant: a village-level collection site.
type Location struct {
	ID        string    `json:"id"`
	Desa      string    `json:"desa"`
	Kecamatan string    `json:"kecamatan"`
	Kabupaten string    `json:"kabupaten"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SameLocation reports whether both ids are set and equal.
func SameLocation(a, b *string) bool {
	return a != nil && b != nil && *a == *b
}

// StringPtr is a small helper for optional ids.
func StringPtr(s string) *string {
	return &s
}
