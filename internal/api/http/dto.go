package http

import (
	"bytes"
	"encoding/json"

	"github.com/shopspring/decimal"

	"wastebank-backend/internal/apperr"
	"wastebank-backend/internal/domain"
	"wastebank-backend/internal/service"
)

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type createTransactionRequest struct {
	UserID          *string  `json:"userId"`
	LocationID      *string  `json:"locationId"`
	WasteCategoryID string   `json:"wasteCategoryId" validate:"required"`
	Type            string   `json:"type" validate:"required,oneof=PICKUP DROPOFF"`
	LocationDetail  string   `json:"locationDetail" validate:"required,min=3"`
	ScheduledDate   string   `json:"scheduledDate" validate:"required"`
	Photos          []string `json:"photos" validate:"omitempty,dive,url"`
	Notes           *string  `json:"notes"`
}

func (req createTransactionRequest) input() (service.CreateTransactionInput, error) {
	scheduled, err := parseTime(req.ScheduledDate)
	if err != nil {
		return service.CreateTransactionInput{}, apperr.ValidationFields(map[string]string{
			"scheduledDate": "must be a date (YYYY-MM-DD) or RFC 3339 timestamp",
		})
	}
	return service.CreateTransactionInput{
		UserID:          req.UserID,
		LocationID:      req.LocationID,
		WasteCategoryID: req.WasteCategoryID,
		Type:            domain.TransactionType(req.Type),
		LocationDetail:  req.LocationDetail,
		ScheduledDate:   scheduled,
		Photos:          req.Photos,
		Notes:           req.Notes,
	}, nil
}

// processTransactionRequest takes the weight as a JSON number or string so
// that decimal precision survives decoding.
type processTransactionRequest struct {
	ActualWeight *decimal.Decimal `json:"actualWeight" validate:"required"`
	Notes        *string          `json:"notes"`
}

type redeemRequest struct {
	RewardID string `json:"rewardId" validate:"required"`
}

type rewardRequest struct {
	LocationID     *string `json:"locationId"`
	Name           string  `json:"name" validate:"required,min=2,max=100"`
	Description    string  `json:"description" validate:"max=500"`
	ImageURL       string  `json:"imageUrl" validate:"omitempty,url"`
	PointsRequired *int64  `json:"pointsRequired" validate:"required,min=0,max=1000000"`
	Stock          *int64  `json:"stock" validate:"required,min=0,max=1000000"`
}

func (req rewardRequest) input() service.RewardInput {
	return service.RewardInput{
		LocationID:     req.LocationID,
		Name:           req.Name,
		Description:    req.Description,
		ImageURL:       req.ImageURL,
		PointsRequired: *req.PointsRequired,
		Stock:          *req.Stock,
	}
}

type categoryRequest struct {
	LocationID  *string `json:"locationId"`
	Name        string  `json:"name" validate:"required,min=2,max=100"`
	Description string  `json:"description" validate:"max=500"`
	Color       string  `json:"color"`
	PointsPerKg *int64  `json:"pointsPerKg" validate:"required,min=0,max=1000000"`
}

func (req categoryRequest) input() service.CategoryInput {
	return service.CategoryInput{
		LocationID:  req.LocationID,
		Name:        req.Name,
		Description: req.Description,
		Color:       req.Color,
		PointsPerKg: *req.PointsPerKg,
	}
}

type locationRequest struct {
	Desa      string `json:"desa" validate:"required,min=2,max=100"`
	Kecamatan string `json:"kecamatan" validate:"required,min=2,max=100"`
	Kabupaten string `json:"kabupaten" validate:"required,min=2,max=100"`
}

func (req locationRequest) input() service.LocationInput {
	return service.LocationInput{Desa: req.Desa, Kecamatan: req.Kecamatan, Kabupaten: req.Kabupaten}
}

type createUserRequest struct {
	Name       string  `json:"name" validate:"required,min=2,max=100"`
	Email      string  `json:"email" validate:"required,email"`
	Password   string  `json:"password" validate:"required,min=8"`
	Role       string  `json:"role" validate:"omitempty,oneof=SUPERADMIN ADMIN PETUGAS NASABAH"`
	LocationID *string `json:"locationId"`
	AvatarURL  string  `json:"avatarUrl" validate:"omitempty,url"`
	RW         string  `json:"rw" validate:"max=10"`
	RT         string  `json:"rt" validate:"max=10"`
}

func (req createUserRequest) input() service.CreateUserInput {
	role := domain.RoleNasabah
	if req.Role != "" {
		role = domain.Role(req.Role)
	}
	return service.CreateUserInput{
		Name:       req.Name,
		Email:      req.Email,
		Password:   req.Password,
		Role:       role,
		LocationID: req.LocationID,
		AvatarURL:  req.AvatarURL,
		RW:         req.RW,
		RT:         req.RT,
	}
}

// nullableString tells an absent key apart from an explicit null.
type nullableString struct {
	Set   bool
	Value *string
}

func (n *nullableString) UnmarshalJSON(data []byte) error {
	n.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		n.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	n.Value = &s
	return nil
}

type updateUserRequest struct {
	Name       *string        `json:"name" validate:"omitempty,min=2,max=100"`
	Email      *string        `json:"email" validate:"omitempty,email"`
	Password   *string        `json:"password" validate:"omitempty,min=8"`
	Role       *string        `json:"role" validate:"omitempty,oneof=SUPERADMIN ADMIN PETUGAS NASABAH"`
	LocationID nullableString `json:"locationId"`
	AvatarURL  *string        `json:"avatarUrl" validate:"omitempty,url"`
	RW         *string        `json:"rw" validate:"omitempty,max=10"`
	RT         *string        `json:"rt" validate:"omitempty,max=10"`
	Points     *int64         `json:"points"`
}

func (req updateUserRequest) input() service.UpdateUserInput {
	in := service.UpdateUserInput{
		UserUpdate: domain.UserUpdate{
			Name:      req.Name,
			Email:     req.Email,
			Password:  req.Password,
			AvatarURL: req.AvatarURL,
			RW:        req.RW,
			RT:        req.RT,
		},
		Points: req.Points,
	}
	if req.Role != nil {
		role := domain.Role(*req.Role)
		in.Role = &role
	}
	if req.LocationID.Set {
		loc := req.LocationID.Value
		in.LocationID = &loc
	}
	return in
}
