package domain

import (
	"time"

	"wastebank-backend/internal/apperr"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type Page struct {
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
}

// Normalize fills defaults and rejects out-of-range values.
func (p *Page) Normalize() error {
	if p.Page == 0 {
		p.Page = 1
	}
	if p.PageSize == 0 {
		p.PageSize = DefaultPageSize
	}
	if p.Page < 1 {
		return apperr.Validation("page must be at least 1")
	}
	if p.PageSize < 1 || p.PageSize > MaxPageSize {
		return apperr.Validation("pageSize must be between 1 and %d", MaxPageSize)
	}
	return nil
}

func (p Page) Offset() int { return (p.Page - 1) * p.PageSize }
func (p Page) Limit() int  { return p.PageSize }

type PageMeta struct {
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
	Total    int `json:"total"`
}

func (p Page) Meta(total int) PageMeta {
	return PageMeta{Page: p.Page, PageSize: p.PageSize, Total: total}
}

type TransactionFilter struct {
	Page
	LocationID *string
	UserID     *string
	Status     *TransactionStatus
	Type       *TransactionType
	From       *time.Time
	To         *time.Time
}

func (f *TransactionFilter) Normalize() error {
	if err := f.Page.Normalize(); err != nil {
		return err
	}
	if f.Status != nil && !f.Status.Valid() {
		return apperr.Validation("Invalid status %q", *f.Status)
	}
	if f.Type != nil && !f.Type.Valid() {
		return apperr.Validation("Invalid type %q", *f.Type)
	}
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return apperr.Validation("to must not be before from")
	}
	return nil
}

type RedemptionFilter struct {
	Page
	LocationID *string
	UserID     *string
	Status     *RedemptionStatus
}

func (f *RedemptionFilter) Normalize() error {
	if err := f.Page.Normalize(); err != nil {
		return err
	}
	if f.Status != nil && !f.Status.Valid() {
		return apperr.Validation("Invalid status %q", *f.Status)
	}
	return nil
}

type UserFilter struct {
	Page
	LocationID *string
	Role       *Role
	Search     string
}

func (f *UserFilter) Normalize() error {
	if err := f.Page.Normalize(); err != nil {
		return err
	}
	if f.Role != nil && !f.Role.Valid() {
		return apperr.Validation("Invalid role %q", *f.Role)
	}
	return nil
}

// CatalogFilter lists location-scoped catalog entries (categories, rewards).
type CatalogFilter struct {
	Page
	LocationID *string
	Search     string
}

func (f *CatalogFilter) Normalize() error {
	return f.Page.Normalize()
}

type AuditFilter struct {
	Page
	LocationID *string
	Action     *AuditAction
}

func (f *AuditFilter) Normalize() error {
	return f.Page.Normalize()
}
