// Package seed loads demo or test data from a YAML file through the
// repositories, so the same file works against PostgreSQL and the memory store.
package seed

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"wastebank-backend/internal/apperr"
	"wastebank-backend/internal/domain"
	"wastebank-backend/internal/logger"
	"wastebank-backend/internal/repository"
	"wastebank-backend/internal/security"
)

type Data struct {
	SuperAdmins []User     `yaml:"superadmins"`
	Locations   []Location `yaml:"locations"`
}

type Location struct {
	Desa       string     `yaml:"desa"`
	Kecamatan  string     `yaml:"kecamatan"`
	Kabupaten  string     `yaml:"kabupaten"`
	Users      []User     `yaml:"users"`
	Categories []Category `yaml:"categories"`
	Rewards    []Reward   `yaml:"rewards"`
}

type User struct {
	Name     string `yaml:"name"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	Role     string `yaml:"role"`
	RW       string `yaml:"rw"`
	RT       string `yaml:"rt"`
}

type Category struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Color       string `yaml:"color"`
	PointsPerKg int64  `yaml:"points_per_kg"`
}

type Reward struct {
	Name           string `yaml:"name"`
	Description    string `yaml:"description"`
	ImageURL       string `yaml:"image_url"`
	PointsRequired int64  `yaml:"points_required"`
	Stock          int64  `yaml:"stock"`
}

// Summary counts what Apply created. Entries that already existed are skipped.
type Summary struct {
	Locations  int
	Users      int
	Categories int
	Rewards    int
	Skipped    int
}

func Load(path string) (*Data, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	return Parse(raw)
}

func Parse(raw []byte) (*Data, error) {
	var data Data
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}
	return &data, nil
}

// Apply inserts data. It is idempotent: locations match on their full
// name, users on email, categories and rewards on name within a location.
// Balances always start at zero so that the ledger reconciles.
func Apply(ctx context.Context, store *repository.Store, data *Data) (Summary, error) {
	var sum Summary

	for _, u := range data.SuperAdmins {
		u.Role = string(domain.RoleSuperAdmin)
		if err := applyUser(ctx, store, u, nil, &sum); err != nil {
			return sum, err
		}
	}

	existing, err := store.LocationRepository.List(ctx)
	if err != nil {
		return sum, fmt.Errorf("list locations: %w", err)
	}

	for _, l := range data.Locations {
		loc := findLocation(existing, l)
		if loc == nil {
			loc = &domain.Location{Desa: l.Desa, Kecamatan: l.Kecamatan, Kabupaten: l.Kabupaten}
			if err := store.LocationRepository.Create(ctx, loc); err != nil {
				return sum, fmt.Errorf("create location %s: %w", l.Desa, err)
			}
			existing = append(existing, *loc)
			sum.Locations++
			logger.Info("Location created", "id", loc.ID, "desa", loc.Desa)
		} else {
			sum.Skipped++
		}

		locID := loc.ID
		for _, u := range l.Users {
			if err := applyUser(ctx, store, u, &locID, &sum); err != nil {
				return sum, err
			}
		}
		for _, c := range l.Categories {
			if err := applyCategory(ctx, store, c, locID, &sum); err != nil {
				return sum, err
			}
		}
		for _, r := range l.Rewards {
			if err := applyReward(ctx, store, r, locID, &sum); err != nil {
				return sum, err
			}
		}
	}
	return sum, nil
}

func findLocation(locations []domain.Location, l Location) *domain.Location {
	for i := range locations {
		loc := &locations[i]
		if strings.EqualFold(loc.Desa, l.Desa) && strings.EqualFold(loc.Kecamatan, l.Kecamatan) && strings.EqualFold(loc.Kabupaten, l.Kabupaten) {
			return loc
		}
	}
	return nil
}

func applyUser(ctx context.Context, store *repository.Store, u User, locationID *string, sum *Summary) error {
	email := strings.ToLower(strings.TrimSpace(u.Email))
	if _, err := store.UserRepository.GetByEmail(ctx, email); err == nil {
		sum.Skipped++
		return nil
	} else if !apperr.IsNotFound(err) {
		return fmt.Errorf("look up user %s: %w", email, err)
	}

	role, err := domain.ParseRole(u.Role)
	if err != nil {
		return fmt.Errorf("user %s: %w", email, err)
	}
	if err := domain.ValidateRoleLocation(role, locationID); err != nil {
		return fmt.Errorf("user %s: %w", email, err)
	}
	if len(u.Password) < security.MinPasswordLength {
		return fmt.Errorf("user %s: password must be at least %d characters", email, security.MinPasswordLength)
	}
	hash, err := security.HashPassword(u.Password)
	if err != nil {
		return fmt.Errorf("hash password for %s: %w", email, err)
	}

	user := &domain.User{
		Name:         u.Name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		LocationID:   locationID,
		RW:           u.RW,
		RT:           u.RT,
	}
	if err := store.UserRepository.Create(ctx, user); err != nil {
		return fmt.Errorf("create user %s: %w", email, err)
	}
	sum.Users++
	logger.Info("User created", "id", user.ID, "email", email, "role", role)
	return nil
}

func applyCategory(ctx context.Context, store *repository.Store, c Category, locationID string, sum *Summary) error {
	if c.PointsPerKg < 0 || c.PointsPerKg > domain.MaxPointsPerKg {
		return fmt.Errorf("category %s: points_per_kg must be between 0 and %d", c.Name, domain.MaxPointsPerKg)
	}
	category := &domain.WasteCategory{
		LocationID:  locationID,
		Name:        c.Name,
		Description: c.Description,
		Color:       c.Color,
		PointsPerKg: c.PointsPerKg,
	}
	if err := store.CategoryRepository.Create(ctx, category); err != nil {
		if apperr.IsConflict(err) {
			sum.Skipped++
			return nil
		}
		return fmt.Errorf("create category %s: %w", c.Name, err)
	}
	sum.Categories++
	return nil
}

func applyReward(ctx context.Context, store *repository.Store, r Reward, locationID string, sum *Summary) error {
	existing, _, err := store.RewardRepository.List(ctx, domain.CatalogFilter{
		Page:       domain.Page{Page: 1, PageSize: domain.MaxPageSize},
		LocationID: &locationID,
		Search:     r.Name,
	})
	if err != nil {
		return fmt.Errorf("list rewards: %w", err)
	}
	for _, e := range existing {
		if strings.EqualFold(e.Name, r.Name) {
			sum.Skipped++
			return nil
		}
	}

	reward := &domain.Reward{
		LocationID:     locationID,
		Name:           r.Name,
		Description:    r.Description,
		ImageURL:       r.ImageURL,
		PointsRequired: r.PointsRequired,
		Stock:          r.Stock,
	}
	if err := store.RewardRepository.Create(ctx, reward); err != nil {
		return fmt.Errorf("create reward %s: %w", r.Name, err)
	}
	sum.Rewards++
	return nil
}
