package memory

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"wastebank-backend/internal/apperr"
	"wastebank-backend/internal/domain"
)

type dashboardRepository struct{ db *DB }

func (r *dashboardRepository) WeightByCategory(_ context.Context, f domain.WeightFilter) ([]domain.WasteShare, error) {
	sums := map[string]decimal.Decimal{}
	var out []domain.WasteShare
	r.db.read(func(d *data) {
		for _, t := range d.transactions {
			if f.Includes(t) {
				sums[t.WasteCategoryID] = sums[t.WasteCategoryID].Add(*t.ActualWeight)
			}
		}
		for id, weight := range sums {
			share := domain.WasteShare{CategoryID: id, Name: "Other", Color: domain.DefaultChartColor, WeightKg: weight}
			if c, ok := d.categories[id]; ok {
				share.Name = c.Name
				if c.Color != "" {
					share.Color = c.Color
				}
			}
			out = append(out, share)
		}
	})
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].WeightKg.Cmp(out[j].WeightKg); c != 0 {
			return c > 0
		}
		return out[i].Name < out[j].Name
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r *dashboardRepository) CompletedTotals(_ context.Context, f domain.WeightFilter) (int, decimal.Decimal, error) {
	count, total := 0, decimal.Zero
	r.db.read(func(d *data) {
		for _, t := range d.transactions {
			if f.Includes(t) {
				count++
				total = total.Add(*t.ActualWeight)
			}
		}
	})
	return count, total, nil
}

func (r *dashboardRepository) CountNasabah(_ context.Context, locationID *string) (int, error) {
	n := 0
	r.db.read(func(d *data) {
		for _, u := range d.users {
			if u.Role == domain.RoleNasabah && locationMatches(locationID, u.LocationID) {
				n++
			}
		}
	})
	return n, nil
}

func (r *dashboardRepository) NextReward(_ context.Context, locationID string, points int64) (*domain.Reward, error) {
	var best *domain.Reward
	r.db.read(func(d *data) {
		for _, rw := range d.rewards {
			if rw.LocationID != locationID || rw.PointsRequired <= points {
				continue
			}
			if best == nil || rw.PointsRequired < best.PointsRequired ||
				(rw.PointsRequired == best.PointsRequired && rw.Name < best.Name) {
				candidate := rw
				best = &candidate
			}
		}
	})
	if best == nil {
		return nil, apperr.NotFound("Reward")
	}
	return best, nil
}
