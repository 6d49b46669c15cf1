// Package memory provides an in-process implementation of every repository.
// All operations are serialised by one lock; WithTx works on a private copy
// of the data and swaps it in on success, so a failed unit leaves no trace.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"wastebank-backend/internal/apperr"
	"wastebank-backend/internal/domain"
	"wastebank-backend/internal/repository"
)

type data struct {
	users        map[string]domain.User
	locations    map[string]domain.Location
	categories   map[string]domain.WasteCategory
	rewards      map[string]domain.Reward
	transactions map[string]domain.Transaction
	redemptions  map[string]domain.Redemption
	audit        []domain.AuditEntry
}

func newData() *data {
	return &data{
		users:        map[string]domain.User{},
		locations:    map[string]domain.Location{},
		categories:   map[string]domain.WasteCategory{},
		rewards:      map[string]domain.Reward{},
		transactions: map[string]domain.Transaction{},
		redemptions:  map[string]domain.Redemption{},
	}
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (d *data) clone() *data {
	return &data{
		users:        cloneMap(d.users),
		locations:    cloneMap(d.locations),
		categories:   cloneMap(d.categories),
		rewards:      cloneMap(d.rewards),
		transactions: cloneMap(d.transactions),
		redemptions:  cloneMap(d.redemptions),
		audit:        d.audit,
	}
}

// DB is the shared state behind every repository of one memory store.
type DB struct {
	mu   sync.RWMutex
	data *data
	now  func() time.Time
}

func NewDB() *DB {
	return &DB{data: newData(), now: func() time.Time { return time.Now().UTC() }}
}

// NewStore returns a Store backed by a fresh in-memory DB.
func NewStore() *repository.Store {
	return NewStoreWithDB(NewDB())
}

func NewStoreWithDB(db *DB) *repository.Store {
	return &repository.Store{
		UserRepository:        &userRepository{db: db},
		LocationRepository:    &locationRepository{db: db},
		CategoryRepository:    &categoryRepository{db: db},
		RewardRepository:      &rewardRepository{db: db},
		TransactionRepository: &transactionRepository{db: db},
		RedemptionRepository:  &redemptionRepository{db: db},
		AuditRepository:       &auditRepository{db: db},
		DashboardRepository:   &dashboardRepository{db: db},
		TxManager:             db,
		HealthChecker:         db,
	}
}

func (db *DB) Ping(ctx context.Context) error {
	return ctx.Err()
}

// WithTx runs fn against a private copy of the data. fn must only use tx:
// calling another repository of the same store from inside fn deadlocks.
func (db *DB) WithTx(ctx context.Context, fn func(ctx context.Context, tx repository.LedgerTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	db.mu.Lock()
	defer db.mu.Unlock()

	staged := db.data.clone()
	if err := fn(ctx, &ledgerTx{d: staged, now: db.now}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	db.data = staged
	return nil
}

func (db *DB) read(fn func(d *data)) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	fn(db.data)
}

func (db *DB) write(fn func(d *data) error) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return fn(db.data)
}

func newID(id string) string {
	if id == "" {
		return uuid.NewString()
	}
	return id
}

func paginate[T any](items []T, p domain.Page) []T {
	if p.PageSize == 0 {
		return items
	}
	start := p.Offset()
	if start >= len(items) {
		return nil
	}
	end := start + p.Limit()
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

func matches(search string, fields ...string) bool {
	if search == "" {
		return true
	}
	needle := strings.ToLower(strings.TrimSpace(search))
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}

func locationMatches(filter *string, loc *string) bool {
	return filter == nil || (loc != nil && *loc == *filter)
}

// --- users ---

type userRepository struct{ db *DB }

func (r *userRepository) Create(_ context.Context, u *domain.User) error {
	return r.db.write(func(d *data) error {
		u.Email = strings.ToLower(u.Email)
		for _, existing := range d.users {
			if existing.Email == u.Email {
				return apperr.Conflict("User already exists")
			}
		}
		if u.LocationID != nil {
			if _, ok := d.locations[*u.LocationID]; !ok {
				return apperr.Conflict("User is referenced by other records")
			}
		}
		u.ID = newID(u.ID)
		u.CreatedAt = r.db.now()
		u.UpdatedAt = u.CreatedAt
		d.users[u.ID] = *u
		return nil
	})
}

func (r *userRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	var (
		u  domain.User
		ok bool
	)
	r.db.read(func(d *data) { u, ok = d.users[id] })
	if !ok {
		return nil, apperr.NotFound("User")
	}
	return &u, nil
}

func (r *userRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	email = strings.ToLower(email)
	var found *domain.User
	r.db.read(func(d *data) {
		for _, u := range d.users {
			if u.Email == email {
				found = &u
				return
			}
		}
	})
	if found == nil {
		return nil, apperr.NotFound("User")
	}
	return found, nil
}

func (r *userRepository) Update(_ context.Context, u *domain.User) error {
	return r.db.write(func(d *data) error {
		existing, ok := d.users[u.ID]
		if !ok {
			return apperr.NotFound("User")
		}
		email := strings.ToLower(u.Email)
		for id, other := range d.users {
			if id != u.ID && other.Email == email {
				return apperr.Conflict("User already exists")
			}
		}
		existing.Name = u.Name
		existing.Email = email
		existing.PasswordHash = u.PasswordHash
		existing.Role = u.Role
		existing.LocationID = u.LocationID
		existing.AvatarURL = u.AvatarURL
		existing.RW = u.RW
		existing.RT = u.RT
		existing.UpdatedAt = r.db.now()
		d.users[u.ID] = existing
		u.UpdatedAt = existing.UpdatedAt
		return nil
	})
}

func (r *userRepository) Delete(_ context.Context, id string) error {
	return r.db.write(func(d *data) error {
		if _, ok := d.users[id]; !ok {
			return apperr.NotFound("User")
		}
		for _, t := range d.transactions {
			if t.UserID == id {
				return apperr.Conflict("User is referenced by other records")
			}
		}
		for _, rd := range d.redemptions {
			if rd.UserID == id {
				return apperr.Conflict("User is referenced by other records")
			}
		}
		delete(d.users, id)
		return nil
	})
}

func (r *userRepository) List(_ context.Context, f domain.UserFilter) ([]domain.User, int, error) {
	var out []domain.User
	r.db.read(func(d *data) {
		for _, u := range d.users {
			if !locationMatches(f.LocationID, u.LocationID) {
				continue
			}
			if f.Role != nil && u.Role != *f.Role {
				continue
			}
			if !matches(f.Search, u.Name, u.Email) {
				continue
			}
			out = append(out, u)
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return paginate(out, f.Page), len(out), nil
}

func (r *userRepository) CountByRole(_ context.Context, role domain.Role) (int, error) {
	n := 0
	r.db.read(func(d *data) {
		for _, u := range d.users {
			if u.Role == role {
				n++
			}
		}
	})
	return n, nil
}

func (r *userRepository) Leaderboard(_ context.Context, locationID *string, limit int) ([]domain.LeaderboardEntry, error) {
	var users []domain.User
	r.db.read(func(d *data) {
		for _, u := range d.users {
			if u.Role == domain.RoleNasabah && locationMatches(locationID, u.LocationID) {
				users = append(users, u)
			}
		}
	})
	sort.Slice(users, func(i, j int) bool {
		if users[i].Points != users[j].Points {
			return users[i].Points > users[j].Points
		}
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})
	if len(users) > limit {
		users = users[:limit]
	}
	entries := make([]domain.LeaderboardEntry, 0, len(users))
	for i, u := range users {
		entries = append(entries, domain.LeaderboardEntry{
			Rank: i + 1, UserID: u.ID, Name: u.Name, AvatarURL: u.AvatarURL, LocationID: u.LocationID, Points: u.Points,
		})
	}
	return entries, nil
}

func (r *userRepository) BalanceDiscrepancies(_ context.Context) ([]domain.BalanceDiscrepancy, error) {
	var out []domain.BalanceDiscrepancy
	r.db.read(func(d *data) {
		expected := map[string]int64{}
		for _, t := range d.transactions {
			if t.Status == domain.TransactionStatusCompleted && t.Points != nil {
				expected[t.UserID] += *t.Points
			}
		}
		for _, rd := range d.redemptions {
			if rd.Status == domain.RedemptionStatusApproved {
				expected[rd.UserID] -= rd.PointsSpent
			}
		}
		for _, u := range d.users {
			if u.Points != expected[u.ID] {
				out = append(out, domain.BalanceDiscrepancy{UserID: u.ID, Stored: u.Points, Expected: expected[u.ID]})
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

// --- locations ---

type locationRepository struct{ db *DB }

func (r *locationRepository) Create(_ context.Context, l *domain.Location) error {
	return r.db.write(func(d *data) error {
		for _, existing := range d.locations {
			if existing.Desa == l.Desa && existing.Kecamatan == l.Kecamatan && existing.Kabupaten == l.Kabupaten {
				return apperr.Conflict("Location already exists")
			}
		}
		l.ID = newID(l.ID)
		l.CreatedAt = r.db.now()
		l.UpdatedAt = l.CreatedAt
		d.locations[l.ID] = *l
		return nil
	})
}

func (r *locationRepository) GetByID(_ context.Context, id string) (*domain.Location, error) {
	var (
		l  domain.Location
		ok bool
	)
	r.db.read(func(d *data) { l, ok = d.locations[id] })
	if !ok {
		return nil, apperr.NotFound("Location")
	}
	return &l, nil
}

func (r *locationRepository) List(_ context.Context) ([]domain.Location, error) {
	var out []domain.Location
	r.db.read(func(d *data) {
		for _, l := range d.locations {
			out = append(out, l)
		}
	})
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Kabupaten != b.Kabupaten {
			return a.Kabupaten < b.Kabupaten
		}
		if a.Kecamatan != b.Kecamatan {
			return a.Kecamatan < b.Kecamatan
		}
		return a.Desa < b.Desa
	})
	return out, nil
}

func (r *locationRepository) Update(_ context.Context, l *domain.Location) error {
	return r.db.write(func(d *data) error {
		existing, ok := d.locations[l.ID]
		if !ok {
			return apperr.NotFound("Location")
		}
		existing.Desa, existing.Kecamatan, existing.Kabupaten = l.Desa, l.Kecamatan, l.Kabupaten
		existing.UpdatedAt = r.db.now()
		d.locations[l.ID] = existing
		l.UpdatedAt = existing.UpdatedAt
		return nil
	})
}

func (r *locationRepository) Delete(_ context.Context, id string) error {
	return r.db.write(func(d *data) error {
		if _, ok := d.locations[id]; !ok {
			return apperr.NotFound("Location")
		}
		for _, u := range d.users {
			if u.LocationID != nil && *u.LocationID == id {
				return apperr.Conflict("Location is referenced by other records")
			}
		}
		for _, c := range d.categories {
			if c.LocationID == id {
				return apperr.Conflict("Location is referenced by other records")
			}
		}
		for _, rw := range d.rewards {
			if rw.LocationID == id {
				return apperr.Conflict("Location is referenced by other records")
			}
		}
		delete(d.locations, id)
		return nil
	})
}

// --- categories ---

type categoryRepository struct{ db *DB }

func (r *categoryRepository) Create(_ context.Context, c *domain.WasteCategory) error {
	return r.db.write(func(d *data) error {
		if _, ok := d.locations[c.LocationID]; !ok {
			return apperr.Conflict("Waste category is referenced by other records")
		}
		for _, existing := range d.categories {
			if existing.LocationID == c.LocationID && strings.EqualFold(existing.Name, c.Name) {
				return apperr.Conflict("Waste category already exists")
			}
		}
		c.ID = newID(c.ID)
		c.CreatedAt = r.db.now()
		c.UpdatedAt = c.CreatedAt
		d.categories[c.ID] = *c
		return nil
	})
}

func (r *categoryRepository) GetByID(_ context.Context, id string) (*domain.WasteCategory, error) {
	var (
		c  domain.WasteCategory
		ok bool
	)
	r.db.read(func(d *data) { c, ok = d.categories[id] })
	if !ok {
		return nil, apperr.NotFound("Waste category")
	}
	return &c, nil
}

func (r *categoryRepository) List(_ context.Context, f domain.CatalogFilter) ([]domain.WasteCategory, int, error) {
	var out []domain.WasteCategory
	r.db.read(func(d *data) {
		for _, c := range d.categories {
			if locationMatches(f.LocationID, &c.LocationID) && matches(f.Search, c.Name) {
				out = append(out, c)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return paginate(out, f.Page), len(out), nil
}

func (r *categoryRepository) Update(_ context.Context, c *domain.WasteCategory) error {
	return r.db.write(func(d *data) error {
		existing, ok := d.categories[c.ID]
		if !ok {
			return apperr.NotFound("Waste category")
		}
		for _, t := range d.transactions {
			if t.WasteCategoryID == c.ID && t.Status == domain.TransactionStatusCompleted {
				return apperr.Conflict(repository.MsgCategoryInUse)
			}
		}
		existing.Name, existing.Description, existing.Color, existing.PointsPerKg = c.Name, c.Description, c.Color, c.PointsPerKg
		existing.UpdatedAt = r.db.now()
		d.categories[c.ID] = existing
		c.UpdatedAt = existing.UpdatedAt
		return nil
	})
}

func (r *categoryRepository) Delete(_ context.Context, id string) error {
	return r.db.write(func(d *data) error {
		if _, ok := d.categories[id]; !ok {
			return apperr.NotFound("Waste category")
		}
		for _, t := range d.transactions {
			if t.WasteCategoryID == id {
				return apperr.Conflict("Waste category is referenced by other records")
			}
		}
		delete(d.categories, id)
		return nil
	})
}

// --- rewards ---

type rewardRepository struct{ db *DB }

func (r *rewardRepository) Create(_ context.Context, rw *domain.Reward) error {
	return r.db.write(func(d *data) error {
		if _, ok := d.locations[rw.LocationID]; !ok {
			return apperr.Conflict("Reward is referenced by other records")
		}
		rw.ID = newID(rw.ID)
		rw.CreatedAt = r.db.now()
		rw.UpdatedAt = rw.CreatedAt
		d.rewards[rw.ID] = *rw
		return nil
	})
}

func (r *rewardRepository) GetByID(_ context.Context, id string) (*domain.Reward, error) {
	var (
		rw domain.Reward
		ok bool
	)
	r.db.read(func(d *data) { rw, ok = d.rewards[id] })
	if !ok {
		return nil, apperr.NotFound("Reward")
	}
	return &rw, nil
}

func (r *rewardRepository) List(_ context.Context, f domain.CatalogFilter) ([]domain.Reward, int, error) {
	var out []domain.Reward
	r.db.read(func(d *data) {
		for _, rw := range d.rewards {
			if locationMatches(f.LocationID, &rw.LocationID) && matches(f.Search, rw.Name) {
				out = append(out, rw)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].PointsRequired < out[j].PointsRequired })
	return paginate(out, f.Page), len(out), nil
}

func (r *rewardRepository) Update(_ context.Context, rw *domain.Reward) error {
	return r.db.write(func(d *data) error {
		existing, ok := d.rewards[rw.ID]
		if !ok {
			return apperr.NotFound("Reward")
		}
		existing.Name, existing.Description, existing.ImageURL = rw.Name, rw.Description, rw.ImageURL
		existing.PointsRequired, existing.Stock = rw.PointsRequired, rw.Stock
		existing.UpdatedAt = r.db.now()
		d.rewards[rw.ID] = existing
		rw.UpdatedAt = existing.UpdatedAt
		return nil
	})
}

func (r *rewardRepository) Delete(_ context.Context, id string) error {
	return r.db.write(func(d *data) error {
		if _, ok := d.rewards[id]; !ok {
			return apperr.NotFound("Reward")
		}
		for _, rd := range d.redemptions {
			if rd.RewardID == id {
				return apperr.Conflict("Reward is referenced by other records")
			}
		}
		delete(d.rewards, id)
		return nil
	})
}

// --- transactions ---

type transactionRepository struct{ db *DB }

func (r *transactionRepository) Create(_ context.Context, t *domain.Transaction) error {
	return r.db.write(func(d *data) error {
		if _, ok := d.users[t.UserID]; !ok {
			return apperr.Conflict("Transaction is referenced by other records")
		}
		if _, ok := d.categories[t.WasteCategoryID]; !ok {
			return apperr.Conflict("Transaction is referenced by other records")
		}
		t.ID = newID(t.ID)
		if t.Photos == nil {
			t.Photos = []string{}
		}
		t.CreatedAt = r.db.now()
		t.UpdatedAt = t.CreatedAt
		d.transactions[t.ID] = *t
		return nil
	})
}

func (r *transactionRepository) GetByID(_ context.Context, id string) (*domain.Transaction, error) {
	var (
		t  domain.Transaction
		ok bool
	)
	r.db.read(func(d *data) { t, ok = d.transactions[id] })
	if !ok {
		return nil, apperr.NotFound("Transaction")
	}
	return &t, nil
}

func (r *transactionRepository) List(_ context.Context, f domain.TransactionFilter) ([]domain.Transaction, int, error) {
	var out []domain.Transaction
	r.db.read(func(d *data) {
		for _, t := range d.transactions {
			switch {
			case !locationMatches(f.LocationID, &t.LocationID):
			case f.UserID != nil && t.UserID != *f.UserID:
			case f.Status != nil && t.Status != *f.Status:
			case f.Type != nil && t.Type != *f.Type:
			case f.From != nil && t.CreatedAt.Before(*f.From):
			case f.To != nil && t.CreatedAt.After(*f.To):
			default:
				out = append(out, t)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return paginate(out, f.Page), len(out), nil
}

// --- redemptions ---

type redemptionRepository struct{ db *DB }

func (r *redemptionRepository) Create(_ context.Context, rd *domain.Redemption) error {
	return r.db.write(func(d *data) error {
		return insertRedemption(d, rd, r.db.now())
	})
}

func insertRedemption(d *data, rd *domain.Redemption, now time.Time) error {
	if _, ok := d.users[rd.UserID]; !ok {
		return apperr.Conflict("Redemption is referenced by other records")
	}
	if _, ok := d.rewards[rd.RewardID]; !ok {
		return apperr.Conflict("Redemption is referenced by other records")
	}
	rd.ID = newID(rd.ID)
	if rd.RedeemedAt.IsZero() {
		rd.RedeemedAt = now
	}
	d.redemptions[rd.ID] = *rd
	return nil
}

func (r *redemptionRepository) GetByID(_ context.Context, id string) (*domain.Redemption, error) {
	var (
		rd domain.Redemption
		ok bool
	)
	r.db.read(func(d *data) { rd, ok = d.redemptions[id] })
	if !ok {
		return nil, apperr.NotFound("Redemption")
	}
	return &rd, nil
}

func (r *redemptionRepository) List(_ context.Context, f domain.RedemptionFilter) ([]domain.Redemption, int, error) {
	var out []domain.Redemption
	r.db.read(func(d *data) {
		for _, rd := range d.redemptions {
			switch {
			case !locationMatches(f.LocationID, &rd.LocationID):
			case f.UserID != nil && rd.UserID != *f.UserID:
			case f.Status != nil && rd.Status != *f.Status:
			default:
				rd.RewardName = d.rewards[rd.RewardID].Name
				rd.UserName = d.users[rd.UserID].Name
				out = append(out, rd)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].RedeemedAt.After(out[j].RedeemedAt) })
	return paginate(out, f.Page), len(out), nil
}

// --- audit ---

type auditRepository struct{ db *DB }

func (r *auditRepository) Append(_ context.Context, e *domain.AuditEntry) error {
	return r.db.write(func(d *data) error {
		e.ID = newID(e.ID)
		if e.CreatedAt.IsZero() {
			e.CreatedAt = r.db.now()
		}
		d.audit = append(d.audit, *e)
		return nil
	})
}

func (r *auditRepository) List(_ context.Context, f domain.AuditFilter) ([]domain.AuditEntry, int, error) {
	var out []domain.AuditEntry
	r.db.read(func(d *data) {
		for i := len(d.audit) - 1; i >= 0; i-- {
			e := d.audit[i]
			if !locationMatches(f.LocationID, e.LocationID) {
				continue
			}
			if f.Action != nil && e.Action != *f.Action {
				continue
			}
			out = append(out, e)
		}
	})
	return paginate(out, f.Page), len(out), nil
}
