package api

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"laptop-checkpoint/internal/cloud/database"
	"laptop-checkpoint/internal/cloud/models"
)

type fakeEmployees struct {
	mu   sync.Mutex
	rows map[string]*models.Employee
}

func newFakeEmployees(seed ...models.Employee) *fakeEmployees {
	f := &fakeEmployees{rows: make(map[string]*models.Employee)}
	for i := range seed {
		emp := seed[i]
		f.rows[emp.ID] = &emp
	}
	return f
}

func (f *fakeEmployees) filter(keep func(models.Employee) bool) []models.Employee {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := []models.Employee{}
	for _, emp := range f.rows {
		if emp.DeletedAt == nil && keep(*emp) {
			out = append(out, *emp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (f *fakeEmployees) List(ctx context.Context) ([]models.Employee, error) {
	return f.filter(func(models.Employee) bool { return true }), nil
}

func (f *fakeEmployees) Search(ctx context.Context, q string) ([]models.Employee, error) {
	q = strings.ToLower(q)
	return f.filter(func(e models.Employee) bool {
		return strings.Contains(strings.ToLower(e.Name), q) ||
			strings.Contains(strings.ToLower(e.Email), q) ||
			strings.Contains(strings.ToLower(e.Department), q)
	}), nil
}

func (f *fakeEmployees) ByDepartment(ctx context.Context, department string) ([]models.Employee, error) {
	return f.filter(func(e models.Employee) bool { return e.Department == department }), nil
}

func (f *fakeEmployees) ActiveCount(ctx context.Context) (int64, error) {
	return int64(len(f.filter(func(e models.Employee) bool { return e.IsActive }))), nil
}

func (f *fakeEmployees) Get(ctx context.Context, id string) (*models.Employee, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	emp, ok := f.rows[id]
	if !ok || emp.DeletedAt != nil {
		return nil, database.ErrNotFound
	}
	copied := *emp
	return &copied, nil
}

func (f *fakeEmployees) Create(ctx context.Context, emp *models.Employee) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, exists := f.rows[emp.ID]; exists {
		return fmt.Errorf("failed to create employee: %w", database.ErrDuplicate)
	}
	emp.CreatedAt = time.Now()
	emp.UpdatedAt = emp.CreatedAt
	copied := *emp
	f.rows[emp.ID] = &copied
	return nil
}

func (f *fakeEmployees) Update(ctx context.Context, emp *models.Employee) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	existing, ok := f.rows[emp.ID]
	if !ok || existing.DeletedAt != nil {
		return database.ErrNotFound
	}
	emp.UpdatedAt = time.Now()
	copied := *emp
	f.rows[emp.ID] = &copied
	return nil
}

func (f *fakeEmployees) SoftDelete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	emp, ok := f.rows[id]
	if !ok || emp.DeletedAt != nil {
		return database.ErrNotFound
	}
	now := time.Now()
	emp.DeletedAt = &now
	emp.IsActive = false
	return nil
}

type fakeLogs struct {
	mu        sync.Mutex
	entries   []models.LogEntry
	employees *fakeEmployees
	nextID    int
	failWith  error
}

func (f *fakeLogs) Create(ctx context.Context, entry *models.LogEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failWith != nil {
		return f.failWith
	}
	f.nextID++
	entry.ID = fmt.Sprintf("log-%d", f.nextID)
	entry.CreatedAt = time.Now()
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeLogs) selectDesc(keep func(models.LogEntry) bool) ([]models.LogEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failWith != nil {
		return nil, f.failWith
	}
	out := []models.LogEntry{}
	for _, e := range f.entries {
		if keep(e) {
			if emp, err := f.employees.Get(context.Background(), e.EmployeeID); err == nil {
				e.Employee = emp
			}
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

func (f *fakeLogs) List(ctx context.Context) ([]models.LogEntry, error) {
	return f.selectDesc(func(models.LogEntry) bool { return true })
}

func (f *fakeLogs) Recent(ctx context.Context, limit int) ([]models.LogEntry, error) {
	all, err := f.List(ctx)
	if err != nil || len(all) <= limit {
		return all, err
	}
	return all[:limit], nil
}

func (f *fakeLogs) ByEmployee(ctx context.Context, employeeID string) ([]models.LogEntry, error) {
	return f.selectDesc(func(e models.LogEntry) bool { return e.EmployeeID == employeeID })
}

func (f *fakeLogs) ByDevice(ctx context.Context, deviceID string) ([]models.LogEntry, error) {
	return f.selectDesc(func(e models.LogEntry) bool { return e.DeviceID == deviceID })
}

func (f *fakeLogs) ByAction(ctx context.Context, action string) ([]models.LogEntry, error) {
	return f.selectDesc(func(e models.LogEntry) bool { return e.Action == action })
}

func (f *fakeLogs) DateRange(ctx context.Context, start, end time.Time) ([]models.LogEntry, error) {
	return f.selectDesc(func(e models.LogEntry) bool {
		return !e.Timestamp.Before(start) && !e.Timestamp.After(end)
	})
}

func (f *fakeLogs) Get(ctx context.Context, id string) (*models.LogEntry, error) {
	matches, err := f.selectDesc(func(e models.LogEntry) bool { return e.ID == id })
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, database.ErrNotFound
	}
	return &matches[0], nil
}

func (f *fakeLogs) Stats(ctx context.Context, dayStart time.Time) (*models.LogStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	stats := &models.LogStats{TotalLogs: int64(len(f.entries))}
	for _, e := range f.entries {
		if e.Timestamp.Before(dayStart) || !e.Timestamp.Before(dayStart.AddDate(0, 0, 1)) {
			continue
		}
		switch e.Action {
		case "entry":
			stats.EntriesToday++
		case "exit":
			stats.ExitsToday++
		}
	}
	return stats, nil
}

func (f *fakeLogs) DeleteAll(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = nil
	return nil
}

func (f *fakeLogs) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i, e := range f.entries {
		if e.ID == id {
			f.entries = append(f.entries[:i], f.entries[i+1:]...)
			return nil
		}
	}
	return database.ErrNotFound
}

type fakeUsers struct {
	mu      sync.Mutex
	byEmail map[string]*models.User
	nextID  int
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byEmail: make(map[string]*models.User)}
}

func (f *fakeUsers) Create(ctx context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if _, exists := f.byEmail[user.Email]; exists {
		return fmt.Errorf("failed to create user: %w", database.ErrDuplicate)
	}
	f.nextID++
	user.ID = fmt.Sprintf("user-%d", f.nextID)
	user.CreatedAt = time.Now()
	copied := *user
	f.byEmail[user.Email] = &copied
	return nil
}

func (f *fakeUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	user, ok := f.byEmail[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return nil, database.ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (f *fakeUsers) GetByID(ctx context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, user := range f.byEmail {
		if user.ID == id {
			copied := *user
			return &copied, nil
		}
	}
	return nil, database.ErrNotFound
}

func (f *fakeUsers) TouchLogin(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, user := range f.byEmail {
		if user.ID == id {
			now := time.Now()
			user.LastLoginAt = &now
			return nil
		}
	}
	return database.ErrNotFound
}
