package repository

import (
	"context"
	"sync"
	"time"

	"github.com/spec-kit/feedback-service/internal/domain"
)

// MemoryEmployeeRepository is an in-process directory for tests and
// database-less development runs.
type MemoryEmployeeRepository struct {
	mu     sync.RWMutex
	nextID int64
	byID   map[int64]domain.Employee
	now    func() time.Time
}

// NewMemoryEmployeeRepository builds an empty directory.
func NewMemoryEmployeeRepository() *MemoryEmployeeRepository {
	return &MemoryEmployeeRepository{
		byID: make(map[int64]domain.Employee),
		now:  time.Now,
	}
}

func (r *MemoryEmployeeRepository) Create(ctx context.Context, employee *domain.Employee) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := employee.NormalizeIdentifiers(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.byID {
		if existing.Email == employee.Email || (employee.Phone != "" && existing.Phone == employee.Phone) {
			return ErrDuplicate
		}
	}
	r.nextID++
	now := r.now().UTC()
	employee.ID = r.nextID
	employee.CreatedAt = now
	employee.UpdatedAt = now
	r.byID[employee.ID] = *employee
	return nil
}

func (r *MemoryEmployeeRepository) GetByID(ctx context.Context, id int64) (*domain.Employee, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &e, nil
}

func (r *MemoryEmployeeRepository) GetByEmailOrPhone(ctx context.Context, emailOrPhone string) (*domain.Employee, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	field, value, ok := lookupKey(emailOrPhone)
	if !ok {
		return nil, ErrNotFound
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.byID {
		if (field == "email" && e.Email == value) || (field == "phone" && e.Phone == value) {
			return &e, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryEmployeeRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	return r.update(ctx, id, func(e *domain.Employee) { e.PasswordHash = passwordHash })
}

func (r *MemoryEmployeeRepository) UpdateRole(ctx context.Context, id int64, role domain.Role) error {
	return r.update(ctx, id, func(e *domain.Employee) { e.Role = role })
}

func (r *MemoryEmployeeRepository) update(ctx context.Context, id int64, apply func(*domain.Employee)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	apply(&e)
	e.UpdatedAt = r.now().UTC()
	r.byID[id] = e
	return nil
}
