package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/iahsanshah/ZK-machine-Integration/internal/domain/identity"
	"github.com/iahsanshah/ZK-machine-Integration/internal/domain/model"
)

// GormStore implements Store on a SQLite database via GORM.
type GormStore struct {
	db *gorm.DB
}

// Open opens (or creates) the database at path and migrates the schema.
// Use ":memory:" for an ephemeral store.
func Open(path string) (*GormStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if err := db.AutoMigrate(&Checkin{}, &SyncState{}, &Employee{}); err != nil {
		return nil, fmt.Errorf("migrate store: %w", err)
	}
	return &GormStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Exists implements Store.
func (s *GormStore) Exists(ctx context.Context, employee string, ts time.Time, logType model.LogType) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&Checkin{}).
		Where("employee = ? AND timestamp = ? AND log_type = ?",
			employee, ts.Truncate(time.Second), string(logType)).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("exists check: %w", err)
	}
	return count > 0, nil
}

// Create implements Store.
func (s *GormStore) Create(ctx context.Context, c Checkin) (string, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.Timestamp = c.Timestamp.Truncate(time.Second)
	if err := s.db.WithContext(ctx).Create(&c).Error; err != nil {
		return "", fmt.Errorf("create checkin: %w", err)
	}
	return c.ID, nil
}

// List implements Store.
func (s *GormStore) List(ctx context.Context, scope string) ([]Checkin, error) {
	var checkins []Checkin
	err := s.db.WithContext(ctx).
		Where("device_id = ?", scope).
		Order("employee asc, timestamp asc, created_at asc, id asc").
		Find(&checkins).Error
	if err != nil {
		return nil, fmt.Errorf("list checkins: %w", err)
	}
	return checkins, nil
}

// Delete implements Store.
func (s *GormStore) Delete(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&Checkin{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("delete checkin: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateLogType implements Store.
func (s *GormStore) UpdateLogType(ctx context.Context, id string, logType model.LogType) error {
	res := s.db.WithContext(ctx).Model(&Checkin{}).
		Where("id = ?", id).
		Update("log_type", string(logType))
	if res.Error != nil {
		return fmt.Errorf("update log type: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetSyncState implements Store.
func (s *GormStore) GetSyncState(ctx context.Context, scope string) (SyncState, error) {
	var st SyncState
	err := s.db.WithContext(ctx).First(&st, "scope = ?", scope).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return SyncState{}, ErrNotFound
	}
	if err != nil {
		return SyncState{}, fmt.Errorf("get sync state: %w", err)
	}
	return st, nil
}

// PutSyncState implements Store.
func (s *GormStore) PutSyncState(ctx context.Context, st SyncState) error {
	st.UpdatedAt = time.Now()
	if err := s.db.WithContext(ctx).Save(&st).Error; err != nil {
		return fmt.Errorf("put sync state: %w", err)
	}
	return nil
}

// UpsertEmployee inserts or replaces an employee identity row.
func (s *GormStore) UpsertEmployee(ctx context.Context, e Employee) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if err := s.db.WithContext(ctx).Save(&e).Error; err != nil {
		return fmt.Errorf("upsert employee: %w", err)
	}
	return nil
}

// Resolver returns the priority-ordered identity resolution chain over the
// employee table: primary identifier, secondary identifier, then the
// attendance-device mapping field. First match wins.
func (s *GormStore) Resolver() identity.Resolver {
	return identity.Chain{
		s.employeeLookup("employee_code"),
		s.employeeLookup("user_id"),
		s.employeeLookup("attendance_device_id"),
	}
}

func (s *GormStore) employeeLookup(column string) identity.Lookup {
	return func(ctx context.Context, subjectCode string) (string, bool, error) {
		if subjectCode == "" {
			return "", false, nil
		}
		var emp Employee
		err := s.db.WithContext(ctx).First(&emp, column+" = ?", subjectCode).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		if err != nil {
			return "", false, fmt.Errorf("lookup employee by %s: %w", column, err)
		}
		return emp.ID, true, nil
	}
}
