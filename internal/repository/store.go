// Package repository is the gorm backed persistence for every model.
package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique constraint rejects a write.
	ErrDuplicate = errors.New("duplicate record")
	// ErrInUse is returned when other rows still reference the record.
	ErrInUse = errors.New("record is referenced by other records")
)

// Listing limits.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Page selects a window of a listing. Page numbers start at 1.
type Page struct {
	Number int
	Size   int
}

func (p Page) normalize() Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size < 1 {
		p.Size = DefaultPageSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	return p
}

func (p Page) scope(db *gorm.DB) *gorm.DB {
	p = p.normalize()
	return db.Offset((p.Number - 1) * p.Size).Limit(p.Size)
}

// Store implements the stores the services and handlers depend on.
type Store struct {
	db *gorm.DB
}

// New wraps an open connection. The connection must use TranslateError so
// constraint violations surface as gorm.ErrDuplicatedKey.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) conn(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

// translate maps gorm errors onto the package sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return ErrInUse
	}
	return err
}

func exists(db *gorm.DB) (bool, error) {
	var n int64
	if err := db.Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}
