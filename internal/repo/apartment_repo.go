// Package repo implements the data persistence layer for apartments, backed
// by GORM. This file provides repository functions for the Apartment model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations. They hold
// no business logic: validation happens before, broadcasting after.
//
// Error semantics:
//   - When an apartment is not found, functions return ErrNotFound
//     (an alias of gorm.ErrRecordNotFound).
//   - On DB errors the raw gorm error is propagated.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/realty-dashboard/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// upsertColumns are overwritten on conflict. A write is a full replacement of
// the row, so absent optional fields clear the stored value.
var upsertColumns = []string{"agency", "area", "price", "status", "updated_at"}

// UpsertApartment inserts a, or replaces the existing row with the same ID, in a
// single INSERT ... ON CONFLICT statement. UpdatedAt is always set to the
// current UTC time, even when nothing else changed.
func UpsertApartment(ctx context.Context, db *gorm.DB, a *domain.Apartment) error {
	a.UpdatedAt = time.Now().UTC()
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns(upsertColumns),
		}).
		Create(a).Error
}

// ListApartments returns every stored apartment, most recently updated
// first. Rows with equal timestamps come back in no particular order.
func ListApartments(ctx context.Context, db *gorm.DB) ([]domain.Apartment, error) {
	out := []domain.Apartment{}
	err := db.WithContext(ctx).
		Order("updated_at desc").
		Find(&out).Error
	return out, err
}

// GetApartment fetches a single apartment by ID.
func GetApartment(ctx context.Context, db *gorm.DB, id string) (*domain.Apartment, error) {
	var a domain.Apartment
	if err := db.WithContext(ctx).Where("id = ?", id).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// CountApartments returns the number of stored apartments.
func CountApartments(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Model(&domain.Apartment{}).Count(&total).Error
	return total, err
}

// DeleteApartment removes the row with the given ID. It returns ErrNotFound
// when no row was deleted.
func DeleteApartment(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Apartment{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteAllApartments removes every row and reports how many were deleted.
func DeleteAllApartments(ctx context.Context, db *gorm.DB) (int64, error) {
	res := db.WithContext(ctx).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&domain.Apartment{})
	return res.RowsAffected, res.Error
}
