// Package services – ApartmentService
//
// This file implements the write-then-broadcast flow behind the webhook and
// the admin endpoints. Every successful mutation reads the full table back and
// hands the snapshot to the Broadcaster; consumers never see deltas.
package services

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/realty-dashboard/internal/domain"
	"github.com/tbourn/realty-dashboard/internal/observability"
)

// ApartmentRepo defines the repository contract required by
// ApartmentService.
type ApartmentRepo interface {
	// UpsertApartment inserts or fully replaces a row and stamps UpdatedAt.
	UpsertApartment(ctx context.Context, db *gorm.DB, a *domain.Apartment) error

	// ListApartments returns all rows, newest first.
	ListApartments(ctx context.Context, db *gorm.DB) ([]domain.Apartment, error)

	// DeleteApartment removes one row or returns gorm.ErrRecordNotFound.
	DeleteApartment(ctx context.Context, db *gorm.DB, id string) error

	// DeleteAllApartments removes every row and returns the count.
	DeleteAllApartments(ctx context.Context, db *gorm.DB) (int64, error)
}

// Broadcaster fans a full snapshot out to connected clients. Publish must
// not block on slow consumers.
type Broadcaster interface {
	Publish(snapshot []domain.Apartment)
}

// ApartmentService coordinates persistence and broadcasting.
type ApartmentService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the apartment repository used by this service.
	Repo ApartmentRepo
	// Broadcaster receives a snapshot after every successful mutation. It may
	// be nil, in which case nothing is published.
	Broadcaster Broadcaster
}

// NewApartmentService constructs an ApartmentService.
func NewApartmentService(db *gorm.DB, r ApartmentRepo, b Broadcaster) *ApartmentService {
	return &ApartmentService{DB: db, Repo: r, Broadcaster: b}
}

// Upsert stores a and broadcasts the resulting snapshot. A storage error is
// returned as is and nothing is broadcast. If the write succeeds but the
// read-back fails, ErrSnapshotFailed is returned: the row is persisted, but
// clients will only see it with the next successful broadcast.
func (s *ApartmentService) Upsert(ctx context.Context, a *domain.Apartment) (err error) {
	ctx, span := observability.StartSpan(ctx, "apartment.upsert",
		attribute.String("apartment.id", a.ID),
		attribute.String("apartment.status", string(a.Status)),
	)
	defer func() { endSpan(span, err) }()

	if err := s.Repo.UpsertApartment(ctx, s.DB, a); err != nil {
		return fmt.Errorf("upsert apartment: %w", err)
	}
	return s.publish(ctx)
}

// Snapshot returns the full ordered list of apartments.
func (s *ApartmentService) Snapshot(ctx context.Context) ([]domain.Apartment, error) {
	return s.Repo.ListApartments(ctx, s.DB)
}

// Delete removes one apartment and broadcasts the new snapshot.
func (s *ApartmentService) Delete(ctx context.Context, id string) (err error) {
	ctx, span := observability.StartSpan(ctx, "apartment.delete", attribute.String("apartment.id", id))
	defer func() { endSpan(span, err) }()

	if err := s.Repo.DeleteApartment(ctx, s.DB, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrApartmentNotFound
		}
		return fmt.Errorf("delete apartment: %w", err)
	}
	return s.publish(ctx)
}

// DeleteAll removes every apartment and broadcasts the (empty) snapshot.
func (s *ApartmentService) DeleteAll(ctx context.Context) (n int64, err error) {
	ctx, span := observability.StartSpan(ctx, "apartment.delete_all")
	defer func() {
		span.SetAttributes(attribute.Int64("apartment.deleted", n))
		endSpan(span, err)
	}()

	n, err = s.Repo.DeleteAllApartments(ctx, s.DB)
	if err != nil {
		return 0, fmt.Errorf("delete all apartments: %w", err)
	}
	return n, s.publish(ctx)
}

func (s *ApartmentService) publish(ctx context.Context) error {
	snap, err := s.Repo.ListApartments(ctx, s.DB)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSnapshotFailed, err)
	}
	if s.Broadcaster != nil {
		s.Broadcaster.Publish(snap)
	}
	return nil
}

// endSpan records err on span (if any) and ends it.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
