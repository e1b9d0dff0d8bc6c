// Apartment HTTP handlers.
//
// This file exposes the REST surface of the dashboard:
//   - POST   /update-sheet       (webhook, gated upstream)
//   - GET    /health             (liveness)
//   - GET    /apartments         (current snapshot)
//   - DELETE /apartments/{id}    (admin)
//   - DELETE /apartments         (admin)
//
// Handlers are transport-thin: they validate input, call the application
// service, and translate results into HTTP responses. Authentication (IP
// filter, rate limit, signature, admin secret) runs in middleware before any
// of these handlers are reached.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tbourn/realty-dashboard/internal/broadcast"
	"github.com/tbourn/realty-dashboard/internal/domain"
	"github.com/tbourn/realty-dashboard/internal/http/middleware"
	"github.com/tbourn/realty-dashboard/internal/repo"
	"github.com/tbourn/realty-dashboard/internal/services"
)

//
// Service contracts (context-aware)
//

// ApartmentService defines the write-then-broadcast operations consumed by
// HTTP handlers. Implementations must be safe for concurrent use and honor
// the provided context.
type ApartmentService interface {
	// Upsert stores a and broadcasts the resulting snapshot.
	Upsert(ctx context.Context, a *domain.Apartment) error
	// Snapshot returns every apartment, most recently updated first.
	Snapshot(ctx context.Context) ([]domain.Apartment, error)
	// Delete removes one apartment and broadcasts.
	Delete(ctx context.Context, id string) error
	// DeleteAll removes every apartment and broadcasts.
	DeleteAll(ctx context.Context) (int64, error)
}

// SnapshotHub is the subscriber side of the broadcast hub.
type SnapshotHub interface {
	Subscribe() (*broadcast.Subscriber, error)
	Unsubscribe(s *broadcast.Subscriber)
	Offer(s *broadcast.Subscriber, snapshot []domain.Apartment) bool
}

//
// Handler wiring
//

// DefaultHeartbeat is used when New is given a non-positive interval.
const DefaultHeartbeat = 25 * time.Second

// Handlers groups the apartment endpoints and the snapshot stream.
type Handlers struct {
	svc       ApartmentService
	hub       SnapshotHub
	heartbeat time.Duration
}

// New constructs Handlers bound to the given service and hub.
func New(svc ApartmentService, hub SnapshotHub, heartbeat time.Duration) *Handlers {
	if heartbeat <= 0 {
		heartbeat = DefaultHeartbeat
	}
	return &Handlers{svc: svc, hub: hub, heartbeat: heartbeat}
}

//
// DTOs
//

// UpdateSheetRequest documents the webhook payload. The handler validates the
// raw JSON itself so it can tell an explicit null from a missing field.
type UpdateSheetRequest struct {
	ApartmentID string   `json:"apartment_id" example:"A101"`
	Agency      string   `json:"agency" example:"Acme Realty"`
	Area        *float64 `json:"area" example:"72.5"`
	Price       *float64 `json:"price" example:"3.2"`
	Status      *string  `json:"status" example:"Sẵn hàng"`
}

// UpdateSheetResponse acknowledges a stored webhook.
type UpdateSheetResponse struct {
	Success   bool   `json:"success" example:"true"`
	Message   string `json:"message" example:"Data updated successfully"`
	Timestamp string `json:"timestamp" example:"2024-05-01T10:00:00.000Z"`
}

// HealthResponse is returned by the liveness probe.
type HealthResponse struct {
	Status  string `json:"status" example:"OK"`
	Message string `json:"message" example:"Server is running"`
}

// DeleteApartmentResponse acknowledges a single delete.
type DeleteApartmentResponse struct {
	Success   bool   `json:"success" example:"true"`
	DeletedID string `json:"deleted_id" example:"A101"`
}

// DeleteAllResponse acknowledges a bulk delete.
type DeleteAllResponse struct {
	Success      bool  `json:"success" example:"true"`
	DeletedCount int64 `json:"deleted_count" example:"12"`
}

// timestampLayout is ISO-8601 in UTC with millisecond precision.
const timestampLayout = "2006-01-02T15:04:05.000Z"

//
// Handlers
//

// UpdateSheet godoc
// @ID          updateSheet
// @Summary     Ingest one apartment row
// @Description Validates a signed spreadsheet row, upserts it, and broadcasts the full snapshot to stream clients.
// @Tags        Webhook
// @Accept      json
// @Produce     json
//
// @Param       X-Webhook-Signature  header  string  true  "hex HMAC-SHA256 of timestamp||body"
// @Param       X-Webhook-Timestamp  header  string  true  "unix seconds"
// @Param       body                 body    handlers.UpdateSheetRequest  true  "Apartment row"
//
// @Success     200  {object}  handlers.UpdateSheetResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Validation failed"
// @Failure     401  {object}  handlers.ErrorResponse  "Bad signature"
// @Failure     403  {object}  handlers.ErrorResponse  "IP not allowed"
// @Failure     413  {object}  handlers.ErrorResponse  "Body too large"
// @Failure     429  {object}  handlers.ErrorResponse  "Rate limited"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /update-sheet [post]
func (h *Handlers) UpdateSheet(c *gin.Context) {
	body, err := middleware.RawBody(c)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			fail(c, http.StatusRequestEntityTooLarge, ErrCodePayloadTooLarge, "request body too large")
			return
		}
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "could not read request body")
		return
	}

	apt, err := services.ValidateApartment(body)
	if err != nil {
		var ve *services.ValidationError
		if errors.As(err, &ve) {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, ve.Message)
			return
		}
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid request body")
		return
	}

	lg := middleware.LoggerFrom(c)
	if err := h.svc.Upsert(c.Request.Context(), &apt); err != nil {
		if errors.Is(err, services.ErrSnapshotFailed) {
			// The row is stored; only the broadcast is missing.
			middleware.CountWrite("upsert")
		}
		lg.Error().Err(err).Str("apartment_id", apt.ID).Msg("webhook upsert failed")
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "internal server error")
		return
	}
	middleware.CountWrite("upsert")

	lg.Info().
		Str("apartment_id", apt.ID).
		Str("status", string(apt.Status)).
		Msg("apartment updated")

	ok(c, http.StatusOK, UpdateSheetResponse{
		Success:   true,
		Message:   "Data updated successfully",
		Timestamp: time.Now().UTC().Format(timestampLayout),
	})
}

// Health godoc
// @ID          health
// @Summary     Liveness probe
// @Tags        Health
// @Produce     json
// @Success     200  {object}  handlers.HealthResponse
// @Router      /health [get]
func (h *Handlers) Health(c *gin.Context) {
	ok(c, http.StatusOK, HealthResponse{Status: "OK", Message: "Server is running"})
}

// ListApartments godoc
// @ID          listApartments
// @Summary     Current apartment snapshot
// @Description Returns every apartment ordered by updated_at, newest first. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Apartments
// @Produce     json
// @Param       If-None-Match  header  string  false  "Return 304 if ETag matches"  example(W/\"apartments:3:1700000000000000000\")
// @Success     200  {array}   domain.Apartment
// @Header      200  {string}  ETag  "Weak ETag for current snapshot"
// @Success     304  {string}  string  "Not Modified"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /apartments [get]
func (h *Handlers) ListApartments(c *gin.Context) {
	ctx := c.Request.Context()

	// ETag pre-check (best effort).
	var db *gorm.DB
	if svc, ok := h.svc.(*services.ApartmentService); ok {
		db = svc.DB
	}
	if db != nil {
		count, maxTS, err := repo.ApartmentsStats(ctx, db)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.UnixNano()
			}
			etag := fmt.Sprintf(`W/"apartments:%d:%d"`, count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	snap, err := h.svc.Snapshot(ctx)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "failed to list apartments")
		return
	}
	ok(c, http.StatusOK, snap)
}

// DeleteApartment godoc
// @ID          deleteApartment
// @Summary     Delete one apartment
// @Tags        Admin
// @Produce     json
// @Param       X-Admin-Secret  header  string  true  "Admin secret"
// @Param       id              path    string  true  "Apartment ID"
// @Success     200  {object}  handlers.DeleteApartmentResponse
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     404  {object}  handlers.ErrorResponse  "Not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /apartments/{id} [delete]
func (h *Handlers) DeleteApartment(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "apartment id is required")
		return
	}

	err := h.svc.Delete(c.Request.Context(), id)
	switch {
	case errors.Is(err, services.ErrApartmentNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "apartment not found")
		return
	case err != nil:
		if errors.Is(err, services.ErrSnapshotFailed) {
			middleware.CountWrite("delete")
		}
		middleware.LoggerFrom(c).Error().Err(err).Str("apartment_id", id).Msg("delete failed")
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "internal server error")
		return
	}
	middleware.CountWrite("delete")
	ok(c, http.StatusOK, DeleteApartmentResponse{Success: true, DeletedID: id})
}

// DeleteAllApartments godoc
// @ID          deleteAllApartments
// @Summary     Delete every apartment
// @Tags        Admin
// @Produce     json
// @Param       X-Admin-Secret  header  string  true  "Admin secret"
// @Success     200  {object}  handlers.DeleteAllResponse
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /apartments [delete]
func (h *Handlers) DeleteAllApartments(c *gin.Context) {
	n, err := h.svc.DeleteAll(c.Request.Context())
	if err != nil {
		middleware.LoggerFrom(c).Error().Err(err).Msg("delete all failed")
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "internal server error")
		return
	}
	middleware.CountWrite("delete_all")
	middleware.LoggerFrom(c).Warn().Int64("deleted_count", n).Msg("all apartments deleted")
	ok(c, http.StatusOK, DeleteAllResponse{Success: true, DeletedCount: n})
}
