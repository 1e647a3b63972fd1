package reservation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kilatworks/omzet/pkg/errdefs"
	"github.com/kilatworks/omzet/pkg/events"
	"github.com/kilatworks/omzet/pkg/ident"
	"github.com/kilatworks/omzet/pkg/log"
	"github.com/kilatworks/omzet/pkg/metrics"
	"github.com/kilatworks/omzet/pkg/resolver"
	"github.com/kilatworks/omzet/pkg/storage"
	"github.com/kilatworks/omzet/pkg/types"
	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
)

const activeKeysCacheKey = "active_keys"

// Registry manages reservation claims. Every state change that activates
// or deactivates a claim runs the conflict resolver before the caller gets
// its reply, so a user observes the effect of their own action.
type Registry struct {
	store    storage.Store
	resolver *resolver.Resolver
	broker   *events.Broker
	keyCache *gocache.Cache
	logger   zerolog.Logger
}

// NewRegistry creates a new reservation registry
func NewRegistry(store storage.Store, res *resolver.Resolver, broker *events.Broker) *Registry {
	return &Registry{
		store:    store,
		resolver: res,
		broker:   broker,
		keyCache: gocache.New(30*time.Second, time.Minute),
		logger:   log.WithComponent("reservation"),
	}
}

// CreateInput carries a reservation request. Admin requesters produce an
// approved reservation immediately; staff requesters produce a pending
// one. GraceDaysOverride replaces the product or global grace window for
// this reservation alone and is honored only for admin requesters.
type CreateInput struct {
	RequestedBy       string
	RequesterRole     types.Role
	CustomerID        string
	CustomerName      string
	Phone             string
	ProductID         string
	TargetStaff       string
	IsPermanent       bool
	GraceDaysOverride *int
}

// Create validates and stores a new reservation. Both identifier slots
// empty is a validation error; any key already claimed by an approved
// reservation under the same product is a conflict. The duplicate check
// uses the union of both keys, so two reservations differing only by an
// empty slot still collide.
func (g *Registry) Create(in CreateInput) (*types.Reservation, error) {
	res := &types.Reservation{
		ID:           uuid.New().String(),
		CustomerID:   in.CustomerID,
		CustomerName: in.CustomerName,
		Phone:        in.Phone,
		ProductID:    in.ProductID,
		StaffID:      in.TargetStaff,
		RequestedBy:  in.RequestedBy,
		Status:       types.ReservationStatusPending,
		IsPermanent:  in.IsPermanent,
		CreatedAt:    time.Now().UTC(),
	}
	if res.StaffID == "" {
		res.StaffID = in.RequestedBy
	}

	keys := ident.ReservationKeys(res)
	if len(keys) == 0 {
		return nil, fmt.Errorf("customer id and customer name are both empty: %w", errdefs.ErrValidation)
	}
	if in.ProductID == "" {
		return nil, fmt.Errorf("product id is required: %w", errdefs.ErrValidation)
	}
	if in.GraceDaysOverride != nil && *in.GraceDaysOverride <= 0 {
		return nil, fmt.Errorf("grace days override must be positive: %w", errdefs.ErrValidation)
	}

	for key := range keys {
		existing, err := g.store.ApprovedReservationForKey(in.ProductID, key)
		if err != nil && !errdefs.IsNotFound(err) {
			return nil, fmt.Errorf("failed to check existing claims: %w", err)
		}
		if existing != nil {
			return nil, fmt.Errorf("customer %q already reserved by staff %s: %w", key, existing.StaffID, errdefs.ErrConflict)
		}
	}

	if in.RequesterRole.AtLeast(types.RoleAdmin) {
		res.Status = types.ReservationStatusApproved
		res.ApprovedAt = time.Now().UTC()
		res.GraceDaysOverride = in.GraceDaysOverride
	}

	// The approved-key index inside CreateReservation is the authoritative
	// duplicate guard; the check above only produces a friendlier error for
	// the common case.
	if err := g.store.CreateReservation(res); err != nil {
		return nil, err
	}
	g.keyCache.Flush()

	g.publish(events.EventReservationCreated, in.RequestedBy, res)
	if res.Status == types.ReservationStatusApproved {
		if _, err := g.resolver.OnAdd(res); err != nil {
			return nil, fmt.Errorf("reservation %s stored but resolve failed: %w", res.ID, err)
		}
		g.publish(events.EventReservationActivated, in.RequestedBy, res)
	}

	g.logger.Info().
		Str("reservation_id", res.ID).
		Str("product_id", res.ProductID).
		Str("staff_id", res.StaffID).
		Str("status", string(res.Status)).
		Msg("reservation created")
	return res, nil
}

// Approve transitions a pending reservation to approved and resolves
// record conflicts before returning.
func (g *Registry) Approve(id, approvedBy string) (*types.Reservation, error) {
	res, err := g.store.GetReservation(id)
	if err != nil {
		return nil, err
	}
	if res.Status != types.ReservationStatusPending {
		return nil, fmt.Errorf("reservation %s is %s, not pending: %w", id, res.Status, errdefs.ErrConflict)
	}

	res.Status = types.ReservationStatusApproved
	res.ApprovedAt = time.Now().UTC()
	if err := g.store.UpdateReservation(res); err != nil {
		return nil, err
	}
	g.keyCache.Flush()

	if _, err := g.resolver.OnAdd(res); err != nil {
		return nil, fmt.Errorf("reservation %s approved but resolve failed: %w", id, err)
	}
	g.publish(events.EventReservationActivated, approvedBy, res)
	return res, nil
}

// Delete removes a reservation. Deleting an approved reservation releases
// its records through the resolver before returning.
func (g *Registry) Delete(id, deletedBy string) error {
	res, err := g.store.GetReservation(id)
	if err != nil {
		return err
	}
	if err := g.store.DeleteReservation(id); err != nil {
		return err
	}
	g.keyCache.Flush()

	if res.Status == types.ReservationStatusApproved {
		if _, err := g.resolver.OnRemove(res); err != nil {
			return fmt.Errorf("reservation %s deleted but resolve failed: %w", id, err)
		}
		g.publish(events.EventReservationDeactivated, deletedBy, res)
	}
	return nil
}

// TogglePermanent flips the is_permanent flag
func (g *Registry) TogglePermanent(id string) (*types.Reservation, error) {
	res, err := g.store.GetReservation(id)
	if err != nil {
		return nil, err
	}
	res.IsPermanent = !res.IsPermanent
	if err := g.store.UpdateReservation(res); err != nil {
		return nil, err
	}
	return res, nil
}

// Get retrieves a reservation by ID
func (g *Registry) Get(id string) (*types.Reservation, error) {
	return g.store.GetReservation(id)
}

// List returns reservations, optionally filtered by status
func (g *Registry) List(status types.ReservationStatus) ([]*types.Reservation, error) {
	return g.store.ListReservations(status)
}

// ExpireCandidates returns the approved, non-permanent reservations whose
// effective grace window elapsed before now. Precedence for the window:
// per-reservation override, then per-product override, then the global
// default.
func (g *Registry) ExpireCandidates(now time.Time) ([]*types.Reservation, error) {
	cfg, err := g.store.GetCleanupConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load cleanup config: %w", err)
	}

	approved, err := g.store.ListReservations(types.ReservationStatusApproved)
	if err != nil {
		return nil, err
	}

	var candidates []*types.Reservation
	for _, res := range approved {
		if res.IsPermanent {
			continue
		}
		days := cfg.GraceDaysFor(res.ProductID)
		if res.GraceDaysOverride != nil {
			days = *res.GraceDaysOverride
		}
		since := res.ApprovedAt
		if since.IsZero() {
			since = res.CreatedAt
		}
		if now.Sub(since) > time.Duration(days)*24*time.Hour {
			candidates = append(candidates, res)
		}
	}
	return candidates, nil
}

// Sweep expires every candidate reservation, releasing its records.
// Returns the number of reservations expired. A cancelled context stops
// the sweep between candidates; reservations already expired stay
// expired.
func (g *Registry) Sweep(ctx context.Context, now time.Time) (int, error) {
	candidates, err := g.ExpireCandidates(now)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, res := range candidates {
		if err := ctx.Err(); err != nil {
			return expired, fmt.Errorf("sweep stopped after %d of %d candidates: %w", expired, len(candidates), err)
		}
		res.Status = types.ReservationStatusExpired
		if err := g.store.UpdateReservation(res); err != nil {
			g.logger.Error().Err(err).Str("reservation_id", res.ID).Msg("failed to expire reservation")
			continue
		}
		g.keyCache.Flush()
		if _, err := g.resolver.OnRemove(res); err != nil {
			g.logger.Error().Err(err).Str("reservation_id", res.ID).Msg("failed to resolve expired reservation")
			continue
		}
		g.publish(events.EventReservationExpired, "scheduler", res)
		metrics.ReservationsExpired.Inc()
		expired++
	}

	if expired > 0 {
		g.logger.Info().Int("expired", expired).Msg("grace-period sweep complete")
	}
	return expired, nil
}

// ActiveKeys returns the union map of normalized key -> reserving staff
// across all approved reservations. The result is cached briefly and the
// cache is flushed on every registry mutation, so assignment exclusion
// always sees its own process's latest claims.
func (g *Registry) ActiveKeys() (map[string]string, error) {
	if cached, ok := g.keyCache.Get(activeKeysCacheKey); ok {
		return cached.(map[string]string), nil
	}

	approved, err := g.store.ListReservations(types.ReservationStatusApproved)
	if err != nil {
		return nil, err
	}
	claims := make(map[string]string)
	for _, res := range approved {
		for key := range ident.ReservationKeys(res) {
			if _, ok := claims[key]; !ok {
				claims[key] = res.StaffID
			}
		}
	}
	g.keyCache.Set(activeKeysCacheKey, claims, gocache.DefaultExpiration)
	return claims, nil
}

func (g *Registry) publish(t events.EventType, actor string, res *types.Reservation) {
	if g.broker == nil {
		return
	}
	g.broker.Publish(&events.Event{
		Type:    t,
		Actor:   actor,
		Subject: res.ID,
		Data: map[string]string{
			"customer_id":   res.CustomerID,
			"customer_name": res.CustomerName,
			"product_id":    res.ProductID,
			"staff_id":      res.StaffID,
			"status":        string(res.Status),
		},
	})
}
