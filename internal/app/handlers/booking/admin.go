package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"stayledger/internal/app/apperr"
	"stayledger/internal/app/commands"
	"stayledger/internal/app/dto"
	handlersupport "stayledger/internal/app/handlers/support"
	"stayledger/internal/app/uow"
	domainavailability "stayledger/internal/domain/availability"
	domainbooking "stayledger/internal/domain/booking"
	domaincatalog "stayledger/internal/domain/catalog"
	domainpricing "stayledger/internal/domain/pricing"
	"stayledger/internal/domain/shared/money"
)

// AdminReleaseResourceHandler frees cells overlapping a window that are
// still held by bookings which are gone or already finished. A window that
// touches a live booking is refused; that booking has to be cancelled
// first.
type AdminReleaseResourceHandler struct {
	Deps *Deps
}

func (h *AdminReleaseResourceHandler) Handle(ctx context.Context, cmd AdminReleaseResourceCommand) (*dto.ReleaseResultDTO, error) {
	const op = adminReleaseResourceKey
	d := h.Deps
	ref := domaincatalog.ResourceRef{Kind: domaincatalog.Kind(cmd.ResourceKind), ID: cmd.ResourceID}
	if err := ref.Validate(); err != nil {
		return nil, d.fail(op, err)
	}
	span, err := domainavailability.TimedSpan(cmd.Start, cmd.End, 0)
	if err != nil {
		return nil, d.fail(op, err)
	}
	cells, err := d.Ledger.Cells(ctx, ref, span.Bounds())
	if err != nil {
		return nil, d.fail(op, err)
	}
	stale, live, err := h.classifyOwners(ctx, cells)
	if err != nil {
		return nil, d.fail(op, err)
	}
	if len(live) > 0 {
		return nil, apperr.New(apperr.KindResourceConflict, op, fmt.Errorf("%w: %s", errLiveBookings, strings.Join(live, ", ")))
	}
	ids, err := d.Ledger.ForceRelease(ctx, ref, span, stale)
	if err != nil {
		return nil, d.fail(op, err)
	}
	d.logger().Warn("cells force released",
		"resource", ref.String(),
		"start", span.Start,
		"end", span.End,
		"actor_id", cmd.Actor.ID,
		"bookings", ids,
	)
	if ids == nil {
		ids = []string{}
	}
	return &dto.ReleaseResultDTO{
		Resource:   dto.ResourceDTO{Kind: string(ref.Kind), ID: ref.ID},
		BookingIDs: ids,
	}, nil
}

var errLiveBookings = errors.New("window overlaps live bookings")

// classifyOwners splits the owners of cells into bookings that no longer
// need them (missing or terminal) and bookings that still do.
func (h *AdminReleaseResourceHandler) classifyOwners(ctx context.Context, cells []domainavailability.Cell) (stale, live []string, err error) {
	seen := map[string]bool{}
	var owners []string
	for _, c := range cells {
		if c.Status == domainavailability.StatusAvailable || seen[c.BookingID] {
			continue
		}
		seen[c.BookingID] = true
		owners = append(owners, c.BookingID)
	}
	if len(owners) == 0 {
		return nil, nil, nil
	}
	err = uow.Run(ctx, h.Deps.UoWFactory, uow.TxOptions{ReadOnly: true}, func(ctx context.Context, unit uow.UnitOfWork) error {
		for _, id := range owners {
			b, err := unit.Bookings().ByID(ctx, domainbooking.BookingID(id))
			switch {
			case errors.Is(err, domainbooking.ErrBookingNotFound):
				stale = append(stale, id)
			case err != nil:
				return err
			case b.Status.Terminal():
				stale = append(stale, id)
			default:
				live = append(live, id)
			}
		}
		return nil
	})
	return stale, live, err
}

// ChangePlatformRateHandler closes the active fee version and opens a new one.
type ChangePlatformRateHandler struct {
	Deps *Deps
}

func (h *ChangePlatformRateHandler) Handle(ctx context.Context, cmd ChangePlatformRateCommand) (*dto.RateVersionDTO, error) {
	const op = changePlatformRateKey
	d := h.Deps
	rate, err := money.ParseRate(cmd.Rate)
	if err != nil {
		return nil, d.fail(op, err)
	}
	next, err := domainpricing.NewRateVersion(d.newID(), rate, cmd.Actor.ID, d.now())
	if err != nil {
		return nil, d.fail(op, err)
	}
	var out dto.RateVersionDTO
	err = handlersupport.InUnit(ctx, d.UoWFactory, func(ctx context.Context, unit uow.UnitOfWork) error {
		stored, err := unit.Rates().ChangeRate(ctx, next)
		if err != nil {
			return err
		}
		out = dto.MapRateVersion(stored)
		return nil
	})
	if err != nil {
		return nil, d.fail(op, err)
	}
	d.logger().Info("platform fee rate changed", "rate_bps", int64(rate), "version_id", out.ID, "actor_id", cmd.Actor.ID)
	return &out, nil
}

var (
	_ commands.Handler[AdminReleaseResourceCommand, *dto.ReleaseResultDTO] = (*AdminReleaseResourceHandler)(nil)
	_ commands.Handler[ChangePlatformRateCommand, *dto.RateVersionDTO]     = (*ChangePlatformRateHandler)(nil)
)
