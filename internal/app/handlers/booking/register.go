package booking

import (
	"stayledger/internal/app/commands"
	"stayledger/internal/app/queries"
)

// Register wires every booking, availability and pricing handler onto the
// in-memory buses.
func Register(cmdBus *commands.InMemoryBus, queryBus *queries.InMemoryBus, deps *Deps) {
	commands.RegisterHandler(cmdBus, createBookingKey, &CreateBookingHandler{Deps: deps})
	commands.RegisterHandler(cmdBus, acceptBookingKey, &AcceptBookingHandler{Deps: deps})
	commands.RegisterHandler(cmdBus, rejectBookingKey, &RejectBookingHandler{Deps: deps})
	commands.RegisterHandler(cmdBus, cancelBookingKey, &CancelBookingHandler{Deps: deps})
	commands.RegisterHandler(cmdBus, checkInKey, &CheckInHandler{Deps: deps})
	commands.RegisterHandler(cmdBus, completeBookingKey, &CompleteBookingHandler{Deps: deps})
	commands.RegisterHandler(cmdBus, expireBookingKey, &ExpireBookingHandler{Deps: deps})
	commands.RegisterHandler(cmdBus, refundSecurityDepositKey, &RefundSecurityDepositHandler{Deps: deps})
	commands.RegisterHandler(cmdBus, adminReleaseResourceKey, &AdminReleaseResourceHandler{Deps: deps})
	commands.RegisterHandler(cmdBus, changePlatformRateKey, &ChangePlatformRateHandler{Deps: deps})

	queries.RegisterHandler(queryBus, quotePriceKey, &QuotePriceHandler{Deps: deps})
	queries.RegisterHandler(queryBus, cancellationPreviewKey, &CancellationPreviewHandler{Deps: deps})
	queries.RegisterHandler(queryBus, getBookingKey, &GetBookingHandler{Deps: deps})
	queries.RegisterHandler(queryBus, checkAvailabilityKey, &CheckAvailabilityHandler{Deps: deps})
}
