package booking

import "errors"

var ErrInvalidRole = errors.New("booking: unknown actor role")

type Role string

const (
	RoleGuest  Role = "guest"
	RoleHost   Role = "host"
	RoleAdmin  Role = "admin"
	RoleSystem Role = "system"
)

func ParseRole(raw string) (Role, error) {
	switch r := Role(raw); r {
	case RoleGuest, RoleHost, RoleAdmin, RoleSystem:
		return r, nil
	default:
		return "", ErrInvalidRole
	}
}

// Actor is the authenticated caller as supplied by the identity layer.
type Actor struct {
	ID   string
	Role Role
}

func SystemActor() Actor {
	return Actor{ID: "system", Role: RoleSystem}
}

func (a Actor) IsHostOf(b *Booking) bool {
	return a.Role == RoleHost && a.ID != "" && a.ID == b.HostID
}

func (a Actor) IsGuestOf(b *Booking) bool {
	return a.Role == RoleGuest && a.ID != "" && a.ID == b.GuestID
}

func (a Actor) CanView(b *Booking) bool {
	return a.IsGuestOf(b) || a.IsHostOf(b) || a.Role == RoleAdmin || a.Role == RoleSystem
}

func (a Actor) CanCancel(b *Booking) bool {
	return a.CanView(b)
}
