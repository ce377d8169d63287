package dto

import (
	"time"

	domainavailability "stayledger/internal/domain/availability"
)

type CellDTO struct {
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Status    string    `json:"status"`
	BookingID string    `json:"booking_id,omitempty"`
	Reason    string    `json:"reason,omitempty"`
}

type AvailabilityDTO struct {
	Resource  ResourceDTO `json:"resource"`
	Start     time.Time   `json:"start"`
	End       time.Time   `json:"end"`
	Available bool        `json:"available"`
	Cells     []CellDTO   `json:"cells"`
}

type ReleaseResultDTO struct {
	Resource   ResourceDTO `json:"resource"`
	BookingIDs []string    `json:"released_booking_ids"`
}

func MapCells(cells []domainavailability.Cell) []CellDTO {
	out := make([]CellDTO, 0, len(cells))
	for _, c := range cells {
		out = append(out, CellDTO{Start: c.Start, End: c.End, Status: string(c.Status), BookingID: c.BookingID, Reason: c.Reason})
	}
	return out
}
