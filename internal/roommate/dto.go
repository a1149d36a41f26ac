package roommate

import (
	"time"

	"github.com/fkhayef/roommate-ledger/internal/domain"
)

// CreateRoommateRequest represents the request body for adding a roommate
type CreateRoommateRequest struct {
	Name string `json:"name"`
}

// UpdateRoommateRequest represents the request body for renaming a roommate
type UpdateRoommateRequest struct {
	Name string `json:"name"`
}

// RoommateResponse represents the response for a single roommate
type RoommateResponse struct {
	ID         int64   `json:"id"`
	Name       string  `json:"name"`
	Archived   bool    `json:"archived"`
	ArchivedAt *string `json:"archived_at,omitempty"`
	CreatedAt  string  `json:"created_at"`
}

// ToResponse converts a person to a RoommateResponse DTO
func ToResponse(p *domain.Person) *RoommateResponse {
	resp := &RoommateResponse{
		ID:        int64(p.ID),
		Name:      p.Name,
		Archived:  !p.Active(),
		CreatedAt: p.CreatedAt.UTC().Format(time.RFC3339),
	}
	if p.ArchivedAt != nil {
		at := p.ArchivedAt.UTC().Format(time.RFC3339)
		resp.ArchivedAt = &at
	}
	return resp
}
