package server

import (
	"github.com/go-playground/validator/v10"
)

// CreateJobRequest is the body of POST /api/wayback/{platform}/jobs.
// Dates are 8 to 14 digit archive timestamps; when present they take
// precedence over the year bounds.
type CreateJobRequest struct {
	Handle       string  `json:"handle" validate:"required,min=1,max=200"`
	FromYear     *int    `json:"from_year" validate:"omitempty,gte=1996,lte=2100"`
	ToYear       *int    `json:"to_year" validate:"omitempty,gte=1996,lte=2100"`
	FromDate     *string `json:"from_date" validate:"omitempty,numeric,min=8,max=14"`
	ToDate       *string `json:"to_date" validate:"omitempty,numeric,min=8,max=14"`
	MaxSnapshots int     `json:"max_snapshots" validate:"omitempty,gte=1,lte=100"`
}

// Validate validates the request fields.
func (r *CreateJobRequest) Validate() error {
	validate := validator.New()
	if err := validate.Struct(r); err != nil {
		return err
	}
	if r.FromYear != nil && r.ToYear != nil && *r.FromYear > *r.ToYear {
		return &ErrValidation{Field: "from_year", Message: "must not be after to_year"}
	}
	return nil
}
