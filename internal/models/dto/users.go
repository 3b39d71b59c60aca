package dto

import "time"

type UpdateRoleRequest struct {
	Role string `json:"role"`
}

type VisitsResponse struct {
	Visits []time.Time `json:"visits"`
}
