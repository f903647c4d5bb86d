// Package handlers implements HTTP handlers for the game-price-tracker API.
package handlers

// StatusResponse is the body of the health endpoints.
type StatusResponse struct {
	Status string `json:"status" example:"ok"`
}
