package crmapi

import "encoding/json"

// TokenResponse is the body returned by POST /login
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Listing is a listing as served by the CRM API.
// Price is sometimes serialized as a string, so numbers use json.Number.
type Listing struct {
	ID              string      `json:"id"`
	ClientID        *string     `json:"client_id"`
	UserID          *int        `json:"user_id"`
	Title           string      `json:"title"`
	Location        string      `json:"location"`
	Street          string      `json:"street"`
	Price           json.Number `json:"price"`
	Area            json.Number `json:"area"`
	PricePerArea    json.Number `json:"price_per_area,omitempty"`
	PropertyType    string      `json:"property_type"`
	TransactionType string      `json:"transaction_type"`
	Description     string      `json:"description"`
	Floor           string      `json:"floor"`
	NumOfFloors     string      `json:"num_of_floors"`
	BuildYear       string      `json:"build_year"`
	Status          string      `json:"status,omitempty"`
	CreatedAt       string      `json:"created_at,omitempty"`
}

// Photo is the metadata of one listing photo
type Photo struct {
	ID           string  `json:"id"`
	ListingID    string  `json:"listing_id"`
	OriginalName string  `json:"original_name"`
	ContentType  *string `json:"content_type"`
	SizeBytes    int64   `json:"size_bytes"`
	CreatedAt    string  `json:"created_at,omitempty"`
}

// Note is a listing note as served by the CRM API
type Note struct {
	ID        string `json:"id"`
	Note      string `json:"note"`
	ListingID string `json:"listing_id"`
	UserID    int    `json:"user_id"`
	CreatedAt string `json:"created_at,omitempty"`
}

// NoteRequest is the body of note create and update calls
type NoteRequest struct {
	Note      string `json:"note"`
	ListingID string `json:"listing_id"`
	UserID    int    `json:"user_id"`
}

// User is an agent account
type User struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// MessageResponse is the body of calls that only acknowledge
type MessageResponse struct {
	Message string `json:"message"`
}
