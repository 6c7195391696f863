// Package crmapi implements the domain gateway over the CRM REST API.
package crmapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/estate/internal/config"
	"github.com/mmcdole/estate/internal/domain"
)

const (
	defaultTimeout = 60 * time.Second
	maxRetries     = 3
	baseRetryDelay = 500 * time.Millisecond
)

// Client implements domain.Gateway for the CRM API
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	retryDelay time.Duration
	logger     *slog.Logger
}

var _ domain.Gateway = (*Client)(nil)

// NewClient creates a new CRM API client.
// baseURL includes the API prefix, e.g. http://localhost:8000/api/v1.
func NewClient(baseURL, token string, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		retryDelay: baseRetryDelay,
		logger:     logger,
	}
}

// NewFromConfig creates a client from the server section of cfg
func NewFromConfig(cfg *config.Config, logger *slog.Logger) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}
	if cfg.Server.URL == "" {
		return nil, fmt.Errorf("server URL is required")
	}
	if cfg.Server.Token == "" {
		return nil, fmt.Errorf("server token is required")
	}
	return NewClient(cfg.Server.URL, cfg.Server.Token, cfg.Server.Timeout, logger), nil
}

// retryable reports whether a 5xx response may be retried for method.
// Only reads are repeated; a mutation is sent once and its failure is
// returned to the caller.
func retryable(method string) bool {
	return method == http.MethodGet
}

// doRequest performs an authenticated request against the CRM API.
// Reads are retried with exponential backoff on 5xx errors.
func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values, body any) ([]byte, http.Header, error) {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL = reqURL + "?" + query.Encode()
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to marshal request: %w", err)
		}
	}

	attempts := 1
	if retryable(method) {
		attempts += maxRetries
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}

		if attempt > 0 {
			delay := c.retryDelay * time.Duration(1<<(attempt-1)) // 500ms, 1s, 2s
			c.logger.Debug("retrying request", "attempt", attempt, "delay", delay, "url", reqURL)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, nil, ctx.Err()
			}
		}

		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.token)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		c.logger.Debug("crm request", "method", method, "url", reqURL, "attempt", attempt)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, nil, ctx.Err()
			}
			c.logger.Error("crm request failed", "error", err, "url", reqURL)
			return nil, nil, domain.ErrServerOffline
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read response: %w", err)
		}

		switch {
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			c.logger.Warn("crm rejected token", "status", resp.StatusCode, "path", path)
			return nil, nil, domain.ErrAuthFailed
		case resp.StatusCode == http.StatusNotFound:
			return nil, nil, fmt.Errorf("%s %s: %w", method, path, domain.ErrNotFound)
		case resp.StatusCode >= 500 && resp.StatusCode < 600:
			lastErr = fmt.Errorf("server error: %d - %s", resp.StatusCode, string(respBody))
			c.logger.Warn("crm server error",
				"status", resp.StatusCode,
				"body", string(respBody),
				"attempt", attempt,
				"method", method,
				"path", path,
			)
			continue
		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			c.logger.Error("crm request error", "status", resp.StatusCode, "body", string(respBody), "path", path)
			return nil, nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
		}

		return respBody, resp.Header, nil
	}

	c.logger.Error("crm request failed after retries", "error", lastErr, "method", method, "path", path)
	return nil, nil, lastErr
}

// getJSON performs a GET and decodes the response into dest
func (c *Client) getJSON(ctx context.Context, path string, dest any) error {
	body, _, err := c.doRequest(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// === Listings ===

// GetListings returns every listing in server order
func (c *Client) GetListings(ctx context.Context) ([]domain.Listing, error) {
	var resp []Listing
	if err := c.getJSON(ctx, "/listings", &resp); err != nil {
		return nil, err
	}
	return MapListings(resp), nil
}

// GetListing returns a single listing
func (c *Client) GetListing(ctx context.Context, id string) (*domain.Listing, error) {
	var resp Listing
	if err := c.getJSON(ctx, "/listings/"+url.PathEscape(id), &resp); err != nil {
		return nil, err
	}
	l := MapListing(resp)
	return &l, nil
}

// UpdateListing sends a partial update keyed by wire field name
func (c *Client) UpdateListing(ctx context.Context, id string, fields map[string]any) error {
	_, _, err := c.doRequest(ctx, http.MethodPatch, "/listings/"+url.PathEscape(id), nil, fields)
	return err
}

// === Photos ===

// GetImageMetadata returns the photos of a listing in server order
func (c *Client) GetImageMetadata(ctx context.Context, listingID string) ([]domain.ImageRef, error) {
	var resp []Photo
	if err := c.getJSON(ctx, "/listings/"+url.PathEscape(listingID)+"/photos", &resp); err != nil {
		return nil, err
	}
	return MapImageRefs(resp), nil
}

// GetImageBinary downloads the bytes of one photo
func (c *Client) GetImageBinary(ctx context.Context, imageID string) (domain.Payload, error) {
	body, header, err := c.doRequest(ctx, http.MethodGet, "/photos/"+url.PathEscape(imageID)+"/file", nil, nil)
	if err != nil {
		return domain.Payload{}, err
	}
	contentType := header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(body)
	}
	return domain.Payload{ContentType: contentType, Data: body}, nil
}

// === Notes ===

// GetNotes returns the notes of a listing in server order
func (c *Client) GetNotes(ctx context.Context, listingID string) ([]domain.Note, error) {
	var resp []Note
	if err := c.getJSON(ctx, "/notes/"+url.PathEscape(listingID), &resp); err != nil {
		return nil, err
	}
	return MapNotes(resp), nil
}

// AddNote creates a note and returns the server's copy
func (c *Client) AddNote(ctx context.Context, listingID string, userID int, text string) (*domain.Note, error) {
	req := NoteRequest{Note: text, ListingID: listingID, UserID: userID}
	body, _, err := c.doRequest(ctx, http.MethodPost, "/notes", nil, req)
	if err != nil {
		return nil, err
	}
	return decodeNote(body)
}

// UpdateNote replaces the text of note and returns the server's copy
func (c *Client) UpdateNote(ctx context.Context, note domain.Note, text string) (*domain.Note, error) {
	req := NoteRequest{Note: text, ListingID: note.ListingID, UserID: note.UserID}
	body, _, err := c.doRequest(ctx, http.MethodPut, "/notes/"+url.PathEscape(note.ID), nil, req)
	if err != nil {
		return nil, err
	}
	return decodeNote(body)
}

// DeleteNote removes a note
func (c *Client) DeleteNote(ctx context.Context, id string) error {
	body, _, err := c.doRequest(ctx, http.MethodDelete, "/notes/"+url.PathEscape(id), nil, nil)
	if err != nil {
		return err
	}
	var resp MessageResponse
	if json.Unmarshal(body, &resp) == nil && resp.Message != "" {
		c.logger.Debug("note deleted", "noteID", id, "message", resp.Message)
	}
	return nil
}

func decodeNote(body []byte) (*domain.Note, error) {
	var resp Note
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	n := MapNote(resp)
	return &n, nil
}

// === Users ===

// GetUser returns an agent account
func (c *Client) GetUser(ctx context.Context, id int) (*domain.User, error) {
	var resp User
	if err := c.getJSON(ctx, "/users/"+strconv.Itoa(id), &resp); err != nil {
		return nil, err
	}
	u := MapUser(resp)
	return &u, nil
}

// === Export ===

// SendListingEmail asks the server to email a listing to address
func (c *Client) SendListingEmail(ctx context.Context, listingID, address string) error {
	query := url.Values{}
	query.Set("email_address", address)
	query.Set("listing_id", listingID)
	_, _, err := c.doRequest(ctx, http.MethodPost, "/email", query, nil)
	return err
}
