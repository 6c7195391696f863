package crmapi

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/term"

	"github.com/mmcdole/estate/internal/domain"
)

const authTimeout = 30 * time.Second

// Claims are the parts of an access token the client relies on.
// The server signs the token; the client never verifies it.
type Claims struct {
	jwt.RegisteredClaims
	UserID int `json:"user_id,omitempty"`
}

// TokenInfo describes an access token
type TokenInfo struct {
	Subject   string    // Username the token was issued to
	UserID    int       // Agent id, 0 if the token does not carry one
	ExpiresAt time.Time // Zero if the token does not expire
}

// Expired reports whether the token is past its expiry at now
func (t TokenInfo) Expired(now time.Time) bool {
	return !t.ExpiresAt.IsZero() && !now.Before(t.ExpiresAt)
}

// ParseToken reads the claims of an access token without verifying its
// signature. A numeric subject doubles as the user id.
func ParseToken(token string) (TokenInfo, error) {
	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return TokenInfo{}, fmt.Errorf("%w: %v", domain.ErrAuthFailed, err)
	}

	info := TokenInfo{Subject: claims.Subject, UserID: claims.UserID}
	if claims.ExpiresAt != nil {
		info.ExpiresAt = claims.ExpiresAt.Time
	}
	if info.UserID == 0 {
		if id, err := strconv.Atoi(claims.Subject); err == nil {
			info.UserID = id
		}
	}
	return info, nil
}

// Login exchanges credentials for an access token
func Login(ctx context.Context, baseURL, username, password string, logger *slog.Logger) (string, error) {
	if logger == nil {
		logger = slog.Default()
	}
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	loginURL := strings.TrimRight(baseURL, "/") + "/login"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, loginURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	httpClient := &http.Client{Timeout: authTimeout}
	resp, err := httpClient.Do(req)
	if err != nil {
		logger.Error("crm login request failed", "error", err)
		return "", domain.ErrServerOffline
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return "", domain.ErrAuthFailed
	}
	if resp.StatusCode != http.StatusOK {
		logger.Error("crm login error", "status", resp.StatusCode, "body", string(body))
		return "", fmt.Errorf("login failed with status %d", resp.StatusCode)
	}

	var tok TokenResponse
	if err := json.Unmarshal(body, &tok); err != nil {
		return "", fmt.Errorf("failed to parse login response: %w", err)
	}
	if tok.AccessToken == "" {
		return "", errors.New("login response carried no token")
	}
	return tok.AccessToken, nil
}

// PromptCredentials asks for a username and a hidden password on the terminal
func PromptCredentials() (username, password string, err error) {
	fmt.Println()
	fmt.Println("CRM Login")
	fmt.Println("━━━━━━━━━")

	reader := bufio.NewReader(os.Stdin)
	fmt.Print("Username: ")
	username, err = reader.ReadString('\n')
	if err != nil {
		return "", "", fmt.Errorf("failed to read username: %w", err)
	}
	username = strings.TrimSpace(username)

	fmt.Print("Password: ")
	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return "", "", fmt.Errorf("failed to read password: %w", err)
	}
	fmt.Println()

	return username, string(passwordBytes), nil
}
