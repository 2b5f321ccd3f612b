// Package auth implements the Google OAuth code exchange used by the
// federated sign-in flow.
package auth

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"picpal/internal/middleware"
	"picpal/internal/models"
)

var (
	// Package variables so tests can point them at a local server.
	tokenURL    = "https://oauth2.googleapis.com/token"
	userinfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
	consentURL  = "https://accounts.google.com/o/oauth2/v2/auth"
)

// Identity is the provider-side identity resolved from an authorization code.
type Identity struct {
	ProviderID string
	Email      string
	Name       string
	Picture    string
}

// GoogleVerifier exchanges Google OAuth authorization codes for an Identity.
type GoogleVerifier struct {
	clientID     string
	clientSecret string
	redirectURL  string
	httpClient   *http.Client
	log          *slog.Logger
}

// NewGoogleVerifier creates a verifier from the Google OAuth client settings.
func NewGoogleVerifier(clientID, clientSecret, redirectURL string) *GoogleVerifier {
	return &GoogleVerifier{
		clientID:     clientID,
		clientSecret: clientSecret,
		redirectURL:  redirectURL,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
		log:          middleware.Logger.With(slog.String("component", "google_oauth")),
	}
}

// Configured reports whether client credentials are present.
func (v *GoogleVerifier) Configured() bool {
	return v.clientID != "" && v.clientSecret != ""
}

// ConsentURL builds the URL of Google's consent page for the redirect flow.
func (v *GoogleVerifier) ConsentURL(state string) string {
	q := url.Values{}
	q.Set("client_id", v.clientID)
	q.Set("redirect_uri", v.redirectURL)
	q.Set("response_type", "code")
	q.Set("scope", "openid email profile")
	q.Set("state", state)
	return consentURL + "?" + q.Encode()
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	IDToken     string `json:"id_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

type userinfoResponse struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// VerifyCode exchanges an authorization code for the user's Google identity.
func (v *GoogleVerifier) VerifyCode(ctx context.Context, code string) (*Identity, error) {
	if code == "" {
		return nil, models.NewValidationError("Missing authorization code")
	}

	accessToken, err := v.exchangeCode(ctx, code)
	if err != nil {
		return nil, err
	}

	userinfo, err := v.fetchUserinfo(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	if !userinfo.VerifiedEmail {
		return nil, models.NewUnauthorizedError("Google account email is not verified")
	}

	return &Identity{
		ProviderID: userinfo.ID,
		Email:      userinfo.Email,
		Name:       userinfo.Name,
		Picture:    userinfo.Picture,
	}, nil
}

func (v *GoogleVerifier) exchangeCode(ctx context.Context, code string) (string, error) {
	data := url.Values{}
	data.Set("grant_type", "authorization_code")
	data.Set("code", code)
	data.Set("client_id", v.clientID)
	data.Set("client_secret", v.clientSecret)
	data.Set("redirect_uri", v.redirectURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return "", models.NewInternalError(err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		v.log.ErrorContext(ctx, "google token exchange failed", slog.String("error", err.Error()))
		return "", models.NewUpstreamError("Identity provider unavailable", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", models.NewUpstreamError("Identity provider unavailable", err)
	}

	if resp.StatusCode != http.StatusOK {
		v.log.ErrorContext(ctx, "google token exchange rejected", slog.Int("status", resp.StatusCode))
		// 400-class responses mean an invalid or expired code
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return "", models.NewUnauthorizedError("Invalid or expired authorization code")
		}
		return "", models.NewUpstreamError("Identity provider unavailable", nil)
	}

	var tokenResp tokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil || tokenResp.AccessToken == "" {
		v.log.ErrorContext(ctx, "google token response malformed")
		return "", models.NewUpstreamError("Identity provider returned an invalid response", err)
	}

	return tokenResp.AccessToken, nil
}

func (v *GoogleVerifier) fetchUserinfo(ctx context.Context, accessToken string) (*userinfoResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, userinfoURL, nil)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := v.httpClient.Do(req)
	if err != nil {
		v.log.ErrorContext(ctx, "google userinfo fetch failed", slog.String("error", err.Error()))
		return nil, models.NewUpstreamError("Identity provider unavailable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		v.log.ErrorContext(ctx, "google userinfo rejected", slog.Int("status", resp.StatusCode))
		return nil, models.NewUpstreamError("Identity provider unavailable", nil)
	}

	var userinfo userinfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&userinfo); err != nil {
		return nil, models.NewUpstreamError("Identity provider returned an invalid response", err)
	}

	if userinfo.ID == "" {
		return nil, models.NewUpstreamError("Identity provider returned an invalid response", nil)
	}

	return &userinfo, nil
}
