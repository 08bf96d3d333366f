package controllers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Team-Roomin/Roomin/logger"
	"github.com/Team-Roomin/Roomin/utils"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

const GoogleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// OAuthSessions keeps OAuth states and Google sign-in sessions.
type OAuthSessions interface {
	TTL() time.Duration
	SaveState(ctx context.Context, state string) error
	ConsumeState(ctx context.Context, state string) (bool, error)
	CreateSession(ctx context.Context, sessionID, userID string) error
	DeleteSession(ctx context.Context, sessionID string) error
}

type GoogleController struct {
	OAuth           *oauth2.Config
	Sessions        OAuthSessions
	Accounts        *UserController
	UserInfoURL     string
	SuccessRedirect string
}

type googleProfile struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

func NewGoogleOAuthConfig(clientID, clientSecret, callbackURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  callbackURL,
		Scopes: []string{
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		Endpoint: endpoints.Google,
	}
}

func (gc *GoogleController) Login() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state, err := utils.GenerateState()
		if err != nil {
			writeStoreError(w, r, err, "", "Failed to start Google sign-in")
			return
		}
		if err := gc.Sessions.SaveState(r.Context(), state); err != nil {
			writeStoreError(w, r, err, "", "Failed to start Google sign-in")
			return
		}
		http.Redirect(w, r, gc.OAuth.AuthCodeURL(state, oauth2.AccessTypeOnline), http.StatusTemporaryRedirect)
	}
}

func (gc *GoogleController) Callback() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.WithContext(r.Context())
		q := r.URL.Query()

		valid, err := gc.Sessions.ConsumeState(r.Context(), q.Get("state"))
		if err != nil {
			writeStoreError(w, r, err, "", "Google sign-in failed")
			return
		}
		if !valid {
			WriteError(w, http.StatusBadRequest, "Invalid OAuth state")
			return
		}
		code := q.Get("code")
		if code == "" {
			WriteError(w, http.StatusBadRequest, "Authorization code missing")
			return
		}

		token, err := gc.OAuth.Exchange(r.Context(), code)
		if err != nil {
			log.Warn("google code exchange failed", zap.Error(err))
			WriteError(w, http.StatusUnauthorized, "Google sign-in failed")
			return
		}
		profile, err := gc.fetchProfile(r.Context(), token)
		if err != nil {
			log.Error("google userinfo failed", zap.Error(err))
			WriteError(w, http.StatusBadGateway, "Failed to load Google profile")
			return
		}
		if profile.Email == "" {
			WriteError(w, http.StatusBadRequest, "Google account has no email")
			return
		}
		// An unverified address must not be linked to an existing account with the same email.
		if !profile.VerifiedEmail {
			log.Warn("google email not verified", zap.String("email", logger.MaskEmail(profile.Email)))
			WriteError(w, http.StatusForbidden, "Google email address is not verified")
			return
		}

		user, err := gc.Accounts.Users.UpsertGoogle(r.Context(), profile.Email, profile.ID, profile.Name, profile.Picture)
		if err != nil {
			writeStoreError(w, r, err, "", "Google sign-in failed")
			return
		}

		sessionID := uuid.NewString()
		if err := gc.Sessions.CreateSession(r.Context(), sessionID, user.ID.Hex()); err != nil {
			writeStoreError(w, r, err, "", "Google sign-in failed")
			return
		}
		payload, err := gc.Accounts.issueTokens(r.Context(), user, nil)
		if err != nil {
			writeStoreError(w, r, err, "User not found", "Google sign-in failed")
			return
		}

		http.SetCookie(w, gc.Accounts.cookie(SessionCookie, sessionID, gc.Sessions.TTL()))
		gc.Accounts.setAuthCookies(w, payload.AccessToken, payload.RefreshToken)
		log.Info("google sign-in", zap.String("user_id", user.ID.Hex()))
		http.Redirect(w, r, gc.SuccessRedirect, http.StatusFound)
	}
}

func (gc *GoogleController) fetchProfile(ctx context.Context, token *oauth2.Token) (*googleProfile, error) {
	url := gc.UserInfoURL
	if url == "" {
		url = GoogleUserInfoURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := gc.OAuth.Client(ctx, token).Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo returned %d", resp.StatusCode)
	}
	var profile googleProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

func (gc *GoogleController) Logout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := currentUserID(w, r)
		if !ok {
			return
		}
		if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
			if err := gc.Sessions.DeleteSession(r.Context(), c.Value); err != nil {
				logger.WithContext(r.Context()).Warn("failed to delete oauth session", zap.Error(err))
			}
		}
		if _, err := gc.Accounts.Users.Update(r.Context(), userID, nil, "refreshToken"); err != nil {
			writeStoreError(w, r, err, "User not found", "Logout failed")
			return
		}
		gc.Accounts.clearAuthCookies(w)
		writeOK(w, "Logged out from Google session", nil)
	}
}
