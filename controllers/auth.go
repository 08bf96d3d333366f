package controllers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Team-Roomin/Roomin/logger"
	"github.com/Team-Roomin/Roomin/mailer"
	"github.com/Team-Roomin/Roomin/models"
	"github.com/Team-Roomin/Roomin/repository"
	"github.com/Team-Roomin/Roomin/storage"
	"github.com/Team-Roomin/Roomin/utils"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// cookie names shared with the auth middleware
const (
	AccessTokenCookie  = "accessToken"
	RefreshTokenCookie = "refreshToken"
	SessionCookie      = "oauth_session"
)

type UserController struct {
	Users         repository.UserStore
	Tokens        *utils.TokenManager
	Mailer        mailer.Mailer
	Images        storage.ImageUploader
	VerifyBaseURL string
	SecureCookies bool
	Now           func() time.Time
}

func (uc *UserController) now() time.Time {
	if uc.Now != nil {
		return uc.Now()
	}
	return time.Now()
}

type registerRequest struct {
	FullName string `json:"fullName" validate:"required,min=2"`
	DOB      string `json:"dob" validate:"required"`
	Username string `json:"username" validate:"required,min=3,max=30"`
	Email    string `json:"email" validate:"required,email"`
	PhoneNo  string `json:"phoneNo" validate:"required,min=7,max=15"`
	Password string `json:"password" validate:"required,min=8"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type authPayload struct {
	User         *models.User `json:"user"`
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
}

func (uc *UserController) Register() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerRequest
		if err := decodeJSON(r, &req); err != nil {
			WriteError(w, http.StatusBadRequest, "Invalid request payload")
			return
		}
		if err := utils.ValidateStruct(req); err != nil {
			writeValidationError(w, err)
			return
		}

		taken, err := uc.Users.FindConflict(r.Context(), req.Username, req.Email, req.PhoneNo, primitive.NilObjectID)
		if err != nil {
			writeStoreError(w, r, err, "", "Failed to register user")
			return
		}
		if taken != "" {
			WriteError(w, http.StatusConflict, "User with this "+taken+" already exists")
			return
		}

		user := &models.User{
			FullName: req.FullName,
			DOB:      req.DOB,
			Username: req.Username,
			Email:    req.Email,
			PhoneNo:  req.PhoneNo,
		}
		if err := user.SetPassword(req.Password); err != nil {
			writeStoreError(w, r, err, "", "Failed to register user")
			return
		}
		if err := uc.Users.Create(r.Context(), user); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				WriteError(w, http.StatusConflict, "User with email or username already exists")
				return
			}
			writeStoreError(w, r, err, "", "Failed to register user")
			return
		}

		logger.WithContext(r.Context()).Info("user registered",
			zap.String("user_id", user.ID.Hex()),
			zap.String("email", logger.MaskEmail(user.Email)),
		)
		writeCreated(w, "User registered successfully", user)
	}
}

func (uc *UserController) Login() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uc.login(w, r, "")
	}
}

// login authenticates by email and password. A non-empty requiredRole restricts who may sign in.
func (uc *UserController) login(w http.ResponseWriter, r *http.Request, requiredRole string) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		writeValidationError(w, err)
		return
	}

	log := logger.WithContext(r.Context())
	user, err := uc.Users.FindByEmail(r.Context(), req.Email)
	if errors.Is(err, repository.ErrNotFound) {
		log.Info("login for unknown email", zap.String("email", logger.MaskEmail(req.Email)))
		WriteError(w, http.StatusUnauthorized, "Invalid user credentials")
		return
	}
	if err != nil {
		writeStoreError(w, r, err, "", "Login failed")
		return
	}
	if !user.IsPasswordCorrect(req.Password) {
		log.Info("invalid credentials", zap.String("user_id", user.ID.Hex()))
		WriteError(w, http.StatusUnauthorized, "Invalid user credentials")
		return
	}
	if requiredRole != "" && user.Role != requiredRole {
		log.Warn("login rejected for role", zap.String("user_id", user.ID.Hex()), zap.String("role", user.Role))
		WriteError(w, http.StatusForbidden, "Access denied")
		return
	}

	payload, err := uc.issueTokens(r.Context(), user, bson.M{"lastLoginAt": uc.now()})
	if err != nil {
		writeStoreError(w, r, err, "User not found", "Failed to generate tokens")
		return
	}
	uc.setAuthCookies(w, payload.AccessToken, payload.RefreshToken)
	writeOK(w, "User logged in successfully", payload)
}

// issueTokens signs a new token pair and stores the refresh token along with extra fields.
func (uc *UserController) issueTokens(ctx context.Context, user *models.User, extra bson.M) (*authPayload, error) {
	access, err := user.GenerateAccessToken(uc.Tokens)
	if err != nil {
		return nil, err
	}
	refresh, err := user.GenerateRefreshToken(uc.Tokens)
	if err != nil {
		return nil, err
	}
	set := bson.M{"refreshToken": refresh}
	for k, v := range extra {
		set[k] = v
	}
	updated, err := uc.Users.Update(ctx, user.ID, set)
	if err != nil {
		return nil, err
	}
	return &authPayload{User: updated, AccessToken: access, RefreshToken: refresh}, nil
}

func (uc *UserController) RefreshToken() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		incoming := ""
		if cookie, err := r.Cookie(RefreshTokenCookie); err == nil {
			incoming = cookie.Value
		}
		if incoming == "" {
			var body struct {
				RefreshToken string `json:"refreshToken"`
			}
			_ = decodeJSON(r, &body)
			incoming = body.RefreshToken
		}
		if incoming == "" {
			WriteError(w, http.StatusUnauthorized, "Unauthorized request")
			return
		}

		claims, err := uc.Tokens.ValidateRefreshToken(incoming)
		if err != nil {
			WriteError(w, http.StatusUnauthorized, "Invalid refresh token")
			return
		}
		id, err := primitive.ObjectIDFromHex(claims.UserID)
		if err != nil {
			WriteError(w, http.StatusUnauthorized, "Invalid refresh token")
			return
		}
		user, err := uc.Users.FindByID(r.Context(), id)
		if errors.Is(err, repository.ErrNotFound) {
			WriteError(w, http.StatusUnauthorized, "Invalid refresh token")
			return
		}
		if err != nil {
			writeStoreError(w, r, err, "", "Failed to refresh token")
			return
		}
		if user.RefreshToken == "" || user.RefreshToken != incoming {
			logger.WithContext(r.Context()).Warn("refresh token reuse or mismatch", zap.String("user_id", user.ID.Hex()))
			WriteError(w, http.StatusUnauthorized, "Refresh token is expired or used")
			return
		}

		payload, err := uc.issueTokens(r.Context(), user, nil)
		if err != nil {
			writeStoreError(w, r, err, "User not found", "Failed to refresh token")
			return
		}
		uc.setAuthCookies(w, payload.AccessToken, payload.RefreshToken)
		writeOK(w, "Access token refreshed", map[string]string{
			"accessToken":  payload.AccessToken,
			"refreshToken": payload.RefreshToken,
		})
	}
}

func (uc *UserController) Logout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := currentUserID(w, r)
		if !ok {
			return
		}
		if _, err := uc.Users.Update(r.Context(), userID, nil, "refreshToken"); err != nil {
			writeStoreError(w, r, err, "User not found", "Logout failed")
			return
		}
		uc.clearAuthCookies(w)
		writeOK(w, "User logged out", nil)
	}
}

func (uc *UserController) setAuthCookies(w http.ResponseWriter, access, refresh string) {
	http.SetCookie(w, uc.cookie(AccessTokenCookie, access, uc.Tokens.AccessTTL()))
	http.SetCookie(w, uc.cookie(RefreshTokenCookie, refresh, uc.Tokens.RefreshTTL()))
}

func (uc *UserController) clearAuthCookies(w http.ResponseWriter) {
	for _, name := range []string{AccessTokenCookie, RefreshTokenCookie, SessionCookie} {
		c := uc.cookie(name, "", 0)
		c.MaxAge = -1
		http.SetCookie(w, c)
	}
}

func (uc *UserController) cookie(name, value string, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   uc.SecureCookies,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(ttl.Seconds()),
	}
}
