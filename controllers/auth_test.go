package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Team-Roomin/Roomin/models"
	"github.com/Team-Roomin/Roomin/utils"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newUserController(users *fakeUsers) *UserController {
	return &UserController{
		Users:  users,
		Tokens: utils.NewTokenManager("access-secret", "refresh-secret", 15*time.Minute, 240*time.Hour),
		Now:    func() time.Time { return fixedNow },
	}
}

func registeredUser(t *testing.T, email, password, role string) *models.User {
	t.Helper()
	u := &models.User{ID: primitive.NewObjectID(), Email: email, Username: "alice", Role: role}
	if err := u.SetPassword(password); err != nil {
		t.Fatalf("set password: %v", err)
	}
	return u
}

func TestRegister(t *testing.T) {
	body := map[string]string{
		"fullName": "Alice Doe",
		"dob":      "1990-01-01",
		"username": "alice",
		"email":    "alice@example.com",
		"phoneNo":  "9876543210",
		"password": "s3cretpass",
	}

	t.Run("conflict", func(t *testing.T) {
		users := newFakeUsers()
		users.conflict = "email"
		rec := httptest.NewRecorder()
		newUserController(users).Register()(rec, newRequest(http.MethodPost, "/v1/server/register", body, nil, nil))
		expectStatus(t, rec, http.StatusConflict)
		if msg := decodeResponse(t, rec).Message; msg != "User with this email already exists" {
			t.Fatalf("unexpected message %q", msg)
		}
	})

	t.Run("short password", func(t *testing.T) {
		short := map[string]string{}
		for k, v := range body {
			short[k] = v
		}
		short["password"] = "abc"
		rec := httptest.NewRecorder()
		newUserController(newFakeUsers()).Register()(rec, newRequest(http.MethodPost, "/v1/server/register", short, nil, nil))
		expectStatus(t, rec, http.StatusBadRequest)
	})

	t.Run("created", func(t *testing.T) {
		users := newFakeUsers()
		rec := httptest.NewRecorder()
		newUserController(users).Register()(rec, newRequest(http.MethodPost, "/v1/server/register", body, nil, nil))
		expectStatus(t, rec, http.StatusCreated)

		stored, err := users.FindByEmail(context.Background(), "alice@example.com")
		if err != nil {
			t.Fatalf("user not stored: %v", err)
		}
		if stored.Password == "s3cretpass" || !stored.IsPasswordCorrect("s3cretpass") {
			t.Fatal("password must be stored hashed")
		}
	})
}

func TestLogin(t *testing.T) {
	user := registeredUser(t, "alice@example.com", "s3cretpass", models.RoleUser)

	t.Run("wrong password", func(t *testing.T) {
		rec := httptest.NewRecorder()
		newUserController(newFakeUsers(user)).Login()(rec, newRequest(http.MethodPost, "/v1/server/login",
			map[string]string{"email": user.Email, "password": "nope-nope"}, nil, nil))
		expectStatus(t, rec, http.StatusUnauthorized)
	})

	t.Run("unknown email", func(t *testing.T) {
		rec := httptest.NewRecorder()
		newUserController(newFakeUsers(user)).Login()(rec, newRequest(http.MethodPost, "/v1/server/login",
			map[string]string{"email": "bob@example.com", "password": "s3cretpass"}, nil, nil))
		expectStatus(t, rec, http.StatusUnauthorized)
	})

	t.Run("success sets cookies", func(t *testing.T) {
		users := newFakeUsers(user)
		rec := httptest.NewRecorder()
		newUserController(users).Login()(rec, newRequest(http.MethodPost, "/v1/server/login",
			map[string]string{"email": user.Email, "password": "s3cretpass"}, nil, nil))
		expectStatus(t, rec, http.StatusOK)

		cookies := map[string]*http.Cookie{}
		for _, c := range rec.Result().Cookies() {
			cookies[c.Name] = c
		}
		access, refresh := cookies[AccessTokenCookie], cookies[RefreshTokenCookie]
		if access == nil || refresh == nil {
			t.Fatalf("expected auth cookies, got %v", rec.Result().Cookies())
		}
		if !access.HttpOnly || !refresh.HttpOnly {
			t.Fatal("auth cookies must be HttpOnly")
		}
		if user.RefreshToken != refresh.Value {
			t.Fatal("refresh token must be stored on the user")
		}
		if _, ok := users.lastSet["lastLoginAt"]; !ok {
			t.Fatal("lastLoginAt not recorded")
		}
	})
}

func TestAdminLoginRejectsOtherRoles(t *testing.T) {
	user := registeredUser(t, "owner@example.com", "s3cretpass", models.RoleOwner)
	adc := &AdminController{Accounts: newUserController(newFakeUsers(user))}

	rec := httptest.NewRecorder()
	adc.Login()(rec, newRequest(http.MethodPost, "/v1/admin/login",
		map[string]string{"email": user.Email, "password": "s3cretpass"}, nil, nil))
	expectStatus(t, rec, http.StatusForbidden)
	if user.RefreshToken != "" {
		t.Fatal("no token may be issued on a rejected admin login")
	}
}

func TestRefreshToken(t *testing.T) {
	user := registeredUser(t, "alice@example.com", "s3cretpass", models.RoleUser)
	uc := newUserController(newFakeUsers(user))
	token, err := uc.Tokens.GenerateRefreshToken(user.ID.Hex())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	t.Run("missing", func(t *testing.T) {
		rec := httptest.NewRecorder()
		uc.RefreshToken()(rec, newRequest(http.MethodPost, "/v1/server/refreshToken", nil, nil, nil))
		expectStatus(t, rec, http.StatusUnauthorized)
	})

	t.Run("not the stored token", func(t *testing.T) {
		user.RefreshToken = "something-else"
		rec := httptest.NewRecorder()
		uc.RefreshToken()(rec, newRequest(http.MethodPost, "/v1/server/refreshToken",
			map[string]string{"refreshToken": token}, nil, nil))
		expectStatus(t, rec, http.StatusUnauthorized)
	})

	t.Run("rotates from cookie", func(t *testing.T) {
		user.RefreshToken = token
		req := newRequest(http.MethodPatch, "/v1/server/refreshToken", nil, nil, nil)
		req.AddCookie(&http.Cookie{Name: RefreshTokenCookie, Value: token})
		rec := httptest.NewRecorder()
		uc.RefreshToken()(rec, req)
		expectStatus(t, rec, http.StatusOK)

		data, _ := decodeResponse(t, rec).Data.(map[string]interface{})
		if data["refreshToken"] != user.RefreshToken {
			t.Fatal("returned refresh token must match the stored one")
		}
	})
}

func TestLogoutClearsCookies(t *testing.T) {
	user := registeredUser(t, "alice@example.com", "s3cretpass", models.RoleUser)
	user.RefreshToken = "stored"
	rec := httptest.NewRecorder()
	newUserController(newFakeUsers(user)).Logout()(rec, newRequest(http.MethodPost, "/v1/server/logout", nil, user, nil))
	expectStatus(t, rec, http.StatusOK)

	if user.RefreshToken != "" {
		t.Fatal("refresh token not revoked")
	}
	cleared := 0
	for _, c := range rec.Result().Cookies() {
		if c.MaxAge < 0 {
			cleared++
		}
	}
	if cleared != 3 {
		t.Fatalf("expected 3 cleared cookies, got %d", cleared)
	}
}

func TestLogoutWithoutUser(t *testing.T) {
	rec := httptest.NewRecorder()
	newUserController(newFakeUsers()).Logout()(rec, newRequest(http.MethodPost, "/v1/server/logout", nil, nil, nil))
	expectStatus(t, rec, http.StatusUnauthorized)
}
