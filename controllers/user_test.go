package controllers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Team-Roomin/Roomin/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type capturingMailer struct {
	to, otp, link string
	err           error
}

func (m *capturingMailer) SendVerification(_ context.Context, to, _, otp, link string) error {
	m.to, m.otp, m.link = to, otp, link
	return m.err
}

func TestSendAndVerifyOTP(t *testing.T) {
	user := &models.User{ID: primitive.NewObjectID(), Email: "alice@example.com", Role: models.RoleUser}
	users := newFakeUsers(user)
	mail := &capturingMailer{}
	uc := newUserController(users)
	uc.Mailer = mail
	uc.VerifyBaseURL = "https://roomin.app/verify/"

	rec := httptest.NewRecorder()
	uc.SendOTP()(rec, newRequest(http.MethodPost, "/v1/server/sendOTP", nil, user, nil))
	expectStatus(t, rec, http.StatusOK)

	if mail.to != user.Email || len(mail.otp) != 6 {
		t.Fatalf("unexpected mail to=%q otp=%q", mail.to, mail.otp)
	}
	if mail.link != "https://roomin.app/verify/"+user.Token {
		t.Fatalf("unexpected link %q", mail.link)
	}

	wrong := "000000"
	if mail.otp == wrong {
		wrong = "111111"
	}
	rec = httptest.NewRecorder()
	uc.VerifyOTP()(rec, newRequest(http.MethodPost, "/v1/server/verifyOTP", map[string]string{"otp": wrong}, user, nil))
	expectStatus(t, rec, http.StatusBadRequest)

	rec = httptest.NewRecorder()
	uc.VerifyOTP()(rec, newRequest(http.MethodPost, "/v1/server/verifyOTP", map[string]string{"otp": mail.otp}, user, nil))
	expectStatus(t, rec, http.StatusOK)
	if !user.Verified || user.OTP != "" || user.Token != "" {
		t.Fatalf("user not marked verified: %+v", user)
	}

	rec = httptest.NewRecorder()
	uc.SendOTP()(rec, newRequest(http.MethodPost, "/v1/server/sendOTP", nil, user, nil))
	expectStatus(t, rec, http.StatusBadRequest)
}

func TestSendOTPMailFailure(t *testing.T) {
	user := &models.User{ID: primitive.NewObjectID(), Email: "alice@example.com"}
	uc := newUserController(newFakeUsers(user))
	uc.Mailer = &capturingMailer{err: errors.New("mailjet down")}

	rec := httptest.NewRecorder()
	uc.SendOTP()(rec, newRequest(http.MethodPost, "/v1/server/sendOTP", nil, user, nil))
	expectStatus(t, rec, http.StatusBadGateway)
}

func TestVerifyOTPRejectsMalformed(t *testing.T) {
	user := &models.User{ID: primitive.NewObjectID()}
	uc := newUserController(newFakeUsers(user))
	for _, otp := range []string{"12345", "abcdef", strings.Repeat("1", 7)} {
		rec := httptest.NewRecorder()
		uc.VerifyOTP()(rec, newRequest(http.MethodPost, "/v1/server/verifyOTP", map[string]string{"otp": otp}, user, nil))
		expectStatus(t, rec, http.StatusBadRequest)
	}
}

func TestVerifyToken(t *testing.T) {
	user := &models.User{ID: primitive.NewObjectID()}
	uc := newUserController(newFakeUsers(user))
	user.Token = "tok-123"
	issued := fixedNow.Add(-10 * time.Minute)
	user.TokenTimestamp = &issued

	rec := httptest.NewRecorder()
	uc.VerifyToken()(rec, newRequest(http.MethodGet, "/v1/server/verify/x", nil, user, map[string]string{"token": "other"}))
	expectStatus(t, rec, http.StatusBadRequest)

	rec = httptest.NewRecorder()
	uc.VerifyToken()(rec, newRequest(http.MethodGet, "/v1/server/verify/x", nil, user, map[string]string{"token": "tok-123"}))
	expectStatus(t, rec, http.StatusOK)
	if !user.Verified {
		t.Fatal("user not verified")
	}
}

func TestChangePasswordWrongOld(t *testing.T) {
	user := registeredUser(t, "alice@example.com", "s3cretpass", models.RoleUser)
	uc := newUserController(newFakeUsers(user))

	rec := httptest.NewRecorder()
	uc.ChangePassword()(rec, newRequest(http.MethodPatch, "/v1/server/changePassword",
		map[string]string{"oldPassword": "wrong-pass", "newPassword": "brandnewpass"}, user, nil))
	expectStatus(t, rec, http.StatusBadRequest)
}
