package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/Team-Roomin/Roomin/logger"
	"github.com/Team-Roomin/Roomin/models"
	"github.com/Team-Roomin/Roomin/storage"
	"github.com/Team-Roomin/Roomin/utils"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

const maxImageUpload = 8 << 20

func (uc *UserController) GetUser() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := currentUserID(w, r)
		if !ok {
			return
		}
		user, err := uc.Users.FindByID(r.Context(), userID)
		if err != nil {
			writeStoreError(w, r, err, "User not found", "Failed to fetch user")
			return
		}
		writeOK(w, "User fetched successfully", user)
	}
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=8"`
}

func (uc *UserController) ChangePassword() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := currentUserID(w, r)
		if !ok {
			return
		}
		var req changePasswordRequest
		if err := decodeJSON(r, &req); err != nil {
			WriteError(w, http.StatusBadRequest, "Invalid request payload")
			return
		}
		if err := utils.ValidateStruct(req); err != nil {
			writeValidationError(w, err)
			return
		}

		user, err := uc.Users.FindByID(r.Context(), userID)
		if err != nil {
			writeStoreError(w, r, err, "User not found", "Failed to change password")
			return
		}
		if !user.IsPasswordCorrect(req.OldPassword) {
			WriteError(w, http.StatusBadRequest, "Invalid old password")
			return
		}
		if err := user.SetPassword(req.NewPassword); err != nil {
			writeStoreError(w, r, err, "", "Failed to change password")
			return
		}
		if _, err := uc.Users.Update(r.Context(), userID, bson.M{"password": user.Password}); err != nil {
			writeStoreError(w, r, err, "User not found", "Failed to change password")
			return
		}
		logger.WithContext(r.Context()).Info("password changed", zap.String("user_id", userID.Hex()))
		writeOK(w, "Password changed successfully", nil)
	}
}

type accountDetailRequest struct {
	FullName string `json:"fullName" validate:"omitempty,min=2"`
	Email    string `json:"email" validate:"omitempty,email"`
	PhoneNo  string `json:"phoneNo" validate:"omitempty,min=7,max=15"`
	DOB      string `json:"dob"`
}

func (uc *UserController) UpdateAccountDetail() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := currentUserID(w, r)
		if !ok {
			return
		}
		var req accountDetailRequest
		if err := decodeJSON(r, &req); err != nil {
			WriteError(w, http.StatusBadRequest, "Invalid request payload")
			return
		}
		if err := utils.ValidateStruct(req); err != nil {
			writeValidationError(w, err)
			return
		}

		set := bson.M{}
		if req.FullName != "" {
			set["fullName"] = req.FullName
		}
		if req.Email != "" {
			set["email"] = strings.ToLower(strings.TrimSpace(req.Email))
		}
		if req.PhoneNo != "" {
			set["phoneNo"] = req.PhoneNo
		}
		if req.DOB != "" {
			set["dob"] = req.DOB
		}
		if len(set) == 0 {
			WriteError(w, http.StatusBadRequest, "At least one field is required")
			return
		}

		if req.Email != "" || req.PhoneNo != "" {
			taken, err := uc.Users.FindConflict(r.Context(), "", req.Email, req.PhoneNo, userID)
			if err != nil {
				writeStoreError(w, r, err, "", "Failed to update account")
				return
			}
			if taken != "" {
				WriteError(w, http.StatusConflict, "User with this "+taken+" already exists")
				return
			}
		}

		user, err := uc.Users.Update(r.Context(), userID, set)
		if err != nil {
			writeStoreError(w, r, err, "User not found", "Failed to update account")
			return
		}
		writeOK(w, "Account details updated successfully", user)
	}
}

func (uc *UserController) UploadProfileImage() http.HandlerFunc {
	return uc.uploadUserImage("profilePic", "profileImage", "Profile image")
}

func (uc *UserController) UploadCoverImage() http.HandlerFunc {
	return uc.uploadUserImage("coverPic", "coverImage", "Cover image")
}

// uploadUserImage stores the multipart file under field on Cloudinary and saves its URL in column.
func (uc *UserController) uploadUserImage(field, column, label string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := currentUserID(w, r)
		if !ok {
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxImageUpload)
		file, _, err := r.FormFile(field)
		if err != nil {
			WriteError(w, http.StatusBadRequest, label+" file is missing")
			return
		}
		defer file.Close()

		url, err := uc.Images.UploadImage(r.Context(), file, "users")
		if err != nil {
			uploadFailed(w, r, err, "Error while uploading "+strings.ToLower(label))
			return
		}
		user, err := uc.Users.Update(r.Context(), userID, bson.M{column: url})
		if err != nil {
			writeStoreError(w, r, err, "User not found", "Failed to update "+strings.ToLower(label))
			return
		}
		writeOK(w, label+" updated successfully", user)
	}
}

func uploadFailed(w http.ResponseWriter, r *http.Request, err error, message string) {
	if errors.Is(err, storage.ErrStorageDisabled) {
		WriteError(w, http.StatusServiceUnavailable, "File uploads are not configured")
		return
	}
	logger.WithContext(r.Context()).Error(message, zap.Error(err))
	WriteError(w, http.StatusBadGateway, message)
}

func (uc *UserController) SendOTP() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := currentUserID(w, r)
		if !ok {
			return
		}
		user, err := uc.Users.FindByID(r.Context(), userID)
		if err != nil {
			writeStoreError(w, r, err, "User not found", "Failed to send OTP")
			return
		}
		if user.Verified {
			WriteError(w, http.StatusBadRequest, "User is already verified")
			return
		}

		otp, err := utils.GenerateOTP()
		if err != nil {
			writeStoreError(w, r, err, "", "Failed to send OTP")
			return
		}
		token, err := utils.GenerateVerificationToken()
		if err != nil {
			writeStoreError(w, r, err, "", "Failed to send OTP")
			return
		}
		now := uc.now()
		if _, err := uc.Users.Update(r.Context(), userID, bson.M{
			"otp":            otp,
			"otpTimestamp":   now,
			"token":          token,
			"tokenTimestamp": now,
		}); err != nil {
			writeStoreError(w, r, err, "User not found", "Failed to send OTP")
			return
		}

		link := strings.TrimRight(uc.VerifyBaseURL, "/") + "/" + token
		if err := uc.Mailer.SendVerification(r.Context(), user.Email, user.FullName, otp, link); err != nil {
			logger.WithContext(r.Context()).Error("verification email failed",
				zap.String("email", logger.MaskEmail(user.Email)), zap.Error(err))
			WriteError(w, http.StatusBadGateway, "Failed to send verification email")
			return
		}
		writeOK(w, "OTP sent successfully", nil)
	}
}

func (uc *UserController) VerifyOTP() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := currentUserID(w, r)
		if !ok {
			return
		}
		var req struct {
			OTP string `json:"otp" validate:"required,len=6,numeric"`
		}
		if err := decodeJSON(r, &req); err != nil {
			WriteError(w, http.StatusBadRequest, "Invalid request payload")
			return
		}
		if err := utils.ValidateStruct(req); err != nil {
			writeValidationError(w, err)
			return
		}

		user, err := uc.Users.FindByID(r.Context(), userID)
		if err != nil {
			writeStoreError(w, r, err, "User not found", "Failed to verify OTP")
			return
		}
		if !user.IsOTPValid(req.OTP, uc.now()) {
			WriteError(w, http.StatusBadRequest, "Invalid or expired OTP")
			return
		}
		uc.markVerified(w, r, user)
	}
}

func (uc *UserController) VerifyToken() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := currentUserID(w, r)
		if !ok {
			return
		}
		user, err := uc.Users.FindByID(r.Context(), userID)
		if err != nil {
			writeStoreError(w, r, err, "User not found", "Failed to verify token")
			return
		}
		if !user.IsValidToken(muxVar(r, "token"), uc.now()) {
			WriteError(w, http.StatusBadRequest, "Invalid or expired verification link")
			return
		}
		uc.markVerified(w, r, user)
	}
}

func (uc *UserController) markVerified(w http.ResponseWriter, r *http.Request, user *models.User) {
	updated, err := uc.Users.Update(r.Context(), user.ID, bson.M{"verified": true},
		"otp", "otpTimestamp", "token", "tokenTimestamp")
	if err != nil {
		writeStoreError(w, r, err, "User not found", "Failed to verify user")
		return
	}
	logger.WithContext(r.Context()).Info("user verified", zap.String("user_id", user.ID.Hex()))
	writeOK(w, "User verified successfully", updated)
}

func (uc *UserController) SubmitKYC() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := currentUserID(w, r)
		if !ok {
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, 2*maxImageUpload)
		if err := r.ParseMultipartForm(maxImageUpload); err != nil {
			WriteError(w, http.StatusBadRequest, "Both panCard and propertyCertificate are required")
			return
		}

		docs := models.KYCDocuments{}
		for _, f := range []struct {
			field string
			dst   *string
		}{
			{"panCard", &docs.PanCard},
			{"propertyCertificate", &docs.PropertyCertificate},
		} {
			file, _, err := r.FormFile(f.field)
			if err != nil {
				WriteError(w, http.StatusBadRequest, "Both panCard and propertyCertificate are required")
				return
			}
			url, err := uc.Images.UploadImage(r.Context(), file, "kyc")
			file.Close()
			if err != nil {
				uploadFailed(w, r, err, "Error while uploading KYC documents")
				return
			}
			*f.dst = url
		}

		user, err := uc.Users.Update(r.Context(), userID, bson.M{
			"kycDocuments": docs,
			"kycStatus":    models.KYCPending,
		})
		if err != nil {
			writeStoreError(w, r, err, "User not found", "Failed to submit KYC")
			return
		}
		logger.WithContext(r.Context()).Info("kyc submitted", zap.String("user_id", userID.Hex()))
		writeOK(w, "KYC documents submitted successfully", user)
	}
}
