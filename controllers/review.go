package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/Team-Roomin/Roomin/logger"
	"github.com/Team-Roomin/Roomin/models"
	"github.com/Team-Roomin/Roomin/repository"
	"github.com/Team-Roomin/Roomin/utils"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

type ReviewController struct {
	Reviews    repository.ReviewStore
	Properties repository.PropertyStore
	Inquiries  repository.InquiryStore
	Now        func() time.Time
}

func (rc *ReviewController) now() time.Time {
	if rc.Now != nil {
		return rc.Now()
	}
	return time.Now()
}

type reviewRequest struct {
	Rating  float64           `json:"rating" validate:"required"`
	Title   string            `json:"title" validate:"max=100"`
	Review  string            `json:"review" validate:"required,min=10,max=2000"`
	Photos  []string          `json:"photos" validate:"max=5,dive,url"`
	Ratings models.SubRatings `json:"ratings"`
}

func (rc *ReviewController) CreateReview() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := currentUserID(w, r)
		if !ok {
			return
		}
		propertyID, ok := pathObjectID(w, r, "id", "property")
		if !ok {
			return
		}
		var req reviewRequest
		if err := decodeJSON(r, &req); err != nil {
			WriteError(w, http.StatusBadRequest, "Invalid request payload")
			return
		}
		if err := utils.ValidateStruct(req); err != nil {
			writeValidationError(w, err)
			return
		}

		property, err := rc.Properties.FindByID(r.Context(), propertyID)
		if err != nil {
			writeStoreError(w, r, err, "Property not found", "Failed to add review")
			return
		}
		if !property.IsActive {
			WriteError(w, http.StatusNotFound, "Property not found")
			return
		}
		if property.OwnerID == userID {
			WriteError(w, http.StatusBadRequest, "You cannot review your own property")
			return
		}

		exists, err := rc.Reviews.Exists(r.Context(), userID, propertyID)
		if err != nil {
			writeStoreError(w, r, err, "", "Failed to add review")
			return
		}
		if exists {
			WriteError(w, http.StatusConflict, "You have already reviewed this property")
			return
		}

		// a review counts as verified when the reviewer contacted the owner before
		contacted, err := rc.Inquiries.RecentExists(r.Context(), userID, propertyID, time.Time{})
		if err != nil {
			logger.WithContext(r.Context()).Warn("inquiry lookup for review failed", zap.Error(err))
		}

		review := &models.Review{
			PropertyID: propertyID,
			ReviewerID: userID,
			Rating:     req.Rating,
			Title:      req.Title,
			Review:     req.Review,
			Photos:     req.Photos,
			Ratings:    req.Ratings,
			IsVerified: contacted,
		}
		review.Normalize()
		if err := rc.Reviews.Create(r.Context(), review); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				WriteError(w, http.StatusConflict, "You have already reviewed this property")
				return
			}
			writeStoreError(w, r, err, "", "Failed to add review")
			return
		}
		writeCreated(w, "Review added successfully", review)
	}
}

func (rc *ReviewController) ListReviews() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		propertyID, ok := pathObjectID(w, r, "id", "property")
		if !ok {
			return
		}
		page, limit := pageParams(r, 10)
		sort := repository.ReviewSort(r.URL.Query().Get("sortBy"))

		reviews, total, err := rc.Reviews.ListForProperty(r.Context(), propertyID, sort, page, limit)
		if err != nil {
			writeStoreError(w, r, err, "", "Failed to fetch reviews")
			return
		}
		stats, err := rc.Reviews.Stats(r.Context(), propertyID)
		if err != nil {
			writeStoreError(w, r, err, "", "Failed to fetch reviews")
			return
		}
		writeOK(w, "Reviews fetched successfully", map[string]interface{}{
			"reviews":    reviews,
			"stats":      stats,
			"pagination": models.NewPagination(page, limit, total),
		})
	}
}

type reviewUpdateRequest struct {
	Rating  *float64           `json:"rating"`
	Title   *string            `json:"title" validate:"omitempty,max=100"`
	Review  *string            `json:"review" validate:"omitempty,min=10,max=2000"`
	Ratings *models.SubRatings `json:"ratings"`
}

func (rc *ReviewController) UpdateReview() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := currentUserID(w, r)
		if !ok {
			return
		}
		id, ok := pathObjectID(w, r, "id", "review")
		if !ok {
			return
		}
		var req reviewUpdateRequest
		if err := decodeJSON(r, &req); err != nil {
			WriteError(w, http.StatusBadRequest, "Invalid request payload")
			return
		}
		if err := utils.ValidateStruct(req); err != nil {
			writeValidationError(w, err)
			return
		}

		review, err := rc.Reviews.FindByID(r.Context(), id)
		if err != nil {
			writeStoreError(w, r, err, "Review not found", "Failed to update review")
			return
		}
		if review.ReviewerID != userID {
			WriteError(w, http.StatusForbidden, "Only the reviewer can edit this review")
			return
		}

		if req.Rating != nil {
			review.Rating = *req.Rating
		}
		if req.Title != nil {
			review.Title = *req.Title
		}
		if req.Review != nil {
			review.Review = *req.Review
		}
		if req.Ratings != nil {
			review.Ratings = *req.Ratings
		}
		review.Normalize()

		updated, err := rc.Reviews.Update(r.Context(), id, bson.M{
			"rating":  review.Rating,
			"title":   review.Title,
			"review":  review.Review,
			"ratings": review.Ratings,
		})
		if err != nil {
			writeStoreError(w, r, err, "Review not found", "Failed to update review")
			return
		}
		writeOK(w, "Review updated successfully", updated)
	}
}

func (rc *ReviewController) DeleteReview() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := currentUserID(w, r)
		if !ok {
			return
		}
		id, ok := pathObjectID(w, r, "id", "review")
		if !ok {
			return
		}
		review, err := rc.Reviews.FindByID(r.Context(), id)
		if err != nil {
			writeStoreError(w, r, err, "Review not found", "Failed to delete review")
			return
		}
		if review.ReviewerID != userID && !isAdmin(r) {
			WriteError(w, http.StatusForbidden, "Not authorized to delete this review")
			return
		}
		if err := rc.Reviews.Delete(r.Context(), id); err != nil {
			writeStoreError(w, r, err, "Review not found", "Failed to delete review")
			return
		}
		writeOK(w, "Review deleted successfully", nil)
	}
}

func (rc *ReviewController) RespondToReview() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := currentUserID(w, r)
		if !ok {
			return
		}
		id, ok := pathObjectID(w, r, "id", "review")
		if !ok {
			return
		}
		var req struct {
			Message string `json:"message" validate:"required,max=1000"`
		}
		if err := decodeJSON(r, &req); err != nil {
			WriteError(w, http.StatusBadRequest, "Invalid request payload")
			return
		}
		if err := utils.ValidateStruct(req); err != nil {
			writeValidationError(w, err)
			return
		}

		review, err := rc.Reviews.FindByID(r.Context(), id)
		if err != nil {
			writeStoreError(w, r, err, "Review not found", "Failed to respond to review")
			return
		}
		property, err := rc.Properties.FindByID(r.Context(), review.PropertyID)
		if err != nil {
			writeStoreError(w, r, err, "Property not found", "Failed to respond to review")
			return
		}
		if property.OwnerID != userID {
			WriteError(w, http.StatusForbidden, "Only the property owner can respond")
			return
		}

		updated, err := rc.Reviews.Update(r.Context(), id, bson.M{
			"ownerResponse": models.OwnerResponse{Message: req.Message, RespondedAt: rc.now()},
		})
		if err != nil {
			writeStoreError(w, r, err, "Review not found", "Failed to respond to review")
			return
		}
		writeOK(w, "Response added successfully", updated)
	}
}
