package controllers

import (
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/Team-Roomin/Roomin/events"
	"github.com/Team-Roomin/Roomin/logger"
	"github.com/Team-Roomin/Roomin/models"
	"github.com/Team-Roomin/Roomin/repository"
	"github.com/Team-Roomin/Roomin/utils"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	bookingMonths     = 12
	notificationLimit = 10
	userDetailListing = 50
)

type AdminController struct {
	Accounts   *UserController
	Users      repository.UserStore
	Properties repository.PropertyStore
	Inquiries  repository.InquiryStore
	Events     events.Publisher
	Cache      ListingCacher
	Now        func() time.Time
}

func (adc *AdminController) now() time.Time {
	if adc.Now != nil {
		return adc.Now()
	}
	return time.Now()
}

func (adc *AdminController) Login() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		adc.Accounts.login(w, r, models.RoleAdmin)
	}
}

func (adc *AdminController) Stats() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		now := adc.now()
		counts := []struct {
			name  string
			count func() (int64, error)
		}{
			{"totalUserRegistrations", func() (int64, error) { return adc.Users.Count(ctx, nil) }},
			{"totalVendorRegistrations", func() (int64, error) {
				return adc.Users.Count(ctx, bson.M{"role": models.RoleOwner})
			}},
			{"monthlyActiveUsers", func() (int64, error) {
				return adc.Users.Count(ctx, bson.M{"lastLoginAt": bson.M{"$gte": now.AddDate(0, 0, -30)}})
			}},
			{"weeklyActiveUsers", func() (int64, error) {
				return adc.Users.Count(ctx, bson.M{"lastLoginAt": bson.M{"$gte": now.AddDate(0, 0, -7)}})
			}},
			{"totalProperties", func() (int64, error) {
				return adc.Properties.Count(ctx, bson.M{"isActive": true})
			}},
			{"pendingProperties", func() (int64, error) {
				return adc.Properties.Count(ctx, pendingListingFilter())
			}},
			{"totalInquiries", func() (int64, error) { return adc.Inquiries.Count(ctx, nil) }},
		}

		stats := make(map[string]int64, len(counts))
		for _, c := range counts {
			n, err := c.count()
			if err != nil {
				writeStoreError(w, r, err, "", "Failed to load statistics")
				return
			}
			stats[c.name] = n
		}
		writeOK(w, "Statistics fetched successfully", stats)
	}
}

func pendingListingFilter() bson.M {
	return bson.M{"isActive": true, "moderationStatus": models.ModerationPending}
}

func (adc *AdminController) ListAccounts() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, limit := pageParams(r, defaultPageLimit)
		users, total, err := adc.Users.List(r.Context(), page, limit)
		if err != nil {
			writeStoreError(w, r, err, "", "Failed to fetch accounts")
			return
		}
		writeOK(w, "Accounts fetched successfully", map[string]interface{}{
			"users":      users,
			"pagination": models.NewPagination(page, limit, total),
		})
	}
}

func (adc *AdminController) UserDetail() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathObjectID(w, r, "id", "user")
		if !ok {
			return
		}
		user, err := adc.Users.FindByID(r.Context(), id)
		if err != nil {
			writeStoreError(w, r, err, "User not found", "Failed to fetch user")
			return
		}
		listings, err := adc.Properties.ByOwner(r.Context(), id)
		if err != nil {
			writeStoreError(w, r, err, "", "Failed to fetch user")
			return
		}
		inquiries, _, err := adc.Inquiries.ListSent(r.Context(), id, 1, userDetailListing)
		if err != nil {
			writeStoreError(w, r, err, "", "Failed to fetch user")
			return
		}
		writeOK(w, "User fetched successfully", map[string]interface{}{
			"user":       user,
			"properties": emptyIfNil(listings),
			"inquiries":  inquiries,
		})
	}
}

func (adc *AdminController) PendingKYC() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users, err := adc.Users.PendingKYC(r.Context(), 0)
		if err != nil {
			writeStoreError(w, r, err, "", "Failed to fetch pending KYC")
			return
		}
		writeOK(w, "Pending KYC fetched successfully", users)
	}
}

type verifyVendorRequest struct {
	UserID string `json:"user_id" validate:"required,len=24,hexadecimal"`
	Status string `json:"status" validate:"required,oneof=approved rejected"`
}

type kycEvent struct {
	UserID string `json:"userId"`
	Status string `json:"status"`
	Role   string `json:"role"`
}

func (adc *AdminController) VerifyVendor() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req verifyVendorRequest
		if err := decodeJSON(r, &req); err != nil {
			WriteError(w, http.StatusBadRequest, "Invalid request payload")
			return
		}
		if err := utils.ValidateStruct(req); err != nil {
			writeValidationError(w, err)
			return
		}
		id, err := primitive.ObjectIDFromHex(req.UserID)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "Invalid user ID")
			return
		}

		user, err := adc.Users.FindByID(r.Context(), id)
		if err != nil {
			writeStoreError(w, r, err, "User not found", "Failed to verify vendor")
			return
		}
		if user.KYCStatus == models.KYCNone || user.KYCStatus == "" {
			WriteError(w, http.StatusBadRequest, "User has not submitted KYC documents")
			return
		}

		set := bson.M{"kycStatus": req.Status}
		if req.Status == models.KYCApproved && user.Role == models.RoleUser {
			set["role"] = models.RoleOwner
		}
		updated, err := adc.Users.Update(r.Context(), id, set)
		if err != nil {
			writeStoreError(w, r, err, "User not found", "Failed to verify vendor")
			return
		}

		log := logger.WithContext(r.Context())
		log.Info("kyc reviewed", zap.String("user_id", id.Hex()), zap.String("status", req.Status))
		events.PublishAsync(adc.Events, log, events.UserKYCReviewed, id.Hex(), kycEvent{
			UserID: id.Hex(),
			Status: req.Status,
			Role:   updated.Role,
		})
		writeOK(w, "Vendor verification updated", updated)
	}
}

func (adc *AdminController) PendingProperties() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, limit := pageParams(r, defaultPageLimit)
		props, total, err := adc.Properties.List(r.Context(), repository.ListingQuery{
			Filter: pendingListingFilter(),
			Sort:   bson.D{{Key: "postedDate", Value: 1}},
			Page:   page,
			Limit:  limit,
		})
		if err != nil {
			writeStoreError(w, r, err, "", "Failed to fetch pending properties")
			return
		}
		pagination := models.NewPagination(page, limit, total)
		writeOK(w, "Pending properties fetched successfully", listingPage{Properties: props, Pagination: &pagination})
	}
}

type moderateRequest struct {
	Status string `json:"status" validate:"required,oneof=approved rejected"`
	Reason string `json:"reason" validate:"max=500"`
}

type moderationEvent struct {
	PropertyID string `json:"propertyId"`
	AdID       string `json:"adId"`
	OwnerID    string `json:"ownerId"`
	Status     string `json:"status"`
	Reason     string `json:"reason,omitempty"`
}

func (adc *AdminController) ModerateProperty() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathObjectID(w, r, "id", "property")
		if !ok {
			return
		}
		var req moderateRequest
		if err := decodeJSON(r, &req); err != nil {
			WriteError(w, http.StatusBadRequest, "Invalid request payload")
			return
		}
		if err := utils.ValidateStruct(req); err != nil {
			writeValidationError(w, err)
			return
		}
		if req.Status == models.ModerationRejected && req.Reason == "" {
			WriteError(w, http.StatusBadRequest, "A reason is required when rejecting a property")
			return
		}

		set := bson.M{
			"moderationStatus": req.Status,
			"rejectionReason":  req.Reason,
			"isVerified":       req.Status == models.ModerationApproved,
		}
		if req.Status == models.ModerationApproved {
			set["rejectionReason"] = ""
		}
		updated, err := adc.Properties.Update(r.Context(), id, set)
		if err != nil {
			writeStoreError(w, r, err, "Property not found", "Failed to moderate property")
			return
		}
		if adc.Cache != nil {
			adc.Cache.InvalidateAsync()
		}

		log := logger.WithContext(r.Context())
		log.Info("property moderated", zap.String("property_id", id.Hex()), zap.String("status", req.Status))
		events.PublishAsync(adc.Events, log, events.PropertyModerated, id.Hex(), moderationEvent{
			PropertyID: id.Hex(),
			AdID:       updated.AdID,
			OwnerID:    updated.OwnerID.Hex(),
			Status:     req.Status,
			Reason:     updated.RejectionReason,
		})
		writeOK(w, "Property "+req.Status, updated)
	}
}

func (adc *AdminController) FeatureProperty() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathObjectID(w, r, "id", "property")
		if !ok {
			return
		}
		var req struct {
			Featured *bool `json:"featured" validate:"required"`
		}
		if err := decodeJSON(r, &req); err != nil {
			WriteError(w, http.StatusBadRequest, "Invalid request payload")
			return
		}
		if err := utils.ValidateStruct(req); err != nil {
			writeValidationError(w, err)
			return
		}
		updated, err := adc.Properties.Update(r.Context(), id, bson.M{"isFeatured": *req.Featured})
		if err != nil {
			writeStoreError(w, r, err, "Property not found", "Failed to update property")
			return
		}
		if adc.Cache != nil {
			adc.Cache.InvalidateAsync()
		}
		writeOK(w, "Property featured flag updated", updated)
	}
}

type monthPoint struct {
	Month string `json:"month"`
	Count int64  `json:"count"`
}

// monthSeries spreads counts over the n months ending with the month of now, zero where absent.
func monthSeries(now time.Time, n int, counts []repository.MonthCount) []monthPoint {
	byMonth := make(map[string]int64, len(counts))
	for _, c := range counts {
		byMonth[fmt.Sprintf("%04d-%02d", c.Year, c.Month)] += c.Count
	}
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -(n - 1), 0)
	series := make([]monthPoint, 0, n)
	for i := 0; i < n; i++ {
		m := first.AddDate(0, i, 0)
		key := m.Format("2006-01")
		series = append(series, monthPoint{Month: key, Count: byMonth[key]})
	}
	return series
}

func (adc *AdminController) BookingDetails() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := adc.now().UTC()
		since := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -(bookingMonths - 1), 0)

		bookings, err := adc.Inquiries.MonthlyCounts(r.Context(), since)
		if err != nil {
			writeStoreError(w, r, err, "", "Failed to load booking details")
			return
		}
		active, err := adc.Users.ActiveByMonth(r.Context(), since)
		if err != nil {
			writeStoreError(w, r, err, "", "Failed to load booking details")
			return
		}
		writeOK(w, "Booking details fetched successfully", map[string]interface{}{
			"monthlyBookings":    monthSeries(now, bookingMonths, bookings),
			"monthlyActiveUsers": monthSeries(now, bookingMonths, active),
		})
	}
}

type notification struct {
	Type      string             `json:"type"`
	ID        primitive.ObjectID `json:"_id"`
	Title     string             `json:"title"`
	CreatedAt time.Time          `json:"createdAt"`
}

func (adc *AdminController) Notifications() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users, err := adc.Users.PendingKYC(r.Context(), notificationLimit)
		if err != nil {
			writeStoreError(w, r, err, "", "Failed to load notifications")
			return
		}
		props, _, err := adc.Properties.List(r.Context(), repository.ListingQuery{
			Filter: pendingListingFilter(),
			Sort:   bson.D{{Key: "postedDate", Value: -1}},
			Page:   1,
			Limit:  notificationLimit,
		})
		if err != nil {
			writeStoreError(w, r, err, "", "Failed to load notifications")
			return
		}

		items := make([]notification, 0, len(users)+len(props))
		for _, u := range users {
			items = append(items, notification{
				Type:      "kyc",
				ID:        u.ID,
				Title:     u.FullName + " submitted KYC documents",
				CreatedAt: u.UpdatedAt,
			})
		}
		for _, p := range props {
			items = append(items, notification{
				Type:      "property",
				ID:        p.ID,
				Title:     p.Title + " is awaiting review",
				CreatedAt: p.PostedDate,
			})
		}
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		})
		writeOK(w, "Notifications fetched successfully", items)
	}
}
