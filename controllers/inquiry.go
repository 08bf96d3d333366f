package controllers

import (
	"net/http"
	"time"

	"github.com/Team-Roomin/Roomin/events"
	"github.com/Team-Roomin/Roomin/logger"
	"github.com/Team-Roomin/Roomin/models"
	"github.com/Team-Roomin/Roomin/repository"
	"github.com/Team-Roomin/Roomin/utils"
	"go.uber.org/zap"
)

type InquiryController struct {
	Inquiries  repository.InquiryStore
	Properties repository.PropertyStore
	Users      repository.UserStore
	Events     events.Publisher
	Now        func() time.Time
}

func (ic *InquiryController) now() time.Time {
	if ic.Now != nil {
		return ic.Now()
	}
	return time.Now()
}

type inquiryRequest struct {
	Message     string             `json:"message" validate:"required,min=10,max=1000"`
	ContactInfo models.ContactInfo `json:"contactInfo"`
}

type inquiryEvent struct {
	InquiryID  string `json:"inquiryId"`
	PropertyID string `json:"propertyId"`
	AdID       string `json:"adId,omitempty"`
	OwnerID    string `json:"ownerId"`
	InquirerID string `json:"inquirerId"`
	Status     string `json:"status"`
}

func (ic *InquiryController) CreateInquiry() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := currentUserID(w, r)
		if !ok {
			return
		}
		propertyID, ok := pathObjectID(w, r, "id", "property")
		if !ok {
			return
		}
		var req inquiryRequest
		if err := decodeJSON(r, &req); err != nil {
			WriteError(w, http.StatusBadRequest, "Invalid request payload")
			return
		}
		if err := utils.ValidateStruct(req); err != nil {
			writeValidationError(w, err)
			return
		}

		property, err := ic.Properties.FindByID(r.Context(), propertyID)
		if err != nil {
			writeStoreError(w, r, err, "Property not found", "Failed to send inquiry")
			return
		}
		if !property.IsActive {
			WriteError(w, http.StatusNotFound, "Property not found")
			return
		}
		if property.OwnerID == userID {
			WriteError(w, http.StatusBadRequest, "You cannot inquire about your own property")
			return
		}

		now := ic.now()
		recent, err := ic.Inquiries.RecentExists(r.Context(), userID, propertyID, now.Add(-models.InquiryWindow))
		if err != nil {
			writeStoreError(w, r, err, "", "Failed to send inquiry")
			return
		}
		if recent {
			WriteError(w, http.StatusTooManyRequests, "You have already inquired about this property in the last 24 hours")
			return
		}

		contact := req.ContactInfo
		if contact.Phone == "" || contact.Email == "" {
			user, err := ic.Users.FindByID(r.Context(), userID)
			if err != nil {
				writeStoreError(w, r, err, "User not found", "Failed to send inquiry")
				return
			}
			if contact.Phone == "" {
				contact.Phone = user.PhoneNo
			}
			if contact.Email == "" {
				contact.Email = user.Email
			}
		}

		inquiry := &models.Inquiry{
			PropertyID:     propertyID,
			InquirerUserID: userID,
			OwnerUserID:    property.OwnerID,
			Message:        req.Message,
			ContactInfo:    contact,
			Status:         models.InquiryNew,
			CreatedAt:      now,
		}
		if err := ic.Inquiries.Create(r.Context(), inquiry); err != nil {
			writeStoreError(w, r, err, "", "Failed to send inquiry")
			return
		}

		log := logger.WithContext(r.Context())
		if err := ic.Properties.AddInterestedUser(r.Context(), propertyID, userID, now); err != nil {
			log.Warn("failed to record interested user", zap.String("property_id", propertyID.Hex()), zap.Error(err))
		}
		events.PublishAsync(ic.Events, log, events.InquiryCreated, inquiry.ID.Hex(), inquiryEvent{
			InquiryID:  inquiry.ID.Hex(),
			PropertyID: propertyID.Hex(),
			AdID:       property.AdID,
			OwnerID:    property.OwnerID.Hex(),
			InquirerID: userID.Hex(),
			Status:     inquiry.Status,
		})
		writeCreated(w, "Inquiry sent successfully", inquiry)
	}
}

func (ic *InquiryController) Received() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := currentUserID(w, r)
		if !ok {
			return
		}
		status := r.URL.Query().Get("status")
		switch status {
		case "", models.InquiryNew, models.InquiryReplied, models.InquiryClosed:
		default:
			WriteError(w, http.StatusBadRequest, "Invalid status filter")
			return
		}
		page, limit := pageParams(r, defaultPageLimit)
		inquiries, total, err := ic.Inquiries.ListReceived(r.Context(), userID, status, page, limit)
		if err != nil {
			writeStoreError(w, r, err, "", "Failed to fetch inquiries")
			return
		}
		writeOK(w, "Inquiries fetched successfully", map[string]interface{}{
			"inquiries":  inquiries,
			"pagination": models.NewPagination(page, limit, total),
		})
	}
}

func (ic *InquiryController) Sent() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := currentUserID(w, r)
		if !ok {
			return
		}
		page, limit := pageParams(r, defaultPageLimit)
		inquiries, total, err := ic.Inquiries.ListSent(r.Context(), userID, page, limit)
		if err != nil {
			writeStoreError(w, r, err, "", "Failed to fetch inquiries")
			return
		}
		writeOK(w, "Inquiries fetched successfully", map[string]interface{}{
			"inquiries":  inquiries,
			"pagination": models.NewPagination(page, limit, total),
		})
	}
}

func (ic *InquiryController) Respond() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := currentUserID(w, r)
		if !ok {
			return
		}
		id, ok := pathObjectID(w, r, "id", "inquiry")
		if !ok {
			return
		}
		var req struct {
			Response string `json:"response" validate:"required,min=1,max=1000"`
		}
		if err := decodeJSON(r, &req); err != nil {
			WriteError(w, http.StatusBadRequest, "Invalid request payload")
			return
		}
		if err := utils.ValidateStruct(req); err != nil {
			writeValidationError(w, err)
			return
		}

		inquiry, err := ic.Inquiries.FindByID(r.Context(), id)
		if err != nil {
			writeStoreError(w, r, err, "Inquiry not found", "Failed to respond to inquiry")
			return
		}
		if inquiry.OwnerUserID != userID {
			WriteError(w, http.StatusForbidden, "Only the property owner can respond")
			return
		}
		if inquiry.Status == models.InquiryClosed {
			WriteError(w, http.StatusBadRequest, "Inquiry is closed")
			return
		}

		updated, err := ic.Inquiries.Respond(r.Context(), id, req.Response, ic.now())
		if err != nil {
			writeStoreError(w, r, err, "Inquiry not found", "Failed to respond to inquiry")
			return
		}
		events.PublishAsync(ic.Events, logger.WithContext(r.Context()), events.InquiryReplied, id.Hex(), inquiryEvent{
			InquiryID:  id.Hex(),
			PropertyID: updated.PropertyID.Hex(),
			OwnerID:    updated.OwnerUserID.Hex(),
			InquirerID: updated.InquirerUserID.Hex(),
			Status:     updated.Status,
		})
		writeOK(w, "Response sent successfully", updated)
	}
}

func (ic *InquiryController) Close() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := currentUserID(w, r)
		if !ok {
			return
		}
		id, ok := pathObjectID(w, r, "id", "inquiry")
		if !ok {
			return
		}
		inquiry, err := ic.Inquiries.FindByID(r.Context(), id)
		if err != nil {
			writeStoreError(w, r, err, "Inquiry not found", "Failed to close inquiry")
			return
		}
		if inquiry.OwnerUserID != userID && inquiry.InquirerUserID != userID {
			WriteError(w, http.StatusForbidden, "Not authorized to close this inquiry")
			return
		}
		updated, err := ic.Inquiries.Close(r.Context(), id)
		if err != nil {
			writeStoreError(w, r, err, "Inquiry not found", "Failed to close inquiry")
			return
		}
		writeOK(w, "Inquiry closed", updated)
	}
}
