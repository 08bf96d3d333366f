package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/Team-Roomin/Roomin/logger"
	"github.com/Team-Roomin/Roomin/models"
	"github.com/Team-Roomin/Roomin/repository"
	"github.com/Team-Roomin/Roomin/storage"
	"github.com/Team-Roomin/Roomin/utils"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	relatedListings = 4
	maxPhotoUpload  = 10 << 20
)

// ListingCacher caches serialized listing responses.
type ListingCacher interface {
	Key(scope string, query url.Values) string
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, payload []byte)
	InvalidateAsync()
}

// ViewCounter reports whether ip is viewing a listing for the first time today.
type ViewCounter interface {
	FirstToday(ctx context.Context, propertyID, ip string, at time.Time) (bool, error)
}

type PropertyController struct {
	Properties repository.PropertyStore
	Bookmarks  repository.BookmarkStore
	Inquiries  repository.InquiryStore
	Users      repository.UserStore
	Cache      ListingCacher
	Views      ViewCounter
	Photos     storage.PhotoStore
	Now        func() time.Time
}

func (pc *PropertyController) now() time.Time {
	if pc.Now != nil {
		return pc.Now()
	}
	return time.Now()
}

func (pc *PropertyController) invalidate() {
	if pc.Cache != nil {
		pc.Cache.InvalidateAsync()
	}
}

// fields a listing update may touch
var updatableFields = map[string]bool{
	"purpose":      true,
	"type":         true,
	"status":       true,
	"price":        true,
	"details":      true,
	"amenities":    true,
	"location":     true,
	"media":        true,
	"title":        true,
	"description":  true,
	"highlights":   true,
	"rules":        true,
	"availability": true,
}

type listingPage struct {
	Properties []models.Property  `json:"properties"`
	Pagination *models.Pagination `json:"pagination,omitempty"`
	Query      string             `json:"query,omitempty"`
}

// serveCached answers from the listing cache when possible and stores fresh responses.
func serveCached(w http.ResponseWriter, r *http.Request, c ListingCacher, scope, message string, load func() (interface{}, error)) {
	var key string
	if c != nil {
		key = c.Key(scope, r.URL.Query())
		if payload, ok := c.Get(r.Context(), key); ok {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("X-Cache", "HIT")
			w.Write(payload)
			return
		}
	}

	data, err := load()
	if err != nil {
		writeStoreError(w, r, err, "", "Error fetching properties")
		return
	}
	payload, err := json.Marshal(models.APIResponse{Success: true, Message: message, Data: data})
	if err != nil {
		logger.WithContext(r.Context()).Error("failed to serialize listings", zap.Error(err))
		WriteError(w, http.StatusInternalServerError, "Failed to encode response")
		return
	}
	if c != nil {
		c.Set(r.Context(), key, payload)
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Cache", "MISS")
	w.Write(payload)
}

func (pc *PropertyController) CreateProperty() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := currentUserID(w, r)
		if !ok {
			return
		}
		user, err := pc.Users.FindByID(r.Context(), userID)
		if err != nil {
			writeStoreError(w, r, err, "User not found", "Failed to create property")
			return
		}
		if !user.CanList() {
			WriteError(w, http.StatusForbidden, "Only verified property owners can list properties")
			return
		}

		var property models.Property
		if err := decodeJSON(r, &property); err != nil {
			WriteError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if err := utils.ValidateStruct(property); err != nil {
			writeValidationError(w, err)
			return
		}

		now := pc.now()
		adID, err := pc.Properties.NextAdID(r.Context(), now)
		if err != nil {
			writeStoreError(w, r, err, "", "Failed to create property")
			return
		}
		property.PrepareNew(userID, adID, now)
		if err := pc.Properties.Create(r.Context(), &property); err != nil {
			writeStoreError(w, r, err, "", "Failed to create property")
			return
		}
		pc.invalidate()

		logger.WithContext(r.Context()).Info("property created",
			zap.String("property_id", property.ID.Hex()),
			zap.String("ad_id", adID),
			zap.String("owner_id", userID.Hex()),
		)
		writeCreated(w, "Property created and sent for review", property)
	}
}

func (pc *PropertyController) GetAllProperties() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		serveCached(w, r, pc.Cache, "list", "Properties fetched successfully", func() (interface{}, error) {
			query := r.URL.Query()
			page, limit := pageParams(r, defaultPageLimit)
			props, total, err := pc.Properties.List(r.Context(), repository.ListingQuery{
				Filter: repository.BuildListingFilter(repository.PublicListingGate(), query),
				Sort:   repository.ListingSort(query.Get("sortBy")),
				Page:   page,
				Limit:  limit,
			})
			if err != nil {
				return nil, err
			}
			pagination := models.NewPagination(page, limit, total)
			return listingPage{Properties: props, Pagination: &pagination}, nil
		})
	}
}

func (pc *PropertyController) GetProperty() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathObjectID(w, r, "id", "property")
		if !ok {
			return
		}
		property, err := pc.Properties.FindDetail(r.Context(), id)
		if err != nil {
			writeStoreError(w, r, err, "Property not found", "Error fetching property")
			return
		}
		if !property.IsPublic() {
			WriteError(w, http.StatusNotFound, "Property not found")
			return
		}
		property.InterestedUsers = nil

		related, err := pc.Properties.Related(r.Context(), property, relatedListings)
		if err != nil {
			logger.WithContext(r.Context()).Warn("related listings failed", zap.String("property_id", id.Hex()), zap.Error(err))
			related = []models.Property{}
		}
		writeOK(w, "Property fetched successfully", map[string]interface{}{
			"property": property,
			"related":  related,
		})
	}
}

// loadOwned fetches an active listing the current user owns, or any active listing for admins.
func (pc *PropertyController) loadOwned(w http.ResponseWriter, r *http.Request) (*models.Property, primitive.ObjectID, bool) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return nil, userID, false
	}
	id, ok := pathObjectID(w, r, "id", "property")
	if !ok {
		return nil, userID, false
	}
	property, err := pc.Properties.FindByID(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, err, "Property not found", "Error fetching property")
		return nil, userID, false
	}
	if !property.IsActive {
		WriteError(w, http.StatusNotFound, "Property not found")
		return nil, userID, false
	}
	if property.OwnerID != userID && !isAdmin(r) {
		WriteError(w, http.StatusForbidden, "Not authorized to modify this property")
		return nil, userID, false
	}
	return property, userID, true
}

func (pc *PropertyController) UpdateProperty() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		current, _, ok := pc.loadOwned(w, r)
		if !ok {
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "Invalid update data")
			return
		}
		var present map[string]json.RawMessage
		if err := json.Unmarshal(body, &present); err != nil {
			WriteError(w, http.StatusBadRequest, "Invalid update data")
			return
		}
		merged := *current
		if err := json.Unmarshal(body, &merged); err != nil {
			WriteError(w, http.StatusBadRequest, "Invalid update data")
			return
		}
		if err := utils.ValidateStruct(merged); err != nil {
			writeValidationError(w, err)
			return
		}

		set, err := updateSet(&merged, present)
		if err != nil {
			writeStoreError(w, r, err, "", "Update failed")
			return
		}
		if len(set) == 0 {
			WriteError(w, http.StatusBadRequest, "No updatable fields provided")
			return
		}
		if !isAdmin(r) {
			set["moderationStatus"] = models.ModerationPending
		}

		updated, err := pc.Properties.Update(r.Context(), current.ID, set)
		if err != nil {
			writeStoreError(w, r, err, "Property not found", "Update failed")
			return
		}
		pc.invalidate()
		writeOK(w, "Property updated successfully", updated)
	}
}

// updateSet picks the updatable top-level fields present in the request out of the merged listing.
func updateSet(merged *models.Property, present map[string]json.RawMessage) (bson.M, error) {
	raw, err := bson.Marshal(merged)
	if err != nil {
		return nil, err
	}
	var doc bson.M
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	set := bson.M{}
	for field := range present {
		if !updatableFields[field] {
			continue
		}
		if v, ok := doc[field]; ok {
			set[field] = v
		}
	}
	return set, nil
}

func (pc *PropertyController) DeleteProperty() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		property, userID, ok := pc.loadOwned(w, r)
		if !ok {
			return
		}
		if err := pc.Properties.SoftDelete(r.Context(), property.ID); err != nil {
			writeStoreError(w, r, err, "Property not found", "Delete failed")
			return
		}

		log := logger.WithContext(r.Context())
		if err := pc.Bookmarks.DeleteByProperty(r.Context(), property.ID); err != nil {
			log.Error("failed to remove bookmarks of deleted property", zap.String("property_id", property.ID.Hex()), zap.Error(err))
		}
		if err := pc.Inquiries.CloseForProperty(r.Context(), property.ID); err != nil {
			log.Error("failed to close inquiries of deleted property", zap.String("property_id", property.ID.Hex()), zap.Error(err))
		}
		pc.invalidate()

		log.Info("property deleted", zap.String("property_id", property.ID.Hex()), zap.String("by", userID.Hex()))
		writeOK(w, "Property deleted successfully", nil)
	}
}

func (pc *PropertyController) RecordView() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathObjectID(w, r, "id", "property")
		if !ok {
			return
		}
		now := pc.now()
		ip := utils.ClientIP(r)

		unique := false
		if pc.Views != nil {
			first, err := pc.Views.FirstToday(r.Context(), id.Hex(), ip, now)
			if err != nil {
				logger.WithContext(r.Context()).Warn("unique view check failed", zap.Error(err))
			}
			unique = first
		}
		if err := pc.Properties.RecordView(r.Context(), id, ip, unique, now); err != nil {
			writeStoreError(w, r, err, "Property not found", "Failed to record view")
			return
		}
		writeOK(w, "View recorded", map[string]bool{"unique": unique})
	}
}

func (pc *PropertyController) UploadPhoto() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		property, _, ok := pc.loadOwned(w, r)
		if !ok {
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxPhotoUpload)
		file, header, err := r.FormFile("photo")
		if err != nil {
			WriteError(w, http.StatusBadRequest, "Photo file is missing")
			return
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "Photo file is too large")
			return
		}
		contentType := http.DetectContentType(data)
		switch contentType {
		case "image/jpeg", "image/png", "image/gif":
		default:
			WriteError(w, http.StatusBadRequest, "Only JPEG, PNG and GIF photos are accepted")
			return
		}

		photoURL, thumbURL, err := pc.Photos.UploadPhoto(r.Context(), property.ID.Hex(), header.Filename, contentType, data)
		if err != nil {
			uploadFailed(w, r, err, "Error while uploading photo")
			return
		}

		updated, err := pc.Properties.AddPhoto(r.Context(), property.ID, models.Photo{
			URL:        photoURL,
			Thumbnail:  thumbURL,
			Caption:    r.FormValue("caption"),
			UploadedAt: pc.now(),
		})
		if err != nil {
			writeStoreError(w, r, err, "Property not found", "Failed to save photo")
			return
		}
		pc.invalidate()
		writeCreated(w, "Photo uploaded successfully", updated.Media.Photos)
	}
}

func (pc *PropertyController) AddBookmark() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := currentUserID(w, r)
		if !ok {
			return
		}
		id, ok := pathObjectID(w, r, "id", "property")
		if !ok {
			return
		}

		var req struct {
			Notes string `json:"notes" validate:"max=500"`
		}
		if r.ContentLength != 0 {
			if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
				WriteError(w, http.StatusBadRequest, "Invalid request data")
				return
			}
		}
		if err := utils.ValidateStruct(req); err != nil {
			writeValidationError(w, err)
			return
		}

		property, err := pc.Properties.FindByID(r.Context(), id)
		if err != nil {
			writeStoreError(w, r, err, "Property not found", "Failed to add bookmark")
			return
		}
		if !property.IsActive {
			WriteError(w, http.StatusNotFound, "Property not found")
			return
		}

		exists, err := pc.Bookmarks.Exists(r.Context(), userID, id)
		if err != nil {
			writeStoreError(w, r, err, "", "Failed to check bookmarks")
			return
		}
		if exists {
			WriteError(w, http.StatusConflict, "Property is already bookmarked")
			return
		}

		bookmark := &models.Bookmark{UserID: userID, PropertyID: id, Notes: req.Notes}
		if err := pc.Bookmarks.Create(r.Context(), bookmark); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				WriteError(w, http.StatusConflict, "Property is already bookmarked")
				return
			}
			writeStoreError(w, r, err, "", "Failed to add bookmark")
			return
		}
		writeCreated(w, "Property bookmarked", bookmark)
	}
}

func (pc *PropertyController) RemoveBookmark() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := currentUserID(w, r)
		if !ok {
			return
		}
		id, ok := pathObjectID(w, r, "id", "property")
		if !ok {
			return
		}
		if err := pc.Bookmarks.Delete(r.Context(), userID, id); err != nil {
			writeStoreError(w, r, err, "Bookmark not found", "Failed to remove bookmark")
			return
		}
		writeOK(w, "Bookmark removed", nil)
	}
}

func (pc *PropertyController) GetBookmarks() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := currentUserID(w, r)
		if !ok {
			return
		}
		page, limit := pageParams(r, defaultPageLimit)
		bookmarks, total, err := pc.Bookmarks.ListForUser(r.Context(), userID, page, limit)
		if err != nil {
			writeStoreError(w, r, err, "", "Failed to fetch bookmarks")
			return
		}
		writeOK(w, "Bookmarks fetched successfully", map[string]interface{}{
			"bookmarks":  bookmarks,
			"pagination": models.NewPagination(page, limit, total),
		})
	}
}
