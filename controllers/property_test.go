package controllers

import (
	"bytes"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Team-Roomin/Roomin/cache"
	"github.com/Team-Roomin/Roomin/models"
	"github.com/Team-Roomin/Roomin/storage"
	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type fixture struct {
	owner      *models.User
	visitor    *models.User
	admin      *models.User
	users      *fakeUsers
	properties *fakeProperties
	bookmarks  *fakeBookmarks
	inquiries  *fakeInquiries
	cache      *countingCache
	listing    *models.Property
	pc         *PropertyController
}

func newFixture() *fixture {
	f := &fixture{
		owner:   &models.User{ID: primitive.NewObjectID(), Role: models.RoleOwner, Email: "owner@example.com"},
		visitor: &models.User{ID: primitive.NewObjectID(), Role: models.RoleUser, Email: "visitor@example.com", PhoneNo: "9000000000"},
		admin:   &models.User{ID: primitive.NewObjectID(), Role: models.RoleAdmin},
		cache:   &countingCache{},
	}
	f.listing = publicListing(f.owner.ID)
	f.users = newFakeUsers(f.owner, f.visitor, f.admin)
	f.properties = newFakeProperties(f.listing)
	f.bookmarks = newFakeBookmarks()
	f.inquiries = &fakeInquiries{}
	f.pc = &PropertyController{
		Properties: f.properties,
		Bookmarks:  f.bookmarks,
		Inquiries:  f.inquiries,
		Users:      f.users,
		Cache:      f.cache,
		Photos:     storage.DisabledPhotoStore{},
		Now:        func() time.Time { return fixedNow },
	}
	return f
}

func (f *fixture) idVars() map[string]string {
	return map[string]string{"id": f.listing.ID.Hex()}
}

func TestCreateProperty(t *testing.T) {
	body := map[string]interface{}{
		"purpose":  "residential_property",
		"type":     "1bhk",
		"price":    map[string]interface{}{"amount": 12000},
		"location": map[string]interface{}{"address": map[string]string{"city": "Indore"}},
		"title":    "Cozy 1BHK near metro",
		// server-controlled fields are ignored
		"moderationStatus": "approved",
		"isFeatured":       true,
	}

	t.Run("plain user is forbidden", func(t *testing.T) {
		f := newFixture()
		rec := httptest.NewRecorder()
		f.pc.CreateProperty()(rec, newRequest(http.MethodPost, "/api/properties", body, f.visitor, nil))
		expectStatus(t, rec, http.StatusForbidden)
	})

	t.Run("invalid listing", func(t *testing.T) {
		f := newFixture()
		rec := httptest.NewRecorder()
		f.pc.CreateProperty()(rec, newRequest(http.MethodPost, "/api/properties",
			map[string]interface{}{"title": "abc"}, f.owner, nil))
		expectStatus(t, rec, http.StatusBadRequest)
	})

	t.Run("bad coordinates or status", func(t *testing.T) {
		for _, tweak := range []map[string]interface{}{
			{"location": map[string]interface{}{"address": map[string]string{"city": "Indore"}, "coordinates": map[string]interface{}{"coordinates": []float64{75.8}}}},
			{"location": map[string]interface{}{"address": map[string]string{"city": "Indore"}, "coordinates": map[string]interface{}{"coordinates": []float64{200, 22.7}}}},
			{"location": map[string]interface{}{"address": map[string]string{"city": "Indore"}, "coordinates": map[string]interface{}{"coordinates": []float64{75.8, -95}}}},
			{"status": "demolished"},
		} {
			req := map[string]interface{}{}
			for k, v := range body {
				req[k] = v
			}
			for k, v := range tweak {
				req[k] = v
			}
			f := newFixture()
			rec := httptest.NewRecorder()
			f.pc.CreateProperty()(rec, newRequest(http.MethodPost, "/api/properties", req, f.owner, nil))
			expectStatus(t, rec, http.StatusBadRequest)
			if len(f.properties.props) != 1 {
				t.Fatalf("invalid listing %v was stored", tweak)
			}
		}
	})

	t.Run("valid coordinates", func(t *testing.T) {
		req := map[string]interface{}{}
		for k, v := range body {
			req[k] = v
		}
		req["location"] = map[string]interface{}{
			"address":     map[string]string{"city": "Indore"},
			"coordinates": map[string]interface{}{"coordinates": []float64{75.86, 22.72}},
		}
		f := newFixture()
		rec := httptest.NewRecorder()
		f.pc.CreateProperty()(rec, newRequest(http.MethodPost, "/api/properties", req, f.owner, nil))
		expectStatus(t, rec, http.StatusCreated)
	})

	t.Run("owner creates pending listing", func(t *testing.T) {
		f := newFixture()
		rec := httptest.NewRecorder()
		f.pc.CreateProperty()(rec, newRequest(http.MethodPost, "/api/properties", body, f.owner, nil))
		expectStatus(t, rec, http.StatusCreated)

		if len(f.properties.props) != 2 {
			t.Fatalf("expected listing to be stored, have %d", len(f.properties.props))
		}
		for id, p := range f.properties.props {
			if id == f.listing.ID {
				continue
			}
			if p.ModerationStatus != models.ModerationPending || p.IsFeatured {
				t.Fatalf("server-controlled fields not reset: %+v", p)
			}
			if p.OwnerID != f.owner.ID || p.AdID == "" {
				t.Fatalf("owner or ad id missing: %+v", p)
			}
			if !p.ExpiryDate.Equal(fixedNow.Add(models.ListingLifetime)) {
				t.Fatalf("unexpected expiry %v", p.ExpiryDate)
			}
		}
		if f.cache.invalidated != 1 {
			t.Fatal("listing cache not invalidated")
		}
	})
}

func TestGetPropertyHidesUnapproved(t *testing.T) {
	f := newFixture()
	f.listing.ModerationStatus = models.ModerationPending

	rec := httptest.NewRecorder()
	f.pc.GetProperty()(rec, newRequest(http.MethodGet, "/api/properties/x", nil, nil, f.idVars()))
	expectStatus(t, rec, http.StatusNotFound)

	f.listing.ModerationStatus = models.ModerationApproved
	rec = httptest.NewRecorder()
	f.pc.GetProperty()(rec, newRequest(http.MethodGet, "/api/properties/x", nil, nil, f.idVars()))
	expectStatus(t, rec, http.StatusOK)
}

func TestGetPropertyInvalidID(t *testing.T) {
	f := newFixture()
	rec := httptest.NewRecorder()
	f.pc.GetProperty()(rec, newRequest(http.MethodGet, "/api/properties/x", nil, nil, map[string]string{"id": "nope"}))
	expectStatus(t, rec, http.StatusBadRequest)
}

func TestUpdateProperty(t *testing.T) {
	t.Run("unknown status", func(t *testing.T) {
		f := newFixture()
		rec := httptest.NewRecorder()
		f.pc.UpdateProperty()(rec, newRequest(http.MethodPut, "/api/properties/x",
			map[string]interface{}{"status": "demolished"}, f.owner, f.idVars()))
		expectStatus(t, rec, http.StatusBadRequest)
		if f.properties.lastSet != nil {
			t.Fatal("listing must not change")
		}
	})

	t.Run("owner edit goes back to review", func(t *testing.T) {
		f := newFixture()
		rec := httptest.NewRecorder()
		f.pc.UpdateProperty()(rec, newRequest(http.MethodPut, "/api/properties/x",
			map[string]interface{}{"title": "Renovated two bedroom flat", "views": map[string]int{"total": 1000}},
			f.owner, f.idVars()))
		expectStatus(t, rec, http.StatusOK)

		if f.properties.lastSet["title"] != "Renovated two bedroom flat" {
			t.Fatalf("title not updated: %v", f.properties.lastSet)
		}
		if _, ok := f.properties.lastSet["views"]; ok {
			t.Fatal("views must not be updatable")
		}
		if f.properties.lastSet["moderationStatus"] != models.ModerationPending {
			t.Fatal("owner edits must reset moderation")
		}
	})

	t.Run("admin edit keeps moderation", func(t *testing.T) {
		f := newFixture()
		rec := httptest.NewRecorder()
		f.pc.UpdateProperty()(rec, newRequest(http.MethodPut, "/api/properties/x",
			map[string]interface{}{"description": "Updated by support"}, f.admin, f.idVars()))
		expectStatus(t, rec, http.StatusOK)
		if _, ok := f.properties.lastSet["moderationStatus"]; ok {
			t.Fatal("admin edits must not touch moderation")
		}
	})

	t.Run("only protected fields", func(t *testing.T) {
		f := newFixture()
		rec := httptest.NewRecorder()
		f.pc.UpdateProperty()(rec, newRequest(http.MethodPut, "/api/properties/x",
			map[string]interface{}{"ownerId": f.visitor.ID.Hex()}, f.owner, f.idVars()))
		expectStatus(t, rec, http.StatusBadRequest)
	})

	t.Run("invalid merged listing", func(t *testing.T) {
		f := newFixture()
		rec := httptest.NewRecorder()
		f.pc.UpdateProperty()(rec, newRequest(http.MethodPut, "/api/properties/x",
			map[string]interface{}{"type": "castle"}, f.owner, f.idVars()))
		expectStatus(t, rec, http.StatusBadRequest)
	})

	t.Run("stranger is forbidden", func(t *testing.T) {
		f := newFixture()
		rec := httptest.NewRecorder()
		f.pc.UpdateProperty()(rec, newRequest(http.MethodPut, "/api/properties/x",
			map[string]interface{}{"title": "Not mine to change"}, f.visitor, f.idVars()))
		expectStatus(t, rec, http.StatusForbidden)
	})
}

func TestDeleteProperty(t *testing.T) {
	f := newFixture()
	rec := httptest.NewRecorder()
	f.pc.DeleteProperty()(rec, newRequest(http.MethodDelete, "/api/properties/x", nil, f.owner, f.idVars()))
	expectStatus(t, rec, http.StatusOK)

	if f.listing.IsActive {
		t.Fatal("listing must be soft-deleted")
	}
	if len(f.bookmarks.deletedByProperty) != 1 || len(f.inquiries.closedFor) != 1 {
		t.Fatal("bookmarks and inquiries of the listing must be cleaned up")
	}
	if f.cache.invalidated != 1 {
		t.Fatal("listing cache not invalidated")
	}

	rec = httptest.NewRecorder()
	f.pc.DeleteProperty()(rec, newRequest(http.MethodDelete, "/api/properties/x", nil, f.owner, f.idVars()))
	expectStatus(t, rec, http.StatusNotFound)
}

func TestBookmarks(t *testing.T) {
	f := newFixture()

	rec := httptest.NewRecorder()
	f.pc.AddBookmark()(rec, newRequest(http.MethodPost, "/api/properties/x/bookmark",
		map[string]string{"notes": "call on monday"}, f.visitor, f.idVars()))
	expectStatus(t, rec, http.StatusCreated)

	rec = httptest.NewRecorder()
	f.pc.AddBookmark()(rec, newRequest(http.MethodPost, "/api/properties/x/bookmark", nil, f.visitor, f.idVars()))
	expectStatus(t, rec, http.StatusConflict)

	rec = httptest.NewRecorder()
	f.pc.RemoveBookmark()(rec, newRequest(http.MethodDelete, "/api/properties/x/bookmark", nil, f.visitor, f.idVars()))
	expectStatus(t, rec, http.StatusOK)

	rec = httptest.NewRecorder()
	f.pc.RemoveBookmark()(rec, newRequest(http.MethodDelete, "/api/properties/x/bookmark", nil, f.visitor, f.idVars()))
	expectStatus(t, rec, http.StatusNotFound)
	if msg := decodeResponse(t, rec).Message; msg != "Bookmark not found" {
		t.Fatalf("unexpected message %q", msg)
	}
}

func TestAddBookmarkUnknownProperty(t *testing.T) {
	f := newFixture()
	rec := httptest.NewRecorder()
	f.pc.AddBookmark()(rec, newRequest(http.MethodPost, "/api/properties/x/bookmark", nil, f.visitor,
		map[string]string{"id": primitive.NewObjectID().Hex()}))
	expectStatus(t, rec, http.StatusNotFound)
}

func TestUploadPhotoWithoutStorage(t *testing.T) {
	f := newFixture()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, _ := mw.CreateFormFile("photo", "front.gif")
	// smallest valid GIF header is enough for content sniffing
	part.Write([]byte("GIF89a\x01\x00\x01\x00\x00\x00\x00;"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/properties/x/photos", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req = req.WithContext(WithUser(req.Context(), f.owner.ID.Hex(), f.owner.Role))
	req = mux.SetURLVars(req, f.idVars())

	rec := httptest.NewRecorder()
	f.pc.UploadPhoto()(rec, req)
	expectStatus(t, rec, http.StatusServiceUnavailable)
}

func TestServeCached(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	listings := cache.NewListingCache(rdb, time.Minute, zap.NewNop())

	loads := 0
	load := func() (interface{}, error) {
		loads++
		return listingPage{Properties: []models.Property{}}, nil
	}

	for i, want := range []string{"MISS", "HIT"} {
		rec := httptest.NewRecorder()
		serveCached(rec, httptest.NewRequest(http.MethodGet, "/api/properties?city=Pune&page=1", nil), listings, "list", "ok", load)
		expectStatus(t, rec, http.StatusOK)
		if got := rec.Header().Get("X-Cache"); got != want {
			t.Fatalf("request %d: expected X-Cache %s, got %s", i, want, got)
		}
	}
	if loads != 1 {
		t.Fatalf("expected one load, got %d", loads)
	}

	// parameter order does not matter
	rec := httptest.NewRecorder()
	serveCached(rec, httptest.NewRequest(http.MethodGet, "/api/properties?page=1&city=Pune", nil), listings, "list", "ok", load)
	if rec.Header().Get("X-Cache") != "HIT" {
		t.Fatal("expected a hit for reordered parameters")
	}
}

func TestServeCachedLoadError(t *testing.T) {
	rec := httptest.NewRecorder()
	serveCached(rec, httptest.NewRequest(http.MethodGet, "/api/properties", nil), &countingCache{}, "list", "ok",
		func() (interface{}, error) { return nil, errors.New("boom") })
	expectStatus(t, rec, http.StatusInternalServerError)
}
