package controllers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Team-Roomin/Roomin/events"
	"github.com/Team-Roomin/Roomin/models"
	"go.uber.org/zap"
)

func newInquiryController(f *fixture) *InquiryController {
	return &InquiryController{
		Inquiries:  f.inquiries,
		Properties: f.properties,
		Users:      f.users,
		Events:     events.NewNoopPublisher(zap.NewNop()),
		Now:        func() time.Time { return fixedNow },
	}
}

func TestCreateInquiry(t *testing.T) {
	body := map[string]interface{}{"message": "Is the flat still available in April?"}

	t.Run("own listing", func(t *testing.T) {
		f := newFixture()
		rec := httptest.NewRecorder()
		newInquiryController(f).CreateInquiry()(rec, newRequest(http.MethodPost, "/api/properties/x/inquire", body, f.owner, f.idVars()))
		expectStatus(t, rec, http.StatusBadRequest)
	})

	t.Run("message too short", func(t *testing.T) {
		f := newFixture()
		rec := httptest.NewRecorder()
		newInquiryController(f).CreateInquiry()(rec, newRequest(http.MethodPost, "/api/properties/x/inquire",
			map[string]string{"message": "hi"}, f.visitor, f.idVars()))
		expectStatus(t, rec, http.StatusBadRequest)
	})

	t.Run("within a day of the last one", func(t *testing.T) {
		f := newFixture()
		f.inquiries.recent = true
		rec := httptest.NewRecorder()
		newInquiryController(f).CreateInquiry()(rec, newRequest(http.MethodPost, "/api/properties/x/inquire", body, f.visitor, f.idVars()))
		expectStatus(t, rec, http.StatusTooManyRequests)
		if want := fixedNow.Add(-models.InquiryWindow); !f.inquiries.recentSince[0].Equal(want) {
			t.Fatalf("expected window start %v, got %v", want, f.inquiries.recentSince[0])
		}
	})

	t.Run("inactive listing", func(t *testing.T) {
		f := newFixture()
		f.listing.IsActive = false
		rec := httptest.NewRecorder()
		newInquiryController(f).CreateInquiry()(rec, newRequest(http.MethodPost, "/api/properties/x/inquire", body, f.visitor, f.idVars()))
		expectStatus(t, rec, http.StatusNotFound)
	})

	t.Run("created with profile contact", func(t *testing.T) {
		f := newFixture()
		rec := httptest.NewRecorder()
		newInquiryController(f).CreateInquiry()(rec, newRequest(http.MethodPost, "/api/properties/x/inquire", body, f.visitor, f.idVars()))
		expectStatus(t, rec, http.StatusCreated)

		if len(f.inquiries.created) != 1 {
			t.Fatal("inquiry not stored")
		}
		inq := f.inquiries.created[0]
		if inq.Status != models.InquiryNew || inq.OwnerUserID != f.owner.ID {
			t.Fatalf("unexpected inquiry %+v", inq)
		}
		if inq.ContactInfo.Email != f.visitor.Email || inq.ContactInfo.Phone != f.visitor.PhoneNo {
			t.Fatalf("contact info not defaulted from profile: %+v", inq.ContactInfo)
		}
		if len(f.properties.interested) != 1 || f.properties.interested[0] != f.visitor.ID {
			t.Fatal("visitor not recorded as interested")
		}
	})
}

func TestReceivedRejectsUnknownStatus(t *testing.T) {
	f := newFixture()
	rec := httptest.NewRecorder()
	newInquiryController(f).Received()(rec, newRequest(http.MethodGet, "/api/inquiries/received?status=archived", nil, f.owner, nil))
	expectStatus(t, rec, http.StatusBadRequest)
}
