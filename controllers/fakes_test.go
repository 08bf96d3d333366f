package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/Team-Roomin/Roomin/models"
	"github.com/Team-Roomin/Roomin/repository"
	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var fixedNow = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

type fakeUsers struct {
	repository.UserStore
	users    map[primitive.ObjectID]*models.User
	conflict string
	lastSet  bson.M
	linked   []string
}

func newFakeUsers(users ...*models.User) *fakeUsers {
	f := &fakeUsers{users: map[primitive.ObjectID]*models.User{}}
	for _, u := range users {
		f.users[u.ID] = u
	}
	return f
}

func (f *fakeUsers) Create(_ context.Context, u *models.User) error {
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	if u.Role == "" {
		u.Role = models.RoleUser
	}
	f.users[u.ID] = u
	return nil
}

func (f *fakeUsers) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUsers) FindConflict(context.Context, string, string, string, primitive.ObjectID) (string, error) {
	return f.conflict, nil
}

func (f *fakeUsers) UpsertGoogle(ctx context.Context, email, googleID, fullName, _ string) (*models.User, error) {
	f.linked = append(f.linked, email)
	if u, err := f.FindByEmail(ctx, email); err == nil {
		u.GoogleID = googleID
		return u, nil
	}
	u := &models.User{Email: email, FullName: fullName, GoogleID: googleID, Verified: true}
	return u, f.Create(ctx, u)
}

func (f *fakeUsers) Update(_ context.Context, id primitive.ObjectID, set bson.M, unset ...string) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	f.lastSet = set
	if v, ok := set["refreshToken"].(string); ok {
		u.RefreshToken = v
	}
	if v, ok := set["otp"].(string); ok {
		u.OTP = v
	}
	if v, ok := set["otpTimestamp"].(time.Time); ok {
		u.OTPTimestamp = &v
	}
	if v, ok := set["token"].(string); ok {
		u.Token = v
	}
	if v, ok := set["tokenTimestamp"].(time.Time); ok {
		u.TokenTimestamp = &v
	}
	if v, ok := set["verified"].(bool); ok {
		u.Verified = v
	}
	for _, field := range unset {
		switch field {
		case "refreshToken":
			u.RefreshToken = ""
		case "otp":
			u.OTP = ""
		case "token":
			u.Token = ""
		}
	}
	return u, nil
}

type fakeProperties struct {
	repository.PropertyStore
	props      map[primitive.ObjectID]*models.Property
	lastSet    bson.M
	interested []primitive.ObjectID
	deleted    []primitive.ObjectID
}

func newFakeProperties(props ...*models.Property) *fakeProperties {
	f := &fakeProperties{props: map[primitive.ObjectID]*models.Property{}}
	for _, p := range props {
		f.props[p.ID] = p
	}
	return f
}

func (f *fakeProperties) NextAdID(context.Context, time.Time) (string, error) {
	return "RR2024000001", nil
}

func (f *fakeProperties) Create(_ context.Context, p *models.Property) error {
	f.props[p.ID] = p
	return nil
}

func (f *fakeProperties) FindByID(_ context.Context, id primitive.ObjectID) (*models.Property, error) {
	if p, ok := f.props[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeProperties) FindDetail(ctx context.Context, id primitive.ObjectID) (*models.Property, error) {
	return f.FindByID(ctx, id)
}

func (f *fakeProperties) Related(context.Context, *models.Property, int64) ([]models.Property, error) {
	return []models.Property{}, nil
}

func (f *fakeProperties) Update(_ context.Context, id primitive.ObjectID, set bson.M) (*models.Property, error) {
	p, ok := f.props[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	f.lastSet = set
	if v, ok := set["moderationStatus"].(string); ok {
		p.ModerationStatus = v
	}
	return p, nil
}

func (f *fakeProperties) SoftDelete(_ context.Context, id primitive.ObjectID) error {
	p, ok := f.props[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.IsActive = false
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeProperties) AddInterestedUser(_ context.Context, _, userID primitive.ObjectID, _ time.Time) error {
	f.interested = append(f.interested, userID)
	return nil
}

func (f *fakeProperties) List(_ context.Context, q repository.ListingQuery) ([]models.Property, int64, error) {
	out := []models.Property{}
	for _, p := range f.props {
		out = append(out, *p)
	}
	return out, int64(len(out)), nil
}

type bookmarkKey struct{ user, property primitive.ObjectID }

type fakeBookmarks struct {
	repository.BookmarkStore
	marks             map[bookmarkKey]bool
	deletedByProperty []primitive.ObjectID
}

func newFakeBookmarks() *fakeBookmarks {
	return &fakeBookmarks{marks: map[bookmarkKey]bool{}}
}

func (f *fakeBookmarks) Exists(_ context.Context, userID, propertyID primitive.ObjectID) (bool, error) {
	return f.marks[bookmarkKey{userID, propertyID}], nil
}

func (f *fakeBookmarks) Create(_ context.Context, b *models.Bookmark) error {
	b.ID = primitive.NewObjectID()
	f.marks[bookmarkKey{b.UserID, b.PropertyID}] = true
	return nil
}

func (f *fakeBookmarks) Delete(_ context.Context, userID, propertyID primitive.ObjectID) error {
	k := bookmarkKey{userID, propertyID}
	if !f.marks[k] {
		return repository.ErrNotFound
	}
	delete(f.marks, k)
	return nil
}

func (f *fakeBookmarks) DeleteByProperty(_ context.Context, propertyID primitive.ObjectID) error {
	f.deletedByProperty = append(f.deletedByProperty, propertyID)
	return nil
}

type fakeInquiries struct {
	repository.InquiryStore
	recent      bool
	recentSince []time.Time
	created     []*models.Inquiry
	closedFor   []primitive.ObjectID
}

func (f *fakeInquiries) RecentExists(_ context.Context, _, _ primitive.ObjectID, since time.Time) (bool, error) {
	f.recentSince = append(f.recentSince, since)
	return f.recent, nil
}

func (f *fakeInquiries) Create(_ context.Context, inq *models.Inquiry) error {
	inq.ID = primitive.NewObjectID()
	f.created = append(f.created, inq)
	return nil
}

func (f *fakeInquiries) CloseForProperty(_ context.Context, propertyID primitive.ObjectID) error {
	f.closedFor = append(f.closedFor, propertyID)
	return nil
}

type fakeReviews struct {
	repository.ReviewStore
	exists  bool
	created []*models.Review
	stored  *models.Review
	lastSet bson.M
}

func (f *fakeReviews) FindByID(_ context.Context, id primitive.ObjectID) (*models.Review, error) {
	if f.stored == nil || f.stored.ID != id {
		return nil, repository.ErrNotFound
	}
	cp := *f.stored
	return &cp, nil
}

func (f *fakeReviews) Update(_ context.Context, id primitive.ObjectID, set bson.M) (*models.Review, error) {
	if f.stored == nil || f.stored.ID != id {
		return nil, repository.ErrNotFound
	}
	f.lastSet = set
	return f.stored, nil
}

func (f *fakeReviews) Exists(context.Context, primitive.ObjectID, primitive.ObjectID) (bool, error) {
	return f.exists, nil
}

func (f *fakeReviews) Create(_ context.Context, rv *models.Review) error {
	rv.ID = primitive.NewObjectID()
	f.created = append(f.created, rv)
	return nil
}

// countingCache is an in-memory ListingCacher.
type countingCache struct {
	mu          sync.Mutex
	entries     map[string][]byte
	invalidated int
}

func (c *countingCache) Key(scope string, q url.Values) string { return scope + "?" + q.Encode() }

func (c *countingCache) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	return v, ok
}

func (c *countingCache) Set(_ context.Context, key string, payload []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entries == nil {
		c.entries = map[string][]byte{}
	}
	c.entries[key] = payload
}

func (c *countingCache) InvalidateAsync() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated++
	c.entries = nil
}

func validListing(owner primitive.ObjectID) *models.Property {
	p := &models.Property{
		Purpose:  "residential_property",
		Type:     "2bhk",
		Price:    models.Price{Amount: 25000},
		Location: models.Location{Address: models.Address{City: "Pune"}},
		Title:    "Sunny two bedroom flat",
	}
	p.PrepareNew(owner, "RR2024000001", fixedNow)
	return p
}

func publicListing(owner primitive.ObjectID) *models.Property {
	p := validListing(owner)
	p.ModerationStatus = models.ModerationApproved
	return p
}

// newRequest builds a request carrying the authenticated user and route variables.
func newRequest(method, target string, body interface{}, user *models.User, vars map[string]string) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			json.NewEncoder(&buf).Encode(body)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != nil {
		req = req.WithContext(WithUser(req.Context(), user.ID.Hex(), user.Role))
	}
	if vars != nil {
		req = mux.SetURLVars(req, vars)
	}
	return req
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) models.APIResponse {
	t.Helper()
	var resp models.APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return resp
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("expected status %d, got %d: %s", want, rec.Code, rec.Body.String())
	}
}
