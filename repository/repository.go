// Package repository holds the MongoDB stores behind the HTTP controllers.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Team-Roomin/Roomin/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

var (
	ErrNotFound  = errors.New("document not found")
	ErrDuplicate = errors.New("duplicate document")
)

// translate maps driver errors onto the package sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return ErrDuplicate
	}
	return err
}

type DailyCount struct {
	Date  string `bson:"_id" json:"date"`
	Count int64  `bson:"count" json:"views"`
}

type StatusCount struct {
	Status     string `bson:"_id" json:"status"`
	Count      int64  `bson:"count" json:"count"`
	Recent     int64  `bson:"recent" json:"recent,omitempty"`
	TotalViews int64  `bson:"totalViews" json:"totalViews,omitempty"`
}

type MonthCount struct {
	Year  int   `bson:"year" json:"year"`
	Month int   `bson:"month" json:"month"`
	Count int64 `bson:"count" json:"count"`
}

type CategoryStats struct {
	AvgViews float64 `bson:"avgViews" json:"avgViewsInCategory"`
	AvgPrice float64 `bson:"avgPrice" json:"avgPriceInCategory"`
	Count    int64   `bson:"count" json:"similarPropertiesCount"`
}

type ReviewSummary struct {
	Total         int64   `bson:"totalReviews" json:"total"`
	AverageRating float64 `bson:"avgRating" json:"averageRating"`
	Recent        int64   `bson:"recentReviews" json:"recent"`
}

type RevenueStats struct {
	TotalMonthlyRevenue float64 `bson:"totalMonthlyRevenue" json:"totalMonthlyRevenue"`
	AvgRent             float64 `bson:"avgRent" json:"avgRent"`
	RentedProperties    int64   `bson:"rentedProperties" json:"rentedProperties"`
}

// ListingQuery describes one page of listings.
type ListingQuery struct {
	Filter bson.M
	Text   string
	Sort   bson.D
	Page   int64
	Limit  int64
}

func (q ListingQuery) skip() int64 {
	if q.Page < 1 {
		return 0
	}
	return (q.Page - 1) * q.Limit
}

type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	// FindConflict returns the name of the first of username, email or phoneNo already taken.
	FindConflict(ctx context.Context, username, email, phoneNo string, exclude primitive.ObjectID) (string, error)
	Update(ctx context.Context, id primitive.ObjectID, set bson.M, unset ...string) (*models.User, error)
	UpsertGoogle(ctx context.Context, email, googleID, fullName, picture string) (*models.User, error)
	List(ctx context.Context, page, limit int64) ([]models.User, int64, error)
	PendingKYC(ctx context.Context, limit int64) ([]models.User, error)
	Count(ctx context.Context, filter bson.M) (int64, error)
	ActiveByMonth(ctx context.Context, since time.Time) ([]MonthCount, error)
}

type PropertyStore interface {
	NextAdID(ctx context.Context, now time.Time) (string, error)
	Create(ctx context.Context, p *models.Property) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Property, error)
	FindDetail(ctx context.Context, id primitive.ObjectID) (*models.Property, error)
	List(ctx context.Context, q ListingQuery) ([]models.Property, int64, error)
	Nearby(ctx context.Context, lng, lat, radius float64, limit int64) ([]models.Property, error)
	Related(ctx context.Context, p *models.Property, limit int64) ([]models.Property, error)
	Update(ctx context.Context, id primitive.ObjectID, set bson.M) (*models.Property, error)
	SoftDelete(ctx context.Context, id primitive.ObjectID) error
	AddPhoto(ctx context.Context, id primitive.ObjectID, photo models.Photo) (*models.Property, error)
	RecordView(ctx context.Context, id primitive.ObjectID, ip string, unique bool, at time.Time) error
	AddInterestedUser(ctx context.Context, id, userID primitive.ObjectID, at time.Time) error
	ByOwner(ctx context.Context, ownerID primitive.ObjectID) ([]models.Property, error)
	Count(ctx context.Context, filter bson.M) (int64, error)
}

type BookmarkStore interface {
	Create(ctx context.Context, b *models.Bookmark) error
	Exists(ctx context.Context, userID, propertyID primitive.ObjectID) (bool, error)
	Delete(ctx context.Context, userID, propertyID primitive.ObjectID) error
	DeleteByProperty(ctx context.Context, propertyID primitive.ObjectID) error
	ListForUser(ctx context.Context, userID primitive.ObjectID, page, limit int64) ([]models.BookmarkedProperty, int64, error)
	CountForProperty(ctx context.Context, propertyID primitive.ObjectID, since time.Time) (int64, error)
}

type InquiryStore interface {
	Create(ctx context.Context, inq *models.Inquiry) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Inquiry, error)
	RecentExists(ctx context.Context, inquirerID, propertyID primitive.ObjectID, since time.Time) (bool, error)
	ListReceived(ctx context.Context, ownerID primitive.ObjectID, status string, page, limit int64) ([]models.Inquiry, int64, error)
	ListSent(ctx context.Context, inquirerID primitive.ObjectID, page, limit int64) ([]models.Inquiry, int64, error)
	Respond(ctx context.Context, id primitive.ObjectID, response string, at time.Time) (*models.Inquiry, error)
	Close(ctx context.Context, id primitive.ObjectID) (*models.Inquiry, error)
	CloseForProperty(ctx context.Context, propertyID primitive.ObjectID) error
	CountForProperty(ctx context.Context, propertyID primitive.ObjectID, since time.Time) (int64, error)
	Count(ctx context.Context, filter bson.M) (int64, error)
	MonthlyCounts(ctx context.Context, since time.Time) ([]MonthCount, error)
}

type ReviewStore interface {
	Create(ctx context.Context, rv *models.Review) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Review, error)
	Exists(ctx context.Context, reviewerID, propertyID primitive.ObjectID) (bool, error)
	ListForProperty(ctx context.Context, propertyID primitive.ObjectID, sort bson.D, page, limit int64) ([]models.Review, int64, error)
	Stats(ctx context.Context, propertyID primitive.ObjectID) (*models.ReviewStats, error)
	Summary(ctx context.Context, propertyID primitive.ObjectID, since time.Time) (*ReviewSummary, error)
	Update(ctx context.Context, id primitive.ObjectID, set bson.M) (*models.Review, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type AnalyticsStore interface {
	DailyViews(ctx context.Context, match bson.M, since time.Time) ([]DailyCount, error)
	CategoryComparison(ctx context.Context, p *models.Property) (*CategoryStats, error)
	OwnerPropertyStats(ctx context.Context, ownerID primitive.ObjectID) ([]StatusCount, error)
	OwnerInquiryStats(ctx context.Context, ownerID primitive.ObjectID, since time.Time) ([]StatusCount, error)
	OwnerRevenue(ctx context.Context, ownerID primitive.ObjectID) (*RevenueStats, error)
	TopProperties(ctx context.Context, ownerID primitive.ObjectID, limit int64) ([]models.Property, error)
	RecentInquiries(ctx context.Context, ownerID primitive.ObjectID, limit int64) ([]models.Inquiry, error)
	RecentBookmarks(ctx context.Context, ownerID primitive.ObjectID, limit int64) ([]models.BookmarkedProperty, error)
}
