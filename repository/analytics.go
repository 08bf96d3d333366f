package repository

import (
	"context"
	"time"

	"github.com/Team-Roomin/Roomin/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoAnalyticsStore runs the reporting aggregations over listings, inquiries and bookmarks.
type MongoAnalyticsStore struct {
	properties *mongo.Collection
	inquiries  *MongoInquiryStore
	bookmarks  *MongoBookmarkStore
}

func NewAnalyticsStore(properties, inquiries, bookmarks *mongo.Collection) *MongoAnalyticsStore {
	return &MongoAnalyticsStore{
		properties: properties,
		inquiries:  NewInquiryStore(inquiries),
		bookmarks:  NewBookmarkStore(bookmarks),
	}
}

// DailyViews counts views.daily entries per day since the given time for listings matching match.
func (s *MongoAnalyticsStore) DailyViews(ctx context.Context, match bson.M, since time.Time) ([]DailyCount, error) {
	cursor, err := s.properties.Aggregate(ctx, []bson.M{
		{"$match": match},
		{"$unwind": "$views.daily"},
		{"$match": bson.M{"views.daily.date": bson.M{"$gte": since}}},
		{"$group": bson.M{
			"_id":   bson.M{"$dateToString": bson.M{"format": "%Y-%m-%d", "date": "$views.daily.date"}},
			"count": bson.M{"$sum": 1},
		}},
		{"$sort": bson.M{"_id": 1}},
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	out := []DailyCount{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CategoryComparison averages other approved listings of the same type in the same city.
func (s *MongoAnalyticsStore) CategoryComparison(ctx context.Context, p *models.Property) (*CategoryStats, error) {
	cursor, err := s.properties.Aggregate(ctx, []bson.M{
		{"$match": bson.M{
			"_id":                   bson.M{"$ne": p.ID},
			"type":                  p.Type,
			"location.address.city": p.Location.Address.City,
			"isActive":              true,
			"moderationStatus":      models.ModerationApproved,
		}},
		{"$group": bson.M{
			"_id":      nil,
			"avgViews": bson.M{"$avg": "$views.total"},
			"avgPrice": bson.M{"$avg": "$price.amount"},
			"count":    bson.M{"$sum": 1},
		}},
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []CategoryStats
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return &CategoryStats{}, nil
	}
	return &out[0], nil
}

func (s *MongoAnalyticsStore) OwnerPropertyStats(ctx context.Context, ownerID primitive.ObjectID) ([]StatusCount, error) {
	return s.statusCounts(ctx, s.properties, []bson.M{
		{"$match": bson.M{"ownerId": ownerID}},
		{"$group": bson.M{
			"_id":        "$status",
			"count":      bson.M{"$sum": 1},
			"totalViews": bson.M{"$sum": "$views.total"},
		}},
	})
}

func (s *MongoAnalyticsStore) OwnerInquiryStats(ctx context.Context, ownerID primitive.ObjectID, since time.Time) ([]StatusCount, error) {
	return s.statusCounts(ctx, s.inquiries.coll, []bson.M{
		{"$match": bson.M{"ownerUserId": ownerID}},
		{"$group": bson.M{
			"_id":   "$status",
			"count": bson.M{"$sum": 1},
			"recent": bson.M{"$sum": bson.M{
				"$cond": []interface{}{bson.M{"$gte": []interface{}{"$createdAt", since}}, 1, 0},
			}},
		}},
	})
}

func (s *MongoAnalyticsStore) statusCounts(ctx context.Context, coll *mongo.Collection, pipe []bson.M) ([]StatusCount, error) {
	cursor, err := coll.Aggregate(ctx, pipe)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	out := []StatusCount{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *MongoAnalyticsStore) OwnerRevenue(ctx context.Context, ownerID primitive.ObjectID) (*RevenueStats, error) {
	cursor, err := s.properties.Aggregate(ctx, []bson.M{
		{"$match": bson.M{"ownerId": ownerID, "status": models.StatusRented}},
		{"$group": bson.M{
			"_id":                 nil,
			"totalMonthlyRevenue": bson.M{"$sum": "$price.amount"},
			"avgRent":             bson.M{"$avg": "$price.amount"},
			"rentedProperties":    bson.M{"$sum": 1},
		}},
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []RevenueStats
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return &RevenueStats{}, nil
	}
	return &out[0], nil
}

func (s *MongoAnalyticsStore) TopProperties(ctx context.Context, ownerID primitive.ObjectID, limit int64) ([]models.Property, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "views.total", Value: -1}}).
		SetLimit(limit).
		SetProjection(bson.M{
			"title": 1, "adId": 1, "views.total": 1, "status": 1,
			"price.amount": 1, "location.address.area": 1,
		})
	cursor, err := s.properties.Find(ctx, bson.M{"ownerId": ownerID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	props := []models.Property{}
	if err := cursor.All(ctx, &props); err != nil {
		return nil, err
	}
	return props, nil
}

func (s *MongoAnalyticsStore) RecentInquiries(ctx context.Context, ownerID primitive.ObjectID, limit int64) ([]models.Inquiry, error) {
	return s.inquiries.RecentForOwner(ctx, ownerID, limit)
}

func (s *MongoAnalyticsStore) RecentBookmarks(ctx context.Context, ownerID primitive.ObjectID, limit int64) ([]models.BookmarkedProperty, error) {
	return s.bookmarks.RecentForOwner(ctx, ownerID, limit)
}
