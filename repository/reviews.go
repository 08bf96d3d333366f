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

type MongoReviewStore struct {
	coll *mongo.Collection
}

func NewReviewStore(coll *mongo.Collection) *MongoReviewStore {
	return &MongoReviewStore{coll: coll}
}

func (s *MongoReviewStore) Create(ctx context.Context, rv *models.Review) error {
	now := time.Now()
	if rv.ID.IsZero() {
		rv.ID = primitive.NewObjectID()
	}
	rv.CreatedAt = now
	rv.UpdatedAt = now
	_, err := s.coll.InsertOne(ctx, rv)
	return translate(err)
}

func (s *MongoReviewStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Review, error) {
	var rv models.Review
	if err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&rv); err != nil {
		return nil, translate(err)
	}
	return &rv, nil
}

func (s *MongoReviewStore) Exists(ctx context.Context, reviewerID, propertyID primitive.ObjectID) (bool, error) {
	n, err := s.coll.CountDocuments(ctx, bson.M{"reviewerId": reviewerID, "propertyId": propertyID}, options.Count().SetLimit(1))
	return n > 0, err
}

func (s *MongoReviewStore) ListForProperty(ctx context.Context, propertyID primitive.ObjectID, sort bson.D, page, limit int64) ([]models.Review, int64, error) {
	match := bson.M{"propertyId": propertyID}
	total, err := s.coll.CountDocuments(ctx, match)
	if err != nil {
		return nil, 0, err
	}
	if len(sort) == 0 {
		sort = ReviewSort("")
	}

	cursor, err := s.coll.Aggregate(ctx, pipeline(
		stage("$match", match),
		stage("$sort", sort),
		pagination(skipFor(page, limit), limit),
		lookupUser("reviewerId", "reviewer"),
	))
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	out := []models.Review{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Stats aggregates count, average and per-star breakdown for a listing.
func (s *MongoReviewStore) Stats(ctx context.Context, propertyID primitive.ObjectID) (*models.ReviewStats, error) {
	cursor, err := s.coll.Aggregate(ctx, []bson.M{
		{"$match": bson.M{"propertyId": propertyID}},
		{"$facet": bson.M{
			"totals": []bson.M{{"$group": bson.M{
				"_id":           nil,
				"totalReviews":  bson.M{"$sum": 1},
				"averageRating": bson.M{"$avg": "$rating"},
			}}},
			"buckets": []bson.M{{"$group": bson.M{
				"_id":   bson.M{"$toInt": bson.M{"$round": []interface{}{"$rating", 0}}},
				"count": bson.M{"$sum": 1},
			}}},
		}},
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var result []struct {
		Totals  []models.ReviewStats  `bson:"totals"`
		Buckets []models.RatingBucket `bson:"buckets"`
	}
	if err := cursor.All(ctx, &result); err != nil {
		return nil, err
	}

	stats := &models.ReviewStats{}
	if len(result) > 0 {
		if len(result[0].Totals) > 0 {
			stats.TotalReviews = result[0].Totals[0].TotalReviews
			stats.AverageRating = result[0].Totals[0].AverageRating
		}
		stats.Buckets = result[0].Buckets
	}
	stats.FillBreakdown()
	return stats, nil
}

func (s *MongoReviewStore) Summary(ctx context.Context, propertyID primitive.ObjectID, since time.Time) (*ReviewSummary, error) {
	cursor, err := s.coll.Aggregate(ctx, []bson.M{
		{"$match": bson.M{"propertyId": propertyID}},
		{"$group": bson.M{
			"_id":          nil,
			"totalReviews": bson.M{"$sum": 1},
			"avgRating":    bson.M{"$avg": "$rating"},
			"recentReviews": bson.M{"$sum": bson.M{
				"$cond": []interface{}{bson.M{"$gte": []interface{}{"$createdAt", since}}, 1, 0},
			}},
		}},
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []ReviewSummary
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return &ReviewSummary{}, nil
	}
	return &out[0], nil
}

func (s *MongoReviewStore) Update(ctx context.Context, id primitive.ObjectID, set bson.M) (*models.Review, error) {
	if set == nil {
		set = bson.M{}
	}
	set["updatedAt"] = time.Now()

	var rv models.Review
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	if err := s.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&rv); err != nil {
		return nil, translate(err)
	}
	return &rv, nil
}

func (s *MongoReviewStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
