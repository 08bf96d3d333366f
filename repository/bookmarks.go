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

type MongoBookmarkStore struct {
	coll *mongo.Collection
}

func NewBookmarkStore(coll *mongo.Collection) *MongoBookmarkStore {
	return &MongoBookmarkStore{coll: coll}
}

func (s *MongoBookmarkStore) Create(ctx context.Context, b *models.Bookmark) error {
	if b.ID.IsZero() {
		b.ID = primitive.NewObjectID()
	}
	b.CreatedAt = time.Now()
	_, err := s.coll.InsertOne(ctx, b)
	return translate(err)
}

func (s *MongoBookmarkStore) Exists(ctx context.Context, userID, propertyID primitive.ObjectID) (bool, error) {
	n, err := s.coll.CountDocuments(ctx, bson.M{"userId": userID, "propertyId": propertyID}, options.Count().SetLimit(1))
	return n > 0, err
}

func (s *MongoBookmarkStore) Delete(ctx context.Context, userID, propertyID primitive.ObjectID) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"userId": userID, "propertyId": propertyID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoBookmarkStore) DeleteByProperty(ctx context.Context, propertyID primitive.ObjectID) error {
	_, err := s.coll.DeleteMany(ctx, bson.M{"propertyId": propertyID})
	return err
}

// ListForUser returns the user's bookmarks, newest first, joined with listings that
// are still active.
func (s *MongoBookmarkStore) ListForUser(ctx context.Context, userID primitive.ObjectID, page, limit int64) ([]models.BookmarkedProperty, int64, error) {
	match := bson.M{"userId": userID}
	total, err := s.coll.CountDocuments(ctx, match)
	if err != nil {
		return nil, 0, err
	}

	out, err := s.aggregate(ctx, pipeline(
		stage("$match", match),
		stage("$sort", bson.D{{Key: "createdAt", Value: -1}}),
		pagination(skipFor(page, limit), limit),
		lookupProperty("propertyId", "property"),
		stage("$match", bson.M{"property.isActive": true}),
	))
	return out, total, err
}

func (s *MongoBookmarkStore) CountForProperty(ctx context.Context, propertyID primitive.ObjectID, since time.Time) (int64, error) {
	return s.coll.CountDocuments(ctx, bson.M{"propertyId": propertyID, "createdAt": bson.M{"$gte": since}})
}

// RecentForOwner returns the latest bookmarks placed on any of ownerID's listings.
func (s *MongoBookmarkStore) RecentForOwner(ctx context.Context, ownerID primitive.ObjectID, limit int64) ([]models.BookmarkedProperty, error) {
	return s.aggregate(ctx, pipeline(
		lookupProperty("propertyId", "property"),
		stage("$match", bson.M{"property.ownerId": ownerID}),
		stage("$sort", bson.D{{Key: "createdAt", Value: -1}}),
		stage("$limit", limit),
	))
}

func (s *MongoBookmarkStore) aggregate(ctx context.Context, pipe []bson.M) ([]models.BookmarkedProperty, error) {
	cursor, err := s.coll.Aggregate(ctx, pipe)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	out := []models.BookmarkedProperty{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
