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

type MongoInquiryStore struct {
	coll *mongo.Collection
}

func NewInquiryStore(coll *mongo.Collection) *MongoInquiryStore {
	return &MongoInquiryStore{coll: coll}
}

func (s *MongoInquiryStore) Create(ctx context.Context, inq *models.Inquiry) error {
	if inq.ID.IsZero() {
		inq.ID = primitive.NewObjectID()
	}
	if inq.Status == "" {
		inq.Status = models.InquiryNew
	}
	if inq.CreatedAt.IsZero() {
		inq.CreatedAt = time.Now()
	}
	_, err := s.coll.InsertOne(ctx, inq)
	return translate(err)
}

func (s *MongoInquiryStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Inquiry, error) {
	var inq models.Inquiry
	if err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&inq); err != nil {
		return nil, translate(err)
	}
	return &inq, nil
}

func (s *MongoInquiryStore) RecentExists(ctx context.Context, inquirerID, propertyID primitive.ObjectID, since time.Time) (bool, error) {
	n, err := s.coll.CountDocuments(ctx, bson.M{
		"inquirerUserId": inquirerID,
		"propertyId":     propertyID,
		"createdAt":      bson.M{"$gte": since},
	}, options.Count().SetLimit(1))
	return n > 0, err
}

func (s *MongoInquiryStore) ListReceived(ctx context.Context, ownerID primitive.ObjectID, status string, page, limit int64) ([]models.Inquiry, int64, error) {
	match := bson.M{"ownerUserId": ownerID}
	if status != "" {
		match["status"] = status
	}
	return s.list(ctx, match, page, limit, lookupUser("inquirerUserId", "inquirer"))
}

func (s *MongoInquiryStore) ListSent(ctx context.Context, inquirerID primitive.ObjectID, page, limit int64) ([]models.Inquiry, int64, error) {
	return s.list(ctx, bson.M{"inquirerUserId": inquirerID}, page, limit, lookupUser("ownerUserId", "owner"))
}

func (s *MongoInquiryStore) list(ctx context.Context, match bson.M, page, limit int64, userJoin []bson.M) ([]models.Inquiry, int64, error) {
	total, err := s.coll.CountDocuments(ctx, match)
	if err != nil {
		return nil, 0, err
	}
	out, err := s.aggregate(ctx, pipeline(
		stage("$match", match),
		stage("$sort", bson.D{{Key: "createdAt", Value: -1}}),
		pagination(skipFor(page, limit), limit),
		lookupProperty("propertyId", "property"),
		userJoin,
	))
	return out, total, err
}

func (s *MongoInquiryStore) Respond(ctx context.Context, id primitive.ObjectID, response string, at time.Time) (*models.Inquiry, error) {
	return s.update(ctx, id, bson.M{
		"status":      models.InquiryReplied,
		"response":    response,
		"respondedAt": at,
	})
}

func (s *MongoInquiryStore) Close(ctx context.Context, id primitive.ObjectID) (*models.Inquiry, error) {
	return s.update(ctx, id, bson.M{"status": models.InquiryClosed})
}

func (s *MongoInquiryStore) update(ctx context.Context, id primitive.ObjectID, set bson.M) (*models.Inquiry, error) {
	var inq models.Inquiry
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	if err := s.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&inq); err != nil {
		return nil, translate(err)
	}
	return &inq, nil
}

func (s *MongoInquiryStore) CloseForProperty(ctx context.Context, propertyID primitive.ObjectID) error {
	_, err := s.coll.UpdateMany(ctx,
		bson.M{"propertyId": propertyID, "status": bson.M{"$ne": models.InquiryClosed}},
		bson.M{"$set": bson.M{"status": models.InquiryClosed}},
	)
	return err
}

func (s *MongoInquiryStore) CountForProperty(ctx context.Context, propertyID primitive.ObjectID, since time.Time) (int64, error) {
	return s.coll.CountDocuments(ctx, bson.M{"propertyId": propertyID, "createdAt": bson.M{"$gte": since}})
}

func (s *MongoInquiryStore) Count(ctx context.Context, filter bson.M) (int64, error) {
	if filter == nil {
		filter = bson.M{}
	}
	return s.coll.CountDocuments(ctx, filter)
}

func (s *MongoInquiryStore) MonthlyCounts(ctx context.Context, since time.Time) ([]MonthCount, error) {
	cursor, err := s.coll.Aggregate(ctx, pipeline(
		stage("$match", bson.M{"createdAt": bson.M{"$gte": since}}),
		monthlyGroup("createdAt"),
	))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	out := []MonthCount{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// RecentForOwner returns the latest inquiries received by ownerID.
func (s *MongoInquiryStore) RecentForOwner(ctx context.Context, ownerID primitive.ObjectID, limit int64) ([]models.Inquiry, error) {
	return s.aggregate(ctx, pipeline(
		stage("$match", bson.M{"ownerUserId": ownerID}),
		stage("$sort", bson.D{{Key: "createdAt", Value: -1}}),
		stage("$limit", limit),
		lookupProperty("propertyId", "property"),
		lookupUser("inquirerUserId", "inquirer"),
	))
}

func (s *MongoInquiryStore) aggregate(ctx context.Context, pipe []bson.M) ([]models.Inquiry, error) {
	cursor, err := s.coll.Aggregate(ctx, pipe)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	out := []models.Inquiry{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
