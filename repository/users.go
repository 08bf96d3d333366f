package repository

import (
	"context"
	"strings"
	"time"

	"github.com/Team-Roomin/Roomin/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoUserStore struct {
	coll *mongo.Collection
}

func NewUserStore(coll *mongo.Collection) *MongoUserStore {
	return &MongoUserStore{coll: coll}
}

func (s *MongoUserStore) Create(ctx context.Context, user *models.User) error {
	now := time.Now()
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	user.Username = strings.ToLower(strings.TrimSpace(user.Username))
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	if user.KYCStatus == "" {
		user.KYCStatus = models.KYCNone
	}
	user.CreatedAt = now
	user.UpdatedAt = now
	_, err := s.coll.InsertOne(ctx, user)
	return translate(err)
}

func (s *MongoUserStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *MongoUserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"email": strings.ToLower(strings.TrimSpace(email))})
}

func (s *MongoUserStore) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var user models.User
	if err := s.coll.FindOne(ctx, filter).Decode(&user); err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *MongoUserStore) FindConflict(ctx context.Context, username, email, phoneNo string, exclude primitive.ObjectID) (string, error) {
	candidates := []struct{ field, value string }{
		{"username", strings.ToLower(strings.TrimSpace(username))},
		{"email", strings.ToLower(strings.TrimSpace(email))},
		{"phoneNo", strings.TrimSpace(phoneNo)},
	}
	for _, c := range candidates {
		if c.value == "" {
			continue
		}
		filter := bson.M{c.field: c.value}
		if !exclude.IsZero() {
			filter["_id"] = bson.M{"$ne": exclude}
		}
		n, err := s.coll.CountDocuments(ctx, filter, options.Count().SetLimit(1))
		if err != nil {
			return "", err
		}
		if n > 0 {
			return c.field, nil
		}
	}
	return "", nil
}

func (s *MongoUserStore) Update(ctx context.Context, id primitive.ObjectID, set bson.M, unset ...string) (*models.User, error) {
	if set == nil {
		set = bson.M{}
	}
	set["updatedAt"] = time.Now()
	update := bson.M{"$set": set}
	if len(unset) > 0 {
		fields := bson.M{}
		for _, f := range unset {
			fields[f] = ""
		}
		update["$unset"] = fields
	}

	var user models.User
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	if err := s.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&user); err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// UpsertGoogle links a Google identity to the account with the same email, creating
// a verified account on first sign-in.
func (s *MongoUserStore) UpsertGoogle(ctx context.Context, email, googleID, fullName, picture string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	now := time.Now()
	local := email
	if i := strings.IndexByte(email, '@'); i > 0 {
		local = email[:i]
	}
	username := local + "_" + primitive.NewObjectID().Hex()[18:]

	update := bson.M{
		"$set": bson.M{
			"googleId":    googleID,
			"lastLoginAt": now,
			"updatedAt":   now,
		},
		"$setOnInsert": bson.M{
			"username":     username,
			"email":        email,
			"fullName":     fullName,
			"profileImage": picture,
			"role":         models.RoleUser,
			"verified":     true,
			"kycStatus":    models.KYCNone,
			"createdAt":    now,
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var user models.User
	if err := s.coll.FindOneAndUpdate(ctx, bson.M{"email": email}, update, opts).Decode(&user); err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *MongoUserStore) List(ctx context.Context, page, limit int64) ([]models.User, int64, error) {
	total, err := s.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, err
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(skipFor(page, limit)).
		SetLimit(limit)
	users, err := s.find(ctx, bson.M{}, opts)
	return users, total, err
}

func (s *MongoUserStore) PendingKYC(ctx context.Context, limit int64) ([]models.User, error) {
	opts := options.Find().SetSort(bson.D{{Key: "updatedAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	return s.find(ctx, bson.M{"kycStatus": models.KYCPending}, opts)
}

func (s *MongoUserStore) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.User, error) {
	cursor, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	users := []models.User{}
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *MongoUserStore) Count(ctx context.Context, filter bson.M) (int64, error) {
	if filter == nil {
		filter = bson.M{}
	}
	return s.coll.CountDocuments(ctx, filter)
}

// ActiveByMonth counts users by the month of their most recent login.
func (s *MongoUserStore) ActiveByMonth(ctx context.Context, since time.Time) ([]MonthCount, error) {
	pipe := pipeline(
		stage("$match", bson.M{"lastLoginAt": bson.M{"$gte": since}}),
		monthlyGroup("lastLoginAt"),
	)
	cursor, err := s.coll.Aggregate(ctx, pipe)
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
