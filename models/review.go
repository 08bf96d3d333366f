package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	MinRating = 1
	MaxRating = 5
)

type SubRatings struct {
	Location  float64 `bson:"location" json:"location"`
	Value     float64 `bson:"value" json:"value"`
	Condition float64 `bson:"condition" json:"condition"`
	Landlord  float64 `bson:"landlord" json:"landlord"`
}

type OwnerResponse struct {
	Message     string    `bson:"message" json:"message"`
	RespondedAt time.Time `bson:"respondedAt" json:"respondedAt"`
}

type Review struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	PropertyID    primitive.ObjectID `bson:"propertyId" json:"propertyId"`
	ReviewerID    primitive.ObjectID `bson:"reviewerId" json:"reviewerId"`
	Reviewer      *UserSummary       `bson:"reviewer,omitempty" json:"reviewer,omitempty"`
	Rating        float64            `bson:"rating" json:"rating"`
	Title         string             `bson:"title" json:"title"`
	Review        string             `bson:"review" json:"review"`
	Photos        []string           `bson:"photos,omitempty" json:"photos,omitempty"`
	Ratings       SubRatings         `bson:"ratings" json:"ratings"`
	IsVerified    bool               `bson:"isVerified" json:"isVerified"`
	OwnerResponse *OwnerResponse     `bson:"ownerResponse,omitempty" json:"ownerResponse,omitempty"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// ClampRating bounds r to [MinRating, MaxRating].
func ClampRating(r float64) float64 {
	switch {
	case r < MinRating:
		return MinRating
	case r > MaxRating:
		return MaxRating
	}
	return r
}

// Normalize clamps every rating and fills missing sub-ratings with the overall one.
func (rv *Review) Normalize() {
	rv.Rating = ClampRating(rv.Rating)
	fill := func(v *float64) {
		if *v == 0 {
			*v = rv.Rating
			return
		}
		*v = ClampRating(*v)
	}
	fill(&rv.Ratings.Location)
	fill(&rv.Ratings.Value)
	fill(&rv.Ratings.Condition)
	fill(&rv.Ratings.Landlord)
}

type RatingBucket struct {
	Rating int   `bson:"_id" json:"rating"`
	Count  int64 `bson:"count" json:"count"`
}

type ReviewStats struct {
	TotalReviews  int64          `bson:"totalReviews" json:"totalReviews"`
	AverageRating float64        `bson:"averageRating" json:"averageRating"`
	Breakdown     map[int]int64  `bson:"-" json:"breakdown"`
	Buckets       []RatingBucket `bson:"buckets" json:"-"`
}

// FillBreakdown spreads Buckets over all five stars, zero where absent.
func (s *ReviewStats) FillBreakdown() {
	s.Breakdown = make(map[int]int64, MaxRating)
	for i := MinRating; i <= MaxRating; i++ {
		s.Breakdown[i] = 0
	}
	for _, b := range s.Buckets {
		if b.Rating >= MinRating && b.Rating <= MaxRating {
			s.Breakdown[b.Rating] += b.Count
		}
	}
}
