package repository

import (
	"go.mongodb.org/mongo-driver/bson"
)

var userSummaryProjection = bson.M{
	"fullName":     1,
	"profileImage": 1,
	"verified":     1,
	"phoneNo":      1,
	"email":        1,
	"createdAt":    1,
}

// lookupUser joins users._id = localField into a single embedded summary document.
func lookupUser(localField, as string) []bson.M {
	return []bson.M{
		{"$lookup": bson.M{
			"from": "users",
			"let":  bson.M{"uid": "$" + localField},
			"pipeline": []bson.M{
				{"$match": bson.M{"$expr": bson.M{"$eq": []interface{}{"$_id", "$$uid"}}}},
				{"$project": userSummaryProjection},
			},
			"as": as,
		}},
		{"$unwind": bson.M{"path": "$" + as, "preserveNullAndEmptyArrays": true}},
	}
}

// lookupProperty joins properties._id = localField, keeping a few display fields.
func lookupProperty(localField, as string) []bson.M {
	return []bson.M{
		{"$lookup": bson.M{
			"from": "properties",
			"let":  bson.M{"pid": "$" + localField},
			"pipeline": []bson.M{
				{"$match": bson.M{"$expr": bson.M{"$eq": []interface{}{"$_id", "$$pid"}}}},
				{"$project": bson.M{"interestedUsers": 0, "views.daily": 0}},
			},
			"as": as,
		}},
		{"$unwind": bson.M{"path": "$" + as, "preserveNullAndEmptyArrays": true}},
	}
}

func pagination(skip, limit int64) []bson.M {
	stages := []bson.M{}
	if skip > 0 {
		stages = append(stages, bson.M{"$skip": skip})
	}
	if limit > 0 {
		stages = append(stages, bson.M{"$limit": limit})
	}
	return stages
}

func pipeline(parts ...[]bson.M) []bson.M {
	var out []bson.M
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func stage(key string, value interface{}) []bson.M {
	return []bson.M{{key: value}}
}

func skipFor(page, limit int64) int64 {
	if page < 1 {
		return 0
	}
	return (page - 1) * limit
}

// monthlyGroup counts documents per calendar month of dateField.
func monthlyGroup(dateField string) []bson.M {
	return []bson.M{
		{"$group": bson.M{
			"_id": bson.M{
				"year":  bson.M{"$year": "$" + dateField},
				"month": bson.M{"$month": "$" + dateField},
			},
			"count": bson.M{"$sum": 1},
		}},
		{"$project": bson.M{"_id": 0, "year": "$_id.year", "month": "$_id.month", "count": 1}},
		{"$sort": bson.D{{Key: "year", Value: 1}, {Key: "month", Value: 1}}},
	}
}
