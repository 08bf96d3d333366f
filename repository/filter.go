package repository

import (
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Team-Roomin/Roomin/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var operatorMap = map[string]string{
	"eq": "$eq", "ne": "$ne", "gt": "$gt", "gte": "$gte", "lt": "$lt", "lte": "$lte",
}

// Query keys accepted with an optional [op] suffix, mapped to document paths.
var (
	numericFields = map[string]string{
		"price":       "price.amount",
		"bedrooms":    "details.bedrooms",
		"bathrooms":   "details.bathrooms",
		"balconies":   "details.balconies",
		"totalFloors": "details.totalFloors",
		"builtUp":     "details.area.builtUp",
		"carpet":      "details.area.carpet",
		"deposit":     "price.securityDeposit",
		"views":       "views.total",
	}
	dateFields = map[string]string{
		"postedDate":    "postedDate",
		"availableFrom": "availability.availableFrom",
	}
	boolFields = map[string]string{
		"isVerified":   "isVerified",
		"isFeatured":   "isFeatured",
		"isNegotiable": "price.isNegotiable",
		"wifi":         "amenities.wifi",
		"gym":          "amenities.gym",
		"elevator":     "amenities.elevator",
		"security":     "amenities.security",
		"powerBackup":  "amenities.powerBackup",
		"petFriendly":  "amenities.petFriendly",
		"runningWater": "amenities.runningWater",
		"electricity":  "amenities.electricity",
	}
	stringFields = map[string]string{
		"purpose":    "purpose",
		"type":       "type",
		"furnishing": "details.furnishing",
		"facing":     "details.facing",
		"state":      "location.address.state",
		"pincode":    "location.address.pincode",
		"adId":       "adId",
	}
	regexFields = map[string]string{
		"city": "location.address.city",
		"area": "location.address.area",
	}
)

// Keys consumed elsewhere (paging, sorting, geo, text).
var reservedParams = map[string]bool{
	"page": true, "limit": true, "sortBy": true, "sort": true, "q": true,
	"lat": true, "lng": true, "radius": true, "days": true,
}

// PublicListingGate is the moderation gate for public browse endpoints.
func PublicListingGate() bson.M {
	return bson.M{
		"isActive":         true,
		"moderationStatus": models.ModerationApproved,
		"status":           models.StatusAvailable,
	}
}

// SearchGate is the moderation gate for text search.
func SearchGate() bson.M {
	return bson.M{
		"isActive":         true,
		"moderationStatus": models.ModerationApproved,
	}
}

// BuildListingFilter merges base with the conditions described by query. Unknown keys,
// unknown operators and unparsable values are ignored.
func BuildListingFilter(base bson.M, query url.Values) bson.M {
	filter := bson.M{}
	for k, v := range base {
		filter[k] = v
	}

	var andConditions []bson.M
	rangeConditions := make(map[string]bson.M)
	addRange := func(path, op string, value interface{}) {
		if _, ok := rangeConditions[path]; !ok {
			rangeConditions[path] = bson.M{}
		}
		rangeConditions[path][op] = value
	}

	keys := make([]string, 0, len(query))
	for k := range query {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, rawKey := range keys {
		values := query[rawKey]
		if reservedParams[rawKey] || len(values) == 0 || strings.TrimSpace(values[0]) == "" {
			continue
		}
		value := strings.TrimSpace(values[0])

		switch rawKey {
		case "minPrice", "maxPrice":
			if n, err := strconv.ParseFloat(value, 64); err == nil {
				op := "$gte"
				if rawKey == "maxPrice" {
					op = "$lte"
				}
				addRange("price.amount", op, n)
			}
			continue
		case "parking":
			if value == "bike" || value == "car" {
				andConditions = append(andConditions, bson.M{"amenities.parking." + value: true})
			}
			continue
		}

		fieldKey, mongoOperator, ok := splitOperator(rawKey)
		if !ok {
			continue
		}

		if path, isRegex := regexFields[fieldKey]; isRegex {
			andConditions = append(andConditions, bson.M{path: primitive.Regex{Pattern: regexp.QuoteMeta(value), Options: "i"}})
			continue
		}

		if path, isString := stringFields[fieldKey]; isString {
			terms := splitTerms(value)
			if len(terms) == 0 {
				continue
			}
			if mongoOperator == "$ne" {
				andConditions = append(andConditions, bson.M{path: bson.M{"$nin": terms}})
			} else {
				andConditions = append(andConditions, bson.M{path: bson.M{"$in": terms}})
			}
			continue
		}

		if path, isBool := boolFields[fieldKey]; isBool {
			if b, err := strconv.ParseBool(strings.ToLower(value)); err == nil {
				if mongoOperator != "$ne" {
					mongoOperator = "$eq"
				}
				andConditions = append(andConditions, bson.M{path: bson.M{mongoOperator: b}})
			}
			continue
		}

		if path, isNumeric := numericFields[fieldKey]; isNumeric {
			if n, err := strconv.ParseFloat(value, 64); err == nil {
				addRange(path, mongoOperator, n)
			}
			continue
		}

		if path, isDate := dateFields[fieldKey]; isDate {
			if t, err := time.Parse("2006-01-02", value); err == nil {
				addRange(path, mongoOperator, t)
			}
			continue
		}
	}

	paths := make([]string, 0, len(rangeConditions))
	for p := range rangeConditions {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		andConditions = append(andConditions, bson.M{p: rangeConditions[p]})
	}

	if len(andConditions) > 0 {
		filter["$and"] = andConditions
	}
	return filter
}

// splitOperator parses "price[gte]" into ("price", "$gte"). A bare key means $eq.
func splitOperator(rawKey string) (string, string, bool) {
	open := strings.IndexByte(rawKey, '[')
	if open < 0 {
		return rawKey, "$eq", true
	}
	if !strings.HasSuffix(rawKey, "]") {
		return "", "", false
	}
	op, ok := operatorMap[rawKey[open+1:len(rawKey)-1]]
	if !ok {
		return "", "", false
	}
	return rawKey[:open], op, true
}

func splitTerms(value string) []string {
	var out []string
	for _, v := range strings.Split(value, ",") {
		if t := strings.TrimSpace(v); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// ListingSort maps a sortBy value onto a sort document. Unknown values sort latest first.
func ListingSort(sortBy string) bson.D {
	switch sortBy {
	case "price_low":
		return bson.D{{Key: "price.amount", Value: 1}, {Key: "_id", Value: 1}}
	case "price_high":
		return bson.D{{Key: "price.amount", Value: -1}, {Key: "_id", Value: 1}}
	case "popular":
		return bson.D{{Key: "views.total", Value: -1}, {Key: "_id", Value: 1}}
	case "featured":
		return bson.D{{Key: "isFeatured", Value: -1}, {Key: "postedDate", Value: -1}}
	default:
		return bson.D{{Key: "postedDate", Value: -1}, {Key: "_id", Value: -1}}
	}
}

// ReviewSort maps a review list sortBy value onto a sort document.
func ReviewSort(sortBy string) bson.D {
	switch sortBy {
	case "oldest":
		return bson.D{{Key: "createdAt", Value: 1}}
	case "highest_rating":
		return bson.D{{Key: "rating", Value: -1}, {Key: "createdAt", Value: -1}}
	case "lowest_rating":
		return bson.D{{Key: "rating", Value: 1}, {Key: "createdAt", Value: -1}}
	default:
		return bson.D{{Key: "createdAt", Value: -1}}
	}
}
