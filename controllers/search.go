package controllers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Team-Roomin/Roomin/models"
	"github.com/Team-Roomin/Roomin/repository"
	"go.mongodb.org/mongo-driver/bson"
)

const (
	defaultNearbyRadius = 5000
	defaultNearbyLimit  = 50
	defaultShortList    = 10
	defaultTrendingDays = 7
)

type SearchController struct {
	Properties repository.PropertyStore
	Cache      ListingCacher
	Now        func() time.Time
}

func (sc *SearchController) now() time.Time {
	if sc.Now != nil {
		return sc.Now()
	}
	return time.Now()
}

func (sc *SearchController) Search() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		serveCached(w, r, sc.Cache, "search", "Search results", func() (interface{}, error) {
			query := r.URL.Query()
			text := strings.TrimSpace(query.Get("q"))
			page, limit := pageParams(r, defaultPageLimit)

			props, total, err := sc.Properties.List(r.Context(), repository.ListingQuery{
				Filter: repository.BuildListingFilter(repository.SearchGate(), query),
				Text:   text,
				Sort:   repository.ListingSort(query.Get("sortBy")),
				Page:   page,
				Limit:  limit,
			})
			if err != nil {
				return nil, err
			}
			pagination := models.NewPagination(page, limit, total)
			return listingPage{Properties: props, Pagination: &pagination, Query: text}, nil
		})
	}
}

func (sc *SearchController) Nearby() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		lat, latErr := strconv.ParseFloat(q.Get("lat"), 64)
		lng, lngErr := strconv.ParseFloat(q.Get("lng"), 64)
		if latErr != nil || lngErr != nil {
			WriteError(w, http.StatusBadRequest, "Latitude and longitude are required")
			return
		}
		if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
			WriteError(w, http.StatusBadRequest, "Latitude or longitude out of range")
			return
		}
		radius := float64(defaultNearbyRadius)
		if v, err := strconv.ParseFloat(q.Get("radius"), 64); err == nil && v > 0 {
			radius = v
		}
		limit := intParam(r, "limit", defaultNearbyLimit)
		if limit > maxPageLimit {
			limit = maxPageLimit
		}

		serveCached(w, r, sc.Cache, "nearby", "Nearby properties", func() (interface{}, error) {
			props, err := sc.Properties.Nearby(r.Context(), lng, lat, radius, int64(limit))
			if err != nil {
				return nil, err
			}
			return listingPage{Properties: props}, nil
		})
	}
}

func (sc *SearchController) Featured() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := intParam(r, "limit", defaultShortList)
		if limit > maxPageLimit {
			limit = maxPageLimit
		}
		serveCached(w, r, sc.Cache, "featured", "Featured properties", func() (interface{}, error) {
			filter := repository.PublicListingGate()
			filter["isFeatured"] = true
			props, _, err := sc.Properties.List(r.Context(), repository.ListingQuery{
				Filter: filter,
				Sort:   repository.ListingSort("latest"),
				Page:   1,
				Limit:  int64(limit),
			})
			if err != nil {
				return nil, err
			}
			return listingPage{Properties: props}, nil
		})
	}
}

func (sc *SearchController) Trending() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		days := intParam(r, "days", defaultTrendingDays)
		limit := intParam(r, "limit", defaultShortList)
		if limit > maxPageLimit {
			limit = maxPageLimit
		}
		since := sc.now().AddDate(0, 0, -days)

		serveCached(w, r, sc.Cache, "trending", "Trending properties", func() (interface{}, error) {
			filter := repository.PublicListingGate()
			filter["postedDate"] = bson.M{"$gte": since}
			props, _, err := sc.Properties.List(r.Context(), repository.ListingQuery{
				Filter: filter,
				Sort:   repository.ListingSort("popular"),
				Page:   1,
				Limit:  int64(limit),
			})
			if err != nil {
				return nil, err
			}
			return listingPage{Properties: props}, nil
		})
	}
}
