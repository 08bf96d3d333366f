package controllers

import (
	"math"
	"net/http"
	"time"

	"github.com/Team-Roomin/Roomin/models"
	"github.com/Team-Roomin/Roomin/repository"
	"go.mongodb.org/mongo-driver/bson"
)

const (
	defaultAnalyticsPeriod = 30
	dashboardListSize      = 5
)

type AnalyticsController struct {
	Analytics  repository.AnalyticsStore
	Properties repository.PropertyStore
	Inquiries  repository.InquiryStore
	Bookmarks  repository.BookmarkStore
	Reviews    repository.ReviewStore
	Now        func() time.Time
}

func (ac *AnalyticsController) now() time.Time {
	if ac.Now != nil {
		return ac.Now()
	}
	return time.Now()
}

// percent returns part/whole as a percentage rounded to two decimals, 0 when whole is 0.
func percent(part, whole int64) float64 {
	if whole <= 0 {
		return 0
	}
	return math.Round(float64(part)/float64(whole)*10000) / 100
}

type propertyOverview struct {
	TotalViews     int64   `json:"totalViews"`
	UniqueViews    int64   `json:"uniqueViews"`
	PeriodViews    int64   `json:"periodViews"`
	Inquiries      int64   `json:"inquiries"`
	Bookmarks      int64   `json:"bookmarks"`
	ConversionRate float64 `json:"conversionRate"`
	BookmarkRate   float64 `json:"bookmarkRate"`
}

func (ac *AnalyticsController) PropertyAnalytics() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := currentUserID(w, r)
		if !ok {
			return
		}
		id, ok := pathObjectID(w, r, "id", "property")
		if !ok {
			return
		}
		property, err := ac.Properties.FindByID(r.Context(), id)
		if err != nil {
			writeStoreError(w, r, err, "Property not found", "Failed to load analytics")
			return
		}
		if property.OwnerID != userID && !isAdmin(r) {
			WriteError(w, http.StatusForbidden, "Not authorized to view analytics for this property")
			return
		}

		period := intParam(r, "period", defaultAnalyticsPeriod)
		since := ac.now().AddDate(0, 0, -period)

		daily, err := ac.Analytics.DailyViews(r.Context(), bson.M{"_id": id}, since)
		if err != nil {
			writeStoreError(w, r, err, "", "Failed to load analytics")
			return
		}
		inquiries, err := ac.Inquiries.CountForProperty(r.Context(), id, since)
		if err != nil {
			writeStoreError(w, r, err, "", "Failed to load analytics")
			return
		}
		bookmarks, err := ac.Bookmarks.CountForProperty(r.Context(), id, since)
		if err != nil {
			writeStoreError(w, r, err, "", "Failed to load analytics")
			return
		}
		reviews, err := ac.Reviews.Summary(r.Context(), id, since)
		if err != nil {
			writeStoreError(w, r, err, "", "Failed to load analytics")
			return
		}
		category, err := ac.Analytics.CategoryComparison(r.Context(), property)
		if err != nil {
			writeStoreError(w, r, err, "", "Failed to load analytics")
			return
		}

		var periodViews int64
		for _, d := range daily {
			periodViews += d.Count
		}

		writeOK(w, "Property analytics fetched successfully", map[string]interface{}{
			"property": map[string]interface{}{
				"_id":              property.ID,
				"adId":             property.AdID,
				"title":            property.Title,
				"status":           property.Status,
				"moderationStatus": property.ModerationStatus,
				"postedDate":       property.PostedDate,
			},
			"period": period,
			"overview": propertyOverview{
				TotalViews:     property.Views.Total,
				UniqueViews:    property.Views.Unique,
				PeriodViews:    periodViews,
				Inquiries:      inquiries,
				Bookmarks:      bookmarks,
				ConversionRate: percent(inquiries, property.Views.Total),
				BookmarkRate:   percent(bookmarks, property.Views.Total),
			},
			"dailyViews":         daily,
			"reviews":            reviews,
			"categoryComparison": category,
		})
	}
}

func (ac *AnalyticsController) Dashboard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := currentUserID(w, r)
		if !ok {
			return
		}
		period := intParam(r, "period", defaultAnalyticsPeriod)
		since := ac.now().AddDate(0, 0, -period)
		ctx := r.Context()

		byStatus, err := ac.Analytics.OwnerPropertyStats(ctx, userID)
		if err != nil {
			writeStoreError(w, r, err, "", "Failed to load dashboard")
			return
		}
		inquiryStats, err := ac.Analytics.OwnerInquiryStats(ctx, userID, since)
		if err != nil {
			writeStoreError(w, r, err, "", "Failed to load dashboard")
			return
		}
		trend, err := ac.Analytics.DailyViews(ctx, bson.M{"ownerId": userID}, since)
		if err != nil {
			writeStoreError(w, r, err, "", "Failed to load dashboard")
			return
		}
		revenue, err := ac.Analytics.OwnerRevenue(ctx, userID)
		if err != nil {
			writeStoreError(w, r, err, "", "Failed to load dashboard")
			return
		}
		top, err := ac.Analytics.TopProperties(ctx, userID, dashboardListSize)
		if err != nil {
			writeStoreError(w, r, err, "", "Failed to load dashboard")
			return
		}
		recentInquiries, err := ac.Analytics.RecentInquiries(ctx, userID, dashboardListSize)
		if err != nil {
			writeStoreError(w, r, err, "", "Failed to load dashboard")
			return
		}
		recentBookmarks, err := ac.Analytics.RecentBookmarks(ctx, userID, dashboardListSize)
		if err != nil {
			writeStoreError(w, r, err, "", "Failed to load dashboard")
			return
		}

		var totalProperties, totalViews, totalInquiries, recentInquiryCount int64
		for _, s := range byStatus {
			totalProperties += s.Count
			totalViews += s.TotalViews
		}
		for _, s := range inquiryStats {
			totalInquiries += s.Count
			recentInquiryCount += s.Recent
		}

		writeOK(w, "Dashboard fetched successfully", map[string]interface{}{
			"period": period,
			"overview": map[string]interface{}{
				"totalProperties": totalProperties,
				"totalViews":      totalViews,
				"totalInquiries":  totalInquiries,
				"recentInquiries": recentInquiryCount,
				"conversionRate":  percent(totalInquiries, totalViews),
			},
			"propertiesByStatus": byStatus,
			"inquiriesByStatus":  inquiryStats,
			"viewsTrend":         trend,
			"revenue":            revenue,
			"topProperties":      top,
			"recentActivity": map[string]interface{}{
				"inquiries": recentInquiries,
				"bookmarks": recentBookmarks,
			},
		})
	}
}

// emptyIfNil keeps JSON arrays from rendering as null.
func emptyIfNil(props []models.Property) []models.Property {
	if props == nil {
		return []models.Property{}
	}
	return props
}
