package routes

import (
	"net/http"
	"time"

	"github.com/Team-Roomin/Roomin/controllers"
	"github.com/Team-Roomin/Roomin/middleware"
	"github.com/Team-Roomin/Roomin/models"
	"github.com/gorilla/mux"
)

const objectID = "{id:[0-9a-fA-F]{24}}"

// Handlers bundles the controllers served by the API. Google may be nil when sign-in
// with Google is not configured.
type Handlers struct {
	Users      *controllers.UserController
	Google     *controllers.GoogleController
	Properties *controllers.PropertyController
	Search     *controllers.SearchController
	Inquiries  *controllers.InquiryController
	Reviews    *controllers.ReviewController
	Analytics  *controllers.AnalyticsController
	Admin      *controllers.AdminController
	Health     *controllers.HealthController
	Metrics    http.Handler
}

type RateLimits struct {
	Login    middleware.Limiter
	Register middleware.Limiter
	Window   time.Duration
}

func Routes(router *mux.Router, h *Handlers, auth *middleware.Authenticator, limits RateLimits) {
	// Operational routes
	router.HandleFunc("/health", h.Health.Health()).Methods("GET")
	if h.Metrics != nil {
		router.Handle("/metrics", h.Metrics).Methods("GET")
	}

	// User and auth routes
	router.Handle("/v1/server/register",
		middleware.RateLimit(limits.Register, limits.Window)(h.Users.Register())).Methods("POST")
	router.Handle("/v1/server/login",
		middleware.RateLimit(limits.Login, limits.Window)(h.Users.Login())).Methods("POST")
	router.HandleFunc("/v1/server/refreshToken", h.Users.RefreshToken()).Methods("PATCH", "POST")
	if h.Google != nil {
		router.HandleFunc("/v1/server/auth/google", h.Google.Login()).Methods("GET")
		router.HandleFunc("/v1/server/auth/google/callback", h.Google.Callback()).Methods("GET")
	}

	account := router.PathPrefix("/v1/server").Subrouter()
	account.Use(auth.AuthMiddleware)
	account.HandleFunc("/logout", h.Users.Logout()).Methods("POST")
	account.HandleFunc("/getUser", h.Users.GetUser()).Methods("GET")
	account.HandleFunc("/changePassword", h.Users.ChangePassword()).Methods("PATCH")
	account.HandleFunc("/updateAccountDetail", h.Users.UpdateAccountDetail()).Methods("PATCH")
	account.HandleFunc("/uploadProfileImage", h.Users.UploadProfileImage()).Methods("PATCH")
	account.HandleFunc("/uploadCoverImage", h.Users.UploadCoverImage()).Methods("PATCH")
	account.HandleFunc("/sendOTP", h.Users.SendOTP()).Methods("POST")
	account.HandleFunc("/verifyOTP", h.Users.VerifyOTP()).Methods("POST")
	account.HandleFunc("/verify/{token}", h.Users.VerifyToken()).Methods("GET")
	account.HandleFunc("/kyc", h.Users.SubmitKYC()).Methods("POST")
	if h.Google != nil {
		account.HandleFunc("/GLogout", h.Google.Logout()).Methods("POST")
	}

	// Public property and search routes
	router.HandleFunc("/api/properties", h.Properties.GetAllProperties()).Methods("GET")
	router.HandleFunc("/api/properties/search", h.Search.Search()).Methods("GET")
	router.HandleFunc("/api/properties/nearby", h.Search.Nearby()).Methods("GET")
	router.HandleFunc("/api/properties/featured", h.Search.Featured()).Methods("GET")
	router.HandleFunc("/api/properties/trending", h.Search.Trending()).Methods("GET")
	router.HandleFunc("/api/properties/"+objectID, h.Properties.GetProperty()).Methods("GET")
	router.HandleFunc("/api/properties/"+objectID+"/view", h.Properties.RecordView()).Methods("POST")
	router.HandleFunc("/api/properties/"+objectID+"/reviews", h.Reviews.ListReviews()).Methods("GET")

	// Routes that require authentication
	properties := router.PathPrefix("/api/properties").Subrouter()
	properties.Use(auth.AuthMiddleware)
	properties.HandleFunc("", h.Properties.CreateProperty()).Methods("POST")
	properties.HandleFunc("/bookmarks", h.Properties.GetBookmarks()).Methods("GET")
	properties.HandleFunc("/"+objectID, h.Properties.UpdateProperty()).Methods("PUT")
	properties.HandleFunc("/"+objectID, h.Properties.DeleteProperty()).Methods("DELETE")
	properties.HandleFunc("/"+objectID+"/bookmark", h.Properties.AddBookmark()).Methods("POST")
	properties.HandleFunc("/"+objectID+"/bookmark", h.Properties.RemoveBookmark()).Methods("DELETE")
	properties.HandleFunc("/"+objectID+"/photos", h.Properties.UploadPhoto()).Methods("POST")
	properties.HandleFunc("/"+objectID+"/inquire", h.Inquiries.CreateInquiry()).Methods("POST")
	properties.HandleFunc("/"+objectID+"/reviews", h.Reviews.CreateReview()).Methods("POST")

	inquiries := router.PathPrefix("/api/inquiries").Subrouter()
	inquiries.Use(auth.AuthMiddleware)
	inquiries.HandleFunc("/received", h.Inquiries.Received()).Methods("GET")
	inquiries.HandleFunc("/sent", h.Inquiries.Sent()).Methods("GET")
	inquiries.HandleFunc("/"+objectID+"/respond", h.Inquiries.Respond()).Methods("PUT")
	inquiries.HandleFunc("/"+objectID+"/close", h.Inquiries.Close()).Methods("PUT")

	reviews := router.PathPrefix("/api/reviews").Subrouter()
	reviews.Use(auth.AuthMiddleware)
	reviews.HandleFunc("/"+objectID, h.Reviews.UpdateReview()).Methods("PUT")
	reviews.HandleFunc("/"+objectID, h.Reviews.DeleteReview()).Methods("DELETE")
	reviews.HandleFunc("/"+objectID+"/respond", h.Reviews.RespondToReview()).Methods("PUT")

	analytics := router.PathPrefix("/api/analytics").Subrouter()
	analytics.Use(auth.AuthMiddleware)
	analytics.HandleFunc("/properties/"+objectID, h.Analytics.PropertyAnalytics()).Methods("GET")
	analytics.HandleFunc("/dashboard", h.Analytics.Dashboard()).Methods("GET")

	// Admin routes
	router.Handle("/v1/admin/login",
		middleware.RateLimit(limits.Login, limits.Window)(h.Admin.Login())).Methods("POST")

	admin := router.PathPrefix("/v1/admin").Subrouter()
	admin.Use(auth.AuthMiddleware, middleware.RequireRole(models.RoleAdmin))
	admin.HandleFunc("/stats", h.Admin.Stats()).Methods("GET")
	admin.HandleFunc("/accounts", h.Admin.ListAccounts()).Methods("GET")
	admin.HandleFunc("/user-detail/"+objectID, h.Admin.UserDetail()).Methods("GET")
	admin.HandleFunc("/pendingkyc", h.Admin.PendingKYC()).Methods("GET")
	admin.HandleFunc("/verify-vendor", h.Admin.VerifyVendor()).Methods("POST")
	admin.HandleFunc("/properties/pending", h.Admin.PendingProperties()).Methods("GET")
	admin.HandleFunc("/properties/"+objectID+"/moderate", h.Admin.ModerateProperty()).Methods("PATCH")
	admin.HandleFunc("/properties/"+objectID+"/feature", h.Admin.FeatureProperty()).Methods("PATCH")
	admin.HandleFunc("/analytics/booking-details", h.Admin.BookingDetails()).Methods("GET")
	admin.HandleFunc("/notifications", h.Admin.Notifications()).Methods("GET")
}
