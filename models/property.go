package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	ModerationPending  = "pending"
	ModerationApproved = "approved"
	ModerationRejected = "rejected"
)

const (
	StatusAvailable   = "available"
	StatusSold        = "sold"
	StatusRented      = "rented"
	StatusUnderReview = "under_review"
)

// ListingLifetime is how long a new listing stays up before it expires.
const ListingLifetime = 90 * 24 * time.Hour

// MaxDailyViews bounds views.daily to the most recent entries.
const MaxDailyViews = 30

type Price struct {
	Amount             float64 `bson:"amount" json:"amount" validate:"required,gte=1"`
	Currency           string  `bson:"currency" json:"currency"`
	IsNegotiable       bool    `bson:"isNegotiable" json:"isNegotiable"`
	SecurityDeposit    float64 `bson:"securityDeposit,omitempty" json:"securityDeposit,omitempty"`
	MaintenanceCharges float64 `bson:"maintenanceCharges,omitempty" json:"maintenanceCharges,omitempty"`
	PricePerSqFt       float64 `bson:"pricePerSqFt,omitempty" json:"pricePerSqFt,omitempty"`
}

type Area struct {
	BuiltUp float64 `bson:"builtUp,omitempty" json:"builtUp,omitempty"`
	Carpet  float64 `bson:"carpet,omitempty" json:"carpet,omitempty"`
	Plot    float64 `bson:"plot,omitempty" json:"plot,omitempty"`
}

type Details struct {
	Floor         string `bson:"floor,omitempty" json:"floor,omitempty"`
	TotalFloors   int    `bson:"totalFloors,omitempty" json:"totalFloors,omitempty"`
	Area          Area   `bson:"area" json:"area"`
	Furnishing    string `bson:"furnishing,omitempty" json:"furnishing,omitempty" validate:"omitempty,oneof=unfurnished semi_furnished fully_furnished"`
	AgeOfProperty int    `bson:"ageOfProperty,omitempty" json:"ageOfProperty,omitempty"`
	Facing        string `bson:"facing,omitempty" json:"facing,omitempty"`
	Balconies     int    `bson:"balconies,omitempty" json:"balconies,omitempty"`
	Bathrooms     int    `bson:"bathrooms,omitempty" json:"bathrooms,omitempty"`
	Bedrooms      int    `bson:"bedrooms,omitempty" json:"bedrooms,omitempty"`
}

type Parking struct {
	Bike  bool `bson:"bike" json:"bike"`
	Car   bool `bson:"car" json:"car"`
	Spots int  `bson:"spots,omitempty" json:"spots,omitempty"`
}

type Amenities struct {
	Parking         Parking `bson:"parking" json:"parking"`
	RunningWater    bool    `bson:"runningWater" json:"runningWater"`
	Electricity     bool    `bson:"electricity" json:"electricity"`
	Wifi            bool    `bson:"wifi" json:"wifi"`
	Gym             bool    `bson:"gym" json:"gym"`
	Elevator        bool    `bson:"elevator" json:"elevator"`
	Security        bool    `bson:"security" json:"security"`
	Garden          bool    `bson:"garden" json:"garden"`
	PowerBackup     bool    `bson:"powerBackup" json:"powerBackup"`
	AirConditioning bool    `bson:"airConditioning" json:"airConditioning"`
	ModularKitchen  bool    `bson:"modularKitchen" json:"modularKitchen"`
	NearbyMetro     bool    `bson:"nearbyMetro" json:"nearbyMetro"`
	PetFriendly     bool    `bson:"petFriendly" json:"petFriendly"`
}

type Address struct {
	Street   string `bson:"street,omitempty" json:"street,omitempty"`
	Area     string `bson:"area,omitempty" json:"area,omitempty"`
	City     string `bson:"city" json:"city" validate:"required,min=2"`
	State    string `bson:"state,omitempty" json:"state,omitempty"`
	Country  string `bson:"country,omitempty" json:"country,omitempty"`
	Pincode  string `bson:"pincode,omitempty" json:"pincode,omitempty"`
	Landmark string `bson:"landmark,omitempty" json:"landmark,omitempty"`
}

// GeoPoint is a GeoJSON point; Coordinates are [longitude, latitude].
type GeoPoint struct {
	Type        string    `bson:"type" json:"type" validate:"omitempty,eq=Point"`
	Coordinates []float64 `bson:"coordinates" json:"coordinates" validate:"lnglat"`
}

func NewGeoPoint(lng, lat float64) GeoPoint {
	return GeoPoint{Type: "Point", Coordinates: []float64{lng, lat}}
}

type NearbyPlace struct {
	Name     string  `bson:"name" json:"name"`
	Type     string  `bson:"type" json:"type"`
	Distance float64 `bson:"distance" json:"distance"`
}

type Location struct {
	Address      Address       `bson:"address" json:"address" validate:"required"`
	Coordinates  *GeoPoint     `bson:"coordinates,omitempty" json:"coordinates,omitempty"`
	NearbyPlaces []NearbyPlace `bson:"nearbyPlaces,omitempty" json:"nearbyPlaces,omitempty"`
}

type Photo struct {
	URL        string    `bson:"url" json:"url"`
	Thumbnail  string    `bson:"thumbnail,omitempty" json:"thumbnail,omitempty"`
	Caption    string    `bson:"caption,omitempty" json:"caption,omitempty"`
	IsPrimary  bool      `bson:"isPrimary" json:"isPrimary"`
	UploadedAt time.Time `bson:"uploadedAt" json:"uploadedAt"`
}

type Video struct {
	URL       string `bson:"url" json:"url"`
	Thumbnail string `bson:"thumbnail,omitempty" json:"thumbnail,omitempty"`
	Duration  int    `bson:"duration,omitempty" json:"duration,omitempty"`
}

type Media struct {
	Photos      []Photo `bson:"photos" json:"photos"`
	Videos      []Video `bson:"videos,omitempty" json:"videos,omitempty"`
	VirtualTour string  `bson:"virtualTour,omitempty" json:"virtualTour,omitempty"`
}

type DailyView struct {
	Date   time.Time `bson:"date" json:"date"`
	UserIP string    `bson:"userIp,omitempty" json:"-"`
}

type Views struct {
	Total  int64       `bson:"total" json:"total"`
	Unique int64       `bson:"unique" json:"unique"`
	Daily  []DailyView `bson:"daily" json:"daily"`
}

type InterestedUser struct {
	UserID      primitive.ObjectID `bson:"userId" json:"userId"`
	ContactedAt time.Time          `bson:"contactedAt" json:"contactedAt"`
	Status      string             `bson:"status" json:"status"`
}

type Availability struct {
	AvailableFrom     *time.Time `bson:"availableFrom,omitempty" json:"availableFrom,omitempty"`
	LeaseDuration     int        `bson:"leaseDuration,omitempty" json:"leaseDuration,omitempty"`
	MoveInFlexibility string     `bson:"moveInFlexibility,omitempty" json:"moveInFlexibility,omitempty"`
}

type Property struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	AdID             string             `bson:"adId" json:"adId"`
	OwnerID          primitive.ObjectID `bson:"ownerId" json:"ownerId"`
	Owner            *UserSummary       `bson:"owner,omitempty" json:"owner,omitempty"`
	Purpose          string             `bson:"purpose" json:"purpose" validate:"required,oneof=residential_property commercial_property property_on_sale"`
	Type             string             `bson:"type" json:"type" validate:"required,oneof=single_room two_rooms 1bhk 2bhk 3bhk flat house bungalow apartment residential_land"`
	Status           string             `bson:"status" json:"status" validate:"omitempty,oneof=available sold rented"`
	Price            Price              `bson:"price" json:"price" validate:"required"`
	Details          Details            `bson:"details" json:"details"`
	Amenities        Amenities          `bson:"amenities" json:"amenities"`
	Location         Location           `bson:"location" json:"location" validate:"required"`
	Media            Media              `bson:"media" json:"media"`
	Title            string             `bson:"title" json:"title" validate:"required,min=5,max=100"`
	Description      string             `bson:"description" json:"description"`
	Highlights       []string           `bson:"highlights,omitempty" json:"highlights,omitempty"`
	Rules            []string           `bson:"rules,omitempty" json:"rules,omitempty"`
	Views            Views              `bson:"views" json:"views"`
	InterestedUsers  []InterestedUser   `bson:"interestedUsers" json:"interestedUsers,omitempty"`
	Availability     Availability       `bson:"availability" json:"availability"`
	IsActive         bool               `bson:"isActive" json:"isActive"`
	IsFeatured       bool               `bson:"isFeatured" json:"isFeatured"`
	IsVerified       bool               `bson:"isVerified" json:"isVerified"`
	ModerationStatus string             `bson:"moderationStatus" json:"moderationStatus"`
	RejectionReason  string             `bson:"rejectionReason,omitempty" json:"rejectionReason,omitempty"`
	TextScore        float64            `bson:"textScore,omitempty" json:"textScore,omitempty"`
	Distance         float64            `bson:"distance,omitempty" json:"distance,omitempty"`
	PostedDate       time.Time          `bson:"postedDate" json:"postedDate"`
	ExpiryDate       time.Time          `bson:"expiryDate" json:"expiryDate"`
	CreatedAt        time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// PrepareNew fills the server-controlled fields of a listing submitted by ownerID.
// Every new listing waits for admin approval.
func (p *Property) PrepareNew(ownerID primitive.ObjectID, adID string, now time.Time) {
	p.ID = primitive.NewObjectID()
	p.AdID = adID
	p.OwnerID = ownerID
	p.Owner = nil
	if p.Status == "" {
		p.Status = StatusAvailable
	}
	if p.Price.Currency == "" {
		p.Price.Currency = "INR"
	}
	if p.Location.Coordinates != nil && p.Location.Coordinates.Type == "" {
		p.Location.Coordinates.Type = "Point"
	}
	if p.Media.Photos == nil {
		p.Media.Photos = []Photo{}
	}
	p.Views = Views{Daily: []DailyView{}}
	p.InterestedUsers = []InterestedUser{}
	p.IsActive = true
	p.IsFeatured = false
	p.IsVerified = false
	p.ModerationStatus = ModerationPending
	p.RejectionReason = ""
	p.PostedDate = now
	p.ExpiryDate = now.Add(ListingLifetime)
	p.CreatedAt = now
	p.UpdatedAt = now
}

// IsPublic reports whether the listing passes the moderation gate.
func (p *Property) IsPublic() bool {
	return p.IsActive && p.ModerationStatus == ModerationApproved && p.Status == StatusAvailable
}
