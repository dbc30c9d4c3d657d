package domain

import "encoding/json"

type RoomGuests struct {
	Adults    int   `json:"adults"`
	Children  int   `json:"children,omitempty"`
	ChildAges []int `json:"childAges,omitempty"`
}

type HotelSearch struct {
	CheckIn     string       `json:"checkIn"` // YYYY-MM-DD
	Nights      int          `json:"nights"`
	CountryCode string       `json:"countryCode"`
	CityID      string       `json:"cityId"`
	Nationality string       `json:"nationality,omitempty"`
	Currency    string       `json:"currency,omitempty"`
	ResultCount int          `json:"resultCount,omitempty"`
	MinRating   int          `json:"minRating,omitempty"`
	MaxRating   int          `json:"maxRating,omitempty"`
	Rooms       []RoomGuests `json:"rooms"`
}

type HotelOption struct {
	ResultIndex int      `json:"resultIndex"`
	HotelCode   string   `json:"hotelCode"`
	Name        string   `json:"name"`
	Stars       int      `json:"stars,omitempty"`
	Address     string   `json:"address,omitempty"`
	Lat         *float64 `json:"lat,omitempty"`
	Lon         *float64 `json:"lon,omitempty"`
	Image       string   `json:"image,omitempty"`
	Currency    string   `json:"currency"`
	Price       float64  `json:"price"`
	OfferedFare float64  `json:"offeredPrice"`
}

type HotelSearchResult struct {
	TraceID string        `json:"traceId"`
	Hotels  []HotelOption `json:"hotels"`
}

// HotelRef points at one hotel of a prior hotel search.
type HotelRef struct {
	TraceID     string `json:"traceId"`
	ResultIndex int    `json:"resultIndex"`
	HotelCode   string `json:"hotelCode"`
}

type HotelDetails struct {
	HotelCode   string   `json:"hotelCode"`
	Name        string   `json:"name"`
	Stars       int      `json:"stars,omitempty"`
	Description string   `json:"description,omitempty"`
	Address     string   `json:"address,omitempty"`
	Facilities  []string `json:"facilities,omitempty"`
	Images      []string `json:"images,omitempty"`
	Lat         *float64 `json:"lat,omitempty"`
	Lon         *float64 `json:"lon,omitempty"`
}

type HotelRoom struct {
	RoomIndex    int             `json:"roomIndex"`
	RoomTypeCode string          `json:"roomTypeCode"`
	RoomTypeName string          `json:"roomTypeName"`
	RatePlanCode string          `json:"ratePlanCode"`
	Currency     string          `json:"currency"`
	Price        float64         `json:"price"`
	Refundable   bool            `json:"refundable"`
	Raw          json.RawMessage `json:"raw"`
}

type HotelGuest struct {
	Title     string `json:"title"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	PaxType   int    `json:"paxType"` // 1 adult, 2 child
	Age       int    `json:"age,omitempty"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	LeadPax   bool   `json:"leadPassenger"`
}

// HotelRoomSelection is one room from GetHotelRoom echoed back with its guests.
type HotelRoomSelection struct {
	Room   json.RawMessage `json:"room"`
	Guests []HotelGuest    `json:"guests"`
}

type HotelBlockRequest struct {
	HotelRef
	HotelName   string               `json:"hotelName"`
	Nationality string               `json:"nationality,omitempty"`
	Rooms       []HotelRoomSelection `json:"rooms"`
}

type HotelBlockOutcome struct {
	IsPriceChanged              bool            `json:"isPriceChanged"`
	IsCancellationPolicyChanged bool            `json:"isCancellationPolicyChanged"`
	AvailabilityType            string          `json:"availabilityType,omitempty"`
	Raw                         json.RawMessage `json:"raw,omitempty"`
}

type HotelBookOutcome struct {
	BookingID          int64  `json:"bookingId"`
	ConfirmationNo     string `json:"confirmationNo"`
	BookingRefNo       string `json:"bookingRefNo,omitempty"`
	HotelBookingStatus string `json:"status"`
	IsPriceChanged     bool   `json:"isPriceChanged,omitempty"`
}
