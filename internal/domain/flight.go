package domain

import "encoding/json"

type JourneyType int

const (
	JourneyOneWay        JourneyType = 1
	JourneyReturn        JourneyType = 2
	JourneyMultiCity     JourneyType = 3
	JourneyAdvanceSearch JourneyType = 4
	JourneySpecialReturn JourneyType = 5
)

// Cabin classes as numbered by the provider.
const (
	CabinAll             = 1
	CabinEconomy         = 2
	CabinPremiumEconomy  = 3
	CabinBusiness        = 4
	CabinPremiumBusiness = 5
	CabinFirst           = 6
)

// Passenger types as numbered by the provider.
const (
	PaxAdult  = 1
	PaxChild  = 2
	PaxInfant = 3
)

type SearchSegment struct {
	Origin        string `json:"origin"`
	Destination   string `json:"destination"`
	CabinClass    int    `json:"cabinClass,omitempty"`
	DepartureDate string `json:"departureDate"`         // YYYY-MM-DD or YYYY-MM-DDTHH:MM:SS
	ArrivalDate   string `json:"arrivalDate,omitempty"` // defaults to DepartureDate
}

type FlightSearch struct {
	Adults            int             `json:"adults"`
	Children          int             `json:"children,omitempty"`
	Infants           int             `json:"infants,omitempty"`
	DirectOnly        bool            `json:"directOnly,omitempty"`
	OneStopOnly       bool            `json:"oneStopOnly,omitempty"`
	JourneyType       JourneyType     `json:"journeyType,omitempty"`
	PreferredAirlines []string        `json:"preferredAirlines,omitempty"`
	Sources           []string        `json:"sources,omitempty"`
	Segments          []SearchSegment `json:"segments"`
}

// ResultRef points at one result of a prior search.
type ResultRef struct {
	TraceID     string `json:"traceId"`
	ResultIndex string `json:"resultIndex"`
}

type Fare struct {
	Currency             string  `json:"currency"`
	BaseFare             float64 `json:"baseFare"`
	Tax                  float64 `json:"tax"`
	YQTax                float64 `json:"yqTax,omitempty"`
	OtherCharges         float64 `json:"otherCharges,omitempty"`
	Discount             float64 `json:"discount,omitempty"`
	ServiceFee           float64 `json:"serviceFee,omitempty"`
	AdditionalTxnFeeOfrd float64 `json:"additionalTxnFeeOfrd,omitempty"`
	AdditionalTxnFeePub  float64 `json:"additionalTxnFeePub,omitempty"`
	PublishedFare        float64 `json:"publishedFare"`
	OfferedFare          float64 `json:"offeredFare"`
}

// FareBreakdown is the fare for all passengers of one type.
type FareBreakdown struct {
	PassengerType        int     `json:"passengerType"`
	PassengerCount       int     `json:"passengerCount"`
	Currency             string  `json:"currency"`
	BaseFare             float64 `json:"baseFare"`
	Tax                  float64 `json:"tax"`
	YQTax                float64 `json:"yqTax,omitempty"`
	AdditionalTxnFeeOfrd float64 `json:"additionalTxnFeeOfrd,omitempty"`
	AdditionalTxnFeePub  float64 `json:"additionalTxnFeePub,omitempty"`
}

type FlightLeg struct {
	AirlineCode   string `json:"airlineCode"`
	AirlineName   string `json:"airlineName,omitempty"`
	FlightNumber  string `json:"flightNumber"`
	FareClass     string `json:"fareClass,omitempty"`
	Origin        string `json:"origin"`
	Destination   string `json:"destination"`
	Departure     string `json:"departure"`
	Arrival       string `json:"arrival"`
	DurationMin   int    `json:"durationMin,omitempty"`
	Baggage       string `json:"baggage,omitempty"`
	CabinBaggage  string `json:"cabinBaggage,omitempty"`
	SeatsLeft     int    `json:"seatsLeft,omitempty"`
	OperatingLine string `json:"operatingCarrier,omitempty"`
}

type FlightOption struct {
	ResultIndex  string        `json:"resultIndex"`
	TripIndex    int           `json:"tripIndex"` // 0 outbound, 1 inbound for split return results
	Source       int           `json:"source,omitempty"`
	IsLCC        bool          `json:"isLCC"`
	IsRefundable bool          `json:"isRefundable"`
	AirlineCode  string        `json:"airlineCode"`
	AirlineName  string        `json:"airlineName,omitempty"`
	Origin       string        `json:"origin"`
	Destination  string        `json:"destination"`
	Departure    string        `json:"departure"`
	Arrival      string        `json:"arrival"`
	DurationMin  int           `json:"durationMin"`
	Stops        int           `json:"stops"`
	Fare         Fare          `json:"fare"`
	Legs         [][]FlightLeg `json:"legs"`
}

type SearchResult struct {
	TraceID string           `json:"traceId"`
	Results [][]FlightOption `json:"results"`
	Error   string           `json:"error,omitempty"`
}

type FareRule struct {
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
	Airline     string `json:"airline"`
	FareBasis   string `json:"fareBasisCode,omitempty"`
	Detail      string `json:"detail"`
	Restriction string `json:"restriction,omitempty"`
}

type FareQuote struct {
	TraceID        string          `json:"traceId"`
	ResultIndex    string          `json:"resultIndex"`
	IsLCC          bool            `json:"isLCC"`
	IsPriceChanged bool            `json:"isPriceChanged"`
	Source         int             `json:"source,omitempty"`
	Fare           Fare            `json:"fare"`
	Breakdown      []FareBreakdown `json:"breakdown"`
	// Passport requirements reported by the airline.
	PassportRequired bool            `json:"passportRequired,omitempty"`
	Raw              json.RawMessage `json:"raw,omitempty"`
}

// SSROptions carries the provider's add-on options verbatim; callers pick
// items and send them back on the passenger.
type SSROptions struct {
	TraceID     string            `json:"traceId"`
	ResultIndex string            `json:"resultIndex"`
	Baggage     []json.RawMessage `json:"baggage"`
	Meals       []json.RawMessage `json:"meals"`
	Seats       []json.RawMessage `json:"seats"`
}

type Passenger struct {
	Title          string `json:"title"`
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	PaxType        int    `json:"paxType"`
	DateOfBirth    string `json:"dateOfBirth,omitempty"`
	Gender         int    `json:"gender"` // 1 male, 2 female
	PassportNo     string `json:"passportNo,omitempty"`
	PassportExpiry string `json:"passportExpiry,omitempty"`
	AddressLine1   string `json:"addressLine1,omitempty"`
	AddressLine2   string `json:"addressLine2,omitempty"`
	City           string `json:"city,omitempty"`
	CountryCode    string `json:"countryCode,omitempty"`
	CountryName    string `json:"countryName,omitempty"`
	Nationality    string `json:"nationality,omitempty"`
	ContactNo      string `json:"contactNo,omitempty"`
	Email          string `json:"email,omitempty"`
	IsLeadPax      bool   `json:"isLeadPax"`

	Baggage []json.RawMessage `json:"baggage,omitempty"`
	Meals   []json.RawMessage `json:"meals,omitempty"`
	Seats   []json.RawMessage `json:"seats,omitempty"`

	// Derived from the quote before the passenger is sent to the provider.
	Fare Fare `json:"-"`
}

type BookRequest struct {
	ResultRef
	Passengers []Passenger `json:"passengers"`
	// AcceptPriceChange lets the booking proceed when the quote moved.
	AcceptPriceChange bool `json:"acceptPriceChange,omitempty"`
	// HoldOnly stops a Non-LCC booking after the PNR is created.
	HoldOnly bool `json:"holdOnly,omitempty"`
}

type BookingOutcome struct {
	BookingID      int64           `json:"bookingId"`
	PNR            string          `json:"pnr"`
	Status         int             `json:"status"`
	TicketStatus   int             `json:"ticketStatus,omitempty"`
	IsPriceChanged bool            `json:"isPriceChanged,omitempty"`
	SSRDenied      bool            `json:"ssrDenied,omitempty"`
	Itinerary      json.RawMessage `json:"itinerary,omitempty"`
}

// BookingLookup selects a booking by exactly one of BookingID, PNR or TraceID.
type BookingLookup struct {
	BookingID int64  `json:"bookingId,omitempty"`
	PNR       string `json:"pnr,omitempty"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	TraceID   string `json:"traceId,omitempty"`
}

type Change struct {
	Ref string `json:"ref"`
	// 1 full cancellation, 2 partial, 3 reissuance.
	RequestType      int      `json:"requestType"`
	CancellationType int      `json:"cancellationType"` // 0 not set, 1 no-show, 2 flight cancelled, 3 others
	Sectors          []string `json:"sectors,omitempty"`
	TicketIDs        []int64  `json:"ticketIds,omitempty"`
	Remarks          string   `json:"remarks"`
}

type ChangeOutcome struct {
	ChangeRequestID int64           `json:"changeRequestId"`
	Status          int             `json:"status"`
	Raw             json.RawMessage `json:"raw,omitempty"`
}
