package tektravels

import (
	"encoding/json"
	"strings"
	"time"

	"tbo_gateway/internal/domain"
)

// Request shapes as the provider expects them. Counts and flags travel as
// strings in the provider's own samples, hence the ",string" options.

type authRequest struct {
	ClientId  string
	UserName  string
	Password  string
	EndUserIp string
}

type searchSegment struct {
	Origin                 string
	Destination            string
	FlightCabinClass       int `json:",string"`
	PreferredDepartureTime string
	PreferredArrivalTime   string
}

type searchRequest struct {
	EndUserIp         string
	TokenId           string
	AdultCount        int  `json:",string"`
	ChildCount        int  `json:",string"`
	InfantCount       int  `json:",string"`
	DirectFlight      bool `json:",string"`
	OneStopFlight     bool `json:",string"`
	JourneyType       int  `json:",string"`
	PreferredAirlines []string
	Segments          []searchSegment
	Sources           []string
}

type resultRequest struct {
	EndUserIp   string
	TokenId     string
	TraceId     string
	ResultIndex string
}

type fareWire struct {
	Currency             string
	BaseFare             float64
	Tax                  float64
	YQTax                float64
	AdditionalTxnFeePub  float64
	AdditionalTxnFeeOfrd float64
	OtherCharges         float64
	Discount             float64
	PublishedFare        float64
	OfferedFare          float64
	ServiceFee           float64
}

type passengerWire struct {
	Title          string
	FirstName      string
	LastName       string
	PaxType        int
	DateOfBirth    string `json:",omitempty"`
	Gender         int
	PassportNo     string `json:",omitempty"`
	PassportExpiry string `json:",omitempty"`
	AddressLine1   string
	AddressLine2   string `json:",omitempty"`
	Fare           fareWire
	City           string
	CountryCode    string
	CountryName    string
	Nationality    string
	ContactNo      string
	Email          string
	IsLeadPax      bool

	Baggage     []json.RawMessage `json:",omitempty"`
	MealDynamic []json.RawMessage `json:",omitempty"`
	SeatDynamic []json.RawMessage `json:",omitempty"`
}

type bookRequest struct {
	EndUserIp   string
	TokenId     string
	TraceId     string
	ResultIndex string
	Passengers  []passengerWire
}

type ticketNonLCCRequest struct {
	EndUserIp string
	TokenId   string
	TraceId   string
	PNR       string
	BookingId int64
}

type bookingDetailsRequest struct {
	EndUserIp string
	TokenId   string
	BookingId int64  `json:",omitempty"`
	PNR       string `json:",omitempty"`
	FirstName string `json:",omitempty"`
	LastName  string `json:",omitempty"`
	TraceId   string `json:",omitempty"`
}

type releasePNRRequest struct {
	EndUserIp string
	TokenId   string
	BookingId int64
	Source    int
}

type sectorWire struct {
	Origin      string
	Destination string
}

type changeRequestWire struct {
	EndUserIp        string
	TokenId          string
	BookingId        int64
	RequestType      int
	CancellationType int
	Sectors          []sectorWire `json:",omitempty"`
	TicketId         []int64      `json:",omitempty"`
	Remarks          string
}

type roomGuestWire struct {
	NoOfAdults int
	NoOfChild  int
	ChildAge   []int
}

type hotelSearchRequest struct {
	CheckInDate       string // dd/MM/yyyy
	NoOfNights        int    `json:",string"`
	CountryCode       string
	CityId            string
	ResultCount       *int
	PreferredCurrency string
	GuestNationality  string
	NoOfRooms         int `json:",string"`
	RoomGuests        []roomGuestWire
	MaxRating         int
	MinRating         int
	EndUserIp         string
	TokenId           string
}

type hotelRefRequest struct {
	ResultIndex int
	HotelCode   string
	EndUserIp   string
	TokenId     string
	TraceId     string
}

type hotelPassengerWire struct {
	Title         string
	FirstName     string
	LastName      string
	PaxType       int
	Age           int
	Email         string `json:",omitempty"`
	Phoneno       string `json:",omitempty"`
	LeadPassenger bool
}

type blockRoomRequest struct {
	ResultIndex       int
	HotelCode         string
	HotelName         string
	GuestNationality  string
	NoOfRooms         int
	ClientReferenceNo string
	IsVoucherBooking  bool `json:",string"`
	HotelRoomsDetails []map[string]any
	EndUserIp         string
	TokenId           string
	TraceId           string
}

// providerTime turns "2026-10-20" or "2026-10-20T08:00:00" into the
// provider's "2026-10-20T00:00:00" form.
func providerTime(s string) (string, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"2006-01-02T15:04:05", time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02T15:04:05"), nil
		}
	}
	return "", domain.InvalidInput("bad date %q, want YYYY-MM-DD", s)
}

// hotelDate turns "2026-10-20" into "20/10/2026".
func hotelDate(s string) (string, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return "", domain.InvalidInput("bad check-in date %q, want YYYY-MM-DD", s)
	}
	return t.Format("02/01/2006"), nil
}

func toSearchRequest(s domain.Session, q domain.FlightSearch) (searchRequest, error) {
	jt := q.JourneyType
	if jt == 0 {
		jt = domain.JourneyOneWay
	}
	req := searchRequest{
		EndUserIp:         s.EndUserIP,
		TokenId:           s.TokenID,
		AdultCount:        q.Adults,
		ChildCount:        q.Children,
		InfantCount:       q.Infants,
		DirectFlight:      q.DirectOnly,
		OneStopFlight:     q.OneStopOnly,
		JourneyType:       int(jt),
		PreferredAirlines: q.PreferredAirlines,
		Sources:           q.Sources,
	}
	for _, seg := range q.Segments {
		dep, err := providerTime(seg.DepartureDate)
		if err != nil {
			return searchRequest{}, err
		}
		arr := dep
		if seg.ArrivalDate != "" {
			if arr, err = providerTime(seg.ArrivalDate); err != nil {
				return searchRequest{}, err
			}
		}
		cabin := seg.CabinClass
		if cabin == 0 {
			cabin = domain.CabinEconomy
		}
		req.Segments = append(req.Segments, searchSegment{
			Origin:                 strings.ToUpper(seg.Origin),
			Destination:            strings.ToUpper(seg.Destination),
			FlightCabinClass:       cabin,
			PreferredDepartureTime: dep,
			PreferredArrivalTime:   arr,
		})
	}
	return req, nil
}

func toPassengers(in []domain.Passenger) []passengerWire {
	out := make([]passengerWire, 0, len(in))
	for _, p := range in {
		out = append(out, passengerWire{
			Title:          p.Title,
			FirstName:      p.FirstName,
			LastName:       p.LastName,
			PaxType:        p.PaxType,
			DateOfBirth:    p.DateOfBirth,
			Gender:         p.Gender,
			PassportNo:     p.PassportNo,
			PassportExpiry: p.PassportExpiry,
			AddressLine1:   p.AddressLine1,
			AddressLine2:   p.AddressLine2,
			Fare: fareWire{
				Currency:             p.Fare.Currency,
				BaseFare:             p.Fare.BaseFare,
				Tax:                  p.Fare.Tax,
				YQTax:                p.Fare.YQTax,
				AdditionalTxnFeePub:  p.Fare.AdditionalTxnFeePub,
				AdditionalTxnFeeOfrd: p.Fare.AdditionalTxnFeeOfrd,
				OtherCharges:         p.Fare.OtherCharges,
				Discount:             p.Fare.Discount,
				PublishedFare:        p.Fare.PublishedFare,
				OfferedFare:          p.Fare.OfferedFare,
				ServiceFee:           p.Fare.ServiceFee,
			},
			City:        p.City,
			CountryCode: p.CountryCode,
			CountryName: p.CountryName,
			Nationality: p.Nationality,
			ContactNo:   p.ContactNo,
			Email:       p.Email,
			IsLeadPax:   p.IsLeadPax,
			Baggage:     p.Baggage,
			MealDynamic: p.Meals,
			SeatDynamic: p.Seats,
		})
	}
	return out
}

// toSectors splits "DEL-BOM" style sector strings.
func toSectors(in []string) []sectorWire {
	var out []sectorWire
	for _, s := range in {
		from, to, ok := strings.Cut(strings.ToUpper(strings.TrimSpace(s)), "-")
		if !ok {
			continue
		}
		out = append(out, sectorWire{Origin: from, Destination: to})
	}
	return out
}

func toHotelSearch(s domain.Session, q domain.HotelSearch) (hotelSearchRequest, error) {
	checkIn, err := hotelDate(q.CheckIn)
	if err != nil {
		return hotelSearchRequest{}, err
	}
	req := hotelSearchRequest{
		CheckInDate:       checkIn,
		NoOfNights:        q.Nights,
		CountryCode:       strings.ToUpper(q.CountryCode),
		CityId:            q.CityID,
		PreferredCurrency: q.Currency,
		GuestNationality:  q.Nationality,
		NoOfRooms:         len(q.Rooms),
		MaxRating:         q.MaxRating,
		MinRating:         q.MinRating,
		EndUserIp:         s.EndUserIP,
		TokenId:           s.TokenID,
	}
	if q.ResultCount > 0 {
		rc := q.ResultCount
		req.ResultCount = &rc
	}
	for _, r := range q.Rooms {
		ages := r.ChildAges
		if ages == nil {
			ages = []int{}
		}
		req.RoomGuests = append(req.RoomGuests, roomGuestWire{NoOfAdults: r.Adults, NoOfChild: r.Children, ChildAge: ages})
	}
	return req, nil
}

func toBlockRoom(s domain.Session, r domain.HotelBlockRequest) (blockRoomRequest, error) {
	req := blockRoomRequest{
		ResultIndex:       r.ResultIndex,
		HotelCode:         r.HotelCode,
		HotelName:         r.HotelName,
		GuestNationality:  r.Nationality,
		NoOfRooms:         len(r.Rooms),
		ClientReferenceNo: "0",
		IsVoucherBooking:  true,
		EndUserIp:         s.EndUserIP,
		TokenId:           s.TokenID,
		TraceId:           r.TraceID,
	}
	for i, sel := range r.Rooms {
		var room map[string]any
		if err := json.Unmarshal(sel.Room, &room); err != nil || room == nil {
			return blockRoomRequest{}, domain.InvalidInput("room %d is not an object from the room list", i)
		}
		guests := make([]hotelPassengerWire, 0, len(sel.Guests))
		for _, g := range sel.Guests {
			guests = append(guests, hotelPassengerWire{
				Title:         g.Title,
				FirstName:     g.FirstName,
				LastName:      g.LastName,
				PaxType:       g.PaxType,
				Age:           g.Age,
				Email:         g.Email,
				Phoneno:       g.Phone,
				LeadPassenger: g.LeadPax,
			})
		}
		room["HotelPassenger"] = guests
		req.HotelRoomsDetails = append(req.HotelRoomsDetails, room)
	}
	return req, nil
}
