package availability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"hotel-booking-backend/internal/dbtest"
	"hotel-booking-backend/internal/model"
	"hotel-booking-backend/internal/store"
)

func day(s string) time.Time {
	d, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return d
}

func addBooking(t *testing.T, gormDB *gorm.DB, fx dbtest.Fixture, room model.Room, in, out string, status model.BookingStatus) {
	t.Helper()
	b := model.Booking{
		BookingNumber: "BK-" + room.RoomNumber + in,
		UserID:        1,
		HotelID:       fx.Hotel.ID,
		RoomID:        room.ID,
		RoomTypeID:    room.RoomTypeID,
		CheckInDate:   day(in),
		CheckOutDate:  day(out),
		Status:        status,
		PaymentMethod: model.PayAtHotel,
	}
	require.NoError(t, gormDB.Create(&b).Error)
}

func roomIDs(rooms []model.Room) []int64 {
	ids := make([]int64, len(rooms))
	for i, r := range rooms {
		ids[i] = r.ID
	}
	return ids
}

func TestGetAvailableRooms(t *testing.T) {
	ctx := context.Background()
	gormDB := dbtest.Open(t)
	fx := dbtest.Seed(t, gormDB, 1000, "101", "102", "103", "104", "105")
	oracle := NewOracle(store.NewGormStore(gormDB))

	r101, r102, r103, r104, r105 := fx.Rooms[0], fx.Rooms[1], fx.Rooms[2], fx.Rooms[3], fx.Rooms[4]

	// 101: live booking inside the window. 102: cancelled booking.
	// 103: guest leaves on the requested check-in day. 104: blocked night.
	// 105: under maintenance.
	addBooking(t, gormDB, fx, r101, "2025-06-02", "2025-06-03", model.BookingConfirmed)
	addBooking(t, gormDB, fx, r102, "2025-06-01", "2025-06-03", model.BookingCancelled)
	addBooking(t, gormDB, fx, r103, "2025-05-29", "2025-06-01", model.BookingCheckedIn)
	require.NoError(t, store.NewGormStore(gormDB).Calendar().BulkSetStatus(ctx, []int64{r104.ID}, day("2025-06-02"), model.CalendarBlocked))
	require.NoError(t, gormDB.Model(&r105).Update("status", model.RoomMaintenance).Error)

	rooms, err := oracle.GetAvailableRooms(ctx, fx.Hotel.ID, day("2025-06-01"), day("2025-06-03"), nil)
	require.NoError(t, err)
	assert.Equal(t, []int64{r102.ID, r103.ID}, roomIDs(rooms))
	require.NotNil(t, rooms[0].RoomType)
	assert.Equal(t, fx.RoomType.ID, rooms[0].RoomType.ID)

	t.Run("Blocked night outside the stay does not matter", func(t *testing.T) {
		rooms, err := oracle.GetAvailableRooms(ctx, fx.Hotel.ID, day("2025-06-03"), day("2025-06-05"), nil)
		require.NoError(t, err)
		assert.Equal(t, []int64{r101.ID, r102.ID, r103.ID, r104.ID}, roomIDs(rooms))
	})

	t.Run("Room type filter", func(t *testing.T) {
		other := dbtest.AddRoomType(t, gormDB, fx.Hotel.ID, "Suite", 3000)
		suite := dbtest.AddRoom(t, gormDB, fx.Hotel.ID, other.ID, "501", 5)

		rooms, err := oracle.GetAvailableRooms(ctx, fx.Hotel.ID, day("2025-06-01"), day("2025-06-03"), &other.ID)
		require.NoError(t, err)
		assert.Equal(t, []int64{suite.ID}, roomIDs(rooms))
	})

	t.Run("Inactive room type is not sold", func(t *testing.T) {
		retired := dbtest.AddRoomType(t, gormDB, fx.Hotel.ID, "Retired", 500)
		dbtest.AddRoom(t, gormDB, fx.Hotel.ID, retired.ID, "601", 6)
		require.NoError(t, gormDB.Model(&retired).Update("is_active", false).Error)

		rooms, err := oracle.GetAvailableRooms(ctx, fx.Hotel.ID, day("2025-06-01"), day("2025-06-03"), &retired.ID)
		require.NoError(t, err)
		assert.Empty(t, rooms)
	})
}

func TestCheckAvailability(t *testing.T) {
	ctx := context.Background()
	gormDB := dbtest.Open(t)
	fx := dbtest.Seed(t, gormDB, 1000, "101", "102")
	s := store.NewGormStore(gormDB)
	oracle := NewOracle(s)
	room := fx.Rooms[0]

	addBooking(t, gormDB, fx, room, "2025-06-10", "2025-06-12", model.BookingPending)
	require.NoError(t, s.Calendar().Reserve(ctx, fx.Rooms[1].ID, day("2025-06-01"), day("2025-06-02")))

	testCases := []struct {
		name     string
		roomID   int64
		checkIn  string
		checkOut string
		expected bool
	}{
		{name: "Before the booking", roomID: room.ID, checkIn: "2025-06-08", checkOut: "2025-06-10", expected: true},
		{name: "After the booking", roomID: room.ID, checkIn: "2025-06-12", checkOut: "2025-06-13", expected: true},
		{name: "Starts inside", roomID: room.ID, checkIn: "2025-06-11", checkOut: "2025-06-14", expected: false},
		{name: "Ends inside", roomID: room.ID, checkIn: "2025-06-09", checkOut: "2025-06-11", expected: false},
		{name: "Contains the booking", roomID: room.ID, checkIn: "2025-06-09", checkOut: "2025-06-13", expected: false},
		{name: "Calendar says booked", roomID: fx.Rooms[1].ID, checkIn: "2025-05-31", checkOut: "2025-06-02", expected: false},
		{name: "Calendar free after release point", roomID: fx.Rooms[1].ID, checkIn: "2025-06-02", checkOut: "2025-06-04", expected: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ok, err := oracle.CheckAvailability(ctx, tc.roomID, day(tc.checkIn), day(tc.checkOut))
			require.NoError(t, err)
			assert.Equal(t, tc.expected, ok)
		})
	}
}

func TestCalculatePrice(t *testing.T) {
	ctx := context.Background()
	gormDB := dbtest.Open(t)
	fx := dbtest.Seed(t, gormDB, 1000, "101")
	oracle := NewOracle(store.NewGormStore(gormDB))

	rule := func(name string, start, end string, price float64, priority int, active bool) {
		r := model.RateRule{
			RoomTypeID: fx.RoomType.ID,
			Name:       name,
			StartDate:  day(start),
			EndDate:    day(end),
			Price:      price,
			Priority:   priority,
			IsActive:   active,
		}
		require.NoError(t, gormDB.Create(&r).Error)
	}
	rule("Summer", "2025-06-01", "2025-08-31", 1200, 1, true)
	rule("Holiday", "2025-07-01", "2025-07-10", 1800, 5, true)
	rule("Holiday twin", "2025-07-01", "2025-07-10", 1700, 5, true)
	rule("Disabled", "2025-06-01", "2025-08-31", 100, 99, false)

	testCases := []struct {
		name     string
		checkIn  string
		checkOut string
		expected float64
	}{
		{name: "No rule covers the stay", checkIn: "2025-05-30", checkOut: "2025-06-02", expected: 1000},
		{name: "Season rule", checkIn: "2025-06-10", checkOut: "2025-06-12", expected: 1200},
		{name: "Higher priority wins, first created on tie", checkIn: "2025-07-02", checkOut: "2025-07-04", expected: 1800},
		{name: "Stay must fit inside the rule", checkIn: "2025-07-09", checkOut: "2025-07-12", expected: 1200},
		{name: "Rule end date is inclusive", checkIn: "2025-08-30", checkOut: "2025-08-31", expected: 1200},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			for i := 0; i < 3; i++ {
				price, err := oracle.CalculatePrice(ctx, &fx.RoomType, day(tc.checkIn), day(tc.checkOut))
				require.NoError(t, err)
				assert.Equal(t, tc.expected, price)
			}
		})
	}
}

func TestSearchAvailableRooms(t *testing.T) {
	ctx := context.Background()
	gormDB := dbtest.Open(t)
	fx := dbtest.Seed(t, gormDB, 1000, "101", "102")
	oracle := NewOracle(store.NewGormStore(gormDB))

	suite := dbtest.AddRoomType(t, gormDB, fx.Hotel.ID, "Suite", 2500)
	require.NoError(t, gormDB.Model(&suite).Updates(map[string]any{"max_adults": 4, "max_children": 3}).Error)
	suiteRoom := dbtest.AddRoom(t, gormDB, fx.Hotel.ID, suite.ID, "501", 5)

	wifi := model.Amenity{Name: "Wi-Fi", Slug: "wifi"}
	spa := model.Amenity{Name: "Spa", Slug: "spa"}
	require.NoError(t, gormDB.Create(&wifi).Error)
	require.NoError(t, gormDB.Create(&spa).Error)
	require.NoError(t, gormDB.Model(&fx.RoomType).Association("Amenities").Append(&wifi))
	require.NoError(t, gormDB.Model(&suite).Association("Amenities").Append(&spa))

	// The only suite is taken for the second stay.
	addBooking(t, gormDB, fx, suiteRoom, "2025-07-01", "2025-07-05", model.BookingConfirmed)

	price := func(v float64) *float64 { return &v }

	testCases := []struct {
		name     string
		criteria Criteria
		expected map[int64]int
	}{
		{
			name:     "All types",
			criteria: Criteria{CheckIn: day("2025-06-01"), CheckOut: day("2025-06-03")},
			expected: map[int64]int{fx.RoomType.ID: 2, suite.ID: 1},
		},
		{
			name:     "Sold out type is omitted",
			criteria: Criteria{CheckIn: day("2025-07-02"), CheckOut: day("2025-07-03")},
			expected: map[int64]int{fx.RoomType.ID: 2},
		},
		{
			name:     "Adults capacity",
			criteria: Criteria{CheckIn: day("2025-06-01"), CheckOut: day("2025-06-03"), Adults: 3},
			expected: map[int64]int{suite.ID: 1},
		},
		{
			name:     "Children capacity",
			criteria: Criteria{CheckIn: day("2025-06-01"), CheckOut: day("2025-06-03"), Children: 2},
			expected: map[int64]int{suite.ID: 1},
		},
		{
			name:     "Total price window",
			criteria: Criteria{CheckIn: day("2025-06-01"), CheckOut: day("2025-06-03"), MinPrice: price(1500), MaxPrice: price(2000)},
			expected: map[int64]int{fx.RoomType.ID: 2},
		},
		{
			name:     "Any requested amenity",
			criteria: Criteria{CheckIn: day("2025-06-01"), CheckOut: day("2025-06-03"), Amenities: []int64{spa.ID, 9999}},
			expected: map[int64]int{suite.ID: 1},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tc.criteria.HotelID = fx.Hotel.ID
			results, err := oracle.SearchAvailableRooms(ctx, tc.criteria)
			require.NoError(t, err)

			got := make(map[int64]int)
			for i, r := range results {
				got[r.RoomType.ID] = r.AvailableRooms
				if i > 0 {
					assert.Less(t, results[i-1].RoomType.ID, r.RoomType.ID)
				}
			}
			assert.Equal(t, tc.expected, got)
		})
	}

	t.Run("Prices the stay", func(t *testing.T) {
		results, err := oracle.SearchAvailableRooms(ctx, Criteria{HotelID: fx.Hotel.ID, CheckIn: day("2025-06-01"), CheckOut: day("2025-06-03"), RoomTypeID: &fx.RoomType.ID})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, 1000.0, results[0].PricePerNight)
		assert.Equal(t, 2, results[0].Nights)
		assert.Equal(t, 2000.0, results[0].TotalPrice)
	})
}

func TestCalendarHorizon(t *testing.T) {
	ctx := context.Background()
	gormDB := dbtest.Open(t)
	fx := dbtest.Seed(t, gormDB, 1000, "101")
	s := store.NewGormStore(gormDB)
	oracle := NewOracle(s).WithClock(func() time.Time { return day("2025-06-01").Add(15 * time.Hour) })
	room := fx.Rooms[0].ID

	added, err := oracle.InitializeRoomCalendar(ctx, room, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(30), added)

	require.NoError(t, s.Calendar().Reserve(ctx, room, day("2025-06-03"), day("2025-06-05")))
	require.NoError(t, s.Calendar().Reserve(ctx, room, day("2025-09-03"), day("2025-09-04")))

	dates, err := oracle.UnavailableDates(ctx, room, 3)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{day("2025-06-03"), day("2025-06-04")}, dates)

	_, err = oracle.UnavailableDates(ctx, 4040, 3)
	assert.Error(t, err)

	_, err = oracle.InitializeRoomCalendar(ctx, room, 0)
	assert.Error(t, err)
}
