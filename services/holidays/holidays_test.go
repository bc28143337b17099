package holidays

import (
	"testing"
	"time"

	"agenda-backend/models"

	"gorm.io/datatypes"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dt(y int, m time.Month, d int) datatypes.Date {
	return datatypes.Date(day(y, m, d))
}

func saoPaulo() models.Company {
	return models.Company{
		Name:             "Studio",
		State:            "SP",
		City:             "São Paulo",
		NationalHolidays: true,
		StateHolidays:    true,
		CityHolidays:     true,
	}
}

func TestEasterSunday(t *testing.T) {
	cases := map[int]time.Time{
		2019: day(2019, time.April, 21),
		2024: day(2024, time.March, 31),
		2025: day(2025, time.April, 20),
		2026: day(2026, time.April, 5),
		2038: day(2038, time.April, 25),
	}
	for year, want := range cases {
		if got := EasterSunday(year); !got.Equal(want) {
			t.Errorf("EasterSunday(%d) = %s, want %s", year, got.Format("2006-01-02"), want.Format("2006-01-02"))
		}
	}
}

func TestPublicHolidays(t *testing.T) {
	company := saoPaulo()
	tests := []struct {
		name string
		date time.Time
		kind Kind
		want bool
	}{
		{"new year", day(2025, time.January, 1), KindNational, true},
		{"christmas", day(2025, time.December, 25), KindNational, true},
		{"carnival tuesday", day(2025, time.March, 4), KindNational, true},
		{"good friday", day(2025, time.April, 18), KindNational, true},
		{"corpus christi", day(2025, time.June, 19), KindNational, true},
		{"carnival 2026", day(2026, time.February, 17), KindNational, true},
		{"state holiday", day(2025, time.July, 9), KindState, true},
		{"city holiday", day(2025, time.January, 25), KindCity, true},
		{"ordinary tuesday", day(2025, time.March, 11), "", false},
		{"tiradentes", day(2025, time.April, 21), KindNational, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, got := Check(company, tt.date, Exceptions{})
			if got != tt.want {
				t.Fatalf("blocked = %v, want %v (reason %+v)", got, tt.want, r)
			}
			if got && r.Kind != tt.kind {
				t.Fatalf("kind = %s, want %s", r.Kind, tt.kind)
			}
		})
	}
}

func TestTogglesDisableTables(t *testing.T) {
	company := saoPaulo()
	company.NationalHolidays = false
	company.StateHolidays = false
	company.CityHolidays = false

	for _, d := range []time.Time{day(2025, time.December, 25), day(2025, time.July, 9), day(2025, time.January, 25)} {
		if IsBlocked(company, d, Exceptions{}) {
			t.Errorf("%s blocked with every table disabled", d.Format("2006-01-02"))
		}
	}

	rio := saoPaulo()
	rio.State = "RJ"
	rio.City = "Rio de Janeiro"
	if IsBlocked(rio, day(2025, time.July, 9), Exceptions{}) {
		t.Error("SP state holiday applied to an RJ company")
	}
	if !IsBlocked(rio, day(2025, time.January, 20), Exceptions{}) {
		t.Error("Rio city holiday not applied")
	}
}

func TestTenantExceptions(t *testing.T) {
	company := saoPaulo()
	ex := Exceptions{
		CustomHolidays: []models.CustomHoliday{
			{Date: dt(2025, time.March, 12), Name: "Inventory", Enabled: true},
			{Date: dt(2025, time.March, 13), Name: "Disabled", Enabled: false},
		},
		Bridges: []models.HolidayBridge{
			{StartDate: dt(2025, time.April, 17), EndDate: dt(2025, time.April, 22), Name: "Easter week", Enabled: true},
		},
		Blocks: []models.DateBlock{
			{StartDate: dt(2025, time.May, 5), EndDate: dt(2025, time.May, 6), AllDay: true, Reason: "Renovation", Enabled: true},
			{StartDate: dt(2025, time.May, 7), EndDate: dt(2025, time.May, 7), AllDay: false, StartTime: "10:00", EndTime: "12:00", Enabled: true},
		},
	}

	tests := []struct {
		date time.Time
		kind Kind
		want bool
	}{
		{day(2025, time.March, 12), KindCustom, true},
		{day(2025, time.March, 13), "", false},
		{day(2025, time.April, 17), KindBridge, true},
		{day(2025, time.April, 22), KindBridge, true},
		{day(2025, time.April, 23), "", false},
		{day(2025, time.May, 6), KindBlock, true},
		{day(2025, time.May, 7), "", false},
	}
	for _, tt := range tests {
		r, got := Check(company, tt.date, ex)
		if got != tt.want || (got && r.Kind != tt.kind) {
			t.Errorf("%s: got (%v, %s), want (%v, %s)", tt.date.Format("2006-01-02"), got, r.Kind, tt.want, tt.kind)
		}
	}

	partial := PartialBlocks(day(2025, time.May, 7), ex)
	if len(partial) != 1 || partial[0].StartTime != "10:00" {
		t.Fatalf("expected one partial block on May 7, got %+v", partial)
	}
}

func TestUnblockOverridesHolidaysOnly(t *testing.T) {
	company := saoPaulo()
	ex := Exceptions{
		Unblocks: []models.DateUnblock{
			{Date: dt(2025, time.December, 25), Enabled: true},
			{Date: dt(2025, time.March, 12), Enabled: true},
			{Date: dt(2025, time.May, 5), Enabled: true},
		},
		CustomHolidays: []models.CustomHoliday{{Date: dt(2025, time.March, 12), Name: "Inventory", Enabled: true}},
		Blocks: []models.DateBlock{
			{StartDate: dt(2025, time.May, 5), EndDate: dt(2025, time.May, 5), AllDay: true, Enabled: true},
		},
	}

	if IsBlocked(company, day(2025, time.December, 25), ex) {
		t.Error("unblocked national holiday is still blocked")
	}
	if IsBlocked(company, day(2025, time.March, 12), ex) {
		t.Error("unblocked custom holiday is still blocked")
	}
	if !IsBlocked(company, day(2025, time.May, 5), ex) {
		t.Error("unblock must not lift an all-day block")
	}
}

func TestCheckIgnoresTimeOfDayAndZone(t *testing.T) {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		t.Skip("tzdata not available")
	}
	late := time.Date(2025, time.December, 25, 23, 30, 0, 0, loc)
	if !IsBlocked(saoPaulo(), late, Exceptions{}) {
		t.Fatal("expected Christmas evening in local time to be blocked")
	}
}
