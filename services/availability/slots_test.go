package availability

import (
	"slices"
	"testing"
	"time"

	"agenda-backend/models"
	"agenda-backend/services/holidays"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

var tuesday = time.Date(2025, time.March, 11, 0, 0, 0, 0, time.UTC)

func weekdayService() models.Service {
	return models.Service{
		ID:        uuid.New(),
		Name:      "Haircut",
		Duration:  60,
		IsActive:  true,
		StartTime: "09:00",
		EndTime:   "17:00",
		Monday:    true, Tuesday: true, Wednesday: true, Thursday: true, Friday: true,
	}
}

func company() models.Company {
	return models.Company{ID: uuid.New(), Timezone: "UTC", NationalHolidays: true}
}

func booked(svc models.Service, status models.AppointmentStatus, start, end string) models.Appointment {
	return models.Appointment{
		ID:        uuid.New(),
		ServiceID: svc.ID,
		Date:      datatypes.Date(tuesday),
		StartTime: start,
		EndTime:   end,
		Status:    status,
	}
}

func layout(t *testing.T, in Input) []Slot {
	t.Helper()
	seq, err := Slots(in)
	if err != nil {
		t.Fatalf("Slots: %v", err)
	}
	return slices.Collect(seq)
}

func times(slots []Slot, onlyAvailable bool) []string {
	var out []string
	for _, s := range slots {
		if !onlyAvailable || s.Available {
			out = append(out, s.Time)
		}
	}
	return out
}

func TestSlotsOpenDay(t *testing.T) {
	slots := layout(t, Input{Company: company(), Service: weekdayService(), Date: tuesday})

	want := []string{
		"09:00", "09:30", "10:00", "10:30", "11:00", "11:30", "12:00", "12:30",
		"13:00", "13:30", "14:00", "14:30", "15:00", "15:30", "16:00",
	}
	if got := times(slots, true); !slices.Equal(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}

	var onTheHour int
	for _, s := range slots {
		if s.Time[3:] == "00" {
			onTheHour++
		}
	}
	if onTheHour != 8 {
		t.Fatalf("expected 8 on-the-hour starts from 09:00 to 16:00, got %d", onTheHour)
	}
}

func TestSlotsMarkBookedIntervals(t *testing.T) {
	svc := weekdayService()
	slots := layout(t, Input{
		Company: company(),
		Service: svc,
		Date:    tuesday,
		Booked:  []models.Appointment{booked(svc, models.StatusConfirmed, "10:00", "11:00")},
	})

	unavailable := map[string]bool{"09:30": true, "10:00": true, "10:30": true}
	for _, s := range slots {
		if s.Available == unavailable[s.Time] {
			t.Errorf("slot %s available=%v", s.Time, s.Available)
		}
	}
}

func TestSlotsIgnoreTerminalAndForeignAppointments(t *testing.T) {
	svc := weekdayService()
	other := weekdayService()
	in := Input{
		Company: company(),
		Service: svc,
		Date:    tuesday,
		Booked: []models.Appointment{
			booked(svc, models.StatusCancelled, "10:00", "11:00"),
			booked(svc, models.StatusRescheduled, "11:00", "12:00"),
			booked(other, models.StatusPending, "12:00", "13:00"),
		},
	}
	for _, s := range layout(t, in) {
		if !s.Available {
			t.Errorf("slot %s should be available", s.Time)
		}
	}
}

func TestSlotsNeverOverlapActiveAppointments(t *testing.T) {
	svc := weekdayService()
	for _, duration := range []int{15, 30, 45, 60, 90, 120} {
		svc.Duration = duration
		appts := []models.Appointment{
			booked(svc, models.StatusPending, "09:15", "10:05"),
			booked(svc, models.StatusConfirmed, "13:00", "14:30"),
			booked(svc, models.StatusPending, "16:40", "17:00"),
		}
		for _, s := range layout(t, Input{Company: company(), Service: svc, Date: tuesday, Booked: appts}) {
			if !s.Available {
				continue
			}
			start, _ := time.Parse("15:04", s.Time)
			slot := Interval{start.Hour()*60 + start.Minute(), start.Hour()*60 + start.Minute() + duration}
			for _, a := range appts {
				iv, _ := AppointmentInterval(a)
				if slot.Overlaps(iv) {
					t.Fatalf("duration %d: available slot %s overlaps %s-%s", duration, s.Time, a.StartTime, a.EndTime)
				}
			}
		}
	}
}

func TestSlotsLunchBreak(t *testing.T) {
	c := company()
	c.LunchBreakEnabled = true
	c.LunchBreakStart = "12:00"
	c.LunchBreakEnd = "13:00"

	got := times(layout(t, Input{Company: c, Service: weekdayService(), Date: tuesday}), false)
	for _, dropped := range []string{"11:30", "12:00", "12:30"} {
		if slices.Contains(got, dropped) {
			t.Errorf("slot %s overlaps lunch and should be dropped", dropped)
		}
	}
	for _, kept := range []string{"11:00", "13:00"} {
		if !slices.Contains(got, kept) {
			t.Errorf("slot %s should be kept", kept)
		}
	}
}

func TestSlotsPartialBlock(t *testing.T) {
	ex := holidays.Exceptions{Blocks: []models.DateBlock{{
		StartDate: datatypes.Date(tuesday),
		EndDate:   datatypes.Date(tuesday),
		StartTime: "14:00",
		EndTime:   "15:00",
		Enabled:   true,
	}}}
	slots := layout(t, Input{Company: company(), Service: weekdayService(), Date: tuesday, Exceptions: ex})

	unavailable := map[string]bool{"13:30": true, "14:00": true, "14:30": true}
	for _, s := range slots {
		if s.Available == unavailable[s.Time] {
			t.Errorf("slot %s available=%v", s.Time, s.Available)
		}
	}
}

func TestSlotsEmptyDays(t *testing.T) {
	christmas := time.Date(2025, time.December, 25, 0, 0, 0, 0, time.UTC)
	saturday := time.Date(2025, time.March, 15, 0, 0, 0, 0, time.UTC)
	inactive := weekdayService()
	inactive.IsActive = false
	bridged := holidays.Exceptions{Bridges: []models.HolidayBridge{{
		StartDate: datatypes.Date(tuesday), EndDate: datatypes.Date(tuesday), Enabled: true,
	}}}
	allDay := holidays.Exceptions{Blocks: []models.DateBlock{{
		StartDate: datatypes.Date(tuesday), EndDate: datatypes.Date(tuesday), AllDay: true, Enabled: true,
	}}}

	tests := []struct {
		name string
		in   Input
	}{
		{"holiday", Input{Company: company(), Service: weekdayService(), Date: christmas}},
		{"weekday off", Input{Company: company(), Service: weekdayService(), Date: saturday}},
		{"inactive service", Input{Company: company(), Service: inactive, Date: tuesday}},
		{"bridge", Input{Company: company(), Service: weekdayService(), Date: tuesday, Exceptions: bridged}},
		{"all-day block", Input{Company: company(), Service: weekdayService(), Date: tuesday, Exceptions: allDay}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := layout(t, tt.in); len(got) != 0 {
				t.Fatalf("expected no slots, got %v", got)
			}
		})
	}
}

func TestSlotsDurationLongerThanWindow(t *testing.T) {
	svc := weekdayService()
	svc.EndTime = "09:45"
	if got := layout(t, Input{Company: company(), Service: svc, Date: tuesday}); len(got) != 0 {
		t.Fatalf("expected no slots, got %v", got)
	}
}

func TestSlotsPastTimesUnavailable(t *testing.T) {
	now := tuesday.Add(11*time.Hour + 10*time.Minute)
	slots := layout(t, Input{Company: company(), Service: weekdayService(), Date: tuesday, Now: now})
	for _, s := range slots {
		past := s.Time <= "11:00"
		if s.Available == past {
			t.Errorf("slot %s available=%v at 11:10", s.Time, s.Available)
		}
	}
}

func TestSlotsInvalidConfiguration(t *testing.T) {
	svc := weekdayService()
	svc.StartTime = "18:00"
	if _, err := Slots(Input{Company: company(), Service: svc, Date: tuesday}); err == nil {
		t.Fatal("expected configuration error for inverted window")
	}
}

func TestSlotsSequenceIsRestartable(t *testing.T) {
	seq, err := Slots(Input{Company: company(), Service: weekdayService(), Date: tuesday})
	if err != nil {
		t.Fatal(err)
	}
	first := slices.Collect(seq)
	second := slices.Collect(seq)
	if !slices.Equal(first, second) {
		t.Fatal("iterating twice produced different slots")
	}
	for s := range seq {
		if s.Time != "09:00" {
			t.Fatalf("expected first slot 09:00, got %s", s.Time)
		}
		break
	}
}
