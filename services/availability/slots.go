package availability

import (
	"fmt"
	"iter"
	"time"

	"agenda-backend/models"
	"agenda-backend/services/holidays"
	"agenda-backend/utils"
)

// SlotInterval is the cadence of candidate start times, in minutes.
const SlotInterval = 30

type Slot struct {
	Time      string `json:"time"`
	Available bool   `json:"available"`
}

// Interval is a half-open [Start, End) range in minutes since midnight.
type Interval struct {
	Start int
	End   int
}

func (a Interval) Overlaps(b Interval) bool {
	return a.Start < b.End && b.Start < a.End
}

// AppointmentInterval returns the wall-clock range an appointment occupies.
func AppointmentInterval(a models.Appointment) (Interval, error) {
	start, err := utils.ParseClock(a.StartTime)
	if err != nil {
		return Interval{}, err
	}
	end, err := utils.ParseClock(a.EndTime)
	if err != nil {
		return Interval{}, err
	}
	return Interval{start, end}, nil
}

// Input is everything needed to lay out one service day.
type Input struct {
	Company    models.Company
	Service    models.Service
	Date       time.Time
	Exceptions holidays.Exceptions
	// Booked may span several days and services; only active appointments
	// of Service on Date are considered.
	Booked []models.Appointment
	// Now, when set, marks slots starting at or before it unavailable.
	Now time.Time
}

// Slots lays out the candidate start times of a service day. Closed days,
// inactive services and disabled weekdays yield nothing. Configuration
// problems are reported as models.ErrConfiguration.
func Slots(in Input) (iter.Seq[Slot], error) {
	none := func(func(Slot) bool) {}
	if !in.Service.IsActive || !in.Service.OpenOn(in.Date.Weekday()) {
		return none, nil
	}
	if holidays.IsBlocked(in.Company, in.Date, in.Exceptions) {
		return none, nil
	}
	if err := in.Service.Validate(); err != nil {
		return nil, err
	}
	open, closing, _ := in.Service.Window()

	var lunch *Interval
	if in.Company.LunchBreakEnabled {
		ls, err1 := utils.ParseClock(in.Company.LunchBreakStart)
		le, err2 := utils.ParseClock(in.Company.LunchBreakEnd)
		if err1 != nil || err2 != nil {
			return nil, fmt.Errorf("%w: invalid lunch break", models.ErrConfiguration)
		}
		lunch = &Interval{ls, le}
	}

	busy, err := busyIntervals(in)
	if err != nil {
		return nil, err
	}

	loc := in.Company.Location()
	duration := in.Service.Duration

	return func(yield func(Slot) bool) {
		for start := open; start+duration <= closing; start += SlotInterval {
			slot := Interval{start, start + duration}
			if lunch != nil && slot.Overlaps(*lunch) {
				continue
			}
			available := !overlapsAny(slot, busy)
			if available && !in.Now.IsZero() && !utils.At(in.Date, start, loc).After(in.Now) {
				available = false
			}
			if !yield(Slot{Time: utils.FormatClock(start), Available: available}) {
				return
			}
		}
	}, nil
}

func busyIntervals(in Input) ([]Interval, error) {
	var busy []Interval
	for _, a := range in.Booked {
		if a.ServiceID != in.Service.ID || !a.Status.Active() || !utils.SameDay(a.Day(), in.Date) {
			continue
		}
		iv, err := AppointmentInterval(a)
		if err != nil {
			return nil, fmt.Errorf("appointment %s: %w", a.ID, err)
		}
		busy = append(busy, iv)
	}
	for _, b := range holidays.PartialBlocks(in.Date, in.Exceptions) {
		start, err1 := utils.ParseClock(b.StartTime)
		end, err2 := utils.ParseClock(b.EndTime)
		if err1 != nil || err2 != nil {
			return nil, fmt.Errorf("%w: invalid block %s time range", models.ErrConfiguration, b.ID)
		}
		busy = append(busy, Interval{start, end})
	}
	return busy, nil
}

func overlapsAny(iv Interval, busy []Interval) bool {
	for _, b := range busy {
		if iv.Overlaps(b) {
			return true
		}
	}
	return false
}
