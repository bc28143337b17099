// Package holidays decides whether a company is closed on a given date.
package holidays

import (
	"strings"
	"time"

	"agenda-backend/models"
	"agenda-backend/utils"
)

type Kind string

const (
	KindNational Kind = "national"
	KindState    Kind = "state"
	KindCity     Kind = "city"
	KindCustom   Kind = "custom"
	KindBridge   Kind = "bridge"
	KindBlock    Kind = "block"
)

// Reason names the rule that closed a date.
type Reason struct {
	Kind Kind   `json:"kind"`
	Name string `json:"name"`
}

// Exceptions are the tenant-authored calendar records relevant to a date
// range. Disabled records are ignored.
type Exceptions struct {
	CustomHolidays []models.CustomHoliday
	Bridges        []models.HolidayBridge
	Blocks         []models.DateBlock
	Unblocks       []models.DateUnblock
}

func IsBlocked(company models.Company, date time.Time, ex Exceptions) bool {
	_, blocked := Check(company, date, ex)
	return blocked
}

// Check applies the closing rules in order and reports the first match.
// An unblock on the date overrides public and custom holidays but never
// bridges or blocks.
func Check(company models.Company, date time.Time, ex Exceptions) (Reason, bool) {
	date = utils.DateOnly(date)

	if !unblocked(date, ex.Unblocks) {
		if r, ok := PublicHoliday(company, date); ok {
			return r, true
		}
		for _, h := range ex.CustomHolidays {
			if h.Enabled && utils.SameDay(time.Time(h.Date), date) {
				return Reason{KindCustom, h.Name}, true
			}
		}
	}

	for _, b := range ex.Bridges {
		if b.Enabled && within(date, time.Time(b.StartDate), time.Time(b.EndDate)) {
			return Reason{KindBridge, b.Name}, true
		}
	}
	for _, b := range ex.Blocks {
		if b.Enabled && b.AllDay && within(date, time.Time(b.StartDate), time.Time(b.EndDate)) {
			return Reason{KindBlock, b.Reason}, true
		}
	}
	return Reason{}, false
}

// PublicHoliday checks the national, state and city tables the company
// opted into.
func PublicHoliday(company models.Company, date time.Time) (Reason, bool) {
	if company.NationalHolidays {
		if name, ok := matchFixed(nationalHolidays, date); ok {
			return Reason{KindNational, name}, true
		}
		easter := EasterSunday(date.Year())
		for _, h := range movingHolidays {
			if utils.SameDay(easter.AddDate(0, 0, h.offset), date) {
				return Reason{KindNational, h.name}, true
			}
		}
	}
	if company.StateHolidays && company.State != "" {
		if name, ok := matchFixed(stateHolidays[strings.ToUpper(company.State)], date); ok {
			return Reason{KindState, name}, true
		}
	}
	if company.CityHolidays && company.City != "" {
		if name, ok := matchFixed(cityHolidays[utils.Fold(company.City)], date); ok {
			return Reason{KindCity, name}, true
		}
	}
	return Reason{}, false
}

// PartialBlocks returns the enabled time-ranged blocks covering date.
func PartialBlocks(date time.Time, ex Exceptions) []models.DateBlock {
	date = utils.DateOnly(date)
	var out []models.DateBlock
	for _, b := range ex.Blocks {
		if b.Enabled && !b.AllDay && within(date, time.Time(b.StartDate), time.Time(b.EndDate)) {
			out = append(out, b)
		}
	}
	return out
}

func unblocked(date time.Time, unblocks []models.DateUnblock) bool {
	for _, u := range unblocks {
		if u.Enabled && utils.SameDay(time.Time(u.Date), date) {
			return true
		}
	}
	return false
}

func within(date, start, end time.Time) bool {
	start, end = utils.DateOnly(start), utils.DateOnly(end)
	return !date.Before(start) && !date.After(end)
}
