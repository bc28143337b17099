package holidays

import "time"

type monthDay struct {
	month time.Month
	day   int
}

type fixedHoliday struct {
	monthDay
	name string
}

var nationalHolidays = []fixedHoliday{
	{monthDay{time.January, 1}, "Confraternização Universal"},
	{monthDay{time.April, 21}, "Tiradentes"},
	{monthDay{time.May, 1}, "Dia do Trabalho"},
	{monthDay{time.September, 7}, "Independência do Brasil"},
	{monthDay{time.October, 12}, "Nossa Senhora Aparecida"},
	{monthDay{time.November, 2}, "Finados"},
	{monthDay{time.November, 15}, "Proclamação da República"},
	{monthDay{time.December, 25}, "Natal"},
}

// Keyed by the two-letter state code.
var stateHolidays = map[string][]fixedHoliday{
	"SP": {{monthDay{time.July, 9}, "Revolução Constitucionalista"}},
	"RJ": {{monthDay{time.April, 23}, "Dia de São Jorge"}, {monthDay{time.November, 20}, "Consciência Negra"}},
	"MG": {{monthDay{time.April, 21}, "Data Magna de Minas Gerais"}},
	"BA": {{monthDay{time.July, 2}, "Independência da Bahia"}},
	"RS": {{monthDay{time.September, 20}, "Revolução Farroupilha"}},
	"PE": {{monthDay{time.March, 6}, "Revolução Pernambucana"}},
	"CE": {{monthDay{time.March, 25}, "Data Magna do Ceará"}},
}

// Keyed by folded city name.
var cityHolidays = map[string][]fixedHoliday{
	"sao paulo":      {{monthDay{time.January, 25}, "Aniversário de São Paulo"}},
	"rio de janeiro": {{monthDay{time.January, 20}, "São Sebastião"}},
	"salvador":       {{monthDay{time.June, 24}, "São João"}},
	"belo horizonte": {{monthDay{time.August, 15}, "Assunção de Nossa Senhora"}},
	"curitiba":       {{monthDay{time.September, 8}, "Nossa Senhora da Luz dos Pinhais"}},
}

func matchFixed(list []fixedHoliday, date time.Time) (string, bool) {
	for _, h := range list {
		if h.month == date.Month() && h.day == date.Day() {
			return h.name, true
		}
	}
	return "", false
}
