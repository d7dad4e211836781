package form

import (
	"fmt"
	"strings"
)

// ReportType selects which question file variant applies to a month.
type ReportType int

const (
	Monthly   ReportType = 1
	Quarterly ReportType = 2
	Annual    ReportType = 3
)

// Code is the numeric suffix used in question file names.
func (t ReportType) Code() int { return int(t) }

// FriendlyName returns the label shown to the user.
func (t ReportType) FriendlyName() string {
	switch t {
	case Quarterly:
		return "квартальный"
	case Annual:
		return "годовой"
	default:
		return "месячный"
	}
}

// Period is the month and year a report covers.
type Period struct {
	Month string
	Year  int
}

func (p Period) String() string {
	return fmt.Sprintf("%s %d", p.Month, p.Year)
}

var monthNames = []string{
	"Январь", "Февраль", "Март", "Апрель", "Май", "Июнь",
	"Июль", "Август", "Сентябрь", "Октябрь", "Ноябрь", "Декабрь",
}

var englishMonths = []string{
	"january", "february", "march", "april", "may", "june",
	"july", "august", "september", "october", "november", "december",
}

// Months returns the month names offered for selection, January first.
func Months() []string {
	out := make([]string, len(monthNames))
	copy(out, monthNames)
	return out
}

// MonthIndex returns the 1-based calendar position of a Russian or English
// month name, ignoring case, or 0 when the name is unknown.
func MonthIndex(month string) int {
	key := strings.ToLower(strings.TrimSpace(month))
	if key == "" {
		return 0
	}
	for i, name := range monthNames {
		if strings.ToLower(name) == key || englishMonths[i] == key {
			return i + 1
		}
	}
	return 0
}

// Classify applies the month rule: January is annual, the last month of
// each quarter is quarterly, everything else (unknown names included) is
// monthly.
func Classify(month string) ReportType {
	switch MonthIndex(month) {
	case 1:
		return Annual
	case 3, 6, 9, 12:
		return Quarterly
	default:
		return Monthly
	}
}
