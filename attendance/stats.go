package attendance

import "github.com/shopspring/decimal"

// HolidaySplit separates holidays that match the public holiday list from
// those the user declared.
type HolidaySplit struct {
	Public   []HolidayRecord
	Declared []HolidayRecord
}

// ClassifyHolidays splits holidays against the calendar's public holiday list.
// Pure and stateless; input order is preserved.
func (c Calendar) ClassifyHolidays(holidays []HolidayRecord) HolidaySplit {
	var split HolidaySplit
	for _, h := range holidays {
		if c.IsPublicHoliday(h.Date) {
			split.Public = append(split.Public, h)
		} else {
			split.Declared = append(split.Declared, h)
		}
	}
	return split
}

// Stats are the counts fed to the summary renderer.
type Stats struct {
	Total           int             `json:"total"`
	Present         int             `json:"present"`
	Absent          int             `json:"absent"`
	Holiday         int             `json:"holiday"`
	PublicHoliday   int             `json:"publicHoliday"`
	DeclaredHoliday int             `json:"declaredHoliday"`
	AttendanceRate  decimal.Decimal `json:"attendanceRate"` // percent of working days present
	From            Date            `json:"from,omitempty"`
	To              Date            `json:"to,omitempty"`
}

// ComputeStats counts a merged view. Holidays do not count as working days.
func ComputeStats(entries []DayEntry, cal Calendar) Stats {
	s := Stats{Total: len(entries), AttendanceRate: decimal.Zero}
	for _, e := range entries {
		switch e.Status {
		case StatusPresent:
			s.Present++
		case StatusAbsent:
			s.Absent++
		case StatusHoliday:
			s.Holiday++
			if cal.IsPublicHoliday(e.Date) {
				s.PublicHoliday++
			} else {
				s.DeclaredHoliday++
			}
		}
	}
	if len(entries) > 0 {
		s.From = entries[0].Date
		s.To = entries[len(entries)-1].Date
	}
	if working := s.Present + s.Absent; working > 0 {
		s.AttendanceRate = decimal.NewFromInt(int64(s.Present)).
			Mul(decimal.NewFromInt(100)).
			Div(decimal.NewFromInt(int64(working))).
			Round(2)
	}
	return s
}
