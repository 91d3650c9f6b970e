package attendance

import "sort"

// Merge combines both record kinds into one entry per distinct date, sorted
// ascending. A holiday hides any attendance record on the same date.
func Merge(records []AttendanceRecord, holidays []HolidayRecord) []DayEntry {
	byDate := make(map[Date]DayEntry, len(records)+len(holidays))

	for _, h := range holidays {
		reason := h.Reason
		if reason == "" {
			reason = string(StatusHoliday)
		}
		byDate[h.Date] = DayEntry{Date: h.Date, Status: StatusHoliday, Reason: reason}
	}
	for _, r := range records {
		if _, isHoliday := byDate[r.Date]; isHoliday {
			continue
		}
		byDate[r.Date] = DayEntry{Date: r.Date, Status: r.Status, Reason: r.Reason}
	}

	entries := make([]DayEntry, 0, len(byDate))
	for _, e := range byDate {
		entries = append(entries, e)
	}
	// ISO dates are fixed width, so string order is chronological.
	sort.Slice(entries, func(i, j int) bool { return entries[i].Date < entries[j].Date })
	return entries
}
