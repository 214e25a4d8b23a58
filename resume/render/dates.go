package render

import "resume-builder/resume/model"

const presentLabel = "Present"

// FormatMonthYear renders a date as "Jan 2006" in UTC, or "" when absent.
func FormatMonthYear(d *model.Date) string {
	if d == nil || d.IsZero() {
		return ""
	}
	return d.UTC().Format("Jan 2006")
}

// DateRange renders "<start> - <end>". A current entry always ends in
// "Present". Without a start label the range is empty.
func DateRange(start, end *model.Date, current bool) string {
	from := FormatMonthYear(start)
	to := FormatMonthYear(end)
	if current {
		to = presentLabel
	}
	switch {
	case from != "" && to != "":
		return from + " - " + to
	case from != "":
		return from
	default:
		return ""
	}
}
