// server/internal/schedule/display.go
package schedule

type dayLabel struct {
	long, short map[string]string
}

var weekLabels = [7]dayLabel{
	{map[string]string{"el": "Κυριακή", "en": "Sunday"}, map[string]string{"el": "Κυρ", "en": "Sun"}},
	{map[string]string{"el": "Δευτέρα", "en": "Monday"}, map[string]string{"el": "Δευ", "en": "Mon"}},
	{map[string]string{"el": "Τρίτη", "en": "Tuesday"}, map[string]string{"el": "Τρι", "en": "Tue"}},
	{map[string]string{"el": "Τετάρτη", "en": "Wednesday"}, map[string]string{"el": "Τετ", "en": "Wed"}},
	{map[string]string{"el": "Πέμπτη", "en": "Thursday"}, map[string]string{"el": "Πεμ", "en": "Thu"}},
	{map[string]string{"el": "Παρασκευή", "en": "Friday"}, map[string]string{"el": "Παρ", "en": "Fri"}},
	{map[string]string{"el": "Σάββατο", "en": "Saturday"}, map[string]string{"el": "Σαβ", "en": "Sat"}},
}

// Group is a run of consecutive days sharing the same hours.
type Group struct {
	DaysLabel  string `json:"daysLabel"`
	HoursLabel string `json:"hoursLabel"`
	Open       bool   `json:"open"`
}

func label(m map[string]string, locale string) string {
	if v, ok := m[locale]; ok {
		return v
	}
	return m["el"]
}

// Display collapses consecutive days with identical hours, e.g. "Δευ – Παρ 08:00 – 14:00".
func Display(w Week, locale string) []Group {
	type run struct {
		key        string
		open       bool
		start, end string
		first, last int
	}
	var runs []run
	for i, d := range w.Days {
		open := d.Open && NormalizeTime(d.Start) != "" && NormalizeTime(d.End) != ""
		key := "closed"
		if open {
			key = d.Start + "-" + d.End
		}
		if n := len(runs); n > 0 && runs[n-1].key == key {
			runs[n-1].last = i
			continue
		}
		runs = append(runs, run{key: key, open: open, start: d.Start, end: d.End, first: i, last: i})
	}

	groups := make([]Group, 0, len(runs))
	for _, r := range runs {
		days := label(weekLabels[r.first].long, locale)
		if r.first != r.last {
			days = label(weekLabels[r.first].short, locale) + " – " + label(weekLabels[r.last].short, locale)
		}
		hours := "Κλειστό"
		if locale == "en" {
			hours = "Closed"
		}
		if r.open {
			hours = r.start + " – " + r.end
		}
		groups = append(groups, Group{DaysLabel: days, HoursLabel: hours, Open: r.open})
	}
	return groups
}
