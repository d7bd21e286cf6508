// server/internal/schedule/schedule.go

// Package schedule models a pharmacy's weekly opening hours.
//
// The stored JSON is keyed by weekday index ("0" = Sunday … "6" = Saturday). Each open day carries
// start/end as HH:MM plus the open_time/close_time/range aliases older dashboard builds read.
package schedule

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Day is one weekday's opening window.
type Day struct {
	Open  bool   `bson:"open" json:"open"`
	Start string `bson:"start" json:"start"`
	End   string `bson:"end" json:"end"`
}

// Meta records who last saved the schedule.
type Meta struct {
	UpdatedAt *string `bson:"updated_at,omitempty" json:"updatedAt"`
	UpdatedBy *string `bson:"updated_by,omitempty" json:"updatedBy"`
}

// Week is indexed by time.Weekday.
type Week struct {
	Days [7]Day `bson:"days"`
	Meta Meta   `bson:"meta"`
}

// DayError describes why one day failed validation.
type DayError struct {
	Day  int    `json:"day"`
	Code string `json:"code"` // missing | invalid | order
}

func (e DayError) Error() string {
	return fmt.Sprintf("day %d: %s", e.Day, e.Code)
}

var ErrMalformed = errors.New("schedule: malformed hours payload")

var legacyKeys = map[string]int{
	"sun": 0, "mon": 1, "tue": 2, "wed": 3, "thu": 4, "fri": 5, "sat": 6,
}

var (
	clockRe   = regexp.MustCompile(`^\d{1,2}:\d{2}$`)
	compactRe = regexp.MustCompile(`^\d{3,4}$`)
)

// NormalizeTime accepts "H:MM", "HH:MM" and "HHMM" and returns "HH:MM", or "" when invalid.
func NormalizeTime(value string) string {
	v := strings.TrimSpace(value)
	var h, m int
	switch {
	case clockRe.MatchString(v):
		parts := strings.SplitN(v, ":", 2)
		h, _ = strconv.Atoi(parts[0])
		m, _ = strconv.Atoi(parts[1])
	case compactRe.MatchString(v):
		v = strings.Repeat("0", 4-len(v)) + v
		h, _ = strconv.Atoi(v[:2])
		m, _ = strconv.Atoi(v[2:])
	default:
		return ""
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return ""
	}
	return fmt.Sprintf("%02d:%02d", h, m)
}

func minutes(hhmm string) int {
	h, _ := strconv.Atoi(hhmm[:2])
	m, _ := strconv.Atoi(hhmm[3:])
	return h*60 + m
}

// Closed returns a week with every day closed.
func Closed() Week {
	return Week{}
}

// Validate checks that every open day has a valid window with end after start.
func Validate(w Week) []DayError {
	var errs []DayError
	for i, d := range w.Days {
		if !d.Open {
			continue
		}
		if d.Start == "" || d.End == "" {
			errs = append(errs, DayError{Day: i, Code: "missing"})
			continue
		}
		start, end := NormalizeTime(d.Start), NormalizeTime(d.End)
		if start == "" || end == "" {
			errs = append(errs, DayError{Day: i, Code: "invalid"})
			continue
		}
		if minutes(end) <= minutes(start) {
			errs = append(errs, DayError{Day: i, Code: "order"})
		}
	}
	return errs
}

// Stamp records the save time and actor in the week's metadata.
func (w *Week) Stamp(now time.Time, by string) {
	at := now.UTC().Format(time.RFC3339)
	w.Meta.UpdatedAt = &at
	if by != "" {
		w.Meta.UpdatedBy = &by
	} else {
		w.Meta.UpdatedBy = nil
	}
}

type entry struct {
	flag       *bool
	start, end string
}

func str(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

func parseEntry(raw map[string]any) entry {
	var e entry
	if b, ok := raw["open"].(bool); ok {
		e.flag = &b
	} else if b, ok := raw["openFlag"].(bool); ok {
		e.flag = &b
	}

	var rng []string
	if r := str(raw["range"]); r != "" {
		rng = strings.SplitN(r, "-", 2)
	}
	for _, c := range []string{str(raw["start"]), str(raw["open"]), str(raw["open_time"])} {
		if c != "" {
			e.start = c
			break
		}
	}
	for _, c := range []string{str(raw["end"]), str(raw["close"]), str(raw["close_time"])} {
		if c != "" {
			e.end = c
			break
		}
	}
	if len(rng) == 2 {
		if e.start == "" {
			e.start = strings.TrimSpace(rng[0])
		}
		if e.end == "" {
			e.end = strings.TrimSpace(rng[1])
		}
	}
	return e
}

func (e entry) wantsOpen() bool {
	if e.flag != nil {
		return *e.flag
	}
	return e.start != "" || e.end != ""
}

func decodeEntries(data []byte) (map[int]entry, Meta, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, Meta{}, ErrMalformed
	}
	out := make(map[int]entry, 7)
	var meta Meta
	for key, value := range raw {
		if key == "_meta" {
			_ = json.Unmarshal(value, &meta)
			continue
		}
		idx, ok := legacyKeys[strings.ToLower(key)]
		if !ok {
			n, err := strconv.Atoi(key)
			if err != nil || n < 0 || n > 6 {
				continue
			}
			idx = n
		}
		var fields map[string]any
		if err := json.Unmarshal(value, &fields); err != nil {
			continue
		}
		out[idx] = parseEntry(fields)
	}
	return out, meta, nil
}

// Parse decodes a schedule submitted by a pharmacy owner. Unlike UnmarshalJSON it keeps open
// days whose times are missing or invalid so Validate can report them.
func Parse(data []byte) (Week, []DayError, error) {
	entries, _, err := decodeEntries(data)
	if err != nil {
		return Week{}, nil, err
	}
	var w Week
	for idx, e := range entries {
		if !e.wantsOpen() {
			continue
		}
		start, end := e.start, e.end
		if n := NormalizeTime(start); n != "" {
			start = n
		}
		if n := NormalizeTime(end); n != "" {
			end = n
		}
		w.Days[idx] = Day{Open: true, Start: start, End: end}
	}
	return w, Validate(w), nil
}

// UnmarshalJSON leniently decodes a stored schedule: a day is open only when both times are valid.
func (w *Week) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*w = Week{}
		return nil
	}
	entries, meta, err := decodeEntries(data)
	if err != nil {
		return err
	}
	var out Week
	for idx, e := range entries {
		start, end := NormalizeTime(e.start), NormalizeTime(e.end)
		if e.flag != nil && !*e.flag {
			continue
		}
		if start != "" && end != "" {
			out.Days[idx] = Day{Open: true, Start: start, End: end}
		}
	}
	out.Meta = meta
	*w = out
	return nil
}

func (w Week) MarshalJSON() ([]byte, error) {
	payload := make(map[string]any, 8)
	for i, d := range w.Days {
		key := strconv.Itoa(i)
		if d.Open && d.Start != "" && d.End != "" {
			payload[key] = map[string]any{
				"open":       true,
				"start":      d.Start,
				"end":        d.End,
				"open_time":  d.Start,
				"close_time": d.End,
				"range":      d.Start + "-" + d.End,
			}
		} else {
			payload[key] = map[string]any{"open": false}
		}
	}
	payload["_meta"] = w.Meta
	return json.Marshal(payload)
}

// Value stores the week as jsonb.
func (w Week) Value() (driver.Value, error) {
	return w.MarshalJSON()
}

func (w *Week) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*w = Week{}
		return nil
	case []byte:
		return w.UnmarshalJSON(v)
	case string:
		return w.UnmarshalJSON([]byte(v))
	}
	return fmt.Errorf("schedule: cannot scan %T", src)
}
