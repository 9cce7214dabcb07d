package reminders

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Matches "3pm", "3:00pm", "3:00 pm", "14:30" and "at 14:30". A bare number
// with neither minutes nor am/pm is not treated as a time.
var timeMention = regexp.MustCompile(`(?i)\b(\d{1,2})(?::([0-5]\d))?\s*(am|pm)?\b`)

// ScanTimeMentions extracts clock times from free text and resolves each to the
// next occurrence: today if still ahead of now, otherwise tomorrow. Results are
// sorted and unique.
func ScanTimeMentions(text string, now time.Time) []time.Time {
	seen := make(map[time.Time]struct{})
	var out []time.Time

	for _, m := range timeMention.FindAllStringSubmatch(text, -1) {
		hour, minute, ok := parseClock(m[1], m[2], m[3])
		if !ok {
			continue
		}
		at := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
		if !at.After(now) {
			at = at.AddDate(0, 0, 1)
		}
		if _, dup := seen[at]; dup {
			continue
		}
		seen[at] = struct{}{}
		out = append(out, at)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

func parseClock(hourText, minuteText, meridiem string) (hour, minute int, ok bool) {
	if minuteText == "" && meridiem == "" {
		return 0, 0, false
	}
	hour, err := strconv.Atoi(hourText)
	if err != nil {
		return 0, 0, false
	}
	if minuteText != "" {
		if minute, err = strconv.Atoi(minuteText); err != nil {
			return 0, 0, false
		}
	}

	switch strings.ToLower(meridiem) {
	case "am":
		if hour < 1 || hour > 12 {
			return 0, 0, false
		}
		if hour == 12 {
			hour = 0
		}
	case "pm":
		if hour < 1 || hour > 12 {
			return 0, 0, false
		}
		if hour != 12 {
			hour += 12
		}
	default:
		if hour > 23 {
			return 0, 0, false
		}
	}
	return hour, minute, true
}
