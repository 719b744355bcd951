package timex

import (
	"fmt"
	"strings"
	"time"
)

// dateLayouts lists the accepted program date formats, most specific first.
// MM-DD-YYYY is what the mobile client sends.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01-02-2006",
	time.RFC1123,
}

// ParseDate parses s using the first matching layout. Times without a zone
// are interpreted as UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}
