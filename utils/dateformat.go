package utils

import (
	"strings"
	"time"
)

// strftime directives that vendor templates use, mapped to Go layout parts.
// %d and %m accept one or two digits, as strptime does.
var strftimeLayout = map[byte]string{
	'd': "2",
	'm': "1",
	'Y': "2006",
	'y': "06",
	'b': "Jan",
	'B': "January",
	'a': "Mon",
	'A': "Monday",
	'H': "15",
	'I': "03",
	'M': "04",
	'S': "05",
	'p': "PM",
	'%': "%",
}

// DateLayout converts a strftime-style format ("%d-%m-%Y") into a Go time
// layout. Formats without a '%' are assumed to already be Go layouts.
func DateLayout(format string) string {
	if !strings.Contains(format, "%") {
		return format
	}
	var b strings.Builder
	for i := 0; i < len(format); i++ {
		if format[i] == '%' && i+1 < len(format) {
			if layout, ok := strftimeLayout[format[i+1]]; ok {
				b.WriteString(layout)
				i++
				continue
			}
		}
		b.WriteByte(format[i])
	}
	return b.String()
}

// ParseDate parses value with a strftime-style or Go layout format.
func ParseDate(value, format string) (time.Time, error) {
	return time.Parse(DateLayout(format), strings.TrimSpace(value))
}
