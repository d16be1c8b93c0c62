package fields

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// DateLayout is the ISO form every record date is stored in.
const DateLayout = "2006-01-02"

const dmy = `(\d{1,2})[/-](\d{1,2})[/-](\d{4}|\d{2})\b`

// dateRules read day before month. Argentine documents never print
// month-first dates, so the order is not auto-detected.
var dateRules = Table[string]{
	{Name: "fecha-label", Priority: 10, Pattern: regexp.MustCompile(`(?i)fecha[^\d\n]{0,30}` + dmy), Accept: acceptDate},
	{Name: "bare", Priority: 20, Pattern: regexp.MustCompile(`\b` + dmy), Accept: acceptDate},
}

func acceptDate(m []string) (string, bool) {
	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	year := m[3]
	if len(year) == 2 {
		year = "20" + year
	}
	s := fmt.Sprintf("%s-%02d-%02d", year, month, day)
	if _, err := time.Parse(DateLayout, s); err != nil {
		return "", false
	}
	return s, true
}

// ExtractDate returns the invoice date as YYYY-MM-DD, falling back to today.
func ExtractDate(text string) string {
	if d, _, ok := dateRules.First(text); ok {
		return d
	}
	return Today()
}

// Today is the fallback date in ISO form.
func Today() string {
	return time.Now().Format(DateLayout)
}
