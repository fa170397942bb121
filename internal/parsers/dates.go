package parsers

import (
	"regexp"
	"strings"
	"time"
)

var monthsByPrefix = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

var (
	// "15 Jan 2024 ..." / "15 Jan ..." / "1 January ..."
	namedDateRe = regexp.MustCompile(`^(\d{1,2})[ /]([A-Za-z]{3,9})\.?(?:[ /](\d{2,4}))?(?:\s+(.*))?$`)
	// "15/01/2024 ..." (day first)
	numericDateRe = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{2,4})(?:\s+(.*))?$`)
)

// DateToken is a date recognized at the start of a line. HasYear is
// false for "DD Mon" forms that need period-based year resolution.
type DateToken struct {
	Day     int
	Month   time.Month
	Year    int
	HasYear bool
	Rest    string
}

// ParseDateToken recognizes a date token at the start of the line and
// returns it with the remainder of the line.
func ParseDateToken(line string) (DateToken, bool) {
	line = strings.TrimSpace(line)

	if m := namedDateRe.FindStringSubmatch(line); m != nil {
		month, ok := monthsByPrefix[strings.ToLower(m[2])[:3]]
		if !ok || !validMonthWord(m[2]) {
			return DateToken{}, false
		}
		tok := DateToken{
			Day:   atoiSafe(m[1]),
			Month: month,
			Rest:  m[4],
		}
		if m[3] != "" {
			tok.Year = expandYear(atoiSafe(m[3]))
			tok.HasYear = true
		}
		if tok.Day < 1 || tok.Day > 31 {
			return DateToken{}, false
		}
		return tok, true
	}

	if m := numericDateRe.FindStringSubmatch(line); m != nil {
		day, month := atoiSafe(m[1]), atoiSafe(m[2])
		if day < 1 || day > 31 || month < 1 || month > 12 {
			return DateToken{}, false
		}
		return DateToken{
			Day:     day,
			Month:   time.Month(month),
			Year:    expandYear(atoiSafe(m[3])),
			HasYear: true,
			Rest:    m[4],
		}, true
	}

	return DateToken{}, false
}

// validMonthWord rejects words that merely start with a month prefix
// ("Market", "Decor") by requiring the whole word to be a month name or
// its three-letter abbreviation.
func validMonthWord(word string) bool {
	lower := strings.ToLower(word)
	if len(lower) == 3 {
		_, ok := monthsByPrefix[lower]
		return ok
	}
	for prefix, month := range monthsByPrefix {
		if strings.HasPrefix(lower, prefix) && strings.EqualFold(word, month.String()) {
			return true
		}
	}
	return false
}

// StatementPeriod is the "Period <start> - <end>" window parsed once per
// file; it resolves implicit years in date tokens.
type StatementPeriod struct {
	Start time.Time
	End   time.Time
}

var periodRe = regexp.MustCompile(`(?im)^\s*(?:statement\s+)?period\s*:?\s+(.+?)\s*(?:-|–|to)\s*(.+?)\s*$`)

var periodFormats = []string{
	"2 Jan 2006",
	"02 Jan 2006",
	"2 January 2006",
	"02/01/2006",
	"2/1/2006",
}

// ParsePeriod finds and parses the statement period line, or returns nil.
func ParsePeriod(text string) *StatementPeriod {
	m := periodRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}

	start, okStart := parsePeriodDate(m[1])
	end, okEnd := parsePeriodDate(m[2])
	if !okStart || !okEnd || end.Before(start) {
		return nil
	}
	return &StatementPeriod{Start: start, End: end}
}

func parsePeriodDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, format := range periodFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ResolveDate turns a date token into a concrete day-granularity date.
// Tokens without a year pick the candidate year that falls inside the
// period window, falling back to the period's end year; with no period
// at all the current year applies.
func ResolveDate(tok DateToken, period *StatementPeriod) time.Time {
	if tok.HasYear {
		return time.Date(tok.Year, tok.Month, tok.Day, 0, 0, 0, 0, time.UTC)
	}

	if period == nil {
		return time.Date(time.Now().UTC().Year(), tok.Month, tok.Day, 0, 0, 0, 0, time.UTC)
	}

	for year := period.Start.Year(); year <= period.End.Year(); year++ {
		candidate := time.Date(year, tok.Month, tok.Day, 0, 0, 0, 0, time.UTC)
		if !candidate.Before(truncateDay(period.Start)) && !candidate.After(truncateDay(period.End)) {
			return candidate
		}
	}
	return time.Date(period.End.Year(), tok.Month, tok.Day, 0, 0, 0, 0, time.UTC)
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func expandYear(y int) int {
	if y < 100 {
		return 2000 + y
	}
	return y
}

func atoiSafe(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int(r-'0')
	}
	return n
}
