package provider

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	defaultStringLength = 10
	defaultPattern      = "??-####"
	alphanumeric        = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	letters             = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

// The default date window is fixed so that output does not depend on the
// wall clock.
var (
	defaultFrom = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	defaultTo   = time.Date(2030, 12, 31, 0, 0, 0, 0, time.UTC)
)

var (
	firstNames = []string{"John", "Jane", "Alice", "Bob", "Charlie", "Diana", "Eve", "Frank", "Grace", "Henry",
		"Isabel", "Jack", "Karen", "Liam", "Maria", "Noah", "Olivia", "Paul", "Quinn", "Rosa"}
	lastNames = []string{"Smith", "Johnson", "Williams", "Brown", "Jones", "Garcia", "Miller", "Davis", "Rodriguez", "Martinez",
		"Wilson", "Anderson", "Taylor", "Thomas", "Moore", "Jackson", "Martin", "Lee", "Thompson", "White"}
	domains = []string{"example.com", "test.com", "demo.com", "mail.com"}
	titles  = []string{
		"Getting Started with Go",
		"Understanding Databases",
		"Web Development Best Practices",
		"Introduction to APIs",
		"Modern Software Architecture",
		"Cloud Computing Basics",
		"Data Structures and Algorithms",
		"Machine Learning Fundamentals",
	}
	sentences = []string{
		"This is a sample text generated for testing purposes.",
		"Lorem ipsum dolor sit amet, consectetur adipiscing elit.",
		"The quick brown fox jumps over the lazy dog.",
		"Software development requires careful planning and execution.",
		"Database design is crucial for application performance.",
	}
	words         = []string{"alpha", "beta", "gamma", "delta", "epsilon", "zeta", "eta", "theta", "iota", "kappa", "lambda", "omega"}
	streets       = []string{"Main Street", "Oak Avenue", "Pine Road", "Maple Lane", "Cedar Boulevard", "Elm Street"}
	cities        = []string{"Springfield", "Riverside", "Franklin", "Greenville", "Bristol", "Clinton"}
	states        = []string{"CA", "NY", "TX", "WA", "IL", "OR"}
	companyStems  = []string{"Acme", "Globex", "Initech", "Umbrella", "Hooli", "Vandelay", "Stark", "Wayne"}
	companyKinds  = []string{"Inc", "LLC", "Group", "Labs", "Systems", "Holdings"}
)

var builtins = map[string]Func{
	"string":     genString,
	"integer":    genInteger,
	"decimal":    genDecimal,
	"boolean":    genBoolean,
	"date":       genDate,
	"datetime":   genDateTime,
	"name":       genName,
	"first_name": pick(firstNames),
	"last_name":  pick(lastNames),
	"email":      genEmail,
	"title":      pick(titles),
	"sentence":   pick(sentences),
	"word":       pick(words),
	"url":        genURL,
	"phone":      genPhone,
	"address":    genAddress,
	"company":    genCompany,
	"uuid":       genUUID,
	"bothify":    genBothify,
}

func pick(values []string) Func {
	return func(r *rand.Rand, _ Params) (any, error) {
		return values[r.IntN(len(values))], nil
	}
}

func genString(r *rand.Rand, p Params) (any, error) {
	n := p.Int(ParamLength, defaultStringLength)
	if n < 0 {
		return nil, fmt.Errorf("string length must not be negative, got %d", n)
	}
	b := make([]byte, n)
	for i := range b {
		b[i] = alphanumeric[r.IntN(len(alphanumeric))]
	}
	return string(b), nil
}

// intBounds applies the defaulting of the original datatypes: no bounds
// means [0, 100], a lone min extends 100 upwards, a lone max extends 100
// downwards but not above zero.
func intBounds(p Params) (int64, int64, error) {
	hasMin, hasMax := p.Has(ParamMin), p.Has(ParamMax)
	lo, hi := p.Int(ParamMin, 0), p.Int(ParamMax, 100)
	switch {
	case hasMin && !hasMax:
		hi = max(100+lo, 100)
	case !hasMin && hasMax:
		lo = min(hi-100, 0)
	}
	if lo > hi {
		return 0, 0, fmt.Errorf("min %d is greater than max %d", lo, hi)
	}
	return lo, hi, nil
}

func genInteger(r *rand.Rand, p Params) (any, error) {
	lo, hi, err := intBounds(p)
	if err != nil {
		return nil, err
	}
	span := uint64(hi) - uint64(lo) + 1
	if span == 0 {
		return int64(r.Uint64()), nil
	}
	return lo + int64(r.Uint64N(span)), nil
}

func genDecimal(r *rand.Rand, p Params) (any, error) {
	hasMin, hasMax := p.Has(ParamMin), p.Has(ParamMax)
	lo, hi := p.Float(ParamMin, 0), p.Float(ParamMax, 100)
	switch {
	case hasMin && !hasMax:
		hi = math.Max(100+lo, 100)
	case !hasMin && hasMax:
		lo = math.Min(hi-100, 0)
	}
	if lo > hi {
		return nil, fmt.Errorf("min %v is greater than max %v", lo, hi)
	}
	scale := math.Pow(10, float64(p.Int("precision", 2)))
	return math.Round((lo+r.Float64()*(hi-lo))*scale) / scale, nil
}

func genBoolean(r *rand.Rand, _ Params) (any, error) {
	return r.IntN(2) == 1, nil
}

func window(p Params) (time.Time, time.Time, error) {
	from, to := p.Time(ParamFrom, defaultFrom), p.Time(ParamTo, defaultTo)
	if to.Before(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("date window ends (%s) before it starts (%s)", to.Format(time.DateOnly), from.Format(time.DateOnly))
	}
	return from, to, nil
}

func genDate(r *rand.Rand, p Params) (any, error) {
	from, to, err := window(p)
	if err != nil {
		return nil, err
	}
	from = from.Truncate(24 * time.Hour)
	days := int64(to.Sub(from)/(24*time.Hour)) + 1
	return from.AddDate(0, 0, int(r.Int64N(days))), nil
}

func genDateTime(r *rand.Rand, p Params) (any, error) {
	from, to, err := window(p)
	if err != nil {
		return nil, err
	}
	secs := int64(to.Sub(from)/time.Second) + 1
	return from.Add(time.Duration(r.Int64N(secs)) * time.Second), nil
}

func genName(r *rand.Rand, _ Params) (any, error) {
	return firstNames[r.IntN(len(firstNames))] + " " + lastNames[r.IntN(len(lastNames))], nil
}

func genEmail(r *rand.Rand, _ Params) (any, error) {
	first := strings.ToLower(firstNames[r.IntN(len(firstNames))])
	last := strings.ToLower(lastNames[r.IntN(len(lastNames))])
	return fmt.Sprintf("%s.%s%d@%s", first, last, r.IntN(100000), domains[r.IntN(len(domains))]), nil
}

func genURL(r *rand.Rand, _ Params) (any, error) {
	return fmt.Sprintf("https://%s/page/%d", domains[r.IntN(len(domains))], r.IntN(100000)), nil
}

func genPhone(r *rand.Rand, _ Params) (any, error) {
	return fmt.Sprintf("+1-%03d-%03d-%04d", r.IntN(1000), r.IntN(1000), r.IntN(10000)), nil
}

func genAddress(r *rand.Rand, _ Params) (any, error) {
	return fmt.Sprintf("%d %s, %s, %s %05d",
		r.IntN(9999)+1,
		streets[r.IntN(len(streets))],
		cities[r.IntN(len(cities))],
		states[r.IntN(len(states))],
		r.IntN(100000),
	), nil
}

func genCompany(r *rand.Rand, _ Params) (any, error) {
	return companyStems[r.IntN(len(companyStems))] + " " + companyKinds[r.IntN(len(companyKinds))], nil
}

// sourceReader adapts a seeded source to io.Reader for uuid generation.
type sourceReader struct{ r *rand.Rand }

func (s sourceReader) Read(p []byte) (int, error) {
	for i := 0; i < len(p); i += 8 {
		v := s.r.Uint64()
		for j := 0; j < 8 && i+j < len(p); j++ {
			p[i+j] = byte(v >> (8 * j))
		}
	}
	return len(p), nil
}

func genUUID(r *rand.Rand, _ Params) (any, error) {
	id, err := uuid.NewRandomFromReader(sourceReader{r})
	if err != nil {
		return nil, err
	}
	return id.String(), nil
}

// genBothify replaces '#' with a digit and '?' with a letter.
func genBothify(r *rand.Rand, p Params) (any, error) {
	pattern := p.String(ParamPattern, defaultPattern)
	var b strings.Builder
	b.Grow(len(pattern))
	for _, ch := range pattern {
		switch ch {
		case '#':
			b.WriteByte(byte('0' + r.IntN(10)))
		case '?':
			b.WriteByte(letters[r.IntN(len(letters))])
		default:
			b.WriteRune(ch)
		}
	}
	return b.String(), nil
}
