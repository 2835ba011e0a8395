// Package parsefields pulls patient identity fields out of extracted
// document text with ordered patterns. Everything here is deterministic:
// same text in, same candidates out.
package parsefields

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// Canonical field names, in prompt and correction order.
const (
	FieldFirstName   = "first_name"
	FieldLastName    = "last_name"
	FieldDateOfBirth = "date_of_birth"
)

// FieldNames returns the canonical field order.
func FieldNames() []string {
	return []string{FieldFirstName, FieldLastName, FieldDateOfBirth}
}

// Fields holds the candidate values for one document. Empty string means
// the field was not found.
type Fields struct {
	FirstName   string
	LastName    string
	DateOfBirth string
}

// Empty reports whether no field was found at all.
func (f Fields) Empty() bool {
	return f.FirstName == "" && f.LastName == "" && f.DateOfBirth == ""
}

// Value returns the field by canonical name.
func (f Fields) Value(name string) string {
	switch name {
	case FieldFirstName:
		return f.FirstName
	case FieldLastName:
		return f.LastName
	case FieldDateOfBirth:
		return f.DateOfBirth
	}
	return ""
}

// SetValue overwrites the field by canonical name.
func (f *Fields) SetValue(name, v string) {
	switch name {
	case FieldFirstName:
		f.FirstName = v
	case FieldLastName:
		f.LastName = v
	case FieldDateOfBirth:
		f.DateOfBirth = v
	}
}

var collapseWS = regexp.MustCompile(`\s+`)

// namePatterns are tried in order until both names are set. A first name
// found by one pattern survives into the next, so a label-only hit can be
// completed by a later heuristic.
var namePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?im)(?:patient\s+name|name|patient):\s*([A-Za-z]+(?:\s+[A-Za-z]+)*)`),
	regexp.MustCompile(`(?im)([A-Z][a-z]+)\s+([A-Z][a-z]+)(?:\s+(?:DOB|Date\s+of\s+Birth))`),
	regexp.MustCompile(`(?im)(?:^|\n)([A-Z][a-z]+\s+[A-Z][a-z]+)(?:\s|$)`),
	regexp.MustCompile(`(?im)(?:Mr\.|Mrs\.|Ms\.|Dr\.)\s+([A-Z][a-z]+\s+[A-Z][a-z]+)`),
}

// commaName catches "Lastname, Firstname" headers. Deliberately
// case-sensitive so it only fires on properly cased names.
var commaName = regexp.MustCompile(`([A-Z][a-z]+),\s+([A-Z][a-z]+)`)

var dobPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:DOB|Date\s+of\s+Birth|Birth\s+Date):\s*(\d{1,2}[/-]\d{1,2}[/-]\d{4})`),
	regexp.MustCompile(`(?i)(?:DOB|Date\s+of\s+Birth|Birth\s+Date):\s*(\d{4}[/-]\d{1,2}[/-]\d{1,2})`),
	regexp.MustCompile(`(?i)(\d{1,2}[/-]\d{1,2}[/-]\d{4})`),
	regexp.MustCompile(`(?i)(\d{4}[/-]\d{1,2}[/-]\d{1,2})`),
	regexp.MustCompile(`(?i)(?:born|birth).*?(\d{1,2}[/-]\d{1,2}[/-]\d{4})`),
}

var dateSep = regexp.MustCompile(`[/-]`)
var anyDigit = regexp.MustCompile(`\d`)

// Extract runs both extractors over the text.
func Extract(text string) Fields {
	first, last := ExtractName(text)
	return Fields{
		FirstName:   first,
		LastName:    last,
		DateOfBirth: ExtractDOB(text),
	}
}

// ExtractName finds the patient's first and last name. OCR output is noisy,
// so single-capture matches get their trailing tokens scanned for artifacts
// (digits or the literals "person"/"number"/"id"); the scan stops at the
// first artifact and the tokens before it become the last name.
func ExtractName(text string) (first, last string) {
	text = collapseWS.ReplaceAllString(text, " ")

	for _, re := range namePatterns {
		matches := re.FindAllStringSubmatch(text, -1)
		if len(matches) == 0 {
			continue
		}

		if re.NumSubexp() >= 2 {
			m := matches[0]
			first = titleCase(strings.TrimSpace(m[1]))
			last = titleCase(strings.TrimSpace(m[2]))
		} else {
			for _, m := range matches {
				parts := strings.Fields(strings.TrimSpace(m[1]))
				if len(parts) < 2 {
					continue
				}
				first = titleCase(parts[0])
				var kept []string
				for _, p := range parts[1:] {
					if artifactToken(p) {
						break
					}
					kept = append(kept, p)
				}
				if len(kept) > 0 {
					last = titleCase(strings.Join(kept, " "))
				}
				break
			}
		}

		if first != "" && last != "" {
			break
		}
	}

	// Common medical header format: "SMITH, JOHN" / "Smith, John".
	if first == "" || last == "" {
		if m := commaName.FindStringSubmatch(text); m != nil {
			last = titleCase(m[1])
			first = titleCase(m[2])
		}
	}

	return first, last
}

// ExtractDOB finds a plausible date of birth. Each pattern only gets to
// offer its first match; separators normalize to "/" before the
// plausibility check.
func ExtractDOB(text string) string {
	text = collapseWS.ReplaceAllString(text, " ")

	for _, re := range dobPatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		candidate := dateSep.ReplaceAllString(strings.TrimSpace(m[1]), "/")
		if plausibleDate(candidate) {
			return candidate
		}
	}
	return ""
}

func artifactToken(s string) bool {
	if anyDigit.MatchString(s) {
		return true
	}
	switch strings.ToLower(s) {
	case "person", "number", "id":
		return true
	}
	return false
}

// plausibleDate accepts exactly three integer fields read as M/D/Y when the
// last field is a 4-digit year, or Y/M/D when the first is. Month 1-12,
// day 1-31, year 1900-2030.
func plausibleDate(s string) bool {
	parts := strings.Split(s, "/")
	if len(parts) != 3 {
		return false
	}
	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return false
		}
		nums[i] = n
	}

	if len(parts[2]) == 4 {
		month, day, year := nums[0], nums[1], nums[2]
		if 1 <= month && month <= 12 && 1 <= day && day <= 31 && 1900 <= year && year <= 2030 {
			return true
		}
	}
	if len(parts[0]) == 4 {
		year, month, day := nums[0], nums[1], nums[2]
		if 1900 <= year && year <= 2030 && 1 <= month && month <= 12 && 1 <= day && day <= 31 {
			return true
		}
	}
	return false
}

// titleCase uppercases the first letter of every word and lowercases the
// rest, word by word.
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(strings.ToLower(w))
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
