package nlp

import "strings"

// Lemmatize reduces a single lower-cased token to its dictionary lemma.
// Irregular forms are resolved through the exception table; regular forms
// through suffix rules. Tokens the rules don't cover pass through unchanged.
func Lemmatize(token string) string {
	if lemma, ok := lemmaExceptions[token]; ok {
		return lemma
	}
	return stripSuffix(token)
}

// stripSuffix applies noun plural reduction rules in order.
// Rules are intentionally conservative: a wrong pass-through is harmless
// (the token stays in the vocabulary), a wrong reduction merges words.
func stripSuffix(token string) string {
	n := len(token)
	switch {
	case n > 4 && strings.HasSuffix(token, "ies"):
		return token[:n-3] + "y" // universities -> university
	case n > 4 && (strings.HasSuffix(token, "ches") ||
		strings.HasSuffix(token, "shes") ||
		strings.HasSuffix(token, "sses") ||
		strings.HasSuffix(token, "xes") ||
		strings.HasSuffix(token, "zes")):
		return token[:n-2] // branches -> branch
	case n > 3 && strings.HasSuffix(token, "s") &&
		!strings.HasSuffix(token, "ss") &&
		!strings.HasSuffix(token, "us") &&
		!strings.HasSuffix(token, "is"):
		return token[:n-1] // fees -> fee
	default:
		return token
	}
}

// lemmaExceptions is the fixed lexical resource: irregular forms the
// suffix rules cannot derive. Domain terms students actually type are
// listed alongside the common irregular nouns.
var lemmaExceptions = map[string]string{
	// irregular plurals
	"children": "child",
	"people":   "person",
	"men":      "man",
	"women":    "woman",
	"feet":     "foot",
	"teeth":    "tooth",
	"criteria": "criterion",
	"alumni":   "alumnus",
	"syllabi":  "syllabus",
	"campuses": "campus",
	"buses":    "bus",

	// words the -s rule would mangle
	"fees":    "fee",
	"classes": "class",
	"marks":   "mark",
	"always":  "always",
	"this":    "this",
	"was":     "was",
	"is":      "is",
	"has":     "has",
	"its":     "its",
	"as":      "as",

	// domain spellings
	"admissions":   "admission",
	"eligibility":  "eligibility",
	"scholarships": "scholarship",
	"hostels":      "hostel",
	"placements":   "placement",
	"courses":      "course",
	"branches":     "branch",
	"facilities":   "facility",
	"libraries":    "library",
	"laboratories": "laboratory",
	"timings":      "timing",
}
