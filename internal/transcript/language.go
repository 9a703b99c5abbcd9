package transcript

import (
	"strings"

	"golang.org/x/text/language"
)

// MatchLanguage reports whether got belongs to the language family of want,
// so "en" accepts "en-US" and "en_GB".
func MatchLanguage(got, want string) bool {
	g, err := language.Parse(strings.ReplaceAll(got, "_", "-"))
	if err != nil {
		return strings.HasPrefix(strings.ToLower(got), strings.ToLower(want))
	}
	w, err := language.Parse(strings.ReplaceAll(want, "_", "-"))
	if err != nil {
		return false
	}
	gb, _ := g.Base()
	wb, _ := w.Base()
	return gb == wb
}
