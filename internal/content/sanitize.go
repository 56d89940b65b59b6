package content

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	scriptElement = regexp.MustCompile(`(?is)<script\b.*?</script\s*>`)
	tagMarkup     = regexp.MustCompile(`<[^>]*>`)

	// U+200B..U+200D and the BOM are used to split words past keyword filters
	zeroWidth = strings.NewReplacer(
		"\u200b", "",
		"\u200c", "",
		"\u200d", "",
		"\ufeff", "",
	)
)

// Sanitize strips markup, script elements and zero-width characters from
// user input, collapses whitespace and normalizes to NFC.
// Sanitize(Sanitize(x)) == Sanitize(x) for every x.
func Sanitize(input string) string {
	if input == "" {
		return ""
	}

	s := strings.ToValidUTF8(input, "")
	s = zeroWidth.Replace(s)
	s = scriptElement.ReplaceAllString(s, "")
	// A single pass is enough: any '<' left behind has no '>' after it
	s = tagMarkup.ReplaceAllString(s, "")
	s = strings.Join(strings.Fields(s), " ")

	return norm.NFC.String(s)
}
