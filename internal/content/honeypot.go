package content

import "math/rand/v2"

// HoneypotFieldNames is the pool the decoy field name is drawn from, so
// static bot selectors cannot skip the field
var HoneypotFieldNames = []string{
	"website",
	"url",
	"homepage",
	"link",
	"company_url",
	"business_site",
}

// GenerateHoneypotFieldName picks a decoy field name for one page load
func GenerateHoneypotFieldName() string {
	return HoneypotFieldNames[rand.IntN(len(HoneypotFieldNames))]
}

// honeypotTripped reports whether the decoy field was filled. Any value,
// even whitespace, is proof of automation.
func honeypotTripped(value string) bool {
	return len(value) > 0
}
