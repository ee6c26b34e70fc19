package gatelist

import "regexp"

// validGamertagRegex matches Xbox-style gamertags: 3-16 ASCII letters, digits and spaces.
var validGamertagRegex = regexp.MustCompile(`^[A-Za-z0-9 ]{3,16}$`)

// ValidGamertag reports whether name is an acceptable gamertag.
// Matching is exact; no trimming or case folding is applied.
func ValidGamertag(name string) bool {
	return validGamertagRegex.MatchString(name)
}
