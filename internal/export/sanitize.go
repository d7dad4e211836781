package export

import "strings"

const forbidden = `:\/*?"<>|`

// Sanitize makes name safe for use in a file name: forbidden characters
// become "_", runs of "_" collapse to one, and leading or trailing "_" are
// trimmed. Spaces are kept. Sanitize(Sanitize(x)) == Sanitize(x).
func Sanitize(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	lastUnderscore := false
	for _, r := range name {
		if strings.ContainsRune(forbidden, r) {
			r = '_'
		}
		if r == '_' {
			if lastUnderscore {
				continue
			}
			lastUnderscore = true
		} else {
			lastUnderscore = false
		}
		b.WriteRune(r)
	}
	return strings.Trim(b.String(), "_")
}
