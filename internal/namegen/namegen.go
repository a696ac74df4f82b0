// Package namegen generates the adjective+noun agent names used when a
// caller registers without supplying one.
package namegen

import (
	"crypto/rand"
	"math/big"
	"regexp"
)

// adjectives and nouns are the two fixed 16-word vocabularies. Changing
// either list is a compatibility break for stable agent identity, per the
// public interface contract.
var adjectives = [16]string{
	"blue", "green", "amber", "crimson", "violet", "silver", "golden", "copper",
	"scarlet", "cobalt", "ivory", "emerald", "obsidian", "coral", "indigo", "bronze",
}

var nouns = [16]string{
	"lake", "river", "castle", "forest", "summit", "harbor", "canyon", "meadow",
	"glacier", "island", "valley", "ridge", "delta", "grove", "cove", "plateau",
}

// Generate samples one adjective and one noun uniformly and concatenates
// them with no separator (e.g. "BlueLake"). Collisions with an existing
// name within a project are tolerated by design; callers that need
// uniqueness retry at a higher layer.
func Generate() string {
	a := adjectives[randIndex(len(adjectives))]
	n := nouns[randIndex(len(nouns))]
	return capitalize(a) + capitalize(n)
}

func randIndex(n int) int {
	i, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		// crypto/rand failure is not recoverable; fall back to the first
		// entry rather than panic mid-registration.
		return 0
	}
	return int(i.Int64())
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return string(s[0]-32) + s[1:]
}

// validName matches names of ASCII letters, digits and underscores that
// start with a letter (upper or lower case), the shape used by generated
// and caller-supplied names alike.
var validName = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// reserved names are never valid agent names.
var reserved = map[string]bool{
	"daemon": true, "system": true, "hivemail": true, "all": true, "broadcast": true,
}

// Valid reports whether name is an acceptable agent name: non-empty,
// alphanumeric/underscore, and not a reserved word.
func Valid(name string) bool {
	if name == "" || reserved[name] {
		return false
	}
	return validName.MatchString(name)
}
