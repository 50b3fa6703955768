package objects

import (
	"strings"

	"github.com/google/uuid"
)

const (
	druidLetters = "bcdfghjkmnpqrstvwxyz"
	// L is a letter, D a digit.
	druidPattern = "LLDDDLLDDDD"
)

// IDMinter hands out identifiers for newly registered objects.
type IDMinter func() string

// MintDruid returns a random identifier of the form druid:bc123df4567.
func MintDruid() string {
	entropy := uuid.New()
	var b strings.Builder
	b.WriteString("druid:")
	for i := 0; i < len(druidPattern); i++ {
		v := int(entropy[i])
		if druidPattern[i] == 'L' {
			b.WriteByte(druidLetters[v%len(druidLetters)])
		} else {
			b.WriteByte(byte('0' + v%10))
		}
	}
	return b.String()
}

// ValidDruid reports whether id has the druid:bc123df4567 shape.
func ValidDruid(id string) bool {
	rest, ok := strings.CutPrefix(id, "druid:")
	if !ok || len(rest) != len(druidPattern) {
		return false
	}
	for i := 0; i < len(rest); i++ {
		c := rest[i]
		if druidPattern[i] == 'L' {
			if strings.IndexByte(druidLetters, c) < 0 {
				return false
			}
		} else if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
