// Package identifier classifies the strings callers use to address a recipient.
package identifier

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"regexp"
	"strings"
	"time"
)

// Kind is the interpretation of an identifier string
type Kind int

const (
	Invalid Kind = iota
	Email
	DirectoryID
	StableUUID
)

func (k Kind) String() string {
	switch k {
	case Email:
		return "email"
	case DirectoryID:
		return "id"
	case StableUUID:
		return "uuid"
	default:
		return "invalid"
	}
}

var (
	directoryIDPattern = regexp.MustCompile(`^[0-9a-fA-F]{24}$`)
	uuidPattern        = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)
)

// Classify decides how a value addresses a recipient. Anything containing
// "@" is an email, even if it would otherwise match another format.
func Classify(value string) Kind {
	v := strings.TrimSpace(value)
	switch {
	case v == "":
		return Invalid
	case strings.Contains(v, "@"):
		return Email
	case directoryIDPattern.MatchString(v):
		return DirectoryID
	case uuidPattern.MatchString(v):
		return StableUUID
	default:
		return Invalid
	}
}

// IsDirectoryID reports whether v is in the directory's native id format
func IsDirectoryID(v string) bool {
	return directoryIDPattern.MatchString(strings.TrimSpace(v))
}

// IsStableUUID reports whether v is a canonical hyphenated UUID
func IsStableUUID(v string) bool {
	return uuidPattern.MatchString(strings.TrimSpace(v))
}

// NewDirectoryID returns a 24 hex character id: 4 bytes of unix seconds
// followed by 8 random bytes, so ids sort roughly by creation time.
func NewDirectoryID() string {
	var b [12]byte
	binary.BigEndian.PutUint32(b[:4], uint32(time.Now().Unix()))
	if _, err := rand.Read(b[4:]); err != nil {
		panic("identifier: crypto/rand failed: " + err.Error())
	}
	return hex.EncodeToString(b[:])
}
