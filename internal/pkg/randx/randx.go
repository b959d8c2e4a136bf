/*
Package randx provides functions for generating cryptographically secure random strings and unique identifiers.

It is used to generate Base62 area titles and guest names, standard UUID message IDs,
and to validate client-supplied names and titles.
*/
package randx

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	// Base62Chars defines the character set used for Base62 encoding (0-9, A-Z, a-z).
	Base62Chars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

	// Base62Len is the total number of characters in the Base62 character set (62).
	Base62Len = int64(len(Base62Chars))

	// AreaTitleLength is the length of a generated area title.
	AreaTitleLength = 6

	// GuestNamePrefix starts every generated guest name.
	GuestNamePrefix = "Guest_"

	// MinNameLength and MaxNameLength bound user names.
	MinNameLength = 2
	MaxNameLength = 24

	// MaxTitleLength bounds user-chosen area titles.
	MaxTitleLength = 48
)

func base62(n int) (string, error) {
	result := make([]byte, n)

	for i := range n {
		num, err := rand.Int(rand.Reader, big.NewInt(Base62Len))
		if err != nil {
			return "", fmt.Errorf("failed to generate random number: %w", err)
		}
		result[i] = Base62Chars[num.Int64()]
	}

	return string(result), nil
}

// AreaTitle generates a random Base62 area title of length AreaTitleLength.
func AreaTitle() (string, error) {
	return base62(AreaTitleLength)
}

// GuestName generates a random guest name with the GuestNamePrefix.
func GuestName() (string, error) {
	suffix, err := base62(6)
	if err != nil {
		return "", err
	}
	return GuestNamePrefix + suffix, nil
}

// MessageID generates a standard UUID v4 string to serve as a unique identifier for a message.
func MessageID() string {
	return uuid.New().String()
}

// IsValidName checks a user name: MinNameLength to MaxNameLength characters drawn
// from letters, digits, '_' and '-'. The '@' separator of qualified names is never allowed.
func IsValidName(name string) bool {
	n := utf8.RuneCountInString(name)
	if n < MinNameLength || n > MaxNameLength {
		return false
	}

	for _, r := range name {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' && r != '-' {
			return false
		}
	}
	return true
}

// IsValidAreaTitle checks an area title: non-blank, at most MaxTitleLength
// characters, printable, without surrounding whitespace.
func IsValidAreaTitle(title string) bool {
	if strings.TrimSpace(title) != title || title == "" {
		return false
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return false
	}

	for _, r := range title {
		if !unicode.IsPrint(r) {
			return false
		}
	}
	return true
}
