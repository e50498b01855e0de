/*
Package randx generates identifiers and random tokens.

Message and connection ids are UUID v4; attachment names are time-derived so they
sort by upload time, with a random suffix to keep concurrent uploads apart.
*/
package randx

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// Base62Chars defines the character set used for Base62 encoding (0-9, A-Z, a-z).
	Base62Chars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

	// Base62Len is the number of characters in Base62Chars.
	Base62Len = int64(len(Base62Chars))

	// AttachmentSuffixLength is the number of random Base62 characters after the
	// timestamp. Names act as download capabilities, so the suffix carries ~130 bits.
	AttachmentSuffixLength = 22

	// maxExtLength bounds the extension copied from a client-supplied file name.
	maxExtLength = 10
)

var extPattern = regexp.MustCompile(`^\.[a-z0-9]+$`)

// MessageID generates a UUID v4 string for a message.
func MessageID() string {
	return uuid.New().String()
}

// ConnectionID generates a UUID v4 string for a live connection.
func ConnectionID() string {
	return uuid.New().String()
}

// Base62 returns n cryptographically random Base62 characters.
func Base62(n int) (string, error) {
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

// AttachmentName derives a storage name from the upload time and the
// extension of the client-supplied name, e.g. "1767225600000-3kTMd9uQw2pZxV7bHf0aLc.png".
// Names without a usable extension get ".bin".
func AttachmentName(now time.Time, originalName string) (string, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	if len(ext) > maxExtLength || !extPattern.MatchString(ext) {
		ext = ".bin"
	}

	suffix, err := Base62(AttachmentSuffixLength)
	if err != nil {
		return "", err
	}

	return strconv.FormatInt(now.UnixMilli(), 10) + "-" + suffix + ext, nil
}

var attachmentNamePattern = regexp.MustCompile(`^[0-9]+-[0-9A-Za-z]{22}\.[a-z0-9]+$`)

// IsValidAttachmentName reports whether name has the shape AttachmentName produces.
// It rejects path separators and traversal.
func IsValidAttachmentName(name string) bool {
	return len(name) <= 64 && attachmentNamePattern.MatchString(name)
}
