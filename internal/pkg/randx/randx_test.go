package randx

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttachmentNameKeepsExtension(t *testing.T) {
	now := time.UnixMilli(1767225600000)

	name, err := AttachmentName(now, "Holiday Photo.PNG")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(name, "1767225600000-"), name)
	assert.True(t, strings.HasSuffix(name, ".png"), name)
	assert.True(t, IsValidAttachmentName(name))

	suffix := strings.TrimSuffix(strings.TrimPrefix(name, "1767225600000-"), ".png")
	assert.Len(t, suffix, AttachmentSuffixLength)
}

func TestAttachmentNameFallsBackToBin(t *testing.T) {
	now := time.UnixMilli(1)

	for _, original := range []string{"README", "archive.tar.g/z", "x.reallylongextension", "weird.p%g"} {
		name, err := AttachmentName(now, original)
		require.NoError(t, err)
		assert.True(t, strings.HasSuffix(name, ".bin"), "%s -> %s", original, name)
	}
}

func TestAttachmentNamesAreDistinct(t *testing.T) {
	now := time.Now()
	a, err := AttachmentName(now, "a.txt")
	require.NoError(t, err)
	b, err := AttachmentName(now, "a.txt")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestIsValidAttachmentName(t *testing.T) {
	assert.False(t, IsValidAttachmentName("../etc/passwd"))
	assert.False(t, IsValidAttachmentName("123-abc.png/../../x"))
	assert.False(t, IsValidAttachmentName(""))
	assert.False(t, IsValidAttachmentName("123-abcD.jpg"), "short suffixes are guessable")
	assert.True(t, IsValidAttachmentName("123-abcDefGhijKlmnOpqrStuv.jpg"))
}

func TestIDsAreUUIDs(t *testing.T) {
	_, err := uuid.Parse(MessageID())
	assert.NoError(t, err)
	_, err = uuid.Parse(ConnectionID())
	assert.NoError(t, err)
}
