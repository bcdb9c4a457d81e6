package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyOfPrefersServerID(t *testing.T) {
	at := time.Unix(100, 0).UTC()
	a := Message{ID: "m1", SenderID: "u1", RecipientID: "u2", Text: "hi", CreatedAt: at}
	b := Message{ID: "m1", SenderID: "other", RecipientID: "u2", Text: "different body", CreatedAt: at.Add(time.Hour)}

	// Same id, same logical message, regardless of the rest.
	assert.Equal(t, KeyOf(a), KeyOf(b))
	assert.True(t, KeyOf(a).Identified())
}

func TestKeyOfFingerprintFields(t *testing.T) {
	at := time.Unix(100, 0).UTC()
	base := Message{SenderID: "u1", RecipientID: "u2", Text: "hi", CreatedAt: at}
	require.False(t, KeyOf(base).Identified())
	assert.Equal(t, KeyOf(base), KeyOf(base))

	bySender := base
	bySender.SenderID = "u9"
	assert.NotEqual(t, KeyOf(base), KeyOf(bySender))

	byText := base
	byText.Text = "hi "
	assert.NotEqual(t, KeyOf(base), KeyOf(byText))

	byTime := base
	byTime.CreatedAt = at.Add(time.Nanosecond)
	assert.NotEqual(t, KeyOf(base), KeyOf(byTime))
}

// A joined-string key would collide when delimiter characters appear
// inside the text; the struct key must not.
func TestKeyOfImmuneToDelimiterContent(t *testing.T) {
	at := time.Unix(100, 0).UTC()
	a := Message{SenderID: "u1", RecipientID: "u2", Text: "x|y", CreatedAt: at}
	b := Message{SenderID: "u1", RecipientID: "u2|y", Text: "x", CreatedAt: at}
	assert.NotEqual(t, KeyOf(a), KeyOf(b))
}

func TestKeyOfTrimsID(t *testing.T) {
	a := Message{ID: " m1 "}
	b := Message{ID: "m1"}
	assert.Equal(t, KeyOf(a), KeyOf(b))
}
