package wa

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestNormalizeE164(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"bare digits", "5551234567", "+5551234567", false},
		{"already normalized", "+5551234567", "+5551234567", false},
		{"formatted", "+55 (11) 99999-9999", "+5511999999999", false},
		{"dots", "55.11.9999.9999", "+551199999999", false},
		{"too short", "123456789", "", true},
		{"too long", "1234567890123456", "", true},
		{"letters", "55abc1234567", "", true},
		{"empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeE164(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// Normalizar duas vezes tem que dar o mesmo resultado que uma vez
func TestNormalizeE164Idempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		digits := rapid.StringMatching(`[0-9]{10,15}`).Draw(t, "digits")

		once, err := NormalizeE164(digits)
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", digits, err)
		}

		twice, err := NormalizeE164(once)
		if err != nil {
			t.Fatalf("renormalization failed for %q: %v", once, err)
		}

		if once != twice {
			t.Fatalf("not idempotent: %q != %q", once, twice)
		}
	})
}

func TestParseUserJID(t *testing.T) {
	jid, err := ParseUserJID("+55 11 99999-9999")
	require.NoError(t, err)
	assert.Equal(t, "5511999999999", jid.User)
	assert.Equal(t, "s.whatsapp.net", jid.Server)

	_, err = ParseUserJID("not-a-phone")
	assert.Error(t, err)
}

func TestParseGroupJID(t *testing.T) {
	jid, err := ParseGroupJID("120363001234567890@g.us")
	require.NoError(t, err)
	assert.Equal(t, "g.us", jid.Server)

	jid, err = ParseGroupJID("120363001234567890")
	require.NoError(t, err)
	assert.Equal(t, "g.us", jid.Server)

	_, err = ParseGroupJID("5511999999999@s.whatsapp.net")
	assert.Error(t, err)
}

func TestParseDestinationJID(t *testing.T) {
	group, err := ParseDestinationJID("120363001234567890@g.us")
	require.NoError(t, err)
	assert.Equal(t, "g.us", group.Server)

	user, err := ParseDestinationJID("+5511999999999")
	require.NoError(t, err)
	assert.Equal(t, "s.whatsapp.net", user.Server)
}

func TestNumberFromJID(t *testing.T) {
	jid, err := ParseUserJID("5551234567")
	require.NoError(t, err)
	assert.Equal(t, "+5551234567", NumberFromJID(jid))
}
