package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestAuthStateRoundTrip(t *testing.T) {
	original := &AuthState{
		JID:            "5511999999999.0:1@s.whatsapp.net",
		Platform:       "android",
		PushName:       "Atendimento",
		RegistrationID: 42,
		NoiseKey:       TaggedBytes{0x00, 0x01, 0xFF, 0xFE, 0x7F},
		IdentityKey:    TaggedBytes{0xDE, 0xAD, 0xBE, 0xEF},
		SignedPreKey:   TaggedBytes{0x00},
		AdvSecretKey:   TaggedBytes{0xCA, 0xFE},
	}

	blob, err := original.Encode()
	require.NoError(t, err)

	decoded, err := DecodeAuthState(blob)
	require.NoError(t, err)

	assert.Equal(t, original.JID, decoded.JID)
	assert.Equal(t, original.RegistrationID, decoded.RegistrationID)
	assert.Equal(t, []byte(original.NoiseKey), []byte(decoded.NoiseKey))
	assert.Equal(t, []byte(original.IdentityKey), []byte(decoded.IdentityKey))
	assert.Equal(t, []byte(original.SignedPreKey), []byte(decoded.SignedPreKey))
	assert.Equal(t, []byte(original.AdvSecretKey), []byte(decoded.AdvSecretKey))
}

// Qualquer sequência de bytes tem que sobreviver ao round-trip por JSON
func TestTaggedBytesRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		raw := rapid.SliceOfN(rapid.Byte(), 0, 256).Draw(t, "raw")

		state := &AuthState{JID: "test", NoiseKey: TaggedBytes(raw)}

		blob, err := state.Encode()
		if err != nil {
			t.Fatalf("encode failed: %v", err)
		}

		decoded, err := DecodeAuthState(blob)
		if err != nil {
			t.Fatalf("decode failed: %v", err)
		}

		if len(raw) == 0 {
			if len(decoded.NoiseKey) != 0 {
				t.Fatalf("expected empty key, got %d bytes", len(decoded.NoiseKey))
			}
			return
		}

		if string(decoded.NoiseKey) != string(raw) {
			t.Fatalf("bytes corrupted in round-trip")
		}
	})
}

func TestTaggedBytesWireFormat(t *testing.T) {
	data, err := json.Marshal(TaggedBytes{0x01, 0x02})
	require.NoError(t, err)
	assert.JSONEq(t, `{"$bytes":"AQI="}`, string(data))

	var decoded TaggedBytes
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, TaggedBytes{0x01, 0x02}, decoded)
}

func TestTaggedBytesNull(t *testing.T) {
	var tb TaggedBytes
	data, err := json.Marshal(tb)
	require.NoError(t, err)
	assert.Equal(t, "null", string(data))

	var decoded TaggedBytes
	require.NoError(t, json.Unmarshal([]byte("null"), &decoded))
	assert.Nil(t, decoded)
}

func TestDecodeAuthStateRejectsGarbage(t *testing.T) {
	_, err := DecodeAuthState(nil)
	assert.Error(t, err)

	_, err = DecodeAuthState(Blob("not json"))
	assert.Error(t, err)
}
