package models

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// TaggedBytes serializa campos binários como {"$bytes":"<base64>"} para que
// o blob de credenciais sobreviva a um round-trip por JSON sem perder bytes.
type TaggedBytes []byte

type taggedBytesWire struct {
	Bytes string `json:"$bytes"`
}

func (t TaggedBytes) MarshalJSON() ([]byte, error) {
	if t == nil {
		return []byte("null"), nil
	}
	return json.Marshal(taggedBytesWire{Bytes: base64.StdEncoding.EncodeToString(t)})
}

func (t *TaggedBytes) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*t = nil
		return nil
	}

	var wire taggedBytesWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return fmt.Errorf("invalid tagged bytes: %w", err)
	}

	raw, err := base64.StdEncoding.DecodeString(wire.Bytes)
	if err != nil {
		return fmt.Errorf("invalid tagged bytes payload: %w", err)
	}

	*t = raw
	return nil
}

// AuthState é o snapshot das credenciais de uma sessão: o suficiente para
// retomar o device no container do whatsmeow sem novo QR. O conteúdo é
// opaco para todo o resto do processo.
type AuthState struct {
	JID            string      `json:"jid"`
	Platform       string      `json:"platform,omitempty"`
	PushName       string      `json:"push_name,omitempty"`
	RegistrationID uint32      `json:"registration_id"`
	NoiseKey       TaggedBytes `json:"noise_key,omitempty"`
	IdentityKey    TaggedBytes `json:"identity_key,omitempty"`
	SignedPreKey   TaggedBytes `json:"signed_pre_key,omitempty"`
	AdvSecretKey   TaggedBytes `json:"adv_secret_key,omitempty"`
}

// Encode serializa o snapshot para o blob persistido na sessão
func (a *AuthState) Encode() (Blob, error) {
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("failed to encode auth state: %w", err)
	}
	return Blob(data), nil
}

// DecodeAuthState reconstrói o snapshot a partir do blob persistido
func DecodeAuthState(blob Blob) (*AuthState, error) {
	if len(blob) == 0 {
		return nil, fmt.Errorf("empty auth state blob")
	}

	state := &AuthState{}
	if err := json.Unmarshal(blob, state); err != nil {
		return nil, fmt.Errorf("failed to decode auth state: %w", err)
	}

	return state, nil
}
