package models

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestValidSessionID(t *testing.T) {
	assert.True(t, ValidSessionID("loja-centro"))
	assert.True(t, ValidSessionID("Org_42"))
	assert.True(t, ValidSessionID("a"))
	assert.True(t, ValidSessionID(strings.Repeat("x", 100)))

	assert.False(t, ValidSessionID(""))
	assert.False(t, ValidSessionID(strings.Repeat("x", 101)))
	assert.False(t, ValidSessionID("com espaço"))
	assert.False(t, ValidSessionID("a/b"))
	assert.False(t, ValidSessionID("a.b"))
}

func TestSessionValidate(t *testing.T) {
	session := &Session{SessionID: "loja-centro", OrganizationID: uuid.New()}
	assert.NoError(t, session.Validate())

	assert.Error(t, (&Session{SessionID: "bad id", OrganizationID: uuid.New()}).Validate())
	assert.Error(t, (&Session{SessionID: "loja-centro"}).Validate())
}
