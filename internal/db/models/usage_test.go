package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPeriodStartFor(t *testing.T) {
	at := time.Date(2026, 8, 24, 15, 30, 45, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), PeriodStartFor(at))

	// Fuso diferente não muda o período: tudo em UTC
	saoPaulo := time.FixedZone("BRT", -3*3600)
	lastDay := time.Date(2026, 8, 31, 22, 0, 0, 0, saoPaulo)
	assert.Equal(t, time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC), PeriodStartFor(lastDay))

	firstInstant := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, firstInstant, PeriodStartFor(firstInstant))
}
