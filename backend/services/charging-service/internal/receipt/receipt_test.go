package receipt

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AmanYize/ev-charge/backend/services/charging-service/internal/models"
)

func TestRenderPDF(t *testing.T) {
	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	out, err := RenderPDF(models.SessionRecord{
		ID:           "sess-1",
		StationID:    "1",
		StationName:  "Bole Station",
		ConnectorID:  "DC-001",
		EnergyKWh:    1,
		Cost:         15,
		PricePerKWh:  15,
		Currency:     "ETB",
		BalanceAfter: 985,
		Outcome:      models.OutcomeCompleted,
		ReceiptID:    "rcpt-1",
		StartedAt:    start,
		EndedAt:      start.Add(100 * time.Second),
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
	assert.Greater(t, len(out), 500)
}
