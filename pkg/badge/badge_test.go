package badge

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-events-api/pkg/qr"
)

func sampleDocument(t *testing.T) Document {
	t.Helper()
	png, err := qr.Encode("token-value", 128)
	require.NoError(t, err)
	return Document{
		EventTitle:     "Engineering Career Fair",
		EventLocation:  "Main Hall",
		StartsAt:       time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC),
		EndsAt:         time.Date(2025, 3, 14, 17, 0, 0, 0, time.UTC),
		HolderName:     "Dana Putri",
		OrganizerName:  "Student Affairs Office",
		OrganizerEmail: "events@campus.example",
		QRPNG:          png,
	}
}

func TestRenderProducesPDF(t *testing.T) {
	out, err := Render(sampleDocument(t))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestRenderDeterministic(t *testing.T) {
	doc := sampleDocument(t)
	first, err := Render(doc)
	require.NoError(t, err)
	second, err := Render(doc)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestRenderRequiredFields(t *testing.T) {
	doc := sampleDocument(t)
	doc.QRPNG = nil
	_, err := Render(doc)
	assert.Error(t, err)

	doc = sampleDocument(t)
	doc.HolderName = ""
	_, err = Render(doc)
	assert.Error(t, err)

	doc = sampleDocument(t)
	doc.EventTitle = ""
	_, err = Render(doc)
	assert.Error(t, err)
}
