package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNotification(t *testing.T) {
	body := `{
		"entity": "event",
		"event": "payment.captured",
		"payload": {"payment": {"entity": {
			"id": "pay_1",
			"email": "a@example.com",
			"contact": "+91999",
			"notes": {"user_id": 42, "franchise_id": "fr_1", "items": "[]", "vip": true}
		}}}
	}`

	n, err := ParseNotification([]byte(body))
	require.NoError(t, err)

	assert.True(t, n.IsPaymentCaptured())
	assert.Equal(t, "pay_1", n.PaymentID())
	notes := n.Payload.Payment.Entity.Notes
	assert.Equal(t, "42", notes.UserID)
	assert.Equal(t, "fr_1", notes.FranchiseID)
	assert.Equal(t, "[]", notes.Items)
}

func TestParseNotification_NotesVariants(t *testing.T) {
	tests := []struct {
		name  string
		notes string
		want  PaymentNotes
	}{
		{name: "empty array", notes: `[]`, want: PaymentNotes{}},
		{name: "null", notes: `null`, want: PaymentNotes{}},
		{name: "items as raw array", notes: `{"items":[{"id":"p1","quantity":1}]}`, want: PaymentNotes{Items: `[{"id":"p1","quantity":1}]`}},
		{name: "fractional number", notes: `{"user_id":1.5}`, want: PaymentNotes{UserID: "1.5"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := `{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_1","notes":` + tt.notes + `}}}}`
			n, err := ParseNotification([]byte(body))
			require.NoError(t, err)
			assert.Equal(t, tt.want, n.Payload.Payment.Entity.Notes)
		})
	}
}

func TestParseNotification_Invalid(t *testing.T) {
	for _, body := range []string{``, `{`, `[]`, `{"payload":{"payment":{"entity":{"notes":"text"}}}}`} {
		_, err := ParseNotification([]byte(body))
		assert.ErrorIs(t, err, ErrInvalidNotification, body)
	}
}
