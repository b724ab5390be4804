package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		region  string
		want    string
		wantErr bool
	}{
		{name: "already e164", raw: "+15551234567", region: "+1", want: "+15551234567"},
		{name: "separators stripped", raw: "+1 (555) 123-4567", region: "+1", want: "+15551234567"},
		{name: "local number gets region", raw: "5551234567", region: "+1", want: "+15551234567"},
		{name: "leading zero dropped for region", raw: "07911123456", region: "+44", want: "+447911123456"},
		{name: "double zero international prefix", raw: "0015551234567", region: "+44", want: "+15551234567"},
		{name: "empty", raw: "", region: "+1", wantErr: true},
		{name: "letters", raw: "555-CALL-NOW", region: "+1", wantErr: true},
		{name: "too short", raw: "+12345", region: "+1", wantErr: true},
		{name: "too long", raw: "+1234567890123456", region: "+1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizePhone(tt.raw, tt.region)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMockSMSServiceRecordsMessages(t *testing.T) {
	mock := NewMockSMSService()

	result, err := mock.SendSMS(context.Background(), "+15551234567", "hello")
	require.NoError(t, err)
	assert.True(t, result.Accepted)
	require.NotNil(t, result.ExternalID)
	assert.Equal(t, "sms-1", *result.ExternalID)
	require.Len(t, mock.SentMessages, 1)
	assert.Equal(t, "hello", mock.SentMessages[0].Message)
}

func TestMockSMSServicePlaceCallReturnsSid(t *testing.T) {
	mock := NewMockSMSService()

	result, err := mock.PlaceCall(context.Background(), "+15551234567", "https://example.com/script/abc")
	require.NoError(t, err)
	assert.True(t, result.Accepted)
	require.Len(t, mock.PlacedCalls, 1)
	assert.Equal(t, *result.ExternalID, mock.PlacedCalls[0].SID)
	assert.Equal(t, "https://example.com/script/abc", mock.PlacedCalls[0].ScriptURL)
}

func TestMockSMSServiceScriptedRejection(t *testing.T) {
	mock := NewMockSMSService()
	mock.NextResult = &SendResult{ErrorMessage: "provider rejected request: invalid number (400)", Permanent: true}

	result, err := mock.SendSMS(context.Background(), "+15551234567", "hello")
	require.NoError(t, err)
	assert.False(t, result.Accepted)
	assert.True(t, result.Permanent)
	assert.Empty(t, mock.SentMessages)
}

func TestPermanentStatus(t *testing.T) {
	overrides := []int{408, 429}

	assert.True(t, PermanentStatus(400, overrides))
	assert.True(t, PermanentStatus(404, overrides))
	assert.True(t, PermanentStatus(422, nil))
	assert.False(t, PermanentStatus(408, overrides))
	assert.False(t, PermanentStatus(429, overrides))
	assert.False(t, PermanentStatus(500, overrides))
	assert.False(t, PermanentStatus(503, nil))
}
