package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageBuilder_Build(t *testing.T) {
	payload := map[string]string{"booking_id": "HB-1"}

	msg, err := NewMessage().
		WithKey("HB-1").
		WithValue(payload).
		WithEventType("booking.created").
		WithSource("hallbook-server").
		Build()
	require.NoError(t, err)

	assert.Equal(t, "HB-1", msg.Key)
	assert.Equal(t, "booking.created", msg.GetEventType())
	assert.NotEmpty(t, msg.GetEventID(), "event id should be generated")
	assert.NotEmpty(t, msg.Headers[HeaderTimestamp])

	var decoded map[string]string
	require.NoError(t, msg.DecodeValue(&decoded))
	assert.Equal(t, "HB-1", decoded["booking_id"])
}

func TestMessageBuilder_EncodingFailure(t *testing.T) {
	_, err := NewMessage().WithKey("k").WithValue(make(chan int)).Build()
	require.Error(t, err)
	assert.Equal(t, ErrorTypePermanent, ClassifyError(err))
}

func TestMessage_RetryCount(t *testing.T) {
	msg := Message{Headers: map[string]string{}}
	assert.Equal(t, 0, msg.GetRetryCount())

	for i := 0; i < 12; i++ {
		msg.IncrementRetryCount()
	}
	assert.Equal(t, 12, msg.GetRetryCount())

	var empty Message
	empty.IncrementRetryCount()
	assert.Equal(t, 1, empty.GetRetryCount())
}
