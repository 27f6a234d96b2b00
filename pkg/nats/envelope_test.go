package nats

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-assistant-studio-be/pkg/events"
)

func TestDecodeEnvelope(t *testing.T) {
	in := events.New(events.TypeAssistantDeleted, map[string]interface{}{"assistant_id": "2"})
	data, err := json.Marshal(in)
	require.NoError(t, err)

	out, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, events.TypeAssistantDeleted, out.EventType())
	assert.Equal(t, "2", out.Payload()["assistant_id"])
	assert.True(t, in.Timestamp().Equal(out.Timestamp()))
}

func TestDecodeRejectsMalformed(t *testing.T) {
	_, err := Decode([]byte("{"))
	assert.Error(t, err)

	_, err = Decode([]byte(`{"data":{}}`))
	assert.Error(t, err)
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "studio.voice.discarded", Subject(events.TypeVoiceNoteDiscarded))
}
