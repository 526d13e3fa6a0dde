package services

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundStateHashRoundTrip(t *testing.T) {
	state := NewRoundState()
	state.GameID = 42
	state.QuestionIndex = 3
	state.Seen["Who painted the ceiling?"] = true
	state.Seen["What is the capital of Peru?"] = true

	fields, err := encodeRoundState(state)
	require.NoError(t, err)

	// Redis hands hash fields back as strings.
	raw := map[string]string{}
	for key, value := range fields {
		switch v := value.(type) {
		case []byte:
			raw[key] = string(v)
		default:
			raw[key] = fmt.Sprint(v)
		}
	}

	decoded, err := decodeRoundState(raw)
	require.NoError(t, err)
	assert.Equal(t, uint(42), decoded.GameID)
	assert.Equal(t, 3, decoded.QuestionIndex)
	assert.Equal(t, state.Seen, decoded.Seen)
}

func TestDecodeRoundStateRejectsBadFields(t *testing.T) {
	_, err := decodeRoundState(map[string]string{"game_id": "not-a-number"})
	assert.Error(t, err)

	_, err = decodeRoundState(map[string]string{"seen_question_texts": "{broken"})
	assert.Error(t, err)
}
