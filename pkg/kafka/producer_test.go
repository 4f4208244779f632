package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	messages, err := encode([]Event{
		{Key: "search", Value: map[string]any{"query": "brave"}},
		{Key: "b1", Value: 3},
	})
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, []byte("search"), messages[0].Key)
	assert.JSONEq(t, `{"query":"brave"}`, string(messages[0].Value))
	assert.Equal(t, []byte("3"), messages[1].Value)
}

func TestEncode_Unmarshalable(t *testing.T) {
	_, err := encode([]Event{{Key: "bad", Value: make(chan int)}})
	assert.Error(t, err)
}
