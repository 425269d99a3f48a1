package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeMessage(t *testing.T) {
	ev, err := Decode([]byte(`{"type":"message","message_id":"m1","from_login":"alice","to_login":"bob","content":"hello","is_audio":true}`))
	require.NoError(t, err)

	msg, ok := ev.(ChatMessage)
	require.True(t, ok)
	assert.Equal(t, "m1", msg.MessageID)
	assert.Equal(t, "bob", msg.To)
	assert.Equal(t, "hello", msg.Content)
	assert.True(t, msg.IsAudio)
	assert.False(t, msg.IsFile)
}

func TestDecodeFile(t *testing.T) {
	ev, err := Decode([]byte(`{"type":"file","to_login":"bob","content":"QUJD","file_name":"a.txt","file_type":"text/plain","file_size":3}`))
	require.NoError(t, err)

	msg, ok := ev.(ChatMessage)
	require.True(t, ok)
	assert.True(t, msg.IsFile)
	assert.Equal(t, "a.txt", msg.FileName)
	assert.Equal(t, int64(3), msg.FileSize)
}

func TestDecodeCallFrames(t *testing.T) {
	ev, err := Decode([]byte(`{"type":"call_offer","caller":"alice","target":"bob","offer":{"sdp":"v=0"},"withVideo":true}`))
	require.NoError(t, err)
	offer, ok := ev.(CallOffer)
	require.True(t, ok)
	assert.Equal(t, "alice", offer.Caller)
	assert.Equal(t, "bob", offer.Target)
	assert.True(t, offer.WithVideo)
	assert.JSONEq(t, `{"sdp":"v=0"}`, string(offer.Offer))

	ev, err = Decode([]byte(`{"type":"call_answer","target":"alice","answer":"sdp"}`))
	require.NoError(t, err)
	_, ok = ev.(CallAnswer)
	require.True(t, ok)

	ev, err = Decode([]byte(`{"type":"ice_candidate","target":"bob","candidate":{"c":1}}`))
	require.NoError(t, err)
	_, ok = ev.(ICECandidate)
	require.True(t, ok)

	ev, err = Decode([]byte(`{"type":"call_end","target":"bob"}`))
	require.NoError(t, err)
	_, ok = ev.(CallEnd)
	require.True(t, ok)

	ev, err = Decode([]byte(`{"type":"call_reject","target":"alice"}`))
	require.NoError(t, err)
	_, ok = ev.(CallReject)
	require.True(t, ok)
}

func TestDecodeReadAndTyping(t *testing.T) {
	ev, err := Decode([]byte(`{"type":"read","message_id":"m1","from_login":"alice"}`))
	require.NoError(t, err)
	read, ok := ev.(ReadReceipt)
	require.True(t, ok)
	// The sender hint in the frame is ignored; only the id is carried.
	assert.Equal(t, "m1", read.MessageID)

	ev, err = Decode([]byte(`{"type":"typing","to_login":"bob"}`))
	require.NoError(t, err)
	typing, ok := ev.(Typing)
	require.True(t, ok)
	assert.Equal(t, "bob", typing.To)
}

func TestDecodeMalformed(t *testing.T) {
	_, err := Decode([]byte(`{not json`))
	assert.ErrorIs(t, err, ErrMalformedEvent)

	_, err = Decode([]byte(`{"type":"nonsense"}`))
	assert.ErrorIs(t, err, ErrMalformedEvent)

	_, err = Decode([]byte(`{}`))
	assert.ErrorIs(t, err, ErrMalformedEvent)
}
