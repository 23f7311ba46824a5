package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stinkydev/moqgo/moq"
)

func TestParseStandardCatalog(t *testing.T) {
	data := []byte(`{"tracks":[{"trackName":"video0","type":"video","priority":10},{"trackName":"audio0","type":"audio","priority":20}]}`)

	snap, err := Parse(data)
	require.NoError(t, err)
	require.Len(t, snap.Tracks, 2)

	video, ok := snap.Tracks["video0"]
	require.True(t, ok)
	assert.Equal(t, "video", video.Kind)
	assert.Equal(t, moq.TrackPriority(10), video.Priority)

	assert.True(t, snap.Available("audio0"))
	assert.False(t, snap.Available("nope"))
}

func TestParseHangCatalog(t *testing.T) {
	data := []byte(`{
		"video": {"priority": 5, "renditions": {"720p": {"bitrate": 2000000, "codec": "avc1"}}},
		"audio": {"renditions": {"stereo": {"codec": "opus"}}}
	}`)

	snap, err := Parse(data)
	require.NoError(t, err)
	require.Len(t, snap.Tracks, 2)

	video, ok := snap.Tracks["720p"]
	require.True(t, ok)
	assert.Equal(t, "video", video.Kind)
	assert.Equal(t, moq.TrackPriority(5), video.Priority)

	audio, ok := snap.Tracks["stereo"]
	require.True(t, ok)
	assert.Equal(t, "audio", audio.Kind)
	assert.Equal(t, moq.TrackPriority(defaultHangPriority), audio.Priority)
}

func TestParseUnrecognizedFormat(t *testing.T) {
	_, err := Parse([]byte(`"just a string"`))
	require.Error(t, err)
}

func TestParseEmptyStandardCatalog(t *testing.T) {
	snap, err := Parse([]byte(`{"tracks":[]}`))
	require.NoError(t, err)
	assert.Empty(t, snap.Tracks)
}
