package fallback_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meetscribe/meetscribe/pkg/fallback"
	"github.com/meetscribe/meetscribe/pkg/workerpipeline"
)

func wavFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mic.wav")
	require.NoError(t, os.WriteFile(path, []byte("fake"), 0o600))
	return path
}

func TestTranscriber_RunsPipelineWhenEnabled(t *testing.T) {
	pipeline := workerpipeline.NewPipeline(workerpipeline.StubTranscriber{Duration: 1}, workerpipeline.StubDiarizer{}, time.Second)
	tr := fallback.New(pipeline, true)

	result, err := tr.Run(context.Background(), workerpipeline.ProcessRequest{MicPath: wavFile(t), LocalSpeakerName: "Me"}, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, result.Segments)
}

func TestTranscriber_ReturnsUnavailableWhenDisabled(t *testing.T) {
	pipeline := workerpipeline.NewPipeline(workerpipeline.StubTranscriber{}, workerpipeline.StubDiarizer{}, time.Second)
	tr := fallback.New(pipeline, false)

	_, err := tr.Run(context.Background(), workerpipeline.ProcessRequest{MicPath: wavFile(t)}, nil)
	require.ErrorIs(t, err, fallback.ErrUnavailable)
	assert.False(t, tr.IsEnabled())
}

func TestTranscriber_ReturnsUnavailableWithNilPipeline(t *testing.T) {
	tr := fallback.New(nil, true)
	_, err := tr.Run(context.Background(), workerpipeline.ProcessRequest{}, nil)
	require.ErrorIs(t, err, fallback.ErrUnavailable)
}
