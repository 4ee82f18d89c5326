package narrate

import (
	"context"

	"storyweaver/internal/audio"
)

// MockEngine - placeholder implementation producing a short silent clip.
// Useful for offline runs and tests.
type MockEngine struct{}

func NewMockEngine() *MockEngine {
	return &MockEngine{}
}

func (m *MockEngine) Name() string {
	return EngineTypeMock.String()
}

func (m *MockEngine) Synthesize(_ context.Context, _ string) (Clip, error) {
	// 200ms of silence at the default format.
	f := audio.DefaultFormat()
	pcm := make([]byte, f.SampleRate*f.Channels*f.BitsPerSample/8/5)
	return Clip{Data: audio.WrapWAV(pcm, f), Ext: "wav"}, nil
}
