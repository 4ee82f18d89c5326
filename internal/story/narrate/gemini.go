package narrate

import (
	"context"

	"storyweaver/internal/audio"
	"storyweaver/internal/gen"
)

// GeminiEngine narrates through the generative provider's speech models and
// wraps the raw PCM payload into a WAV clip locally.
type GeminiEngine struct {
	client *gen.Client
}

func NewGeminiEngine(client *gen.Client) *GeminiEngine {
	return &GeminiEngine{client: client}
}

func (g *GeminiEngine) Name() string {
	return EngineTypeGemini.String()
}

func (g *GeminiEngine) Synthesize(ctx context.Context, text string) (Clip, error) {
	pcm, format, err := g.client.GenerateSpeech(ctx, text)
	if err != nil {
		return Clip{}, err
	}

	// A 16-bit payload with a dangling byte cannot be played; that is a
	// local decode failure, not a provider one.
	if format.BitsPerSample == 16 {
		if _, err := audio.Normalize(pcm); err != nil {
			return Clip{}, &DecodeError{Err: err}
		}
	}

	return Clip{Data: audio.WrapWAV(pcm, format), Ext: "wav"}, nil
}
