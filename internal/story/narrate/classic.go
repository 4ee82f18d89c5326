package narrate

import (
	"context"
	"fmt"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	texttospeechpb "google.golang.org/genproto/googleapis/cloud/texttospeech/v1"
)

// ClassicEngine narrates through the classic cloud text-to-speech API,
// producing MP3 clips. It needs service-account credentials rather than a
// generative API key.
type ClassicEngine struct {
	client *texttospeech.Client
	voice  string
}

func newClassicEngine(ctx context.Context) (*ClassicEngine, error) {
	client, err := texttospeech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create TTS client: %w", err)
	}
	return &ClassicEngine{
		client: client,
		voice:  "en-US-Chirp3-HD-Charon",
	}, nil
}

func (c *ClassicEngine) Name() string {
	return EngineTypeClassic.String()
}

func (c *ClassicEngine) Synthesize(ctx context.Context, text string) (Clip, error) {
	req := &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: text},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: "en-US",
			Name:         c.voice,
		},
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding: texttospeechpb.AudioEncoding_MP3,
		},
	}
	resp, err := c.client.SynthesizeSpeech(ctx, req)
	if err != nil {
		return Clip{}, fmt.Errorf("failed to synthesize narration: %w", err)
	}
	if len(resp.AudioContent) == 0 {
		return Clip{}, fmt.Errorf("synthesis returned no audio")
	}
	return Clip{Data: resp.AudioContent, Ext: "mp3"}, nil
}

func (c *ClassicEngine) Close() error {
	return c.client.Close()
}
