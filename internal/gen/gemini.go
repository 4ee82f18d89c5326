package gen

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"storyweaver/internal/story"
)

const (
	textModel  = "gemini-2.5-flash"
	imageModel = "imagen-4.0-generate-001"
	ttsModel   = "gemini-2.5-flash-preview-tts"

	defaultVoice = "Kore"
)

var storySchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"title": {
			Type:        genai.TypeString,
			Description: "The title of the story.",
		},
		"paragraphs": {
			Type:        genai.TypeArray,
			Description: "The paragraphs of the story.",
			Items:       &genai.Schema{Type: genai.TypeString},
		},
	},
	Required: []string{"title", "paragraphs"},
}

type geminiSession struct {
	client *genai.Client
}

func dialGemini(ctx context.Context, apiKey string) (session, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create provider client: %w", err)
	}
	return &geminiSession{client: client}, nil
}

func (g *geminiSession) generateStory(ctx context.Context, prompt, language string, genre story.Genre, length story.Length) (string, error) {
	system := fmt.Sprintf(
		"You are a master storyteller for children. Write a captivating short story in the %s genre, in the %s language. "+
			"The story must have a title and be %s paragraphs long. "+
			"Ensure the story is imaginative, engaging, and easy for a child to understand.",
		genre, language, length.PromptRange())

	resp, err := g.client.Models.GenerateContent(ctx, textModel,
		genai.Text(fmt.Sprintf("The story should be about: %q", prompt)),
		&genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
			ResponseMIMEType:  "application/json",
			ResponseSchema:    storySchema,
		})
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

func (g *geminiSession) generateImage(ctx context.Context, prompt, aspect string) ([]byte, error) {
	resp, err := g.client.Models.GenerateImages(ctx, imageModel, prompt,
		&genai.GenerateImagesConfig{
			NumberOfImages: 1,
			OutputMIMEType: "image/jpeg",
			AspectRatio:    aspect,
		})
	if err != nil {
		return nil, err
	}
	if resp == nil || len(resp.GeneratedImages) == 0 || resp.GeneratedImages[0].Image == nil || len(resp.GeneratedImages[0].Image.ImageBytes) == 0 {
		return nil, fmt.Errorf("image generation: %w", ErrEmptyResult)
	}
	return resp.GeneratedImages[0].Image.ImageBytes, nil
}

func (g *geminiSession) generateSpeech(ctx context.Context, text, voice string) ([]byte, string, error) {
	cfg := &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: voice},
			},
		},
	}
	prompt := "Say with a warm, friendly, and slightly animated storytelling voice: " + text

	var (
		pcm  []byte
		mime string
	)
	for resp, err := range g.client.Models.GenerateContentStream(ctx, ttsModel, genai.Text(prompt), cfg) {
		if err != nil {
			return nil, "", err
		}
		for _, cand := range resp.Candidates {
			if cand.Content == nil {
				continue
			}
			for _, part := range cand.Content.Parts {
				if part.InlineData == nil || len(part.InlineData.Data) == 0 {
					continue
				}
				pcm = append(pcm, part.InlineData.Data...)
				if mime == "" {
					mime = part.InlineData.MIMEType
				}
			}
		}
	}
	if len(pcm) == 0 {
		return nil, "", fmt.Errorf("speech synthesis: %w", ErrEmptyResult)
	}
	return pcm, mime, nil
}

// ping is a cheap call used only to verify a key grants model access.
func (g *geminiSession) ping(ctx context.Context) error {
	_, err := g.client.Models.GenerateContent(ctx, textModel, genai.Text("test"), nil)
	return err
}
