// Package gen wraps the three remote generation operations the pipeline
// needs: structured story text, a single illustration, and synthesized
// narration speech. Every operation runs under a retry-with-credential-
// rotation policy bounded by the number of configured keys.
package gen

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"storyweaver/internal/audio"
	"storyweaver/internal/credentials"
	"storyweaver/internal/story"
)

// StoryDraft is the provider's structured story response.
type StoryDraft struct {
	Title      string   `json:"title"`
	Paragraphs []string `json:"paragraphs"`
}

// session is one provider connection authenticated with a single key.
type session interface {
	generateStory(ctx context.Context, prompt, language string, genre story.Genre, length story.Length) (string, error)
	generateImage(ctx context.Context, prompt, aspect string) ([]byte, error)
	generateSpeech(ctx context.Context, text, voice string) (pcm []byte, mime string, err error)
	ping(ctx context.Context) error
}

type dialFunc func(ctx context.Context, apiKey string) (session, error)

// Client drives the provider through whichever key the injected keyring
// currently points at.
type Client struct {
	keys  *credentials.Keyring
	voice string
	dial  dialFunc
	log   *logrus.Entry
}

type Option func(*Client)

// WithVoice overrides the narrator voice.
func WithVoice(voice string) Option {
	return func(c *Client) {
		if voice != "" {
			c.voice = voice
		}
	}
}

func New(keys *credentials.Keyring, opts ...Option) *Client {
	c := &Client{
		keys:  keys,
		voice: defaultVoice,
		dial:  dialGemini,
		log:   logrus.WithField("component", "gen"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// HasCredentials reports whether at least one key is configured.
func (c *Client) HasCredentials() bool {
	_, err := c.keys.Current()
	return err == nil
}

// GenerateStory asks the provider for a story matching the prompt and
// settings, returned as structured JSON. Paragraph count is requested in the
// prompt, not validated locally.
func (c *Client) GenerateStory(ctx context.Context, prompt, language string, genre story.Genre, length story.Length) (StoryDraft, error) {
	var raw string
	err := c.withRotation(ctx, "story", func(s session) error {
		var err error
		raw, err = s.generateStory(ctx, prompt, language, genre, length)
		return err
	})
	if err != nil {
		return StoryDraft{}, err
	}
	return parseStory(raw)
}

// GenerateImage requests exactly one illustration for the scene at the given
// aspect ratio, wrapped in the storybook style prompt.
func (c *Client) GenerateImage(ctx context.Context, scene string, style story.ImageStyle, aspect string) ([]byte, error) {
	prompt := fmt.Sprintf(
		"An illustration for a children's storybook. The scene is: %s. The style should be %s, vibrant, detailed, and magical.",
		scene, style)

	var img []byte
	err := c.withRotation(ctx, "image", func(s session) error {
		var err error
		img, err = s.generateImage(ctx, prompt, aspect)
		return err
	})
	return img, err
}

// GenerateCover requests a 3:4 portrait book cover illustration derived from
// the story's title and original prompt.
func (c *Client) GenerateCover(ctx context.Context, title, about string) ([]byte, error) {
	prompt := fmt.Sprintf(
		"A stunning, beautiful, and whimsical book cover illustration for a children's story titled %q. The story is about: %s. Style: vibrant, detailed, digital painting, storybook style.",
		title, about)

	var img []byte
	err := c.withRotation(ctx, "cover", func(s session) error {
		var err error
		img, err = s.generateImage(ctx, prompt, "3:4")
		return err
	})
	return img, err
}

// GenerateSpeech synthesizes narration for text with the fixed narrator
// voice. Streamed chunks are concatenated in arrival order; the declared
// format descriptor comes back alongside the raw samples.
func (c *Client) GenerateSpeech(ctx context.Context, text string) ([]byte, audio.Format, error) {
	var (
		pcm  []byte
		mime string
	)
	err := c.withRotation(ctx, "speech", func(s session) error {
		var err error
		pcm, mime, err = s.generateSpeech(ctx, text, c.voice)
		return err
	})
	if err != nil {
		return nil, audio.Format{}, err
	}
	return pcm, audio.ParseFormat(mime), nil
}

// TestKey performs a minimal generation call with the given key, bypassing
// the keyring. Render the result with KeyVerdict.
func (c *Client) TestKey(ctx context.Context, key string) error {
	if key == "" {
		return ErrNoCredentials
	}
	s, err := c.dial(ctx, key)
	if err != nil {
		return err
	}
	return s.ping(ctx)
}

// withRotation runs op with the current key, rotating to the next key on
// auth/quota rejection. Worst case is one attempt per configured key.
func (c *Client) withRotation(ctx context.Context, op string, fn func(session) error) error {
	attempts := 0
	for {
		key, err := c.keys.Current()
		if err != nil {
			return ErrNoCredentials
		}

		s, err := c.dial(ctx, key)
		if err != nil {
			return err
		}

		attempts++
		err = fn(s)
		if err == nil {
			return nil
		}
		if !rotatable(err) {
			return err
		}
		if advErr := c.keys.Advance(); advErr != nil {
			return fmt.Errorf("%w after %d attempts: %w", ErrAllCredentialsExhausted, attempts, err)
		}
		c.log.WithError(err).WithFields(logrus.Fields{
			"op":        op,
			"attempt":   attempts,
			"key_index": c.keys.Index(),
			"class":     Classify(err).String(),
		}).Warn("credential rejected, rotating to next key")
	}
}
