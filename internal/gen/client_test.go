package gen

import (
	"context"
	"errors"
	"testing"

	"google.golang.org/genai"

	"storyweaver/internal/credentials"
	"storyweaver/internal/story"
)

// fakeSession answers every operation from a per-key script.
type fakeSession struct {
	err  error
	raw  string
	img  []byte
	pcm  []byte
	mime string
}

func (f *fakeSession) generateStory(context.Context, string, string, story.Genre, story.Length) (string, error) {
	return f.raw, f.err
}

func (f *fakeSession) generateImage(context.Context, string, string) ([]byte, error) {
	return f.img, f.err
}

func (f *fakeSession) generateSpeech(context.Context, string, string) ([]byte, string, error) {
	return f.pcm, f.mime, f.err
}

func (f *fakeSession) ping(context.Context) error {
	return f.err
}

// newFakeClient scripts the provider per key and records which key each
// attempt used.
func newFakeClient(keys *credentials.Keyring, script map[string]*fakeSession, used *[]string) *Client {
	c := New(keys)
	c.dial = func(_ context.Context, apiKey string) (session, error) {
		*used = append(*used, apiKey)
		s, ok := script[apiKey]
		if !ok {
			return &fakeSession{err: errors.New("unscripted key")}, nil
		}
		return s, nil
	}
	return c
}

func authErr() error  { return genai.APIError{Code: 401, Message: "API key not valid"} }
func quotaErr() error { return genai.APIError{Code: 429, Message: "quota exceeded"} }

const validStory = `{"title":"The Brave Fox","paragraphs":["Once upon a time.","The end."]}`

func TestRotationSucceedsAfterFailures(t *testing.T) {
	keys := credentials.NewKeyringWithFallbacks("k1", "k2", "k3")
	var used []string
	c := newFakeClient(keys, map[string]*fakeSession{
		"k1": {err: authErr()},
		"k2": {err: quotaErr()},
		"k3": {raw: validStory},
	}, &used)

	draft, err := c.GenerateStory(context.Background(), "a fox", "English", story.GenreFantasy, story.LengthShort)
	if err != nil {
		t.Fatalf("GenerateStory: %v", err)
	}
	if draft.Title != "The Brave Fox" || len(draft.Paragraphs) != 2 {
		t.Errorf("unexpected draft: %+v", draft)
	}
	if len(used) != 3 {
		t.Errorf("attempts = %d, want 3", len(used))
	}
	if keys.Index() != 2 {
		t.Errorf("final key index = %d, want 2", keys.Index())
	}
}

func TestRotationExhaustsAllKeys(t *testing.T) {
	keys := credentials.NewKeyringWithFallbacks("k1", "k2", "k3")
	var used []string
	c := newFakeClient(keys, map[string]*fakeSession{
		"k1": {err: authErr()},
		"k2": {err: authErr()},
		"k3": {err: quotaErr()},
	}, &used)

	_, err := c.GenerateStory(context.Background(), "a fox", "English", story.GenreFantasy, story.LengthShort)
	if !errors.Is(err, ErrAllCredentialsExhausted) {
		t.Fatalf("err = %v, want ErrAllCredentialsExhausted", err)
	}
	if len(used) != 3 {
		t.Errorf("attempts = %d, want exactly 3", len(used))
	}
}

func TestNonRotatableErrorPropagatesImmediately(t *testing.T) {
	keys := credentials.NewKeyringWithFallbacks("k1", "k2")
	var used []string
	boom := errors.New("internal server error")
	c := newFakeClient(keys, map[string]*fakeSession{
		"k1": {err: boom},
		"k2": {raw: validStory},
	}, &used)

	_, err := c.GenerateStory(context.Background(), "a fox", "English", story.GenreFantasy, story.LengthShort)
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want the original error", err)
	}
	if len(used) != 1 {
		t.Errorf("attempts = %d, want 1 (no rotation)", len(used))
	}
	if keys.Index() != 0 {
		t.Errorf("key index moved to %d on a non-rotatable error", keys.Index())
	}
}

func TestMalformedStoryNotRetried(t *testing.T) {
	keys := credentials.NewKeyringWithFallbacks("k1", "k2")
	var used []string
	c := newFakeClient(keys, map[string]*fakeSession{
		"k1": {raw: "this is not json"},
		"k2": {raw: validStory},
	}, &used)

	_, err := c.GenerateStory(context.Background(), "a fox", "English", story.GenreFantasy, story.LengthShort)
	if !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("err = %v, want ErrMalformedResponse", err)
	}
	if len(used) != 1 {
		t.Errorf("attempts = %d, want 1 (parse failures are not retried)", len(used))
	}
}

func TestGenerateStoryNoCredentials(t *testing.T) {
	keys := credentials.NewKeyringWithFallbacks("")
	var used []string
	c := newFakeClient(keys, nil, &used)

	_, err := c.GenerateStory(context.Background(), "a fox", "English", story.GenreFantasy, story.LengthShort)
	if !errors.Is(err, ErrNoCredentials) {
		t.Fatalf("err = %v, want ErrNoCredentials", err)
	}
}

func TestGenerateSpeechParsesFormat(t *testing.T) {
	keys := credentials.NewKeyringWithFallbacks("k1")
	var used []string
	c := newFakeClient(keys, map[string]*fakeSession{
		"k1": {pcm: []byte{1, 2, 3, 4}, mime: "audio/L16;codec=pcm;rate=24000"},
	}, &used)

	pcm, format, err := c.GenerateSpeech(context.Background(), "hello")
	if err != nil {
		t.Fatalf("GenerateSpeech: %v", err)
	}
	if len(pcm) != 4 {
		t.Errorf("pcm len = %d, want 4", len(pcm))
	}
	if format.SampleRate != 24000 || format.Channels != 1 || format.BitsPerSample != 16 {
		t.Errorf("format = %+v", format)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Class
	}{
		{"api error 401", genai.APIError{Code: 401}, ClassAuth},
		{"api error 403", genai.APIError{Code: 403}, ClassAuth},
		{"api error 429", genai.APIError{Code: 429}, ClassQuota},
		{"key message", errors.New("400: API key not valid. Please pass a valid API key"), ClassAuth},
		{"quota message", errors.New("the resource has been exhausted"), ClassQuota},
		{"rate limit message", errors.New("rate limit reached for model"), ClassQuota},
		{"connection refused", errors.New("dial tcp: connection refused"), ClassNetwork},
		{"anything else", errors.New("model overloaded"), ClassOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseStory(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"plain", validStory, false},
		{"fenced", "```json\n" + validStory + "\n```", false},
		{"bare fence", "```\n" + validStory + "\n```", false},
		{"not json", "once upon a time", true},
		{"missing title", `{"paragraphs":["a"]}`, true},
		{"missing paragraphs", `{"title":"T"}`, true},
		{"empty paragraphs", `{"title":"T","paragraphs":[]}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			draft, err := parseStory(tt.raw)
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedResponse) {
					t.Errorf("err = %v, want ErrMalformedResponse", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseStory: %v", err)
			}
			if draft.Title == "" || len(draft.Paragraphs) == 0 {
				t.Errorf("incomplete draft: %+v", draft)
			}
		})
	}
}
