// Package narrate synthesizes narration clips for story paragraphs. Several
// backends implement the same Engine interface; auto-selection picks the
// best one the current credentials can drive.
package narrate

import (
	"context"
	"fmt"
	"os"

	"storyweaver/internal/gen"
)

type EngineType string

const (
	EngineTypeMock    EngineType = "mock"
	EngineTypeGemini  EngineType = "gemini"
	EngineTypeClassic EngineType = "googleclassic"
	EngineTypeAuto    EngineType = "auto"
)

func (e EngineType) String() string {
	return string(e)
}

// Clip is one finished narration: self-describing audio bytes plus the file
// extension they should be stored under.
type Clip struct {
	Data []byte
	Ext  string // "wav" or "mp3"
}

// Engine turns text into a playable narration clip.
type Engine interface {
	Synthesize(ctx context.Context, text string) (Clip, error)
	Name() string
}

// NewEngine creates a narration engine of the requested type. "auto" picks
// the generative provider when a key is configured, classic cloud TTS when
// service-account credentials are present, and the mock otherwise.
func NewEngine(ctx context.Context, engineType string, client *gen.Client) (Engine, error) {
	if engineType == EngineTypeAuto.String() {
		engineType = bestEngine(client).String()
	}

	switch engineType {
	case EngineTypeMock.String():
		return NewMockEngine(), nil
	case EngineTypeGemini.String():
		return NewGeminiEngine(client), nil
	case EngineTypeClassic.String():
		return newClassicEngine(ctx)
	default:
		return nil, fmt.Errorf("unsupported narration engine type: %s", engineType)
	}
}

func bestEngine(client *gen.Client) EngineType {
	if client != nil && client.HasCredentials() {
		return EngineTypeGemini
	}
	if hasGoogleCredentials() {
		return EngineTypeClassic
	}
	return EngineTypeMock
}

// hasGoogleCredentials checks if Google Cloud credentials are available
func hasGoogleCredentials() bool {
	path, ok := os.LookupEnv("GOOGLE_APPLICATION_CREDENTIALS")
	return ok && path != ""
}

// DecodeError marks a clip whose payload could not be decoded locally. The
// pipeline logs these and leaves the segment without narration instead of
// aborting.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode narration payload: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
