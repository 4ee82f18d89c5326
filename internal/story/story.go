// Package story holds the domain model: a generated story, its per-paragraph
// segments, and the user-chosen generation settings.
package story

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Length classes map to a paragraph-count range the provider is instructed
// to honour. The count is provider-determined, never locally enforced.
type Length string

const (
	LengthShort  Length = "short"
	LengthMedium Length = "medium"
	LengthLong   Length = "long"
)

// Bounds returns the paragraph-count range for the length class.
func (l Length) Bounds() (min, max int) {
	switch l {
	case LengthShort:
		return 3, 4
	case LengthLong:
		return 7, 8
	default:
		return 5, 6
	}
}

// PromptRange phrases the bounds the way the provider prompt expects,
// e.g. "between 3 and 4".
func (l Length) PromptRange() string {
	min, max := l.Bounds()
	return fmt.Sprintf("between %d and %d", min, max)
}

func (l Length) Valid() bool {
	switch l {
	case LengthShort, LengthMedium, LengthLong:
		return true
	}
	return false
}

type Genre string

const (
	GenreFantasy   Genre = "fantasy"
	GenreSciFi     Genre = "sci-fi"
	GenreMystery   Genre = "mystery"
	GenreAdventure Genre = "adventure"
	GenreFunny     Genre = "funny"
)

func (g Genre) Valid() bool {
	switch g {
	case GenreFantasy, GenreSciFi, GenreMystery, GenreAdventure, GenreFunny:
		return true
	}
	return false
}

type ImageStyle string

const (
	StyleWhimsical  ImageStyle = "whimsical"
	StyleCartoon    ImageStyle = "cartoon"
	StyleRealistic  ImageStyle = "realistic"
	StyleWatercolor ImageStyle = "watercolor"
)

func (s ImageStyle) Valid() bool {
	switch s {
	case StyleWhimsical, StyleCartoon, StyleRealistic, StyleWatercolor:
		return true
	}
	return false
}

// Settings are the generation parameters for one run. They are immutable
// during a run; edits apply to the next run only.
type Settings struct {
	Length    Length     `json:"length"`
	Genre     Genre      `json:"genre"`
	Style     ImageStyle `json:"style"`
	Language  string     `json:"language"`
	Narration bool       `json:"narration"`
}

func (s Settings) Validate() error {
	if !s.Length.Valid() {
		return fmt.Errorf("unknown story length %q", s.Length)
	}
	if !s.Genre.Valid() {
		return fmt.Errorf("unknown genre %q", s.Genre)
	}
	if !s.Style.Valid() {
		return fmt.Errorf("unknown image style %q", s.Style)
	}
	if strings.TrimSpace(s.Language) == "" {
		return fmt.Errorf("language must not be empty")
	}
	return nil
}

// Segment is one paragraph's generation state. Paragraph is fixed at
// creation; only the asset paths and loading flags mutate afterwards, and
// only the orchestrator mutates them.
type Segment struct {
	ID           string `json:"id"`
	Paragraph    string `json:"paragraph"`
	ImagePath    string `json:"image_path,omitempty"`
	AudioPath    string `json:"audio_path,omitempty"`
	LoadingImage bool   `json:"-"`
	LoadingAudio bool   `json:"-"`
}

// Story is the aggregate: title plus segments in narrative order. Narrative
// order is display order is export order.
type Story struct {
	Title     string    `json:"title"`
	Prompt    string    `json:"prompt"`
	Settings  Settings  `json:"settings"`
	Segments  []Segment `json:"segments"`
	CreatedAt time.Time `json:"created_at"`
}

// New builds a fresh story with one segment per paragraph, each carrying a
// new unique id, empty assets and cleared loading flags.
func New(prompt, title string, paragraphs []string, settings Settings) *Story {
	st := &Story{
		Title:     title,
		Prompt:    prompt,
		Settings:  settings,
		Segments:  make([]Segment, 0, len(paragraphs)),
		CreatedAt: time.Now(),
	}
	for _, p := range paragraphs {
		st.Segments = append(st.Segments, Segment{
			ID:        uuid.NewString(),
			Paragraph: p,
		})
	}
	return st
}

// Slug derives a filesystem-safe name from a title: lower-cased, every run
// of non-alphanumerics collapsed into a single underscore, trimmed.
func Slug(title string) string {
	var b strings.Builder
	lastUnderscore := true // swallow leading separators
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	return strings.TrimRight(b.String(), "_")
}
