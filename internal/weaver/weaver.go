// Package weaver drives the end-to-end generation pipeline: one story call,
// then strictly sequential per-segment illustration and narration, with
// pacing between segments and partial results preserved on failure.
package weaver

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"storyweaver/internal/assets"
	"storyweaver/internal/credentials"
	"storyweaver/internal/gen"
	"storyweaver/internal/story"
	"storyweaver/internal/story/narrate"
)

// segmentAspect is the fixed illustration aspect ratio for story pages.
const segmentAspect = "4:3"

// State is where a generation run currently stands.
type State int

const (
	StateIdle State = iota
	StateStoryRequested
	StateStoryReady
	StateSegmentProcessing
	StateDone
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateStoryRequested:
		return "story-requested"
	case StateStoryReady:
		return "story-ready"
	case StateSegmentProcessing:
		return "segment-processing"
	case StateDone:
		return "done"
	case StateAborted:
		return "aborted"
	}
	return "idle"
}

var (
	// ErrRunInProgress rejects a second run while one is active. Runs are
	// serialized by this guard, not by the caller's goodwill.
	ErrRunInProgress = errors.New("a generation run is already in progress")

	// ErrNothingToRegenerate means Regenerate was called before any run.
	ErrNothingToRegenerate = errors.New("no previous prompt to regenerate from")
)

// Generator is the slice of the generation client the pipeline needs.
type Generator interface {
	GenerateStory(ctx context.Context, prompt, language string, genre story.Genre, length story.Length) (gen.StoryDraft, error)
	GenerateImage(ctx context.Context, scene string, style story.ImageStyle, aspect string) ([]byte, error)
}

// Narrator synthesizes one narration clip per paragraph.
type Narrator interface {
	Synthesize(ctx context.Context, text string) (narrate.Clip, error)
}

// Observer receives progress as the pipeline moves. All methods are called
// from the run's goroutine.
type Observer interface {
	StateChanged(state State)
	SegmentUpdated(seg story.Segment, index, total int)
	RunFailed(err error)
}

type nopObserver struct{}

func (nopObserver) StateChanged(State)                  {}
func (nopObserver) SegmentUpdated(story.Segment, int, int) {}
func (nopObserver) RunFailed(error)                     {}

// Weaver owns one story at a time. Each run replaces the previous story
// wholesale; mutations are tagged with the run id so a superseded run can
// never scribble on a newer story.
type Weaver struct {
	gen      Generator
	narrator Narrator
	keys     *credentials.Keyring
	store    *assets.Store
	obs      Observer
	pace     time.Duration
	log      *logrus.Entry

	mu           sync.Mutex
	running      bool
	runID        string
	state        State
	story        *story.Story
	dir          *assets.StoryDir
	lastPrompt   string
	lastSettings story.Settings
	err          error
}

type Option func(*Weaver)

// WithObserver wires progress reporting.
func WithObserver(obs Observer) Option {
	return func(w *Weaver) {
		if obs != nil {
			w.obs = obs
		}
	}
}

// WithPace overrides the inter-segment delay. Zero disables pacing.
func WithPace(d time.Duration) Option {
	return func(w *Weaver) { w.pace = d }
}

// WithNarrator wires a narration engine; without one, narration is skipped
// even when the settings ask for it.
func WithNarrator(n Narrator) Option {
	return func(w *Weaver) { w.narrator = n }
}

func New(g Generator, keys *credentials.Keyring, store *assets.Store, opts ...Option) *Weaver {
	w := &Weaver{
		gen:   g,
		keys:  keys,
		store: store,
		obs:   nopObserver{},
		pace:  time.Second,
		log:   logrus.WithField("component", "weaver"),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Generate runs the whole pipeline for a fresh prompt. On failure the
// returned story still carries whatever segments finished before the abort.
func (w *Weaver) Generate(ctx context.Context, prompt string, settings story.Settings) (*story.Story, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil, ErrRunInProgress
	}
	runID := uuid.NewString()
	w.running = true
	w.runID = runID
	w.story = nil
	w.dir = nil
	w.err = nil
	w.state = StateIdle
	w.lastPrompt = prompt
	w.lastSettings = settings
	w.mu.Unlock()

	if w.keys != nil {
		w.keys.Reset()
	}

	err := w.run(ctx, runID, prompt, settings)

	w.mu.Lock()
	if w.runID == runID {
		w.running = false
		w.err = err
	}
	w.mu.Unlock()

	return w.Story(), err
}

// Regenerate restarts the whole pipeline from the previously stored prompt.
// It never resumes a partial run.
func (w *Weaver) Regenerate(ctx context.Context) (*story.Story, error) {
	w.mu.Lock()
	prompt, settings := w.lastPrompt, w.lastSettings
	w.mu.Unlock()
	if prompt == "" {
		return nil, ErrNothingToRegenerate
	}
	return w.Generate(ctx, prompt, settings)
}

func (w *Weaver) run(ctx context.Context, runID, prompt string, settings story.Settings) error {
	w.setState(runID, StateStoryRequested)

	draft, err := w.gen.GenerateStory(ctx, prompt, settings.Language, settings.Genre, settings.Length)
	if err != nil {
		return w.fail(runID, fmt.Errorf("story generation failed: %w", err))
	}

	st := story.New(prompt, draft.Title, draft.Paragraphs, settings)
	dir, err := w.store.Create(st.Title)
	if err != nil {
		return w.fail(runID, err)
	}

	w.mu.Lock()
	if w.runID != runID {
		w.mu.Unlock()
		return nil
	}
	w.story = st
	w.dir = dir
	w.mu.Unlock()
	w.setState(runID, StateStoryReady)
	w.setState(runID, StateSegmentProcessing)

	total := len(st.Segments)
	for i := range st.Segments {
		segID := st.Segments[i].ID
		text := st.Segments[i].Paragraph

		if err := ctx.Err(); err != nil {
			return w.fail(runID, err)
		}

		narrating := settings.Narration && w.narrator != nil
		w.updateSegment(runID, segID, func(s *story.Segment) {
			s.LoadingImage = true
			s.LoadingAudio = narrating
		})

		if err := w.illustrate(ctx, runID, dir, i, segID, text, settings.Style); err != nil {
			return err
		}

		if narrating {
			if err := w.narrate(ctx, runID, dir, i, segID, text); err != nil {
				return err
			}
		}

		// Throttle the provider between segments; this also paces the
		// order in which segments appear.
		if i < total-1 && w.pace > 0 {
			select {
			case <-ctx.Done():
				return w.fail(runID, ctx.Err())
			case <-time.After(w.pace):
			}
		}
	}

	w.setState(runID, StateDone)

	if err := dir.SaveManifest(w.Story()); err != nil {
		w.log.WithError(err).Warn("failed to save story manifest")
	}
	return nil
}

func (w *Weaver) illustrate(ctx context.Context, runID string, dir *assets.StoryDir, index int, segID, text string, style story.ImageStyle) error {
	img, err := w.gen.GenerateImage(ctx, text, style, segmentAspect)
	if err == nil {
		var path string
		path, err = dir.SaveImage(index+1, img)
		if err == nil {
			w.updateSegment(runID, segID, func(s *story.Segment) {
				s.ImagePath = path
				s.LoadingImage = false
			})
			return nil
		}
	}

	w.clearLoading(runID, segID)
	return w.fail(runID, fmt.Errorf("illustration for segment %d failed: %w", index+1, err))
}

func (w *Weaver) narrate(ctx context.Context, runID string, dir *assets.StoryDir, index int, segID, text string) error {
	clip, err := w.narrator.Synthesize(ctx, text)

	var decodeErr *narrate.DecodeError
	if errors.As(err, &decodeErr) {
		// Local decode failure degrades to "narration unavailable" for
		// this segment only; the run continues.
		w.log.WithError(err).WithField("segment", index+1).Warn("narration clip undecodable, continuing without audio")
		w.updateSegment(runID, segID, func(s *story.Segment) { s.LoadingAudio = false })
		return nil
	}
	if err == nil {
		var path string
		path, err = dir.SaveClip(index+1, clip)
		if err == nil {
			w.updateSegment(runID, segID, func(s *story.Segment) {
				s.AudioPath = path
				s.LoadingAudio = false
			})
			return nil
		}
	}

	w.clearLoading(runID, segID)
	return w.fail(runID, fmt.Errorf("narration for segment %d failed: %w", index+1, err))
}

// fail records the error, moves to Aborted and keeps whatever partial story
// exists. It returns the error it was given for convenient chaining.
func (w *Weaver) fail(runID string, err error) error {
	w.mu.Lock()
	if w.runID != runID {
		w.mu.Unlock()
		return err
	}
	w.err = err
	w.state = StateAborted
	w.mu.Unlock()

	w.obs.StateChanged(StateAborted)
	w.obs.RunFailed(err)
	return err
}

func (w *Weaver) setState(runID string, s State) {
	w.mu.Lock()
	if w.runID != runID {
		w.mu.Unlock()
		return
	}
	w.state = s
	w.mu.Unlock()
	w.obs.StateChanged(s)
}

// updateSegment mutates one segment, keyed by run and segment id. Stale
// completions from a superseded run are dropped here.
func (w *Weaver) updateSegment(runID, segID string, mutate func(*story.Segment)) {
	w.mu.Lock()
	if w.runID != runID || w.story == nil {
		w.mu.Unlock()
		return
	}
	var (
		snapshot story.Segment
		index    = -1
		total    = len(w.story.Segments)
	)
	for i := range w.story.Segments {
		if w.story.Segments[i].ID == segID {
			mutate(&w.story.Segments[i])
			snapshot = w.story.Segments[i]
			index = i
			break
		}
	}
	w.mu.Unlock()

	if index >= 0 {
		w.obs.SegmentUpdated(snapshot, index, total)
	}
}

func (w *Weaver) clearLoading(runID, segID string) {
	w.updateSegment(runID, segID, func(s *story.Segment) {
		s.LoadingImage = false
		s.LoadingAudio = false
	})
}

// Story returns a copy of the current story, or nil before the story call
// resolves.
func (w *Weaver) Story() *story.Story {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.story == nil {
		return nil
	}
	cp := *w.story
	cp.Segments = append([]story.Segment(nil), w.story.Segments...)
	return &cp
}

// State reports where the last (or current) run stands.
func (w *Weaver) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Err returns the last run's terminal error, if any.
func (w *Weaver) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

// Dir returns the asset directory of the current story.
func (w *Weaver) Dir() *assets.StoryDir {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.dir
}
