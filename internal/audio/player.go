package audio

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
	"github.com/faiface/beep/wav"
)

// Player plays generated narration clips through the system speaker. It is a
// single shared handle: starting a clip stops whatever was playing before, so
// at most one clip is ever audible.
type Player struct {
	mu       sync.Mutex
	streamer beep.StreamSeekCloser
	ctrl     *beep.Ctrl
	done     chan struct{}
	finish   func()
	playing  bool
}

func NewPlayer() *Player {
	return &Player{}
}

// Play starts the clip at path, stopping any active playback first. The clip
// format is picked by extension (.wav or .mp3).
func (p *Player) Play(path string) error {
	p.stop()

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open clip: %w", err)
	}

	var (
		streamer beep.StreamSeekCloser
		format   beep.Format
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		streamer, format, err = wav.Decode(f)
	case ".mp3":
		streamer, format, err = mp3.Decode(f)
	default:
		f.Close()
		return fmt.Errorf("unsupported clip format %q", filepath.Ext(path))
	}
	if err != nil {
		f.Close()
		return fmt.Errorf("failed to decode clip %s: %w", path, err)
	}

	if err := speaker.Init(format.SampleRate, format.SampleRate.N(time.Second/10)); err != nil {
		streamer.Close()
		return err
	}

	done := make(chan struct{})
	var once sync.Once
	finish := func() { once.Do(func() { close(done) }) }

	p.mu.Lock()
	p.streamer = streamer
	p.ctrl = &beep.Ctrl{Streamer: streamer}
	p.done = done
	p.finish = finish
	p.playing = true
	p.mu.Unlock()

	speaker.Play(beep.Seq(p.ctrl, beep.Callback(func() {
		p.mu.Lock()
		p.playing = false
		p.mu.Unlock()
		finish()
	})))
	return nil
}

// Wait blocks until the current clip finishes or is stopped.
func (p *Player) Wait() {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Pause suspends playback; Resume continues it.
func (p *Player) Pause() {
	p.setPaused(true)
}

func (p *Player) Resume() {
	p.setPaused(false)
}

func (p *Player) setPaused(paused bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ctrl == nil {
		return
	}
	speaker.Lock()
	p.ctrl.Paused = paused
	speaker.Unlock()
}

// Stop halts playback and releases the clip.
func (p *Player) Stop() {
	p.stop()
}

func (p *Player) stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.streamer != nil {
		speaker.Clear()
		p.streamer.Close()
		p.streamer = nil
		p.ctrl = nil
	}
	if p.finish != nil {
		p.finish()
		p.finish = nil
	}
	p.playing = false
}

// IsPlaying reports whether a clip is currently audible.
func (p *Player) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}
