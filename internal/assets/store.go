// Package assets owns the on-disk layout of a generated story: one
// directory per story holding the illustration and narration files plus a
// story.json manifest, so a story can be exported or replayed later without
// regenerating anything.
package assets

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"storyweaver/internal/story"
	"storyweaver/internal/story/narrate"
)

const manifestName = "story.json"

// ErrNoStories means the output root holds no stored story yet.
var ErrNoStories = errors.New("no stored stories found")

type Store struct {
	root string
}

func NewStore(root string) *Store {
	return &Store{root: root}
}

// Create makes (or reuses) the directory for a story title.
func (s *Store) Create(title string) (*StoryDir, error) {
	slug := story.Slug(title)
	if slug == "" {
		slug = "untitled"
	}
	path := filepath.Join(s.root, slug)
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create story directory: %w", err)
	}
	return &StoryDir{path: path}, nil
}

// Latest returns the most recently modified story directory under the root,
// i.e. the one a bare `storyweaver export` should pick up.
func (s *Store) Latest() (*StoryDir, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoStories
		}
		return nil, err
	}

	var (
		best     string
		bestTime int64 = -1
	)
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(s.root, e.Name())
		info, err := os.Stat(filepath.Join(dir, manifestName))
		if err != nil {
			continue
		}
		if mod := info.ModTime().UnixNano(); mod > bestTime {
			bestTime = mod
			best = dir
		}
	}
	if best == "" {
		return nil, ErrNoStories
	}
	return &StoryDir{path: best}, nil
}

// StoryDir is one story's asset directory.
type StoryDir struct {
	path string
}

// OpenDir wraps an existing story directory.
func OpenDir(path string) *StoryDir {
	return &StoryDir{path: path}
}

func (d *StoryDir) Path() string {
	return d.path
}

// SaveImage stores a segment illustration (1-based index) and returns its
// path.
func (d *StoryDir) SaveImage(index int, data []byte) (string, error) {
	path := filepath.Join(d.path, fmt.Sprintf("segment_%02d.jpg", index))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write illustration: %w", err)
	}
	return path, nil
}

// SaveClip stores a segment narration clip (1-based index) and returns its
// path.
func (d *StoryDir) SaveClip(index int, clip narrate.Clip) (string, error) {
	path := filepath.Join(d.path, fmt.Sprintf("segment_%02d.%s", index, clip.Ext))
	if err := os.WriteFile(path, clip.Data, 0644); err != nil {
		return "", fmt.Errorf("failed to write narration clip: %w", err)
	}
	return path, nil
}

// SaveCover stores the cover illustration.
func (d *StoryDir) SaveCover(data []byte) (string, error) {
	path := filepath.Join(d.path, "cover.jpg")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write cover: %w", err)
	}
	return path, nil
}

// SaveManifest writes the story manifest atomically (tmp then rename) so a
// crash never leaves a truncated manifest behind.
func (d *StoryDir) SaveManifest(st *story.Story) error {
	tmp := filepath.Join(d.path, manifestName+".tmp")
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(st); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, filepath.Join(d.path, manifestName))
}

// Load reads the manifest back.
func (d *StoryDir) Load() (*story.Story, error) {
	data, err := os.ReadFile(filepath.Join(d.path, manifestName))
	if err != nil {
		return nil, fmt.Errorf("failed to read story manifest: %w", err)
	}
	var st story.Story
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("failed to parse story manifest: %w", err)
	}
	return &st, nil
}
