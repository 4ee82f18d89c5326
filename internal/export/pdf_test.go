package export

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"

	"storyweaver/internal/story"
)

type fakeCovers struct {
	data []byte
	err  error
}

func (f *fakeCovers) GenerateCover(context.Context, string, string) ([]byte, error) {
	return f.data, f.err
}

func tinyJPEG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 6))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	img.Set(0, 0, color.RGBA{R: 0xaa, A: 0xff})
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func testStory(t *testing.T, dir string) *story.Story {
	t.Helper()
	st := story.New("a shy dragon", "The Shy Dragon", []string{
		"Once upon a time there was a shy dragon.",
		"The dragon found a friend.",
	}, story.Settings{
		Length: story.LengthShort, Genre: story.GenreFantasy,
		Style: story.StyleWhimsical, Language: "English",
	})
	for i := range st.Segments {
		path := filepath.Join(dir, "img.jpg")
		if err := os.WriteFile(path, tinyJPEG(t), 0644); err != nil {
			t.Fatal(err)
		}
		st.Segments[i].ImagePath = path
	}
	return st
}

func TestFilename(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"The Brave Fox!", "the_brave_fox_storybook.pdf"},
		{"A   Space   Odyssey", "a_space_odyssey_storybook.pdf"},
		{"", "untitled_storybook.pdf"},
		{"!!!", "untitled_storybook.pdf"},
	}
	for _, tt := range tests {
		if got := Filename(tt.title); got != tt.want {
			t.Errorf("Filename(%q) = %q, want %q", tt.title, got, tt.want)
		}
	}
}

func TestComposeWritesPDF(t *testing.T) {
	dir := t.TempDir()
	st := testStory(t, dir)
	out := filepath.Join(dir, Filename(st.Title))

	c := NewComposer(&fakeCovers{data: tinyJPEG(t)})
	if err := c.Compose(context.Background(), st, out); err != nil {
		t.Fatalf("Compose: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Errorf("output does not start with %%PDF: %q", data[:8])
	}
	if _, err := os.Stat(out + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary file left behind")
	}
}

func TestComposeWithoutCoverSource(t *testing.T) {
	dir := t.TempDir()
	st := testStory(t, dir)
	out := filepath.Join(dir, "book.pdf")

	if err := NewComposer(nil).Compose(context.Background(), st, out); err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if _, err := os.Stat(out); err != nil {
		t.Errorf("output missing: %v", err)
	}
}

func TestComposeSegmentWithoutImage(t *testing.T) {
	dir := t.TempDir()
	st := testStory(t, dir)
	st.Segments[1].ImagePath = ""
	out := filepath.Join(dir, "book.pdf")

	if err := NewComposer(nil).Compose(context.Background(), st, out); err != nil {
		t.Fatalf("Compose: %v", err)
	}
}

func TestComposeEmptyStory(t *testing.T) {
	out := filepath.Join(t.TempDir(), "book.pdf")
	err := NewComposer(nil).Compose(context.Background(), nil, out)
	if !errors.Is(err, ErrEmptyStory) {
		t.Fatalf("err = %v, want ErrEmptyStory", err)
	}
}

func TestComposeCoverFailure(t *testing.T) {
	dir := t.TempDir()
	st := testStory(t, dir)
	out := filepath.Join(dir, "book.pdf")

	boom := errors.New("provider down")
	err := NewComposer(&fakeCovers{err: boom}).Compose(context.Background(), st, out)
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped cover error", err)
	}
	if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
		t.Error("output written despite cover failure")
	}
}
