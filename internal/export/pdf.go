// Package export composes a finished story into a printable PDF booklet:
// a full-bleed cover, a title page, then one page per segment with its
// illustration above the paragraph text.
package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/go-pdf/fpdf"
	"github.com/sirupsen/logrus"

	"storyweaver/internal/story"
)

const (
	pageMargin  = 60.0
	titleSize   = 36.0
	bodySize    = 14.0
	bodyLeading = 20.0
)

// ErrEmptyStory means there is nothing to export.
var ErrEmptyStory = errors.New("story has no segments to export")

// CoverSource produces the book cover illustration. A nil source skips the
// cover page, which keeps export usable offline from a saved story.
type CoverSource interface {
	GenerateCover(ctx context.Context, title, about string) ([]byte, error)
}

// Composer builds storybook PDFs.
type Composer struct {
	covers CoverSource
	log    *logrus.Entry
}

func NewComposer(covers CoverSource) *Composer {
	return &Composer{
		covers: covers,
		log:    logrus.WithField("component", "export"),
	}
}

// Filename derives the PDF filename from a story title.
func Filename(title string) string {
	slug := story.Slug(title)
	if slug == "" {
		slug = "untitled"
	}
	return slug + "_storybook.pdf"
}

// Compose writes the storybook PDF to outPath. The file is written to a
// temporary sibling first and renamed into place, so a failed export never
// leaves a half-written PDF behind.
func (c *Composer) Compose(ctx context.Context, st *story.Story, outPath string) error {
	if st == nil || len(st.Segments) == 0 {
		return ErrEmptyStory
	}

	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pageW, pageH := pdf.GetPageSize()
	contentW := pageW - 2*pageMargin

	if c.covers != nil {
		cover, err := c.covers.GenerateCover(ctx, st.Title, st.Prompt)
		if err != nil {
			return fmt.Errorf("cover generation failed: %w", err)
		}
		pdf.RegisterImageOptionsReader("cover",
			fpdf.ImageOptions{ImageType: "JPG"}, bytes.NewReader(cover))
		pdf.AddPage()
		pdf.ImageOptions("cover", 0, 0, pageW, pageH, false,
			fpdf.ImageOptions{ImageType: "JPG"}, 0, "")
	}

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", titleSize)
	pdf.SetY(pageH / 3)
	pdf.MultiCell(contentW, titleSize+8, tr(st.Title), "", "C", false)

	for i, seg := range st.Segments {
		pdf.AddPage()
		textY := pageMargin

		if seg.ImagePath != "" {
			imgH := contentW * 3 / 4
			pdf.ImageOptions(seg.ImagePath, pageMargin, pageMargin, contentW, imgH, false,
				fpdf.ImageOptions{}, 0, "")
			textY = pageMargin + imgH + bodyLeading
		} else {
			c.log.WithField("segment", i+1).Warn("segment has no illustration, exporting text only")
		}

		pdf.SetY(textY)
		pdf.SetFont("Helvetica", "", bodySize)
		pdf.MultiCell(contentW, bodyLeading, tr(seg.Paragraph), "", "L", false)
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("failed to compose pdf: %w", err)
	}

	tmp := outPath + ".tmp"
	if err := pdf.OutputFileAndClose(tmp); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write pdf: %w", err)
	}
	return os.Rename(tmp, outPath)
}
