// Package imagemeta draws the social preview card linked from a posting's
// og:image tag.
package imagemeta

import (
	"bytes"
	"fmt"
	"image/color"
	"image/png"
	"io"

	"github.com/fogleman/gg"
	"github.com/gvfbla/jobboard/internal/listing"
	"github.com/pkg/errors"
	"golang.org/x/image/font/basicfont"
)

const (
	Width  = 1200
	Height = 628

	// basicfont is a 7x13 bitmap face, everything is drawn at this scale
	scale  = 4.0
	margin = 20.0
)

var (
	background = color.RGBA{R: 245, G: 247, B: 255, A: 255}
	accent     = color.RGBA{R: 0, G: 0, B: 144, A: 255}
	muted      = color.RGBA{R: 90, G: 90, B: 110, A: 255}
)

// GenerateImageForPosting renders a PNG card with the title, company,
// location and salary of p.
func GenerateImageForPosting(p listing.Posting, siteName string) (io.Reader, error) {
	dc := gg.NewContext(Width, Height)
	dc.SetColor(background)
	dc.Clear()
	dc.SetColor(accent)
	dc.DrawRectangle(0, 0, Width, 24)
	dc.Fill()

	dc.Scale(scale, scale)
	dc.SetFontFace(basicfont.Face7x13)
	maxWidth := Width/scale - 2*margin

	dc.SetColor(accent)
	dc.DrawStringWrapped(fmt.Sprintf("%s with %s", p.JobTitle, p.CompanyName), margin, margin+10, 0, 0, maxWidth, 1.5, gg.AlignLeft)

	details := p.Location
	if p.JobType != "" {
		details += " | " + p.JobType
	}
	if p.StartingSalary != "" {
		details += " | " + listing.HumanSalary(p.StartingSalary)
	}
	dc.SetColor(muted)
	dc.DrawStringWrapped(details, margin, Height/scale/2+10, 0, 0, maxWidth, 1.5, gg.AlignLeft)
	dc.DrawStringAnchored(siteName, Width/scale-margin, Height/scale-margin, 1, 0)

	w := new(bytes.Buffer)
	if err := png.Encode(w, dc.Image()); err != nil {
		return nil, errors.Wrap(err, "encode preview image")
	}
	return w, nil
}
