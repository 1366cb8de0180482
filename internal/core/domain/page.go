package domain

import "sync/atomic"

// Point is an integer pixel coordinate on a scanned image
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Corners are the four quadrilateral reference points used to rectify a scan.
// Produced by the vision estimator, adjustable by the user.
type Corners struct {
	UpLeft    Point `json:"up_left"`
	UpRight   Point `json:"up_right"`
	DownLeft  Point `json:"down_left"`
	DownRight Point `json:"down_right"`
}

// DefaultCorners returns the initial guess used before an estimate is available
func DefaultCorners() Corners {
	return Corners{
		UpLeft:    Point{X: 50, Y: 50},
		UpRight:   Point{X: 100, Y: 50},
		DownLeft:  Point{X: 50, Y: 200},
		DownRight: Point{X: 100, Y: 200},
	}
}

// Width is the horizontal extent of the top edge
func (c Corners) Width() int {
	return c.UpRight.X - c.UpLeft.X
}

// Height is the vertical extent of the left edge
func (c Corners) Height() int {
	return c.DownLeft.Y - c.UpLeft.Y
}

// Config holds per-page image adjustment parameters.
// The zero value is the default configuration.
type Config struct {
	ColorTemperature float64 `json:"color_temperature"`
	ContrastBoost    float64 `json:"contrast_boost"`
	FlipHorizontal   bool    `json:"flip_horizontal"`
	FlipVertical     bool    `json:"flip_vertical"`
	Rotation         float64 `json:"rotation"`
}

// Position is the bounding box of one recognised word
type Position struct {
	XMin int    `json:"xmin"`
	YMin int    `json:"ymin"`
	XMax int    `json:"xmax"`
	YMax int    `json:"ymax"`
	Word string `json:"word"`
}

// PageText is the extracted text of a page.
// A PageText is never modified after construction; OCR replaces it wholesale.
type PageText struct {
	fullText  string
	positions []Position
}

var emptyText = &PageText{}

// NewPageText creates an immutable text value. The positions slice is copied.
func NewPageText(fullText string, positions []Position) *PageText {
	pt := &PageText{fullText: fullText}
	if len(positions) > 0 {
		pt.positions = make([]Position, len(positions))
		copy(pt.positions, positions)
	}
	return pt
}

// FullText returns the complete extracted string
func (t *PageText) FullText() string {
	return t.fullText
}

// Positions returns a copy of the ordered word positions
func (t *PageText) Positions() []Position {
	out := make([]Position, len(t.positions))
	copy(out, t.positions)
	return out
}

// WordCount returns the number of word positions
func (t *PageText) WordCount() int {
	return len(t.positions)
}

// IsEmpty reports whether no text has been extracted
func (t *PageText) IsEmpty() bool {
	return t.fullText == "" && len(t.positions) == 0
}

// Page is one scanned image within a document.
// Pages must not be copied after first use.
type Page struct {
	Order              int
	Name               string
	RawImagePath       string
	ProcessedImagePath string
	MetadataPath       string
	Corners            Corners
	Config             Config

	// text may be replaced by the OCR worker while the control thread reads it
	text atomic.Pointer[PageText]
}

// NewPage creates a page with default corners, config and empty text
func NewPage(name string) *Page {
	return &Page{
		Name:    name,
		Corners: DefaultCorners(),
	}
}

// Text returns a consistent snapshot of the page text. Never nil.
func (p *Page) Text() *PageText {
	if t := p.text.Load(); t != nil {
		return t
	}
	return emptyText
}

// SetText atomically replaces the page text. A nil value clears it.
func (p *Page) SetText(t *PageText) {
	if t == nil {
		t = emptyText
	}
	p.text.Store(t)
}

// FullText is shorthand for Text().FullText()
func (p *Page) FullText() string {
	return p.Text().FullText()
}

// HasText reports whether OCR has populated the page
func (p *Page) HasText() bool {
	return !p.Text().IsEmpty()
}
