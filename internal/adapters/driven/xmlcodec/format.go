package xmlcodec

import (
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"strconv"
	"unicode/utf8"

	"github.com/custodia-labs/sercha-scan/internal/core/domain"
)

// documentXML is the document index: display name plus (order, metafile, name)
// triples
type documentXML struct {
	XMLName xml.Name     `xml:"DOCUMENT"`
	Name    string       `xml:"name,attr"`
	Pages   []pageRefXML `xml:"PAGES>PAGE"`
}

type pageRefXML struct {
	Order    int    `xml:"order,attr"`
	Metafile string `xml:"metafile,attr"`
	Name     string `xml:"name,attr"`
}

// pageXML is the per-page metadata record
type pageXML struct {
	XMLName xml.Name    `xml:"PAGE"`
	Name    string      `xml:"name,attr"`
	Image   imageXML    `xml:"IMG"`
	Corners *cornersXML `xml:"CORNERS"`
	Text    textXML     `xml:"TEXT"`
	Config  configXML   `xml:"CONFIG"`
}

type imageXML struct {
	Path      string `xml:"path,attr"`
	Processed string `xml:"processed,attr"`
}

type cornersXML struct {
	UpLeft    pointXML `xml:"UPLEFT"`
	UpRight   pointXML `xml:"UPRIGHT"`
	DownLeft  pointXML `xml:"DOWNLEFT"`
	DownRight pointXML `xml:"DOWNRIGHT"`
}

type pointXML struct {
	X int `xml:"x,attr"`
	Y int `xml:"y,attr"`
}

type textXML struct {
	FullText fullTextXML `xml:"FULLTEXT"`
	Words    []wordXML   `xml:"POSITIONS>WORD"`
}

// fullTextXML carries the text verbatim, or base64 when encoding is set
type fullTextXML struct {
	Encoding string `xml:"encoding,attr,omitempty"`
	Value    string `xml:",chardata"`
}

type wordXML struct {
	XMin     int    `xml:"xmin,attr"`
	YMin     int    `xml:"ymin,attr"`
	XMax     int    `xml:"xmax,attr"`
	YMax     int    `xml:"ymax,attr"`
	Value    string `xml:"value,attr"`
	Encoding string `xml:"encoding,attr,omitempty"`
}

type configXML struct {
	ColorTemp     valueXML `xml:"COLORTEMP"`
	ContrastBoost valueXML `xml:"CONTRASTBOOST"`
	FlipH         valueXML `xml:"FLIPH"`
	FlipV         valueXML `xml:"FLIPV"`
	Rotate        valueXML `xml:"ROTATE"`
}

type valueXML struct {
	Value string `xml:"value,attr"`
}

// startupXML is the persisted workspace state
type startupXML struct {
	XMLName     xml.Name   `xml:"STARTUP"`
	Tesseract   *pathXML   `xml:"TESSERACT"`
	WorkingDoc  *valueXML  `xml:"WORKINGDOC"`
	WorkingPage *valueXML  `xml:"WORKINGPAGE"`
	Documents   []valueXML `xml:"DOCLIST>DOC"`
}

type pathXML struct {
	Path string `xml:"path,attr"`
}

func toPageXML(page *domain.Page) (pageXML, error) {
	if err := requireXMLSafe(page.Name, page.RawImagePath, page.ProcessedImagePath); err != nil {
		return pageXML{}, err
	}

	// one snapshot for both fields
	text := page.Text()
	positions := text.Positions()
	fullText, fullTextEncoding := encodeText(text.FullText())

	out := pageXML{
		Name: page.Name,
		Image: imageXML{
			Path:      page.RawImagePath,
			Processed: page.ProcessedImagePath,
		},
		Corners: &cornersXML{
			UpLeft:    pointXML(page.Corners.UpLeft),
			UpRight:   pointXML(page.Corners.UpRight),
			DownLeft:  pointXML(page.Corners.DownLeft),
			DownRight: pointXML(page.Corners.DownRight),
		},
		Text: textXML{
			FullText: fullTextXML{Encoding: fullTextEncoding, Value: fullText},
			Words:    make([]wordXML, 0, len(positions)),
		},
		Config: configXML{
			ColorTemp:     valueXML{formatFloat(page.Config.ColorTemperature)},
			ContrastBoost: valueXML{formatFloat(page.Config.ContrastBoost)},
			FlipH:         valueXML{formatBool(page.Config.FlipHorizontal)},
			FlipV:         valueXML{formatBool(page.Config.FlipVertical)},
			Rotate:        valueXML{formatFloat(page.Config.Rotation)},
		},
	}
	for _, p := range positions {
		value, encoding := encodeText(p.Word)
		out.Text.Words = append(out.Text.Words, wordXML{
			XMin: p.XMin, YMin: p.YMin, XMax: p.XMax, YMax: p.YMax,
			Value: value, Encoding: encoding,
		})
	}
	return out, nil
}

func fromPageXML(in pageXML, metadataPath string) (*domain.Page, error) {
	page := domain.NewPage(in.Name)
	page.RawImagePath = in.Image.Path
	page.ProcessedImagePath = in.Image.Processed
	page.MetadataPath = metadataPath

	if in.Corners != nil {
		page.Corners = domain.Corners{
			UpLeft:    domain.Point(in.Corners.UpLeft),
			UpRight:   domain.Point(in.Corners.UpRight),
			DownLeft:  domain.Point(in.Corners.DownLeft),
			DownRight: domain.Point(in.Corners.DownRight),
		}
	}

	var err error
	cfg := &page.Config
	if cfg.ColorTemperature, err = parseFloat("COLORTEMP", in.Config.ColorTemp.Value); err != nil {
		return nil, err
	}
	if cfg.ContrastBoost, err = parseFloat("CONTRASTBOOST", in.Config.ContrastBoost.Value); err != nil {
		return nil, err
	}
	if cfg.FlipHorizontal, err = parseBool("FLIPH", in.Config.FlipH.Value); err != nil {
		return nil, err
	}
	if cfg.FlipVertical, err = parseBool("FLIPV", in.Config.FlipV.Value); err != nil {
		return nil, err
	}
	if cfg.Rotation, err = parseFloat("ROTATE", in.Config.Rotate.Value); err != nil {
		return nil, err
	}

	fullText, err := decodeText("FULLTEXT", in.Text.FullText.Value, in.Text.FullText.Encoding)
	if err != nil {
		return nil, err
	}
	positions := make([]domain.Position, 0, len(in.Text.Words))
	for _, w := range in.Text.Words {
		word, err := decodeText("WORD", w.Value, w.Encoding)
		if err != nil {
			return nil, err
		}
		positions = append(positions, domain.Position{
			XMin: w.XMin, YMin: w.YMin, XMax: w.XMax, YMax: w.YMax, Word: word,
		})
	}
	page.SetText(domain.NewPageText(fullText, positions))
	return page, nil
}

const base64Encoding = "base64"

// encodeText returns s unchanged when XML can carry it. Anything else
// (control characters, invalid UTF-8) is stored as base64.
func encodeText(s string) (value, encoding string) {
	if xmlSafe(s) {
		return s, ""
	}
	return base64.StdEncoding.EncodeToString([]byte(s)), base64Encoding
}

func decodeText(field, value, encoding string) (string, error) {
	switch encoding {
	case "":
		return value, nil
	case base64Encoding:
		data, err := base64.StdEncoding.DecodeString(value)
		if err != nil {
			return "", fmt.Errorf("%w: %s: %w", domain.ErrParse, field, err)
		}
		return string(data), nil
	}
	return "", fmt.Errorf("%w: %s encoding %q", domain.ErrParse, field, encoding)
}

// requireXMLSafe rejects names and paths the encoder would alter
func requireXMLSafe(values ...string) error {
	for _, v := range values {
		if !xmlSafe(v) {
			return fmt.Errorf("%w: %q cannot be stored as XML", domain.ErrInvalidInput, v)
		}
	}
	return nil
}

// xmlSafe reports whether s survives encoding/xml unchanged. The encoder
// replaces invalid UTF-8 and characters outside the XML Char range with U+FFFD.
func xmlSafe(s string) bool {
	if !utf8.ValidString(s) {
		return false
	}
	for _, r := range s {
		if !isXMLChar(r) {
			return false
		}
	}
	return true
}

func isXMLChar(r rune) bool {
	return r == 0x09 || r == 0x0A || r == 0x0D ||
		r >= 0x20 && r <= 0xD7FF ||
		r >= 0xE000 && r <= 0xFFFD ||
		r >= 0x10000 && r <= 0x10FFFF
}

// formatFloat uses the shortest representation that parses back to the same value
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func parseFloat(field, s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s value %q", domain.ErrParse, field, s)
	}
	return f, nil
}

func formatBool(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func parseBool(field, s string) (bool, error) {
	switch s {
	case "yes":
		return true, nil
	case "no", "":
		return false, nil
	}
	return false, fmt.Errorf("%w: %s value %q", domain.ErrParse, field, s)
}
