package tesseract

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/text/encoding/charmap"

	"github.com/custodia-labs/sercha-scan/internal/core/domain"
)

// parseHOCR extracts every ocrx_word of an hOCR document in document order.
// The full text is the words joined by single spaces.
func parseHOCR(data []byte) (*domain.PageText, error) {
	decoded, err := decodeHOCR(data)
	if err != nil {
		return nil, err
	}

	doc, err := html.Parse(bytes.NewReader(decoded))
	if err != nil {
		return nil, fmt.Errorf("%w: hocr: %w", domain.ErrParse, err)
	}

	var (
		words     []string
		positions []domain.Position
		pages     int
	)
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			class := attr(n, "class")
			if hasClass(class, "ocr_page") {
				pages++
			}
			if hasClass(class, "ocrx_word") {
				word := strings.TrimSpace(nodeText(n))
				if word == "" {
					return
				}
				words = append(words, word)
				if box, ok := parseBBox(attr(n, "title")); ok {
					positions = append(positions, domain.Position{
						XMin: box[0], YMin: box[1], XMax: box[2], YMax: box[3], Word: word,
					})
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	if pages == 0 {
		return nil, fmt.Errorf("%w: no ocr_page elements found in hocr output", domain.ErrParse)
	}
	return domain.NewPageText(strings.Join(words, " "), positions), nil
}

// decodeHOCR converts Latin-1 output to UTF-8; anything else is taken as UTF-8
func decodeHOCR(data []byte) ([]byte, error) {
	head := strings.ToLower(string(data[:min(len(data), 1024)]))
	idx := strings.Index(head, "charset=")
	if idx < 0 {
		return data, nil
	}
	enc := strings.FieldsFunc(head[idx+len("charset="):], func(r rune) bool {
		return r == '"' || r == ';' || r == '\'' || r == '>' || r == ' ' || r == '/'
	})
	if len(enc) == 0 {
		return data, nil
	}
	switch enc[0] {
	case "iso-8859-1", "latin1", "latin-1":
		out, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
		if err != nil {
			return nil, fmt.Errorf("%w: decode %s: %w", domain.ErrParse, enc[0], err)
		}
		return out, nil
	case "windows-1252", "cp1252":
		out, err := charmap.Windows1252.NewDecoder().Bytes(data)
		if err != nil {
			return nil, fmt.Errorf("%w: decode %s: %w", domain.ErrParse, enc[0], err)
		}
		return out, nil
	}
	return data, nil
}

// parseBBox reads "bbox x0 y0 x1 y1" from an hOCR title such as
// "bbox 36 92 96 116; x_wconf 93"
func parseBBox(title string) ([4]int, bool) {
	var box [4]int
	for _, part := range strings.Split(title, ";") {
		fields := strings.Fields(part)
		if len(fields) < 5 || fields[0] != "bbox" {
			continue
		}
		for i := 0; i < 4; i++ {
			v, err := strconv.Atoi(fields[i+1])
			if err != nil {
				return box, false
			}
			box[i] = v
		}
		return box, true
	}
	return box, false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(classes, class string) bool {
	for _, c := range strings.Fields(classes) {
		if c == class {
			return true
		}
	}
	return false
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return b.String()
}
