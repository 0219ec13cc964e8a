// Package book models the JSON mdBook exchanges with preprocessors.
package book

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Context is the first element of the preprocessor input.
type Context struct {
	Root          string                 `json:"root"`
	Config        map[string]interface{} `json:"config"`
	Renderer      string                 `json:"renderer"`
	MdbookVersion string                 `json:"mdbook_version"`
}

// Book is the second element of the preprocessor input and the whole output.
type Book struct {
	Sections []*BookItem `json:"sections"`
	// NonExhaustive is round-tripped untouched.
	NonExhaustive json.RawMessage `json:"__non_exhaustive"`
}

// Chapter is a single markdown file of the book.
type Chapter struct {
	Name    string          `json:"name"`
	Content string          `json:"content"`
	Number  json.RawMessage `json:"number"`
	// SubItems are nested chapters, separators and part titles.
	SubItems []*BookItem `json:"sub_items"`
	// Path is relative to the source directory, nil for draft chapters.
	Path        *string  `json:"path"`
	SourcePath  *string  `json:"source_path"`
	ParentNames []string `json:"parent_names"`
}

// MarshalJSON keeps the list fields as arrays, mdBook rejects null.
func (c *Chapter) MarshalJSON() ([]byte, error) {
	type plain Chapter
	out := plain(*c)
	if out.SubItems == nil {
		out.SubItems = []*BookItem{}
	}
	if out.ParentNames == nil {
		out.ParentNames = []string{}
	}
	return json.Marshal(&out)
}

// BookItem is exactly one of a chapter, a separator or a part title.
type BookItem struct {
	Chapter   *Chapter
	Separator bool
	PartTitle *string
}

const separatorTag = "Separator"

// MarshalJSON encodes the item in mdBook's externally tagged form.
func (b *BookItem) MarshalJSON() ([]byte, error) {
	switch {
	case b.Chapter != nil:
		return json.Marshal(map[string]*Chapter{"Chapter": b.Chapter})
	case b.PartTitle != nil:
		return json.Marshal(map[string]string{"PartTitle": *b.PartTitle})
	case b.Separator:
		return json.Marshal(separatorTag)
	default:
		return nil, errors.New("empty book item")
	}
}

// UnmarshalJSON decodes mdBook's externally tagged form.
func (b *BookItem) UnmarshalJSON(data []byte) error {
	*b = BookItem{}

	var tag string
	if err := json.Unmarshal(data, &tag); err == nil {
		if tag != separatorTag {
			return fmt.Errorf("unknown book item %q", tag)
		}
		b.Separator = true
		return nil
	}

	var tagged struct {
		Chapter   *Chapter `json:"Chapter"`
		PartTitle *string  `json:"PartTitle"`
	}
	if err := json.Unmarshal(data, &tagged); err != nil {
		return err
	}
	if tagged.Chapter == nil && tagged.PartTitle == nil {
		return fmt.Errorf("unknown book item %s", data)
	}

	b.Chapter = tagged.Chapter
	b.PartTitle = tagged.PartTitle
	return nil
}

// ErrStop can be returned from a ForEachChapter callback to stop walking
// without reporting an error.
var ErrStop = errors.New("stop walking chapters")

// ForEachChapter calls fn for every chapter, depth first in book order. The
// first error stops the walk and is returned.
func (b *Book) ForEachChapter(fn func(*Chapter) error) error {
	err := walk(b.Sections, fn)
	if errors.Is(err, ErrStop) {
		return nil
	}
	return err
}

func walk(items []*BookItem, fn func(*Chapter) error) error {
	for _, item := range items {
		if item.Chapter == nil {
			continue
		}
		if err := fn(item.Chapter); err != nil {
			return err
		}
		if err := walk(item.Chapter.SubItems, fn); err != nil {
			return err
		}
	}
	return nil
}

// ParseInput reads the `[context, book]` pair mdBook writes to a
// preprocessor's stdin.
func ParseInput(r io.Reader) (*Context, *Book, error) {
	var pair []json.RawMessage
	if err := json.NewDecoder(r).Decode(&pair); err != nil {
		return nil, nil, fmt.Errorf("couldn't parse preprocessor input: %w", err)
	}
	if len(pair) != 2 {
		return nil, nil, fmt.Errorf("couldn't parse preprocessor input: expected [context, book], got %d elements", len(pair))
	}

	var ctx Context
	if err := json.Unmarshal(pair[0], &ctx); err != nil {
		return nil, nil, fmt.Errorf("couldn't parse preprocessor context: %w", err)
	}

	var b Book
	if err := json.Unmarshal(pair[1], &b); err != nil {
		return nil, nil, fmt.Errorf("couldn't parse book: %w", err)
	}

	return &ctx, &b, nil
}

// WriteBook writes the book in the form mdBook expects on stdout.
func WriteBook(w io.Writer, b *Book) error {
	out := *b
	if out.Sections == nil {
		out.Sections = []*BookItem{}
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(&out); err != nil {
		return err
	}
	_, err := w.Write(buf.Bytes())
	return err
}
