package nfo

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/cases"
)

// ErrMalformed reports a sidecar that is not a well-formed XML document.
var ErrMalformed = errors.New("malformed nfo")

// TagElement is the child element name used for library tags.
const TagElement = "tag"

const defaultIndent = "  "

// Document is a parsed sidecar. Only AddTags mutates it.
type Document struct {
	text string
	root string

	rootIndent  string
	rootOpen    [2]int // byte span of the root start element
	rootClose   int    // offset of the root end element
	selfClosing bool

	childIndent string
	inline      bool

	tags  []string
	added []string
}

// NewSkeleton returns an empty document with the given root element.
func NewSkeleton(root string) *Document {
	root = strings.TrimSpace(root)
	if root == "" {
		root = "movie"
	}
	doc, err := Parse([]byte(declaration + "\n<" + root + "/>\n"))
	if err != nil {
		panic(fmt.Sprintf("nfo: invalid skeleton root %q: %v", root, err))
	}
	return doc
}

// Parse decodes a sidecar. Whitespace-only input yields a movie skeleton.
func Parse(data []byte) (*Document, error) {
	text, err := decodeToUTF8(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if strings.TrimSpace(text) == "" {
		return NewSkeleton("movie"), nil
	}
	doc := &Document{text: rewriteDeclaration(text)}
	if err := doc.scan(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return doc, nil
}

func (d *Document) scan() error {
	dec := xml.NewDecoder(strings.NewReader(d.text))
	dec.Strict = true

	depth := 0
	rootSeen := false
	rootDone := false
	var tagText *strings.Builder
	tagDepth := 0
	childIndentSet := false
	sawChild := false

	for {
		offset := int(dec.InputOffset())
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if depth == 0 {
				if rootSeen {
					return fmt.Errorf("multiple root elements (%s after %s)", t.Name.Local, d.root)
				}
				rootSeen = true
				d.root = t.Name.Local
				d.rootOpen = [2]int{offset, int(dec.InputOffset())}
				d.rootIndent, _ = lineIndent(d.text, offset)
				d.selfClosing = strings.HasSuffix(d.text[:d.rootOpen[1]], "/>")
			}
			if depth == 1 {
				sawChild = true
				// Indentation comes from the first child that starts its own line.
				if indent, onNewLine := lineIndent(d.text, offset); onNewLine && !childIndentSet {
					d.childIndent = indent
					childIndentSet = true
				}
				if t.Name.Local == TagElement && t.Name.Space == "" {
					tagText = &strings.Builder{}
					tagDepth = depth + 1
				}
			}
			depth++
		case xml.CharData:
			if tagText != nil && depth == tagDepth {
				tagText.Write(t)
			}
			if depth == 0 && len(bytes.TrimSpace(t)) > 0 {
				return errors.New("character data outside the root element")
			}
		case xml.EndElement:
			depth--
			if tagText != nil && depth+1 == tagDepth {
				d.tags = append(d.tags, strings.TrimSpace(tagText.String()))
				tagText = nil
			}
			if depth == 0 {
				d.rootClose = offset
				rootDone = true
			}
		}
	}
	if !rootSeen || !rootDone {
		return errors.New("missing root element")
	}
	if !childIndentSet {
		d.childIndent = d.rootIndent + defaultIndent
	}
	_, closeOnOwnLine := lineIndent(d.text, d.rootClose)
	d.inline = sawChild && !childIndentSet && !closeOnOwnLine
	return nil
}

// lineIndent returns the whitespace between the previous newline and offset,
// and whether that span is preceded by a newline with nothing else in between.
func lineIndent(text string, offset int) (string, bool) {
	start := strings.LastIndexByte(text[:offset], '\n')
	prefix := text[start+1 : offset]
	if strings.TrimLeft(prefix, " \t") != "" {
		return "", false
	}
	return prefix, start >= 0
}

// Root is the name of the document element.
func (d *Document) Root() string { return d.root }

// Tags lists the trimmed text of every <tag> child of the root, including
// tags added by AddTags.
func (d *Document) Tags() []string {
	out := make([]string, 0, len(d.tags)+len(d.added))
	out = append(out, d.tags...)
	return append(out, d.added...)
}

// HasTag compares trimmed values under full Unicode case folding, so
// "Straße" and "STRASSE" are the same tag.
func (d *Document) HasTag(tag string) bool {
	folder := cases.Fold()
	want := folder.String(strings.TrimSpace(tag))
	for _, existing := range d.Tags() {
		if folder.String(existing) == want {
			return true
		}
	}
	return false
}

// AddTags appends each tag not already present and reports which tags were
// added and which were already there. Blank tags are ignored.
func (d *Document) AddTags(tags ...string) (added, present []string) {
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if d.HasTag(tag) {
			present = append(present, tag)
			continue
		}
		d.added = append(d.added, tag)
		added = append(added, tag)
	}
	return added, present
}

// Changed reports whether AddTags added anything.
func (d *Document) Changed() bool { return len(d.added) > 0 }

// Bytes renders the document as UTF-8.
func (d *Document) Bytes() []byte {
	if len(d.added) == 0 {
		return []byte(d.text)
	}
	var b strings.Builder
	if d.selfClosing {
		open := strings.TrimRight(strings.TrimSuffix(d.text[d.rootOpen[0]:d.rootOpen[1]], "/>"), " \t\r\n")
		b.WriteString(d.text[:d.rootOpen[0]])
		b.WriteString(open)
		b.WriteString(">")
		d.writeAdded(&b, d.childIndent, false)
		b.WriteString("\n")
		b.WriteString(d.rootIndent)
		b.WriteString("</")
		b.WriteString(d.rootName())
		b.WriteString(">")
		b.WriteString(d.text[d.rootOpen[1]:])
		return []byte(b.String())
	}

	before := d.text[:d.rootClose]
	if d.inline {
		b.WriteString(before)
		d.writeAdded(&b, "", true)
		b.WriteString(d.text[d.rootClose:])
		return []byte(b.String())
	}
	trimmed := strings.TrimRight(before, " \t\r\n")
	trailing := before[len(trimmed):]
	closeIndent := d.rootIndent
	if nl := strings.LastIndexByte(trailing, '\n'); nl >= 0 {
		closeIndent = trailing[nl+1:]
		trailing = strings.TrimSuffix(trailing[:nl], "\r")
	} else {
		trailing = ""
	}
	b.WriteString(trimmed)
	b.WriteString(trailing)
	d.writeAdded(&b, d.childIndent, false)
	b.WriteString("\n")
	b.WriteString(closeIndent)
	b.WriteString(d.text[d.rootClose:])
	return []byte(b.String())
}

func (d *Document) writeAdded(b *strings.Builder, indent string, inline bool) {
	for _, tag := range d.added {
		if !inline {
			b.WriteString("\n")
			b.WriteString(indent)
		}
		b.WriteString("<" + TagElement + ">")
		_ = xml.EscapeText(b, []byte(tag))
		b.WriteString("</" + TagElement + ">")
	}
}

// rootName returns the qualified root name as written in the source.
func (d *Document) rootName() string {
	open := d.text[d.rootOpen[0]+1 : d.rootOpen[1]]
	if i := strings.IndexAny(open, " \t\r\n/>"); i >= 0 {
		return open[:i]
	}
	return open
}
