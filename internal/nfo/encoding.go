package nfo

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var (
	declPattern       = regexp.MustCompile(`^<\?xml\s[^?]*\?>`)
	encodingPattern   = regexp.MustCompile(`encoding\s*=\s*["']([A-Za-z0-9._:-]+)["']`)
	versionPattern    = regexp.MustCompile(`version\s*=\s*["']([0-9.]+)["']`)
	standalonePattern = regexp.MustCompile(`standalone\s*=\s*["'](yes|no)["']`)
)

// declaration is the UTF-8 prolog written on render.
const declaration = `<?xml version="1.0" encoding="UTF-8"?>`

// decodeToUTF8 converts raw sidecar bytes to UTF-8 text using the BOM if
// present, otherwise the encoding named in the XML declaration.
func decodeToUTF8(data []byte) (string, error) {
	if hasBOM(data) {
		out, err := io.ReadAll(transform.NewReader(bytes.NewReader(data), unicode.BOMOverride(unicode.UTF8.NewDecoder())))
		if err != nil {
			return "", fmt.Errorf("decode byte order mark: %w", err)
		}
		return string(out), nil
	}
	label := declaredEncoding(data)
	if isUTF8Label(label) {
		return string(data), nil
	}
	reader, err := charset.NewReaderLabel(label, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("unsupported encoding %q: %w", label, err)
	}
	out, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", label, err)
	}
	return string(out), nil
}

func hasBOM(data []byte) bool {
	return bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}) ||
		bytes.HasPrefix(data, []byte{0xFE, 0xFF}) ||
		bytes.HasPrefix(data, []byte{0xFF, 0xFE})
}

func declaredEncoding(data []byte) string {
	decl := declPattern.Find(data)
	if decl == nil {
		return ""
	}
	match := encodingPattern.FindSubmatch(decl)
	if match == nil {
		return ""
	}
	return string(match[1])
}

func isUTF8Label(label string) bool {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "", "utf-8", "utf8":
		return true
	}
	return false
}

// rewriteDeclaration replaces an existing prolog with a UTF-8 one, keeping
// the version and standalone pseudo-attributes. Text without a prolog gets
// the default declaration prepended.
func rewriteDeclaration(text string) string {
	decl := declPattern.FindString(text)
	if decl == "" {
		return declaration + "\n" + text
	}
	version := "1.0"
	if m := versionPattern.FindStringSubmatch(decl); m != nil {
		version = m[1]
	}
	var b strings.Builder
	b.WriteString(`<?xml version="`)
	b.WriteString(version)
	b.WriteString(`" encoding="UTF-8"`)
	if m := standalonePattern.FindStringSubmatch(decl); m != nil {
		b.WriteString(` standalone="`)
		b.WriteString(m[1])
		b.WriteString(`"`)
	}
	b.WriteString("?>")
	return b.String() + text[len(decl):]
}
