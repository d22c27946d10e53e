package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

var fencedJSONPattern = regexp.MustCompile("(?is)```(?:json)?\\s*(\\{.*?\\})\\s*```")

var errNoFencedBlock = errors.New("no fenced JSON block")

// ParseStructured turns raw generation output into a JSON object. A fenced
// block is tried first, then the whole text as a string literal. When both
// fail the returned error is a *MalformedOutputError.
func ParseStructured(raw string) (map[string]any, error) {
	fencedErr := errNoFencedBlock
	if strings.Contains(raw, "```") {
		out, err := ParseFencedJSON(raw)
		if err == nil {
			return out, nil
		}
		fencedErr = err
	}

	out, rawErr := ParseRawJSON(raw)
	if rawErr == nil {
		return out, nil
	}

	return nil, &MalformedOutputError{Raw: raw, FencedErr: fencedErr, RawErr: rawErr}
}

// ParseFencedJSON extracts the first ```json block. A block that is valid
// as written is returned unchanged; otherwise doubled quotes, which the
// upstream model emits, are collapsed and the block is decoded again.
func ParseFencedJSON(raw string) (map[string]any, error) {
	match := fencedJSONPattern.FindStringSubmatch(raw)
	if match == nil {
		return nil, errNoFencedBlock
	}
	block := match[1]

	if out, err := decodeObject(block); err == nil {
		return out, nil
	}
	out, err := decodeObject(strings.ReplaceAll(block, `""`, `"`))
	if err != nil {
		return nil, fmt.Errorf("fenced block: %w", err)
	}
	return out, nil
}

// ParseRawJSON treats the whole text as a string literal: plain JSON, a
// JSON-encoded string holding JSON, or text with backslash escapes.
func ParseRawJSON(raw string) (map[string]any, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return nil, ErrEmptyGenerationResponse
	}

	out, err := decodeObject(text)
	if err == nil {
		return out, nil
	}

	if strings.HasPrefix(text, `"`) {
		var inner string
		if json.Unmarshal([]byte(text), &inner) == nil {
			if out, innerErr := decodeObject(strings.TrimSpace(inner)); innerErr == nil {
				return out, nil
			}
		}
	}

	unescaped, uerr := unescapeLiteral(text)
	if uerr != nil {
		return nil, fmt.Errorf("raw text: %w", uerr)
	}
	if unescaped != text {
		if out, err := decodeObject(strings.TrimSpace(unescaped)); err == nil {
			return out, nil
		}
	}

	return nil, fmt.Errorf("raw text: %w", err)
}

func decodeObject(text string) (map[string]any, error) {
	var value any
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	if err := dec.Decode(&value); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("trailing data after JSON value")
	}
	obj, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected JSON object, got %T", value)
	}
	return obj, nil
}

// unescapeLiteral resolves backslash escapes the way a quoted string literal
// would. Unknown escapes are kept as written.
func unescapeLiteral(s string) (string, error) {
	if !strings.Contains(s, `\`) {
		return s, nil
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 >= len(s) {
			b.WriteByte(c)
			continue
		}

		next := s[i+1]
		switch next {
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		case '"', '\'', '\\':
			b.WriteByte(next)
		case '\n':
			// line continuation
		case 'u', 'x':
			width := 4
			if next == 'x' {
				width = 2
			}
			if i+2+width > len(s) {
				return "", fmt.Errorf("truncated \\%c escape at offset %d", next, i)
			}
			code, err := strconv.ParseUint(s[i+2:i+2+width], 16, 32)
			if err != nil {
				return "", fmt.Errorf("invalid \\%c escape at offset %d", next, i)
			}
			r := rune(code)
			if !utf8.ValidRune(r) {
				r = utf8.RuneError
			}
			b.WriteRune(r)
			i += width
		default:
			b.WriteByte('\\')
			b.WriteByte(next)
		}
		i++
	}
	return b.String(), nil
}
