package codec

import (
	"errors"
	"fmt"
	"strings"
)

var ErrMalformedArray = errors.New("malformed array literal")

// ParseArray parses an engine array literal such as {1,2,NULL} or
// {{"a b","c\"d"},{e,f}} and applies decode to every non-NULL element.
// Nested arrays become nested []any. A nil decode keeps elements as strings.
func ParseArray(text string, decode Decoder) ([]any, error) {
	if decode == nil {
		decode = decodeText
	}
	p := &arrayParser{src: text, decode: decode}

	// Skip explicit bounds such as "[0:2]={1,2,3}".
	if strings.HasPrefix(text, "[") {
		if i := strings.IndexByte(text, '='); i >= 0 {
			p.pos = i + 1
		}
	}

	values, err := p.parseArray()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return nil, p.errorf("unexpected trailing input")
	}
	return values, nil
}

type arrayParser struct {
	src    string
	pos    int
	decode Decoder
}

func (p *arrayParser) errorf(format string, args ...any) error {
	return fmt.Errorf("%w %q at offset %d: %s", ErrMalformedArray, p.src, p.pos, fmt.Sprintf(format, args...))
}

func (p *arrayParser) peek() byte {
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *arrayParser) skipSpace() {
	for p.pos < len(p.src) && isArraySpace(p.src[p.pos]) {
		p.pos++
	}
}

func (p *arrayParser) parseArray() ([]any, error) {
	p.skipSpace()
	if p.peek() != '{' {
		return nil, p.errorf("expected '{'")
	}
	p.pos++

	values := []any{}
	p.skipSpace()
	if p.peek() == '}' {
		p.pos++
		return values, nil
	}

	for {
		p.skipSpace()
		value, err := p.parseElement()
		if err != nil {
			return nil, err
		}
		values = append(values, value)

		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
		case '}':
			p.pos++
			return values, nil
		default:
			return nil, p.errorf("expected ',' or '}'")
		}
	}
}

func (p *arrayParser) parseElement() (any, error) {
	switch p.peek() {
	case '{':
		return p.parseArray()
	case '"':
		s, err := p.readQuoted()
		if err != nil {
			return nil, err
		}
		return p.decode(s)
	default:
		s, err := p.readUnquoted()
		if err != nil {
			return nil, err
		}
		if s == "NULL" || strings.EqualFold(s, "null") {
			return nil, nil
		}
		return p.decode(s)
	}
}

func (p *arrayParser) readQuoted() (string, error) {
	p.pos++ // opening quote
	var sb strings.Builder
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch c {
		case '\\':
			p.pos++
			if p.pos >= len(p.src) {
				return "", p.errorf("unterminated escape")
			}
			sb.WriteByte(p.src[p.pos])
		case '"':
			p.pos++
			return sb.String(), nil
		default:
			sb.WriteByte(c)
		}
		p.pos++
	}
	return "", p.errorf("unterminated quoted element")
}

func (p *arrayParser) readUnquoted() (string, error) {
	var sb strings.Builder
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch c {
		case ',', '}':
			s := strings.TrimRight(sb.String(), " \t\r\n")
			if s == "" {
				return "", p.errorf("empty element")
			}
			return s, nil
		case '{', '"':
			return "", p.errorf("unexpected %q", c)
		case '\\':
			p.pos++
			if p.pos >= len(p.src) {
				return "", p.errorf("unterminated escape")
			}
			sb.WriteByte(p.src[p.pos])
		default:
			sb.WriteByte(c)
		}
		p.pos++
	}
	return "", p.errorf("unterminated array")
}

func isArraySpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
