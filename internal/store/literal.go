package store

import (
	"fmt"
	"strconv"
	"strings"
)

type literalKind int

const (
	kindNone literalKind = iota
	kindString
	kindInt
	kindBool
	kindTuple
	kindList
)

// literal is one persisted value: a quoted string, an integer, a boolean,
// none, an integer tuple "(11, 8)" or a bracketed list of literals.
type literal struct {
	kind  literalKind
	str   string
	num   int
	flag  bool
	tuple []int
	list  []literal
}

func (l literal) String() string {
	switch l.kind {
	case kindString:
		return strconv.Quote(l.str)
	case kindInt:
		return strconv.Itoa(l.num)
	case kindBool:
		return strconv.FormatBool(l.flag)
	case kindTuple:
		parts := make([]string, len(l.tuple))
		for i, n := range l.tuple {
			parts[i] = strconv.Itoa(n)
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case kindList:
		parts := make([]string, len(l.list))
		for i, item := range l.list {
			parts[i] = item.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return "none"
	}
}

// parseLiteral parses exactly one literal; trailing input is an error.
func parseLiteral(s string) (literal, error) {
	p := &parser{src: s}
	l, err := p.value()
	if err != nil {
		return literal{}, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return literal{}, fmt.Errorf("unexpected %q at offset %d", p.src[p.pos:], p.pos)
	}
	return l, nil
}

type parser struct {
	src string
	pos int
}

func (p *parser) skipSpace() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t') {
		p.pos++
	}
}

func (p *parser) peek() byte {
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) value() (literal, error) {
	p.skipSpace()
	switch c := p.peek(); {
	case c == '"':
		return p.quoted()
	case c == '(':
		return p.tupleValue()
	case c == '[':
		return p.listValue()
	case c == '-' || (c >= '0' && c <= '9'):
		n, err := p.integer()
		return literal{kind: kindInt, num: n}, err
	default:
		return p.word()
	}
}

func (p *parser) quoted() (literal, error) {
	start := p.pos
	p.pos++
	for p.pos < len(p.src) {
		switch p.src[p.pos] {
		case '\\':
			p.pos += 2
			continue
		case '"':
			p.pos++
			s, err := strconv.Unquote(p.src[start:p.pos])
			if err != nil {
				return literal{}, fmt.Errorf("invalid string %s: %w", p.src[start:p.pos], err)
			}
			return literal{kind: kindString, str: s}, nil
		}
		p.pos++
	}
	return literal{}, fmt.Errorf("unterminated string")
}

func (p *parser) integer() (int, error) {
	start := p.pos
	if p.peek() == '-' {
		p.pos++
	}
	for p.pos < len(p.src) && p.src[p.pos] >= '0' && p.src[p.pos] <= '9' {
		p.pos++
	}
	n, err := strconv.Atoi(p.src[start:p.pos])
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q", p.src[start:p.pos])
	}
	return n, nil
}

func (p *parser) word() (literal, error) {
	start := p.pos
	for p.pos < len(p.src) && p.src[p.pos] >= 'a' && p.src[p.pos] <= 'z' {
		p.pos++
	}
	switch w := p.src[start:p.pos]; w {
	case "true", "false":
		return literal{kind: kindBool, flag: w == "true"}, nil
	case "none":
		return literal{kind: kindNone}, nil
	default:
		return literal{}, fmt.Errorf("unexpected %q at offset %d", p.src[start:], start)
	}
}

func (p *parser) tupleValue() (literal, error) {
	p.pos++ // (
	var nums []int
	for {
		p.skipSpace()
		if p.peek() == ')' && len(nums) > 0 {
			p.pos++
			return literal{kind: kindTuple, tuple: nums}, nil
		}
		n, err := p.integer()
		if err != nil {
			return literal{}, err
		}
		nums = append(nums, n)
		p.skipSpace()
		if p.peek() == ',' {
			p.pos++
			continue
		}
		if p.peek() != ')' {
			return literal{}, fmt.Errorf("expected ',' or ')' at offset %d", p.pos)
		}
	}
}

func (p *parser) listValue() (literal, error) {
	p.pos++ // [
	items := []literal{}
	for {
		p.skipSpace()
		if p.peek() == ']' {
			p.pos++
			return literal{kind: kindList, list: items}, nil
		}
		item, err := p.value()
		if err != nil {
			return literal{}, err
		}
		items = append(items, item)
		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
		case ']':
		default:
			return literal{}, fmt.Errorf("expected ',' or ']' at offset %d", p.pos)
		}
	}
}
