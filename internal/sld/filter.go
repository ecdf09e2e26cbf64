package sld

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Condition tests feature properties.
type Condition interface {
	Match(props map[string]any) bool
	String() string
}

// Filter is a decoded ogc:Filter.
type Filter struct {
	Condition Condition
}

// Match reports whether the feature properties satisfy the filter. An empty
// filter matches everything.
func (f *Filter) Match(props map[string]any) bool {
	if f == nil || f.Condition == nil {
		return true
	}
	return f.Condition.Match(props)
}

func (f *Filter) MarshalJSON() ([]byte, error) {
	if f == nil || f.Condition == nil {
		return []byte("null"), nil
	}
	return json.Marshal(f.Condition.String())
}

// node is a generic XML element used to walk filter trees.
type node struct {
	XMLName xml.Name
	Attrs   []xml.Attr `xml:",any,attr"`
	Content string     `xml:",chardata"`
	Nodes   []node     `xml:",any"`
}

func (n node) attr(name string) string {
	for _, a := range n.Attrs {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

func (n node) child(local string) (node, bool) {
	for _, c := range n.Nodes {
		if c.XMLName.Local == local {
			return c, true
		}
	}
	return node{}, false
}

func (n node) text() string { return strings.TrimSpace(n.Content) }

func (f *Filter) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var root node
	if err := d.DecodeElement(&root, &start); err != nil {
		return err
	}
	switch len(root.Nodes) {
	case 0:
		return nil
	case 1:
		c, err := compile(root.Nodes[0])
		if err != nil {
			return err
		}
		f.Condition = c
		return nil
	default:
		c, err := compileLogical("And", root.Nodes)
		if err != nil {
			return err
		}
		f.Condition = c
		return nil
	}
}

func compile(n node) (Condition, error) {
	switch op := n.XMLName.Local; op {
	case "And", "Or":
		return compileLogical(op, n.Nodes)
	case "Not":
		if len(n.Nodes) != 1 {
			return nil, fmt.Errorf("filter Not needs one operand, got %d", len(n.Nodes))
		}
		inner, err := compile(n.Nodes[0])
		if err != nil {
			return nil, err
		}
		return not{inner}, nil
	case "PropertyIsEqualTo", "PropertyIsNotEqualTo", "PropertyIsLessThan",
		"PropertyIsLessThanOrEqualTo", "PropertyIsGreaterThan", "PropertyIsGreaterThanOrEqualTo":
		prop, lit, err := operands(n)
		if err != nil {
			return nil, err
		}
		return comparison{op: op, property: prop, literal: lit, matchCase: n.attr("matchCase") != "false"}, nil
	case "PropertyIsBetween":
		prop, ok := n.child("PropertyName")
		lower, lok := n.child("LowerBoundary")
		upper, uok := n.child("UpperBoundary")
		if !ok || !lok || !uok {
			return nil, fmt.Errorf("filter %s is incomplete", op)
		}
		return between{property: prop.text(), lower: boundary(lower), upper: boundary(upper)}, nil
	case "PropertyIsLike":
		prop, lit, err := operands(n)
		if err != nil {
			return nil, err
		}
		re, err := likePattern(lit, n.attr("wildCard"), n.attr("singleChar"), n.attr("escapeChar"), n.attr("escape"))
		if err != nil {
			return nil, err
		}
		return like{property: prop, pattern: lit, re: re}, nil
	case "PropertyIsNull":
		prop, ok := n.child("PropertyName")
		if !ok {
			return nil, fmt.Errorf("filter %s has no PropertyName", op)
		}
		return isNull{property: prop.text()}, nil
	case "FeatureId", "GmlObjectId":
		return nil, fmt.Errorf("filter %s is not supported", op)
	default:
		return nil, fmt.Errorf("unknown filter operator %s", op)
	}
}

func compileLogical(op string, nodes []node) (Condition, error) {
	l := logical{op: op}
	for _, c := range nodes {
		cond, err := compile(c)
		if err != nil {
			return nil, err
		}
		l.operands = append(l.operands, cond)
	}
	return l, nil
}

func operands(n node) (property, literal string, err error) {
	p, ok := n.child("PropertyName")
	if !ok {
		return "", "", fmt.Errorf("filter %s has no PropertyName", n.XMLName.Local)
	}
	l, ok := n.child("Literal")
	if !ok {
		return "", "", fmt.Errorf("filter %s has no Literal", n.XMLName.Local)
	}
	return p.text(), l.text(), nil
}

func boundary(n node) string {
	if l, ok := n.child("Literal"); ok {
		return l.text()
	}
	return n.text()
}

func likePattern(pattern, wild, single string, escapes ...string) (*regexp.Regexp, error) {
	if wild == "" {
		wild = "*"
	}
	if single == "" {
		single = "."
	}
	escape := "!"
	for _, e := range escapes {
		if e != "" {
			escape = e
		}
	}
	var b strings.Builder
	b.WriteString("^")
	runes := []rune(pattern)
	for i := 0; i < len(runes); i++ {
		s := string(runes[i])
		switch {
		case s == escape && i+1 < len(runes):
			i++
			b.WriteString(regexp.QuoteMeta(string(runes[i])))
		case s == wild:
			b.WriteString(".*")
		case s == single:
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(s))
		}
	}
	b.WriteString("$")
	return regexp.Compile(b.String())
}

type logical struct {
	op       string
	operands []Condition
}

func (l logical) Match(props map[string]any) bool {
	for _, c := range l.operands {
		m := c.Match(props)
		if l.op == "Or" && m {
			return true
		}
		if l.op == "And" && !m {
			return false
		}
	}
	return l.op == "And"
}

func (l logical) String() string {
	parts := make([]string, len(l.operands))
	for i, c := range l.operands {
		parts[i] = c.String()
	}
	return "(" + strings.Join(parts, " "+strings.ToUpper(l.op)+" ") + ")"
}

type not struct{ inner Condition }

func (n not) Match(props map[string]any) bool { return !n.inner.Match(props) }
func (n not) String() string                  { return "NOT " + n.inner.String() }

type comparison struct {
	op        string
	property  string
	literal   string
	matchCase bool
}

var comparisonSymbols = map[string]string{
	"PropertyIsEqualTo":              "=",
	"PropertyIsNotEqualTo":           "!=",
	"PropertyIsLessThan":             "<",
	"PropertyIsLessThanOrEqualTo":    "<=",
	"PropertyIsGreaterThan":          ">",
	"PropertyIsGreaterThanOrEqualTo": ">=",
}

func (c comparison) Match(props map[string]any) bool {
	v, ok := props[c.property]
	if !ok || v == nil {
		return c.op == "PropertyIsNotEqualTo"
	}
	cmp := compareValues(fmt.Sprint(v), c.literal, c.matchCase)
	switch c.op {
	case "PropertyIsEqualTo":
		return cmp == 0
	case "PropertyIsNotEqualTo":
		return cmp != 0
	case "PropertyIsLessThan":
		return cmp < 0
	case "PropertyIsLessThanOrEqualTo":
		return cmp <= 0
	case "PropertyIsGreaterThan":
		return cmp > 0
	case "PropertyIsGreaterThanOrEqualTo":
		return cmp >= 0
	}
	return false
}

func (c comparison) String() string {
	return fmt.Sprintf("%s %s %q", c.property, comparisonSymbols[c.op], c.literal)
}

type between struct {
	property     string
	lower, upper string
}

func (b between) Match(props map[string]any) bool {
	v, ok := props[b.property]
	if !ok || v == nil {
		return false
	}
	s := fmt.Sprint(v)
	return compareValues(s, b.lower, true) >= 0 && compareValues(s, b.upper, true) <= 0
}

func (b between) String() string {
	return fmt.Sprintf("%s BETWEEN %s AND %s", b.property, b.lower, b.upper)
}

type like struct {
	property string
	pattern  string
	re       *regexp.Regexp
}

func (l like) Match(props map[string]any) bool {
	v, ok := props[l.property]
	if !ok || v == nil {
		return false
	}
	return l.re.MatchString(fmt.Sprint(v))
}

func (l like) String() string { return fmt.Sprintf("%s LIKE %q", l.property, l.pattern) }

type isNull struct{ property string }

func (n isNull) Match(props map[string]any) bool {
	v, ok := props[n.property]
	return !ok || v == nil
}

func (n isNull) String() string { return n.property + " IS NULL" }

// compareValues compares numerically when both sides are numbers, otherwise
// as strings.
func compareValues(a, b string, matchCase bool) int {
	fa, errA := strconv.ParseFloat(strings.TrimSpace(a), 64)
	fb, errB := strconv.ParseFloat(strings.TrimSpace(b), 64)
	if errA == nil && errB == nil {
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		default:
			return 0
		}
	}
	if !matchCase {
		a, b = strings.ToLower(a), strings.ToLower(b)
	}
	return strings.Compare(a, b)
}
