package sld

import (
	"fmt"
	"strconv"
	"strings"
)

// Expr is a parameter value: plain text, an ogc:Literal or an
// ogc:PropertyName.
type Expr struct {
	Text         string `xml:",chardata" json:"text,omitempty"`
	LiteralValue string `xml:"Literal" json:"literal,omitempty"`
	PropertyName string `xml:"PropertyName" json:"propertyName,omitempty"`
}

// Literal returns the constant part of the expression.
func (e *Expr) Literal() string {
	if e == nil {
		return ""
	}
	if s := strings.TrimSpace(e.LiteralValue); s != "" {
		return s
	}
	return strings.TrimSpace(e.Text)
}

// Eval resolves the expression against feature properties.
func (e *Expr) Eval(props map[string]any) string {
	if e == nil {
		return ""
	}
	if e.PropertyName != "" {
		if v, ok := props[strings.TrimSpace(e.PropertyName)]; ok && v != nil {
			return fmt.Sprint(v)
		}
		return ""
	}
	return e.Literal()
}

// Float evaluates the expression as a number, or def.
func (e *Expr) Float(props map[string]any, def float64) float64 {
	if e == nil {
		return def
	}
	f, err := strconv.ParseFloat(e.Eval(props), 64)
	if err != nil {
		return def
	}
	return f
}
