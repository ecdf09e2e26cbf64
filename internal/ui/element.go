// Package ui is a minimal element tree standing in for the browser DOM of
// the layer selector and legend panels. Elements are mutated in place by
// the styler and rendered to HTML for the web panels.
package ui

import (
	"slices"

	"github.com/joeblew999/plat-sld/internal/canvas"
)

// Element is one node of a panel.
type Element struct {
	Tag     string
	ID      string
	Classes []string
	Text    string
	// Width, when set, is an inline CSS width in pixels.
	Width float64
	// Data holds data-* attributes.
	Data map[string]string

	// Checkbox state for Tag "input".
	Checked       bool
	Indeterminate bool

	// Canvas is the raster of a "canvas" element.
	Canvas *canvas.Canvas

	Parent   *Element
	Children []*Element
}

// New creates a detached element.
func New(tag string, classes ...string) *Element {
	return &Element{Tag: tag, Classes: classes}
}

// NewText creates a detached element holding text.
func NewText(tag, text string, classes ...string) *Element {
	return &Element{Tag: tag, Text: text, Classes: classes}
}

func (e *Element) HasClass(c string) bool { return slices.Contains(e.Classes, c) }

// AddClass adds c once.
func (e *Element) AddClass(c string) {
	if !e.HasClass(c) {
		e.Classes = append(e.Classes, c)
	}
}

// RemoveClass removes every occurrence of c.
func (e *Element) RemoveClass(c string) {
	e.Classes = slices.DeleteFunc(e.Classes, func(x string) bool { return x == c })
}

// SetClass adds or removes c.
func (e *Element) SetClass(c string, on bool) {
	if on {
		e.AddClass(c)
	} else {
		e.RemoveClass(c)
	}
}

// ToggleClass flips c and reports whether it is now present.
func (e *Element) ToggleClass(c string) bool {
	on := !e.HasClass(c)
	e.SetClass(c, on)
	return on
}

// SetData sets a data-* attribute.
func (e *Element) SetData(key, value string) {
	if e.Data == nil {
		e.Data = map[string]string{}
	}
	e.Data[key] = value
}

// Append adds children at the end, detaching them from any previous parent.
func (e *Element) Append(children ...*Element) *Element {
	for _, c := range children {
		c.Remove()
		c.Parent = e
		e.Children = append(e.Children, c)
	}
	return e
}

// InsertBefore inserts child before ref. A nil or foreign ref appends.
func (e *Element) InsertBefore(child, ref *Element) {
	i := e.indexOf(ref)
	if ref == nil || i < 0 {
		e.Append(child)
		return
	}
	child.Remove()
	i = e.indexOf(ref)
	child.Parent = e
	e.Children = slices.Insert(e.Children, i, child)
}

// ReplaceChild swaps old for replacement in place.
func (e *Element) ReplaceChild(replacement, old *Element) bool {
	i := e.indexOf(old)
	if i < 0 {
		return false
	}
	replacement.Remove()
	i = e.indexOf(old)
	e.Children[i] = replacement
	replacement.Parent = e
	old.Parent = nil
	return true
}

// Remove detaches e from its parent.
func (e *Element) Remove() {
	if e.Parent == nil {
		return
	}
	p := e.Parent
	if i := p.indexOf(e); i >= 0 {
		p.Children = slices.Delete(p.Children, i, i+1)
	}
	e.Parent = nil
}

func (e *Element) indexOf(c *Element) int {
	if c == nil {
		return -1
	}
	return slices.Index(e.Children, c)
}

// FirstChild returns the first child or nil.
func (e *Element) FirstChild() *Element {
	if len(e.Children) == 0 {
		return nil
	}
	return e.Children[0]
}

// LastChild returns the last child or nil.
func (e *Element) LastChild() *Element {
	if len(e.Children) == 0 {
		return nil
	}
	return e.Children[len(e.Children)-1]
}

// PreviousSibling returns the sibling before e, or nil.
func (e *Element) PreviousSibling() *Element {
	if e.Parent == nil {
		return nil
	}
	i := e.Parent.indexOf(e)
	if i <= 0 {
		return nil
	}
	return e.Parent.Children[i-1]
}

// Find returns the first element in e's subtree (e included) with the id.
func (e *Element) Find(id string) *Element {
	var found *Element
	e.Walk(func(x *Element) bool {
		if x.ID == id {
			found = x
			return false
		}
		return true
	})
	return found
}

// Walk visits e and its descendants in document order until fn returns
// false.
func (e *Element) Walk(fn func(*Element) bool) bool {
	if !fn(e) {
		return false
	}
	for _, c := range e.Children {
		if !c.Walk(fn) {
			return false
		}
	}
	return true
}
