package ui

import (
	"bufio"
	"fmt"
	"html"
	"io"
	"slices"
	"strconv"
	"strings"
)

// HTMLOptions control how canvases are referenced from the markup.
type HTMLOptions struct {
	// SymbolURL returns the image URL of a canvas element from its data
	// attributes. Canvases without a URL render as sized placeholders.
	SymbolURL func(data map[string]string) string
}

// WriteHTML renders e and its subtree.
func WriteHTML(w io.Writer, e *Element, opts HTMLOptions) error {
	bw := bufio.NewWriter(w)
	writeElement(bw, e, opts)
	return bw.Flush()
}

// HTML renders e and its subtree to a string.
func HTML(e *Element, opts HTMLOptions) string {
	var b strings.Builder
	_ = WriteHTML(&b, e, opts)
	return b.String()
}

func writeElement(w *bufio.Writer, e *Element, opts HTMLOptions) {
	tag := e.Tag
	if tag == "canvas" {
		tag = "img"
	}
	w.WriteString("<" + tag)
	if e.ID != "" {
		attr(w, "id", e.ID)
	}
	if len(e.Classes) > 0 {
		attr(w, "class", strings.Join(e.Classes, " "))
	}
	keys := make([]string, 0, len(e.Data))
	for k := range e.Data {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		attr(w, "data-"+k, e.Data[k])
	}
	if e.Width > 0 {
		attr(w, "style", fmt.Sprintf("width: %spx", num(e.Width)))
	}
	switch e.Tag {
	case "input":
		w.WriteString(` type="checkbox"`)
		if e.Checked {
			w.WriteString(" checked")
		}
		if e.Indeterminate {
			w.WriteString(` data-indeterminate="true"`)
		}
		w.WriteString(">")
		return
	case "canvas":
		if opts.SymbolURL != nil {
			if src := opts.SymbolURL(e.Data); src != "" {
				attr(w, "src", src)
			}
		}
		if e.Canvas != nil {
			attr(w, "width", num(e.Canvas.CSSWidth()))
			attr(w, "height", num(e.Canvas.CSSHeight()))
		}
		w.WriteString(` alt="">`)
		return
	}
	w.WriteString(">")
	w.WriteString(html.EscapeString(e.Text))
	for _, c := range e.Children {
		writeElement(w, c, opts)
	}
	w.WriteString("</" + tag + ">")
}

func attr(w *bufio.Writer, name, value string) {
	w.WriteString(" " + name + `="` + html.EscapeString(value) + `"`)
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
