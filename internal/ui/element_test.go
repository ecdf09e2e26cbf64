package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-sld/internal/canvas"
)

func TestTreeOperations(t *testing.T) {
	li := New("li")
	box := New("input")
	label := NewText("label", "Roads")
	li.Append(box, label)

	sym := New("canvas", "symbol-canvas")
	li.InsertBefore(sym, li.LastChild())
	require.Len(t, li.Children, 3)
	assert.Same(t, sym, li.Children[1])
	assert.Same(t, sym, label.PreviousSibling())
	assert.Same(t, box, sym.PreviousSibling())
	assert.Nil(t, box.PreviousSibling())

	repl := New("canvas")
	assert.True(t, li.ReplaceChild(repl, sym))
	assert.Same(t, repl, li.Children[1])
	assert.Nil(t, sym.Parent)
	assert.False(t, li.ReplaceChild(repl, sym))

	other := New("ul")
	other.Append(label)
	assert.Len(t, li.Children, 2)
	assert.Same(t, other, label.Parent)
}

func TestClasses(t *testing.T) {
	e := New("li", "a")
	e.AddClass("b")
	e.AddClass("b")
	assert.Equal(t, []string{"a", "b"}, e.Classes)
	assert.False(t, e.ToggleClass("a"))
	assert.True(t, e.ToggleClass("c"))
	e.SetClass("b", false)
	assert.Equal(t, []string{"c"}, e.Classes)
}

func TestFind(t *testing.T) {
	root := New("ul")
	li := New("li")
	li.ID = "legend-symbol-3"
	root.Append(New("li").Append(New("ul").Append(li)))
	assert.Same(t, li, root.Find("legend-symbol-3"))
	assert.Nil(t, root.Find("nope"))
}

func TestHTML(t *testing.T) {
	root := New("ul", "panel")
	li := New("li", "layer")
	box := New("input")
	box.Checked = true
	box.Indeterminate = true
	box.SetData("layer", "2")
	sym := New("canvas", "symbol-canvas")
	sym.SetData("symbol", "7")
	sym.Canvas = &canvas.Canvas{Sizing: canvas.SelectorSizing}
	mock := New("span", "symbol-canvas", "mock-symbol-canvas")
	mock.Width = 24
	root.Append(li.Append(box, sym, mock, NewText("label", "A & B")))

	got := HTML(root, HTMLOptions{SymbolURL: func(d map[string]string) string { return "/s/" + d["symbol"] + ".png" }})
	assert.Equal(t, `<ul class="panel"><li class="layer">`+
		`<input data-layer="2" type="checkbox" checked data-indeterminate="true">`+
		`<img class="symbol-canvas" data-symbol="7" src="/s/7.png" width="24" height="22" alt="">`+
		`<span class="symbol-canvas mock-symbol-canvas" style="width: 24px"></span>`+
		`<label>A &amp; B</label></li></ul>`, got)
}
