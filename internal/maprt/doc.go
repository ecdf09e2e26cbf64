// Package maprt is the small map runtime the styler drives: a view with a
// projection-aware resolution, vector layers and layer groups with
// visibility events, the drawing style model consumed by renderers, and a
// single-goroutine event loop that owns all mutation.
package maprt
