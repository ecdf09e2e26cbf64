package sld

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"

	"golang.org/x/net/html/charset"
)

// ErrNoLayer is returned when a document has no NamedLayer or UserLayer.
var ErrNoLayer = errors.New("sld: document has no layer")

// ErrNoStyle is returned when a layer has no UserStyle.
var ErrNoStyle = errors.New("sld: layer has no style")

// Parse decodes a raw SLD document.
func Parse(raw []byte) (*StyledLayerDescriptor, error) {
	return Decode(bytes.NewReader(raw))
}

// Decode reads an SLD document from r. Non UTF-8 encodings declared in the
// XML prolog (QGIS on Windows writes windows-1252) are converted.
func Decode(r io.Reader) (*StyledLayerDescriptor, error) {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charset.NewReaderLabel
	var doc StyledLayerDescriptor
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("sld: decode: %w", err)
	}
	return &doc, nil
}

// ExtractLayer returns the first named or user layer.
func ExtractLayer(doc *StyledLayerDescriptor) (*Layer, error) {
	if doc == nil {
		return nil, ErrNoLayer
	}
	if len(doc.NamedLayers) > 0 {
		return doc.NamedLayers[0], nil
	}
	if len(doc.UserLayers) > 0 {
		return doc.UserLayers[0], nil
	}
	return nil, ErrNoLayer
}

// ExtractStyle returns the default style of a layer. QGIS exports a single
// unnamed, non-default style, so when no style is flagged the first one is
// used.
func ExtractStyle(layer *Layer) (*UserStyle, error) {
	if layer == nil || len(layer.Styles) == 0 {
		return nil, ErrNoStyle
	}
	for _, s := range layer.Styles {
		if s.IsDefault {
			return s, nil
		}
	}
	return layer.Styles[0], nil
}

// FeatureTypeStyleOf parses a document down to the rule set the styler
// consumes: first layer, default style, first feature type style. Each call
// returns fresh structures, so callers may tweak the result in place.
func FeatureTypeStyleOf(raw []byte) (*FeatureTypeStyle, error) {
	doc, err := Parse(raw)
	if err != nil {
		return nil, err
	}
	layer, err := ExtractLayer(doc)
	if err != nil {
		return nil, err
	}
	style, err := ExtractStyle(layer)
	if err != nil {
		return nil, err
	}
	if len(style.FeatureTypeStyles) == 0 {
		return nil, fmt.Errorf("sld: style %q has no FeatureTypeStyle", style.Name)
	}
	return style.FeatureTypeStyles[0], nil
}
