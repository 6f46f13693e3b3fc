// Package document defines the design document consumed by the preview
// renderer and the normalizer that turns raw editor nodes into fully
// populated records.
package document

import (
	"encoding/json"
	"fmt"
	"math"
)

// ObjectType is the tag selecting a node variant
type ObjectType string

const (
	TypeStaticText   ObjectType = "StaticText"
	TypeDynamicText  ObjectType = "DynamicText"
	TypeStaticImage  ObjectType = "StaticImage"
	TypeDynamicImage ObjectType = "DynamicImage"
	TypeStaticVector ObjectType = "StaticVector"
	TypeStaticPath   ObjectType = "StaticPath"
	TypeBackground   ObjectType = "Background"
	TypeGroup        ObjectType = "Group"
)

// Known reports whether t is one of the supported node variants
func (t ObjectType) Known() bool {
	switch t {
	case TypeStaticText, TypeDynamicText, TypeStaticImage, TypeDynamicImage,
		TypeStaticVector, TypeStaticPath, TypeBackground, TypeGroup:
		return true
	}
	return false
}

// NeedsFetch reports whether nodes of this type reference an external asset
func (t ObjectType) NeedsFetch() bool {
	return t == TypeStaticImage || t == TypeStaticVector
}

// Document is one design: a canvas frame, an optional background and the
// ordered list of top-level nodes. Order is paint order.
type Document struct {
	Frame      Frame       `json:"frame"`
	Background *Background `json:"background,omitempty"`
	Objects    []*Node     `json:"objects"`
}

// Frame is the logical canvas size in pixels
type Frame struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// UnmarshalJSON accepts fractional sizes from the editor and rounds them
func (f *Frame) UnmarshalJSON(data []byte) error {
	var raw struct {
		Width  float64 `json:"width"`
		Height float64 `json:"height"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	f.Width = int(math.Round(raw.Width))
	f.Height = int(math.Round(raw.Height))
	return nil
}

// Background describes the base fill of the canvas
type Background struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Node is one raw drawable element. Shared geometric fields live in
// Attributes, the variant payload in Metadata, and group children in
// Objects.
type Node struct {
	Type       ObjectType
	Attributes Attributes
	Metadata   Attributes
	Objects    []*Node
}

// UnmarshalJSON splits the flat editor object into type, metadata, children
// and the remaining shared attributes.
func (n *Node) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*n = Node{Attributes: Attributes{}, Metadata: Attributes{}}

	for key, value := range raw {
		switch key {
		case "type":
			var t string
			if err := json.Unmarshal(value, &t); err != nil {
				return fmt.Errorf("node type: %w", err)
			}
			n.Type = ObjectType(t)
		case "metadata":
			if string(value) == "null" {
				continue
			}
			if err := json.Unmarshal(value, &n.Metadata); err != nil {
				return fmt.Errorf("node metadata: %w", err)
			}
		case "objects":
			if string(value) == "null" {
				continue
			}
			if err := json.Unmarshal(value, &n.Objects); err != nil {
				return fmt.Errorf("group objects: %w", err)
			}
		default:
			var v interface{}
			if err := json.Unmarshal(value, &v); err != nil {
				return fmt.Errorf("node attribute %s: %w", key, err)
			}
			n.Attributes[key] = v
		}
	}

	if n.Metadata == nil {
		n.Metadata = Attributes{}
	}
	return nil
}

// MarshalJSON writes the node back in the flat editor layout
func (n *Node) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(n.Attributes)+3)
	for k, v := range n.Attributes {
		out[k] = v
	}
	out["type"] = string(n.Type)
	if len(n.Metadata) > 0 {
		out["metadata"] = map[string]interface{}(n.Metadata)
	}
	if len(n.Objects) > 0 {
		out["objects"] = n.Objects
	}
	return json.Marshal(out)
}
