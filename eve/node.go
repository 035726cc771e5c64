// Mgmt
// Copyright (C) 2013-2024+ James Shubin and the project contributors
// Written by James Shubin <james@shubin.ca> and the project contributors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package eve

import (
	"fmt"

	"github.com/purpleidea/propsheet/lang/types"
	"github.com/purpleidea/propsheet/util/errwrap"
)

// Placement is how a container arranges its children.
type Placement int

const (
	// PlaceColumn stacks the children from top to bottom. It's the
	// default.
	PlaceColumn Placement = iota

	// PlaceRow lines the children up from left to right.
	PlaceRow

	// PlaceOverlay puts every child in the same area.
	PlaceOverlay
)

var placements = map[string]Placement{
	"place_column":  PlaceColumn,
	"place_row":     PlaceRow,
	"place_overlay": PlaceOverlay,
}

// String returns the name used in layout descriptions.
func (obj Placement) String() string {
	for name, p := range placements {
		if p == obj {
			return name
		}
	}
	return fmt.Sprintf("Placement(%d)", int(obj))
}

// Alignment positions a node in the space its parent gives it along one
// axis.
type Alignment int

const (
	// AlignStart is left or top. It's the default.
	AlignStart Alignment = iota

	// AlignEnd is right or bottom.
	AlignEnd

	// AlignCenter centers the node.
	AlignCenter

	// AlignFill stretches the node across the space. In a row or column,
	// filling children also share the leftover space along the main axis.
	AlignFill
)

var horizontal = map[string]Alignment{
	"align_left":   AlignStart,
	"align_right":  AlignEnd,
	"align_center": AlignCenter,
	"align_fill":   AlignFill,
}

var vertical = map[string]Alignment{
	"align_top":    AlignStart,
	"align_bottom": AlignEnd,
	"align_center": AlignCenter,
	"align_fill":   AlignFill,
}

// String returns a short name.
func (obj Alignment) String() string {
	switch obj {
	case AlignStart:
		return "start"
	case AlignEnd:
		return "end"
	case AlignCenter:
		return "center"
	case AlignFill:
		return "fill"
	}
	return fmt.Sprintf("Alignment(%d)", int(obj))
}

// Place is the position and size of a node, relative to the top left corner
// of the root.
type Place struct {
	Left   float64 `yaml:"left"`
	Top    float64 `yaml:"top"`
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

// String returns the place in a compact form.
func (obj Place) String() string {
	return fmt.Sprintf("(%g,%g %gx%g)", obj.Left, obj.Top, obj.Width, obj.Height)
}

// Node is a view with its parameters evaluated.
type Node struct {
	Kind string
	Path string // position in the tree, like 0.1.0
	Line int

	Name       string
	Placement  Placement
	Width      float64 // minimum
	Height     float64 // minimum
	Spacing    float64
	Margin     float64
	Horizontal Alignment
	Vertical   Alignment

	// Params holds every argument, including the ones that aren't layout
	// parameters, for the views to use.
	Params map[string]types.Value

	Children []*Node

	measuredWidth  float64
	measuredHeight float64
}

// String returns a short description of the node.
func (obj *Node) String() string {
	if obj.Name != "" {
		return fmt.Sprintf("%s(%s)", obj.Kind, obj.Name)
	}
	return fmt.Sprintf("%s[%s]", obj.Kind, obj.Path)
}

// Walk calls fn for this node and all its descendants, depth first.
func (obj *Node) Walk(fn func(*Node) error) error {
	if err := fn(obj); err != nil {
		return err
	}
	for _, child := range obj.Children {
		if err := child.Walk(fn); err != nil {
			return err
		}
	}
	return nil
}

// apply reads the layout parameters out of the evaluated arguments.
func (obj *Node) apply(params map[string]types.Value) error {
	obj.Params = params
	for key, v := range params {
		var err error
		switch key {
		case "name":
			obj.Name, err = types.AsStr(v)
		case "placement":
			obj.Placement, err = enum(v, placements)
		case "width":
			obj.Width, err = size(v)
		case "height":
			obj.Height, err = size(v)
		case "spacing":
			obj.Spacing, err = size(v)
		case "margin":
			obj.Margin, err = size(v)
		case "horizontal":
			obj.Horizontal, err = enum(v, horizontal)
		case "vertical":
			obj.Vertical, err = enum(v, vertical)
		default:
			continue // not a layout parameter
		}
		if err != nil {
			return errwrap.Wrapf(err, "parameter %s of %s", key, obj.Kind)
		}
	}
	return nil
}

func size(v types.Value) (float64, error) {
	f, err := types.AsNumber(v)
	if err != nil {
		return 0, err
	}
	if f < 0 {
		return 0, errwrap.Wrapf(ErrNegativeSize, "%g", f)
	}
	return f, nil
}

func enum[T any](v types.Value, names map[string]T) (T, error) {
	var zero T
	name, err := types.AsName(v)
	if err != nil {
		return zero, err
	}
	x, exists := names[name]
	if !exists {
		return zero, fmt.Errorf("unknown value @%s", name)
	}
	return x, nil
}
