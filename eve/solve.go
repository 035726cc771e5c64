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
	"math"

	"github.com/purpleidea/propsheet/util/errwrap"
)

// Result is the solved place of one node.
type Result struct {
	Path  string `yaml:"path"`
	Kind  string `yaml:"kind"`
	Name  string `yaml:"name,omitempty"`
	Place Place  `yaml:",inline"`
}

// Solve places every node inside an area of the given size. Sizes are
// measured bottom up, then places are handed out top down. The root gets the
// whole area, or its minimum size if the area is too small for it. If a bound
// cell changed since the last evaluation, the tree is evaluated first. The
// results are in depth first order.
func (obj *Layout) Solve(width, height float64) ([]*Result, error) {
	if width < 0 || height < 0 {
		return nil, errwrap.Wrapf(ErrNegativeSize, "area %gx%g", width, height)
	}
	if obj.dirty {
		if err := obj.Evaluate(); err != nil {
			return nil, err
		}
	}

	measure(obj.root)
	area := Place{
		Width:  math.Max(width, obj.root.measuredWidth),
		Height: math.Max(height, obj.root.measuredHeight),
	}
	results := []*Result{}
	place(obj.root, area, &results)
	if obj.debug {
		obj.logf("solved layout %s in %s: %d nodes", obj.name, area, len(results))
	}
	return results, nil
}

// measure computes the minimum size of every node in the tree.
func measure(n *Node) {
	w, h := 0.0, 0.0
	for i, child := range n.Children {
		measure(child)
		gap := 0.0
		if i > 0 {
			gap = n.Spacing
		}
		switch n.Placement {
		case PlaceRow:
			w += gap + child.measuredWidth
			h = math.Max(h, child.measuredHeight)
		case PlaceColumn:
			w = math.Max(w, child.measuredWidth)
			h += gap + child.measuredHeight
		case PlaceOverlay:
			w = math.Max(w, child.measuredWidth)
			h = math.Max(h, child.measuredHeight)
		}
	}
	n.measuredWidth = math.Max(n.Width, w+2*n.Margin)
	n.measuredHeight = math.Max(n.Height, h+2*n.Margin)
}

// align positions a length inside a slot along one axis.
func align(a Alignment, start, slot, length float64) (float64, float64) {
	switch a {
	case AlignFill:
		return start, slot
	case AlignEnd:
		return start + slot - length, length
	case AlignCenter:
		return start + (slot-length)/2, length
	}
	return start, length
}

// place gives the node its area and lays out its children inside it.
func place(n *Node, p Place, results *[]*Result) {
	*results = append(*results, &Result{
		Path:  n.Path,
		Kind:  n.Kind,
		Name:  n.Name,
		Place: p,
	})
	inner := Place{
		Left:   p.Left + n.Margin,
		Top:    p.Top + n.Margin,
		Width:  math.Max(0, p.Width-2*n.Margin),
		Height: math.Max(0, p.Height-2*n.Margin),
	}

	// leftover space along the main axis goes to the filling children
	used, fills := 0.0, 0
	for i, child := range n.Children {
		if i > 0 {
			used += n.Spacing
		}
		switch n.Placement {
		case PlaceRow:
			used += child.measuredWidth
			if child.Horizontal == AlignFill {
				fills++
			}
		case PlaceColumn:
			used += child.measuredHeight
			if child.Vertical == AlignFill {
				fills++
			}
		}
	}
	share := 0.0
	if fills > 0 {
		extra := inner.Width - used
		if n.Placement == PlaceColumn {
			extra = inner.Height - used
		}
		share = math.Max(0, extra) / float64(fills)
	}

	offset := 0.0
	for _, child := range n.Children {
		slot := inner
		switch n.Placement {
		case PlaceRow:
			slot.Left += offset
			slot.Width = child.measuredWidth
			if child.Horizontal == AlignFill {
				slot.Width += share
			}
			offset += slot.Width + n.Spacing
		case PlaceColumn:
			slot.Top += offset
			slot.Height = child.measuredHeight
			if child.Vertical == AlignFill {
				slot.Height += share
			}
			offset += slot.Height + n.Spacing
		}

		cp := Place{}
		cp.Left, cp.Width = align(child.Horizontal, slot.Left, slot.Width, child.measuredWidth)
		cp.Top, cp.Height = align(child.Vertical, slot.Top, slot.Height, child.measuredHeight)
		place(child, cp, results)
	}
}
