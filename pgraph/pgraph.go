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

// Package pgraph represents the internal "pointer graph" that we use. It is
// used for dependency graphs between cells, and for anything else which needs
// a directed graph with a topological sort.
package pgraph

import (
	"fmt"
	"sort"
	"strings"
)

// Graph is the graph structure in this library. The graph abstract data type
// (ADT) is defined as follows:
// * the directed graph arrows point from left to right ( -> )
// * the arrows point away from their dependencies (eg: arrows mean "before")
// * IOW, you might see input -> logic -> output (where input is read first)
// The graph is not thread-safe, it is owned by a single writer.
type Graph struct {
	Name string

	adjacency map[Vertex]map[Vertex]Edge // Vertex -> Vertex (edge)
}

// Vertex is the primary vertex struct in this library. It can be anything that
// implements Stringer. The string output must be stable and unique in the
// graph, since it is used to order the vertices deterministically.
type Vertex interface {
	fmt.Stringer // String() string
}

// Edge is the primary edge struct in this library. It can be anything that
// implements Stringer.
type Edge interface {
	fmt.Stringer // String() string
}

// NewGraph builds a new graph.
func NewGraph(name string) (*Graph, error) {
	g := &Graph{
		Name: name,
	}
	return g, g.Init()
}

// Init initializes the graph which populates all the internal structures.
func (g *Graph) Init() error {
	if g.Name == "" { // FIXME: is this really a good restriction?
		return fmt.Errorf("can't initialize graph with empty name")
	}

	g.adjacency = make(map[Vertex]map[Vertex]Edge)
	return nil
}

// Copy makes a copy of the graph struct. The vertices and edges are shared.
func (g *Graph) Copy() *Graph {
	if g == nil { // allow nil graphs through
		return g
	}
	newGraph := &Graph{
		Name:      g.Name,
		adjacency: make(map[Vertex]map[Vertex]Edge, len(g.adjacency)),
	}
	for k, v := range g.adjacency {
		m := make(map[Vertex]Edge, len(v))
		for k2, e := range v {
			m[k2] = e
		}
		newGraph.adjacency[k] = m
	}
	return newGraph
}

// GetName returns the name of the graph.
func (g *Graph) GetName() string {
	return g.Name
}

// AddVertex uses variadic input to add all listed vertices to the graph.
func (g *Graph) AddVertex(xv ...Vertex) {
	if g.adjacency == nil { // initialize on first use
		g.adjacency = make(map[Vertex]map[Vertex]Edge)
	}
	for _, v := range xv {
		if _, exists := g.adjacency[v]; !exists {
			g.adjacency[v] = make(map[Vertex]Edge)
		}
	}
}

// AddEdge adds a directed edge to the graph from v1 to v2. It doesn't allow
// more than one edge between two vertices, so a later edge replaces the first.
func (g *Graph) AddEdge(v1, v2 Vertex, e Edge) {
	g.AddVertex(v1, v2) // supports adding N vertices now
	g.adjacency[v1][v2] = e
}

// NumVertices returns the number of vertices in the graph.
func (g *Graph) NumVertices() int {
	return len(g.adjacency)
}

// NumEdges returns the number of edges in the graph.
func (g *Graph) NumEdges() int {
	count := 0
	for k := range g.adjacency {
		count += len(g.adjacency[k])
	}
	return count
}

// VertexSlice is a linear list of vertices. It can be sorted.
type VertexSlice []Vertex

// Len returns the length of the slice of vertices.
func (vs VertexSlice) Len() int { return len(vs) }

// Swap swaps two elements in the slice.
func (vs VertexSlice) Swap(i, j int) { vs[i], vs[j] = vs[j], vs[i] }

// Less returns the smaller element in the sort order by String().
func (vs VertexSlice) Less(i, j int) bool { return vs[i].String() < vs[j].String() }

// Sort is a convenience method.
func (vs VertexSlice) Sort() { sort.Sort(vs) }

// VerticesSorted returns a sorted slice of all vertices in the graph. The
// order is sorted by String() to avoid the non-determinism in the map type.
func (g *Graph) VerticesSorted() []Vertex {
	var vertices []Vertex
	for k := range g.adjacency {
		vertices = append(vertices, k)
	}
	sort.Sort(VertexSlice(vertices)) // add determinism
	return vertices
}

// String makes the graph pretty print.
func (g *Graph) String() string {
	return fmt.Sprintf("Vertices(%d), Edges(%d)", g.NumVertices(), g.NumEdges())
}

// IncomingGraphVertices returns a sorted slice of all directed vertices to
// vertex v (??? -> v).
func (g *Graph) IncomingGraphVertices(v Vertex) []Vertex {
	var s []Vertex
	for k := range g.adjacency { // reverse paths
		if _, exists := g.adjacency[k][v]; exists {
			s = append(s, k)
		}
	}
	sort.Sort(VertexSlice(s))
	return s
}

// OutgoingGraphVertices returns a sorted slice of all vertices that vertex v
// points to (v -> ???).
func (g *Graph) OutgoingGraphVertices(v Vertex) []Vertex {
	var s []Vertex
	for k := range g.adjacency[v] { // forward paths
		s = append(s, k)
	}
	sort.Sort(VertexSlice(s))
	return s
}

// DFS returns a depth first search for the graph, starting at the input
// vertex and following the edges forward. The start vertex is included.
func (g *Graph) DFS(start Vertex) []Vertex {
	var d []Vertex // discovered
	var s []Vertex // stack
	if _, exists := g.adjacency[start]; !exists {
		return nil // TODO: error
	}
	seen := make(map[Vertex]struct{})
	v := start
	s = append(s, v)
	for len(s) > 0 {
		v, s = s[len(s)-1], s[:len(s)-1] // s.pop()

		if _, exists := seen[v]; !exists { // if not discovered
			seen[v] = struct{}{}
			d = append(d, v) // label as discovered

			out := g.OutgoingGraphVertices(v)
			for i := len(out) - 1; i >= 0; i-- { // visit in sorted order
				s = append(s, out[i])
			}
		}
	}
	return d
}

// Reachability finds the shortest path in a DAG from a to b, and returns the
// slice of vertices that matched this particular path including both a and b.
// It returns nil if a or b is nil, and returns empty list if no path is found.
// Since there could be more than one possible result for this operation, we
// arbitrarily choose one of the shortest possible. It is a breadth first
// search, so it terminates on cyclic graphs too.
func (g *Graph) Reachability(a, b Vertex) []Vertex {
	if a == nil || b == nil {
		return nil
	}
	parent := map[Vertex]Vertex{a: nil}
	queue := []Vertex{a}
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		for _, w := range g.OutgoingGraphVertices(v) {
			if _, exists := parent[w]; exists {
				continue
			}
			parent[w] = v
			if w == b {
				result := []Vertex{}
				for x := w; x != nil; x = parent[x] {
					result = append([]Vertex{x}, result...)
				}
				return result
			}
			queue = append(queue, w)
		}
	}
	return []Vertex{} // nope
}

// InDegree returns the count of vertices that point to me in one big lookup
// map.
func (g *Graph) InDegree() map[Vertex]int {
	result := make(map[Vertex]int)
	for k := range g.adjacency {
		result[k] = 0 // initialize
	}

	for k := range g.adjacency {
		for z := range g.adjacency[k] {
			result[z]++
		}
	}
	return result
}

// CycleError is returned by TopologicalSort when the graph is not a DAG. It
// lists the vertices that could not be sorted, which includes every cycle.
type CycleError struct {
	Vertices []Vertex
}

// Error fulfills the error interface.
func (obj *CycleError) Error() string {
	s := []string{}
	for _, v := range obj.Vertices {
		s = append(s, v.String())
	}
	return fmt.Sprintf("not a dag, cycle among: %s", strings.Join(s, ", "))
}

// TopologicalSort returns the sort of graph vertices in that order. It is
// based on descriptions and code from wikipedia and rosetta code. Ties are
// broken by String() so that the result is deterministic.
func (g *Graph) TopologicalSort() ([]Vertex, error) { // kahn's algorithm
	var L []Vertex                    // empty list that will contain the sorted elements
	var S []Vertex                    // set of all nodes with no incoming edges
	remaining := make(map[Vertex]int) // amount of edges remaining

	for v, d := range g.InDegree() {
		if d == 0 {
			// accumulate set of all nodes with no incoming edges
			S = append(S, v)
		} else {
			// initialize remaining edge count from indegree
			remaining[v] = d
		}
	}
	sort.Sort(VertexSlice(S))

	for len(S) > 0 {
		v := S[0] // remove the smallest node v from S
		S = S[1:]
		L = append(L, v) // add v to tail of L
		added := false
		for n := range g.adjacency[v] {
			// for each node n remaining in the graph, consume from
			// remaining, so for remaining[n] > 0
			if remaining[n] > 0 {
				remaining[n]--         // remove edge from the graph
				if remaining[n] == 0 { // if n has no other incoming edges
					S = append(S, n) // insert n into S
					added = true
				}
			}
		}
		if added {
			sort.Sort(VertexSlice(S))
		}
	}

	// if graph has edges, eg if any value in rem is > 0
	var cycle []Vertex
	for c, in := range remaining {
		if in > 0 {
			cycle = append(cycle, c)
		}
	}
	if len(cycle) > 0 {
		sort.Sort(VertexSlice(cycle))
		return nil, &CycleError{Vertices: cycle}
	}

	return L, nil
}
