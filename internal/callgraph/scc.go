package callgraph

import (
	"fmt"
	"sort"

	"fortio.org/safecast"
)

// Component is one strongly-connected component of the call graph,
// members in ascending entry-offset order.
type Component struct {
	Members []int32
}

// Recursive reports whether inference must iterate over the component:
// either it has several members or its single member calls itself.
func (c Component) Recursive(g *Graph) bool {
	if len(c.Members) > 1 {
		return true
	}
	n := c.Members[0]
	return g.HasEdge(n, n)
}

// Condense computes strongly-connected components (Tarjan) and returns
// them leaves-first: if component A has an edge into component B (A != B),
// B precedes A. Ready components are drained in ascending minimum-offset
// order, so the output is deterministic.
func Condense(g *Graph) []Component {
	nodes := g.Nodes()
	comps, compOf := tarjan(g, nodes)

	// Kahn over the condensation, counting OUT-degree so that leaves
	// (components with no unprocessed callees) drain first.
	n := len(comps)
	rev := make([][]int, n) // rev[callee component] = caller components
	outdeg := make([]int, n)
	seen := make(map[[2]int]bool)
	for _, from := range nodes {
		for _, to := range g.Successors(from) {
			fc, tc := compOf[from], compOf[to]
			if fc == tc {
				continue
			}
			key := [2]int{fc, tc}
			if seen[key] {
				continue
			}
			seen[key] = true
			outdeg[fc]++
			rev[tc] = append(rev[tc], fc)
		}
	}

	ready := make([]int, 0, n)
	for i := range comps {
		if outdeg[i] == 0 {
			ready = append(ready, i)
		}
	}

	ordered := make([]Component, 0, n)
	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool {
			return comps[ready[i]].Members[0] < comps[ready[j]].Members[0]
		})
		c := ready[0]
		ready = ready[1:]
		ordered = append(ordered, comps[c])
		for _, caller := range rev[c] {
			outdeg[caller]--
			if outdeg[caller] == 0 {
				ready = append(ready, caller)
			}
		}
	}
	return ordered
}

// tarjan returns the components in completion order along with a
// node-to-component index.
func tarjan(g *Graph, nodes []int32) ([]Component, map[int32]int) {
	type frame struct {
		node int32
		succ []int32
		next int
	}

	index := make(map[int32]int32, len(nodes))
	lowlink := make(map[int32]int32, len(nodes))
	onStack := make(map[int32]bool, len(nodes))
	var stack []int32
	var comps []Component
	compOf := make(map[int32]int, len(nodes))
	var idx int32

	visit := func(root int32) {
		frames := []frame{{node: root, succ: g.Successors(root)}}
		index[root] = idx
		lowlink[root] = idx
		idx++
		stack = append(stack, root)
		onStack[root] = true

		for len(frames) > 0 {
			f := &frames[len(frames)-1]
			advanced := false
			for f.next < len(f.succ) {
				w := f.succ[f.next]
				f.next++
				if _, visited := index[w]; !visited {
					index[w] = idx
					lowlink[w] = idx
					idx++
					stack = append(stack, w)
					onStack[w] = true
					frames = append(frames, frame{node: w, succ: g.Successors(w)})
					advanced = true
					break
				}
				if onStack[w] && index[w] < lowlink[f.node] {
					lowlink[f.node] = index[w]
				}
			}
			if advanced {
				continue
			}

			v := f.node
			if lowlink[v] == index[v] {
				var members []int32
				for {
					w := stack[len(stack)-1]
					stack = stack[:len(stack)-1]
					onStack[w] = false
					members = append(members, w)
					compOf[w] = len(comps)
					if w == v {
						break
					}
				}
				sort.Slice(members, func(i, j int) bool { return members[i] < members[j] })
				comps = append(comps, Component{Members: members})
			}
			frames = frames[:len(frames)-1]
			if len(frames) > 0 {
				parent := &frames[len(frames)-1]
				if lowlink[v] < lowlink[parent.node] {
					lowlink[parent.node] = lowlink[v]
				}
			}
		}
	}

	for _, n := range nodes {
		if _, visited := index[n]; !visited {
			visit(n)
		}
	}

	// Sanity: the component count fits in an int32.
	if _, err := safecast.Conv[int32](len(comps)); err != nil {
		panic(fmt.Errorf("callgraph: component count overflow: %w", err))
	}
	return comps, compOf
}
