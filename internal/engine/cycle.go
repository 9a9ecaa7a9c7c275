package engine

import (
	"sort"

	"github.com/bomgraph/bomgraph/internal/model"
)

// Three-color depth-first search over the directed part graph induced by
// a relationship set. Runs on an explicit stack so arbitrarily deep BOMs
// cannot exhaust goroutine stack via recursion.
//
// Node visit order and adjacency order are both lexicographic, so the
// same relationship set always reports the same cycle path.

type color uint8

const (
	white color = iota // unvisited
	gray               // on the active traversal path
	black              // fully explored
)

// detectCycle returns the first cycle found in the relationship set as an
// ordered part-number path closed by repeating the entry node (e.g.
// [C A B C]), or nil if the graph is acyclic. Cost O(V+E).
func detectCycle(rels []model.Relationship) []string {
	adjacency := make(map[string][]string)
	nodeSet := make(map[string]struct{})
	for _, rel := range rels {
		adjacency[rel.ParentPartNumber] = append(adjacency[rel.ParentPartNumber], rel.ChildPartNumber)
		nodeSet[rel.ParentPartNumber] = struct{}{}
		nodeSet[rel.ChildPartNumber] = struct{}{}
	}

	nodes := make([]string, 0, len(nodeSet))
	for node := range nodeSet {
		nodes = append(nodes, node)
	}
	sort.Strings(nodes)
	for node := range adjacency {
		sort.Strings(adjacency[node])
	}

	colors := make(map[string]color, len(nodes))
	pathPos := make(map[string]int, len(nodes))

	// frame tracks how far into a node's adjacency list the traversal is,
	// replacing the recursive call position.
	type frame struct {
		node string
		next int
	}

	var stack []frame
	var path []string

	for _, start := range nodes {
		if colors[start] != white {
			continue
		}
		colors[start] = gray
		pathPos[start] = len(path)
		path = append(path, start)
		stack = append(stack, frame{node: start})

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			children := adjacency[top.node]
			if top.next < len(children) {
				child := children[top.next]
				top.next++
				switch colors[child] {
				case white:
					colors[child] = gray
					pathPos[child] = len(path)
					path = append(path, child)
					stack = append(stack, frame{node: child})
				case gray:
					// Back-edge: the cycle is the active path from the
					// gray node to the top, closed by the gray node.
					start := pathPos[child]
					cycle := make([]string, 0, len(path)-start+1)
					cycle = append(cycle, path[start:]...)
					cycle = append(cycle, child)
					return cycle
				}
				continue
			}
			colors[top.node] = black
			delete(pathPos, top.node)
			path = path[:len(path)-1]
			stack = stack[:len(stack)-1]
		}
	}
	return nil
}
