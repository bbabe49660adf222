package cfg

// Dominators computes the immediate dominator of every block reachable
// from block 0, with the standard iterative intersection over reverse
// post-order. idom[0] = 0; unreachable blocks keep -1.
func Dominators(g *Graph) []int {
	n := len(g.Blocks)
	idom := make([]int, n)
	for i := range idom {
		idom[i] = -1
	}
	if n == 0 {
		return idom
	}

	rpo := reversePostOrder(g)
	order := make([]int, n) // block id -> rpo position
	for i := range order {
		order[i] = -1
	}
	for pos, b := range rpo {
		order[b] = pos
	}

	idom[rpo[0]] = rpo[0]
	changed := true
	for changed {
		changed = false
		for _, b := range rpo[1:] {
			newIdom := -1
			for _, p := range g.Blocks[b].Preds {
				if idom[p] == -1 {
					continue
				}
				if newIdom == -1 {
					newIdom = p
				} else {
					newIdom = intersect(idom, order, p, newIdom)
				}
			}
			if newIdom != -1 && idom[b] != newIdom {
				idom[b] = newIdom
				changed = true
			}
		}
	}
	return idom
}

func intersect(idom, order []int, a, b int) int {
	for a != b {
		for order[a] > order[b] {
			a = idom[a]
		}
		for order[b] > order[a] {
			b = idom[b]
		}
	}
	return a
}

// Dominates reports whether a dominates b under the given idom tree.
func Dominates(idom []int, a, b int) bool {
	if a == b {
		return true
	}
	for b != -1 && idom[b] != b {
		b = idom[b]
		if b == a {
			return true
		}
	}
	return a == b
}

func reversePostOrder(g *Graph) []int {
	n := len(g.Blocks)
	visited := make([]bool, n)
	var post []int
	var dfs func(int)
	dfs = func(b int) {
		visited[b] = true
		for _, s := range g.Blocks[b].Succs {
			if !visited[s] {
				dfs(s)
			}
		}
		post = append(post, b)
	}
	if n > 0 {
		dfs(0)
	}
	for i, j := 0, len(post)-1; i < j; i, j = i+1, j-1 {
		post[i], post[j] = post[j], post[i]
	}
	return post
}
