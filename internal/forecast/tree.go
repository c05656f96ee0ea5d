package forecast

import (
	"container/heap"
	"math/rand"
	"sort"
)

// treeNode is a binary regression tree node. Leaves have feature == -1.
type treeNode struct {
	feature   int
	threshold float64
	left      int
	right     int
	value     float64
}

type regressionTree struct {
	nodes []treeNode
}

func (t *regressionTree) predict(x []float64) float64 {
	i := 0
	for {
		n := t.nodes[i]
		if n.feature < 0 {
			return n.value
		}
		if x[n.feature] <= n.threshold {
			i = n.left
		} else {
			i = n.right
		}
	}
}

// leafCandidate is a leaf with its best split, queued by gain.
type leafCandidate struct {
	node      int
	feature   int
	threshold float64
	gain      float64
	left      []int
	right     []int
}

type candidateQueue []*leafCandidate

func (q candidateQueue) Len() int            { return len(q) }
func (q candidateQueue) Less(i, j int) bool  { return q[i].gain > q[j].gain }
func (q candidateQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *candidateQueue) Push(x interface{}) { *q = append(*q, x.(*leafCandidate)) }
func (q *candidateQueue) Pop() interface{} {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

// treeBuilder grows one tree leaf-wise on gradients for a row sample.
type treeBuilder struct {
	x         [][]float64
	grad      []float64
	features  []int
	maxLeaves int
	minLeaf   int
	shrinkage float64
}

func (b *treeBuilder) build(rows []int) (*regressionTree, []int) {
	tree := &regressionTree{nodes: []treeNode{{feature: -1, value: b.leafValue(rows)}}}
	var splits []int

	q := &candidateQueue{}
	if c := b.bestSplit(0, rows); c != nil {
		heap.Push(q, c)
	}
	leaves := 1
	for q.Len() > 0 && leaves < b.maxLeaves {
		c := heap.Pop(q).(*leafCandidate)
		left := len(tree.nodes)
		right := left + 1
		tree.nodes = append(tree.nodes,
			treeNode{feature: -1, value: b.leafValue(c.left)},
			treeNode{feature: -1, value: b.leafValue(c.right)},
		)
		tree.nodes[c.node].feature = c.feature
		tree.nodes[c.node].threshold = c.threshold
		tree.nodes[c.node].left = left
		tree.nodes[c.node].right = right
		splits = append(splits, c.feature)
		leaves++

		if lc := b.bestSplit(left, c.left); lc != nil {
			heap.Push(q, lc)
		}
		if rc := b.bestSplit(right, c.right); rc != nil {
			heap.Push(q, rc)
		}
	}
	return tree, splits
}

func (b *treeBuilder) leafValue(rows []int) float64 {
	if len(rows) == 0 {
		return 0
	}
	sum := 0.0
	for _, r := range rows {
		sum += b.grad[r]
	}
	return b.shrinkage * sum / float64(len(rows))
}

// bestSplit scans every sampled feature for the threshold maximizing the
// reduction in squared error. It returns nil when no split improves the leaf.
func (b *treeBuilder) bestSplit(node int, rows []int) *leafCandidate {
	if len(rows) < 2*b.minLeaf {
		return nil
	}
	total := 0.0
	for _, r := range rows {
		total += b.grad[r]
	}
	n := float64(len(rows))
	parent := total * total / n

	var best *leafCandidate
	order := make([]int, len(rows))
	for _, f := range b.features {
		copy(order, rows)
		sort.SliceStable(order, func(i, j int) bool { return b.x[order[i]][f] < b.x[order[j]][f] })

		leftSum := 0.0
		for i := 0; i < len(order)-1; i++ {
			leftSum += b.grad[order[i]]
			nl := i + 1
			nr := len(order) - nl
			if nl < b.minLeaf || nr < b.minLeaf {
				continue
			}
			lo, hi := b.x[order[i]][f], b.x[order[i+1]][f]
			if lo == hi {
				continue
			}
			rightSum := total - leftSum
			gain := leftSum*leftSum/float64(nl) + rightSum*rightSum/float64(nr) - parent
			if gain <= 1e-12 || (best != nil && gain <= best.gain) {
				continue
			}
			best = &leafCandidate{
				node:      node,
				feature:   f,
				threshold: (lo + hi) / 2,
				gain:      gain,
			}
		}
	}
	if best == nil {
		return nil
	}
	for _, r := range rows {
		if b.x[r][best.feature] <= best.threshold {
			best.left = append(best.left, r)
		} else {
			best.right = append(best.right, r)
		}
	}
	return best
}

// sampleWithoutReplacement draws k distinct indices from [0, n) in ascending order.
func sampleWithoutReplacement(rng *rand.Rand, n, k int) []int {
	if k >= n {
		out := make([]int, n)
		for i := range out {
			out[i] = i
		}
		return out
	}
	out := rng.Perm(n)[:k]
	sort.Ints(out)
	return out
}
