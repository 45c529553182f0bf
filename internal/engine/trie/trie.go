package trie

import (
	"sort"

	"github.com/scottsmith200544/Firewall-Analysis/internal/model"
)

// node is one binary prefix node. Children are arena indexes; -1 means the
// child does not exist. A node's hit count is always the sum of its
// children's counts, so the root count equals the total records inserted.
type node struct {
	child [2]int32
	hits  uint64
}

// Trie is a frequency-weighted binary prefix trie over 32-bit IPv4
// addresses. Nodes live in an arena indexed by int32, with index 0 as the
// root covering prefix length 0. The arena layout keeps the structure free
// of pointers and cheap to discard after a run.
type Trie struct {
	nodes []node
}

// New returns an empty trie containing only the root node.
func New() *Trie {
	return &Trie{nodes: []node{{child: [2]int32{-1, -1}}}}
}

// Insert counts one observation of addr, creating path nodes lazily and
// incrementing the hit count on every node from the root to the full
// 32-bit leaf.
func (t *Trie) Insert(addr uint32) {
	idx := int32(0)
	t.nodes[0].hits++
	for depth := 0; depth < 32; depth++ {
		bit := (addr >> (31 - depth)) & 1
		next := t.nodes[idx].child[bit]
		if next < 0 {
			next = int32(len(t.nodes))
			t.nodes = append(t.nodes, node{child: [2]int32{-1, -1}})
			t.nodes[idx].child[bit] = next
		}
		idx = next
		t.nodes[idx].hits++
	}
}

// Total returns the number of records inserted.
func (t *Trie) Total() uint64 {
	return t.nodes[0].hits
}

// Size returns the number of arena nodes, root included.
func (t *Trie) Size() int {
	return len(t.nodes)
}

// frame is one pending subtree in the explicit traversal stack. The stack
// form keeps selection safe for degenerate tries (millions of distinct
// addresses) where recursion depth would otherwise track trie depth.
type frame struct {
	idx   int32
	addr  uint32
	depth int
}

// Finalize runs the greedy supernet selection and returns the accepted
// covering prefixes for this family. maxLen is the specificity ceiling: no
// returned prefix is ever narrower than /maxLen. threshold is the minimum
// coverage share a subtree must hold to be condensed into a single prefix.
//
// The walk descends from the root as long as a single child subtree still
// carries at least threshold of the family total, and accepts the node
// where that concentration stops. Subtrees that never reach the bar are
// split down to maxLen and accepted there regardless of share. The result
// is a set of disjoint prefixes that together cover every record inserted.
// Finalize does not mutate the trie and may be called repeatedly.
func (t *Trie) Finalize(maxLen int, threshold float64) []model.Prefix {
	total := t.nodes[0].hits
	if total == 0 {
		return nil
	}

	var accepted []model.Prefix
	accept := func(f frame) {
		hits := t.nodes[f.idx].hits
		p := model.Prefix{
			Addr:  f.addr,
			Len:   f.depth,
			Hits:  hits,
			Share: float64(hits) / float64(total),
		}
		p.CIDR = p.String()
		accepted = append(accepted, p)
	}

	stack := []frame{{idx: 0, addr: 0, depth: 0}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if f.depth == maxLen {
			accept(f)
			continue
		}

		n := t.nodes[f.idx]
		var child [2]frame
		var exists, qualifies [2]bool
		for bit := uint32(0); bit < 2; bit++ {
			ci := n.child[bit]
			if ci < 0 {
				continue
			}
			addr := f.addr | bit<<(31-f.depth)
			child[bit] = frame{idx: ci, addr: addr, depth: f.depth + 1}
			exists[bit] = true
			qualifies[bit] = float64(t.nodes[ci].hits)/float64(total) >= threshold
		}

		switch {
		case qualifies[0] && qualifies[1]:
			// Both halves hold the bar on their own; the parent is the
			// broadest prefix that condenses them into one entry.
			accept(f)
		case qualifies[0]:
			stack = append(stack, child[0])
			if exists[1] {
				stack = append(stack, child[1])
			}
		case qualifies[1]:
			stack = append(stack, child[1])
			if exists[0] {
				stack = append(stack, child[0])
			}
		default:
			if float64(n.hits)/float64(total) >= threshold || (!exists[0] && !exists[1]) {
				accept(f)
				continue
			}
			if exists[0] {
				stack = append(stack, child[0])
			}
			if exists[1] {
				stack = append(stack, child[1])
			}
		}
	}

	// Heaviest prefixes first; equal counts fall back to the numerically
	// smaller address so repeated runs produce identical output.
	sort.Slice(accepted, func(i, j int) bool {
		if accepted[i].Hits != accepted[j].Hits {
			return accepted[i].Hits > accepted[j].Hits
		}
		if accepted[i].Addr != accepted[j].Addr {
			return accepted[i].Addr < accepted[j].Addr
		}
		return accepted[i].Len < accepted[j].Len
	})
	return accepted
}

// TopAddrs returns the k most frequent full addresses, heaviest first,
// ties broken by the numerically smaller address. The exact per-address
// counts are the depth-32 leaves of the trie.
func (t *Trie) TopAddrs(k int) []model.AddrStat {
	if k <= 0 || t.nodes[0].hits == 0 {
		return nil
	}

	var leaves []model.AddrStat
	stack := []frame{{idx: 0, addr: 0, depth: 0}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if f.depth == 32 {
			leaves = append(leaves, model.AddrStat{Addr: f.addr, Count: t.nodes[f.idx].hits})
			continue
		}
		n := t.nodes[f.idx]
		for bit := uint32(0); bit < 2; bit++ {
			if ci := n.child[bit]; ci >= 0 {
				stack = append(stack, frame{idx: ci, addr: f.addr | bit<<(31-f.depth), depth: f.depth + 1})
			}
		}
	}

	sort.Slice(leaves, func(i, j int) bool {
		if leaves[i].Count != leaves[j].Count {
			return leaves[i].Count > leaves[j].Count
		}
		return leaves[i].Addr < leaves[j].Addr
	})
	if len(leaves) > k {
		leaves = leaves[:k]
	}
	for i := range leaves {
		leaves[i].IP = model.FormatAddr(leaves[i].Addr)
	}
	return leaves
}
