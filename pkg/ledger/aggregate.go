package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ClassificationKind tells the aggregator what to do with a posting at one level.
type ClassificationKind int

const (
	// Excluded drops the posting from the result entirely.
	Excluded ClassificationKind = iota
	// Passthrough lets the posting continue without contributing a key.
	Passthrough
	// Grouped places the posting under a key at this level.
	Grouped
)

// Classification is the result of a Classifier for a single posting.
type Classification struct {
	Kind ClassificationKind
	Key  string
	Meta any
}

// Exclude returns a Classification filtering the posting out.
func Exclude() Classification {
	return Classification{Kind: Excluded}
}

// Pass returns a Classification that does not add a grouping level.
func Pass() Classification {
	return Classification{Kind: Passthrough}
}

// Group returns a Classification placing the posting under key.
// meta is stored on the node the first time key is seen.
func Group(key string, meta any) Classification {
	return Classification{Kind: Grouped, Key: key, Meta: meta}
}

// Classifier inspects a posting and decides how it is grouped at one level.
type Classifier func(Posting) Classification

// Node is one node of an aggregate. A node is either a branch holding
// children in first-seen order, or a leaf holding the in/out sums. Never both.
type Node struct {
	Meta any

	keys     []string
	children map[string]*Node

	leaf bool
	in   decimal.Decimal
	out  decimal.Decimal
}

func newNode(meta any) *Node {
	return &Node{Meta: meta}
}

// IsLeaf reports whether the node holds sums.
func (n *Node) IsLeaf() bool {
	return n.leaf
}

// Len returns the number of children.
func (n *Node) Len() int {
	return len(n.keys)
}

// Keys returns the child keys in insertion order.
func (n *Node) Keys() []string {
	keys := make([]string, len(n.keys))
	copy(keys, n.keys)
	return keys
}

// Child returns the child stored under key, or nil.
func (n *Node) Child(key string) *Node {
	return n.children[key]
}

// In returns the accumulated income amount of a leaf.
func (n *Node) In() decimal.Decimal {
	return n.in
}

// Out returns the accumulated expense amount of a leaf.
func (n *Node) Out() decimal.Decimal {
	return n.out
}

// Walk visits every leaf below n in insertion order. path holds the keys
// leading to the leaf and metas the meta of every node on the way.
func (n *Node) Walk(fn func(path []string, metas []any, leaf *Node)) {
	n.walk(nil, nil, fn)
}

func (n *Node) walk(path []string, metas []any, fn func([]string, []any, *Node)) {
	if n.leaf {
		fn(path, metas, n)
		return
	}
	for _, key := range n.keys {
		child := n.children[key]
		depth := len(path)
		childPath := append(path[:depth:depth], key)
		childMetas := append(metas[:depth:depth], child.Meta)
		child.walk(childPath, childMetas, fn)
	}
}

func (n *Node) branch(key string, meta any) *Node {
	if n.leaf {
		panic(fmt.Sprintf("ledger: cannot add group %q below a leaf", key))
	}
	if n.children == nil {
		n.children = make(map[string]*Node)
	}
	child, ok := n.children[key]
	if !ok {
		child = newNode(meta)
		n.children[key] = child
		n.keys = append(n.keys, key)
	}
	return child
}

func (n *Node) add(p Posting) {
	if !n.leaf {
		if len(n.keys) > 0 {
			panic("ledger: classifiers yielded a leaf where groups already exist")
		}
		n.leaf = true
	}
	if p.IsIncome() {
		n.in = n.in.Add(p.Amount).Round(2)
	} else {
		n.out = n.out.Add(p.Amount).Round(2)
	}
}

// Aggregate folds postings into a nested grouping, one level per Grouped
// classification, accumulating income and expense sums at the leaves.
//
// Every classifier is evaluated in order; the first Excluded result drops the
// posting. The returned root is an empty branch when nothing was aggregated.
// Classifiers must be consistent: a path that ends in a leaf for one posting
// cannot continue to deeper groups for another. Violating that panics.
func Aggregate(postings []Posting, levels ...Classifier) *Node {
	root := newNode(nil)

	for _, p := range postings {
		path := make([]Classification, 0, len(levels))
		excluded := false
		for _, classify := range levels {
			c := classify(p)
			if c.Kind == Excluded {
				excluded = true
				break
			}
			if c.Kind == Grouped {
				path = append(path, c)
			}
		}
		if excluded {
			continue
		}

		node := root
		for _, c := range path {
			node = node.branch(c.Key, c.Meta)
		}
		node.add(p)
	}

	return root
}
