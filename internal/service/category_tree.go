package service

import (
	"sort"
	"strings"

	"posadmin/internal/dto"
	"posadmin/internal/model"

	"github.com/google/uuid"
)

// PathSeparator joins ancestor names in a category breadcrumb.
const PathSeparator = " → "

// categoryForest indexes flat category rows so that tree assembly and
// ancestor walks run iteratively over slice indices. Every walk keeps a
// visited set, so corrupt parent cycles terminate instead of looping.
type categoryForest struct {
	nodes    []model.ProductCategory
	byID     map[uuid.UUID]int
	children map[int][]int
	roots    []int
}

func newCategoryForest(cats []model.ProductCategory) *categoryForest {
	f := &categoryForest{
		nodes:    cats,
		byID:     make(map[uuid.UUID]int, len(cats)),
		children: make(map[int][]int),
	}
	for i := range cats {
		f.byID[cats[i].ID] = i
	}
	for i := range cats {
		pid := cats[i].ParentID
		if pid == nil {
			f.roots = append(f.roots, i)
			continue
		}
		if p, ok := f.byID[*pid]; ok {
			f.children[p] = append(f.children[p], i)
		} else {
			// dangling parent reference: surface the node as a root
			f.roots = append(f.roots, i)
		}
	}
	f.sortIdx(f.roots)
	for _, kids := range f.children {
		f.sortIdx(kids)
	}
	return f
}

// sortIdx orders sibling indices by (sort_order, name).
func (f *categoryForest) sortIdx(idx []int) {
	sort.SliceStable(idx, func(a, b int) bool {
		x, y := f.nodes[idx[a]], f.nodes[idx[b]]
		if x.SortOrder != y.SortOrder {
			return x.SortOrder < y.SortOrder
		}
		return x.Name < y.Name
	})
}

// Tree returns the nested forest. Depth is unbounded.
func (f *categoryForest) Tree() []dto.CategoryNode {
	// Pre-order walk with an explicit stack, then build nodes in reverse
	// order so every child is complete before its parent.
	visited := make(map[int]bool, len(f.nodes))
	var order []int

	stack := make([]int, 0, len(f.roots))
	for i := len(f.roots) - 1; i >= 0; i-- {
		stack = append(stack, f.roots[i])
	}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[n] {
			continue
		}
		visited[n] = true
		order = append(order, n)

		kids := f.children[n]
		for i := len(kids) - 1; i >= 0; i-- {
			if !visited[kids[i]] {
				stack = append(stack, kids[i])
			}
		}
	}

	built := make(map[int]dto.CategoryNode, len(order))
	for i := len(order) - 1; i >= 0; i-- {
		n := order[i]
		node := toCategoryNode(f.nodes[n])
		for _, k := range f.children[n] {
			if child, ok := built[k]; ok {
				node.Children = append(node.Children, child)
			}
		}
		built[n] = node
	}

	out := make([]dto.CategoryNode, 0, len(f.roots))
	for _, r := range f.roots {
		if node, ok := built[r]; ok {
			out = append(out, node)
		}
	}
	return out
}

func toCategoryNode(c model.ProductCategory) dto.CategoryNode {
	return dto.CategoryNode{
		ID:        c.ID,
		Name:      c.Name,
		Slug:      c.Slug,
		ParentID:  c.ParentID,
		IsActive:  c.IsActive,
		SortOrder: c.SortOrder,
		Children:  []dto.CategoryNode{},
	}
}

// Ancestors returns the chain above id, nearest parent first.
func (f *categoryForest) Ancestors(id uuid.UUID) []model.ProductCategory {
	i, ok := f.byID[id]
	if !ok {
		return nil
	}
	var out []model.ProductCategory
	seen := map[int]bool{i: true}
	for {
		pid := f.nodes[i].ParentID
		if pid == nil {
			return out
		}
		p, ok := f.byID[*pid]
		if !ok || seen[p] {
			return out
		}
		seen[p] = true
		out = append(out, f.nodes[p])
		i = p
	}
}

// Path is the breadcrumb from the root down to id.
func (f *categoryForest) Path(id uuid.UUID) string {
	i, ok := f.byID[id]
	if !ok {
		return ""
	}
	anc := f.Ancestors(id)
	names := make([]string, 0, len(anc)+1)
	for j := len(anc) - 1; j >= 0; j-- {
		names = append(names, anc[j].Name)
	}
	names = append(names, f.nodes[i].Name)
	return strings.Join(names, PathSeparator)
}

// IsDescendant reports whether candidate lies strictly below node.
func (f *categoryForest) IsDescendant(candidate, node uuid.UUID) bool {
	for _, a := range f.Ancestors(candidate) {
		if a.ID == node {
			return true
		}
	}
	return false
}

// Subtree returns id and every category below it.
func (f *categoryForest) Subtree(id uuid.UUID) []uuid.UUID {
	start, ok := f.byID[id]
	if !ok {
		return nil
	}
	seen := map[int]bool{start: true}
	queue := []int{start}
	var out []uuid.UUID
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		out = append(out, f.nodes[n].ID)
		for _, k := range f.children[n] {
			if !seen[k] {
				seen[k] = true
				queue = append(queue, k)
			}
		}
	}
	return out
}

func (f *categoryForest) Get(id uuid.UUID) (model.ProductCategory, bool) {
	i, ok := f.byID[id]
	if !ok {
		return model.ProductCategory{}, false
	}
	return f.nodes[i], true
}
