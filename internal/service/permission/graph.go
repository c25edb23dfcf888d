// Package permission resolves a user's effective permission state from
// permission defaults, the implication graph and per-user overrides.
package permission

import (
	"slices"

	"github.com/heartmarshall/chatbot-backend/internal/domain"
)

// Graph is the immutable permission model of one configuration snapshot.
// The transitive implication closure and every user's implied grants are
// computed once, when the graph is built.
type Graph struct {
	perms  map[int32]domain.Permission
	byName map[string]int32

	// closure[p] holds every permission granted by holding p, excluding p.
	closure map[int32][]int32

	overrides map[int32]map[int32]domain.PermissionState
	// implied[user][perm] is the allow-overridden permission through which user holds perm.
	implied map[int32]map[int32]int32
}

// BuildGraph validates the implication edges and precomputes the closure.
// A cycle yields *domain.ImplicationCycleError.
func BuildGraph(
	perms []domain.Permission,
	implications []domain.PermissionImplication,
	overrides []domain.UserPermissionOverride,
) (*Graph, error) {
	g := &Graph{
		perms:     make(map[int32]domain.Permission, len(perms)),
		byName:    make(map[string]int32, len(perms)),
		closure:   make(map[int32][]int32),
		overrides: make(map[int32]map[int32]domain.PermissionState),
		implied:   make(map[int32]map[int32]int32),
	}
	for _, p := range perms {
		g.perms[p.ID] = p
		g.byName[p.Name] = p.ID
	}

	// Edge implied_by -> permission.
	edges := make(map[int32][]int32)
	for _, im := range implications {
		edges[im.ImpliedByID] = append(edges[im.ImpliedByID], im.PermissionID)
	}
	nodes := make([]int32, 0, len(edges))
	for n, next := range edges {
		slices.Sort(next)
		nodes = append(nodes, n)
	}
	slices.Sort(nodes)

	if path := findCycle(nodes, edges); path != nil {
		return nil, &domain.ImplicationCycleError{Path: path}
	}

	for _, n := range nodes {
		g.closure[n] = closureOf(n, edges, g.closure)
	}

	for _, o := range overrides {
		if g.overrides[o.UserID] == nil {
			g.overrides[o.UserID] = make(map[int32]domain.PermissionState)
		}
		g.overrides[o.UserID][o.PermissionID] = o.State
	}

	for userID, states := range g.overrides {
		held := make([]int32, 0, len(states))
		for permID, state := range states {
			if state == domain.PermissionAllow {
				held = append(held, permID)
			}
		}
		slices.Sort(held)

		for _, via := range held {
			for _, granted := range g.closure[via] {
				if g.implied[userID] == nil {
					g.implied[userID] = make(map[int32]int32)
				}
				if _, ok := g.implied[userID][granted]; !ok {
					g.implied[userID][granted] = via
				}
			}
		}
	}

	return g, nil
}

const (
	white = iota
	grey
	black
)

// findCycle returns the first cycle found by depth-first search, as a path
// that starts and ends on the same permission, or nil.
func findCycle(nodes []int32, edges map[int32][]int32) []int32 {
	color := make(map[int32]int)
	var stack []int32

	var visit func(n int32) []int32
	visit = func(n int32) []int32 {
		color[n] = grey
		stack = append(stack, n)
		for _, next := range edges[n] {
			switch color[next] {
			case grey:
				start := slices.Index(stack, next)
				path := slices.Clone(stack[start:])
				return append(path, next)
			case white:
				if path := visit(next); path != nil {
					return path
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[n] = black
		return nil
	}

	for _, n := range nodes {
		if color[n] == white {
			if path := visit(n); path != nil {
				return path
			}
		}
	}
	return nil
}

// closureOf memoizes into done. The graph must be acyclic.
func closureOf(n int32, edges map[int32][]int32, done map[int32][]int32) []int32 {
	if c, ok := done[n]; ok {
		return c
	}
	set := make(map[int32]struct{})
	for _, next := range edges[n] {
		set[next] = struct{}{}
		for _, p := range closureOf(next, edges, done) {
			set[p] = struct{}{}
		}
	}
	out := make([]int32, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	slices.Sort(out)
	done[n] = out
	return out
}

// Implies returns every permission granted by holding permID, sorted by id.
func (g *Graph) Implies(permID int32) []int32 {
	return g.closure[permID]
}

// Permission returns the permission with the given id.
func (g *Graph) Permission(id int32) (domain.Permission, bool) {
	p, ok := g.perms[id]
	return p, ok
}

// PermissionByName returns the permission with the given name.
func (g *Graph) PermissionByName(name string) (domain.Permission, bool) {
	id, ok := g.byName[name]
	if !ok {
		return domain.Permission{}, false
	}
	return g.perms[id], true
}

// Len returns the number of permissions.
func (g *Graph) Len() int {
	return len(g.perms)
}
