package nftgen

import (
	"fmt"
	"slices"
	"strings"
)

// OrderGroups assigns each group the index of its name in order and returns
// the groups sorted bottom to top. Every group must be named in order and
// every name in order must have a group; either mismatch is an
// OrderingError. The input slice is not modified.
func OrderGroups(groups []LayerGroup, order []string) ([]LayerGroup, error) {
	rank, err := rankIndex(order)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(groups))
	out := make([]LayerGroup, 0, len(groups))
	for _, g := range groups {
		r, ok := rank[g.Name]
		if !ok {
			return nil, &OrderingError{Name: g.Name, Err: ErrUnorderedGroup}
		}
		if seen[g.Name] {
			return nil, &OrderingError{Name: g.Name, Err: ErrDuplicateGroup}
		}
		seen[g.Name] = true
		g.Rank = r
		out = append(out, g)
	}
	for _, name := range order {
		if !seen[name] {
			return nil, &OrderingError{Name: name, Err: ErrUnmatchedOrder}
		}
	}

	slices.SortFunc(out, CompareRank)
	return out, nil
}

// rankIndex maps each name in order to its position, rejecting an empty
// list and blank or repeated names.
func rankIndex(order []string) (map[string]int, error) {
	if len(order) == 0 {
		return nil, &OrderingError{Err: ErrEmptyOrder}
	}
	rank := make(map[string]int, len(order))
	for i, name := range order {
		if strings.TrimSpace(name) == "" {
			return nil, &OrderingError{Name: name, Err: fmt.Errorf("%w at position %d", ErrEmptyOrderName, i)}
		}
		if _, dup := rank[name]; dup {
			return nil, &OrderingError{Name: name, Err: ErrDuplicateOrder}
		}
		rank[name] = i
	}
	return rank, nil
}
