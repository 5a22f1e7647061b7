package formula

import (
	"fmt"
	"strings"

	"github.com/fabos/estimation-service/internal/model"
)

// Order sorts the computed columns of a registry so that every column comes
// after the computed columns its formula reads. Non-computed columns are
// dropped. Any cycle, direct or indirect, fails with ErrCircularReference.
func Order(columns []model.Column) ([]model.Column, error) {
	computed := make([]model.Column, 0, len(columns))
	index := make(map[string]int, len(columns))
	for _, col := range columns {
		if !col.IsComputed() {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(col.Key))
		if _, dup := index[key]; dup {
			continue
		}
		index[key] = len(computed)
		computed = append(computed, col)
	}

	const (
		unvisited = iota
		visiting
		done
	)
	state := make([]int, len(computed))
	ordered := make([]model.Column, 0, len(computed))

	var visit func(i int, path []string) error
	visit = func(i int, path []string) error {
		switch state[i] {
		case done:
			return nil
		case visiting:
			return fmt.Errorf("%w: %s", ErrCircularReference, strings.Join(append(path, computed[i].Key), " -> "))
		}
		state[i] = visiting
		path = append(path, computed[i].Key)
		for _, dep := range Dependencies(computed[i].Formula) {
			j, ok := index[strings.ToLower(dep)]
			if !ok {
				continue
			}
			if err := visit(j, path); err != nil {
				return err
			}
		}
		state[i] = done
		ordered = append(ordered, computed[i])
		return nil
	}

	for i := range computed {
		if err := visit(i, nil); err != nil {
			return nil, err
		}
	}
	return ordered, nil
}
