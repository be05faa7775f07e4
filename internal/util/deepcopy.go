// Package util carries small cross-cutting helpers shared by the
// engine's packages.
package util

import "github.com/mohae/deepcopy"

// DeepCopy returns a structural deep copy of data — nested maps, slices,
// and scalars are copied recursively; non-JSON-shaped values (functions,
// channels, cycles) are out of contract.
func DeepCopy(data interface{}) interface{} {
	return deepcopy.Copy(data)
}

// DeepCopyMap deep-copies a variables map. Used everywhere a Node hands
// variables to or receives variables from a task handler, so that a
// handler mutating its own copy can never alias engine-owned state.
func DeepCopyMap(vars map[string]interface{}) map[string]interface{} {
	if vars == nil {
		return nil
	}
	copied := deepcopy.Copy(vars)
	m, ok := copied.(map[string]interface{})
	if !ok {
		m = make(map[string]interface{}, len(vars))
		for k, v := range vars {
			m[k] = v
		}
	}
	return m
}
