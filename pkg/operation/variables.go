package operation

// ResolveVariables derives the variables sent with an operation.
//
// Explicit entries win. Any variable declared by the descriptor but absent
// from explicit falls back to the identically-named entry in ownProps, if
// one exists. Variables that resolve nowhere are omitted entirely; the
// server reports them if they were required.
func ResolveVariables(desc *Descriptor, explicit, ownProps map[string]interface{}) map[string]interface{} {
	resolved := make(map[string]interface{}, len(desc.variables))

	for k, v := range explicit {
		resolved[k] = v
	}

	for _, name := range desc.variables {
		if _, ok := resolved[name]; ok {
			continue
		}
		if v, ok := ownProps[name]; ok {
			resolved[name] = v
		}
	}

	return resolved
}

// VariablesEqual compares two resolved variable maps. Values are compared
// shallowly by equality of their canonical JSON forms for nested structures.
func VariablesEqual(a, b map[string]interface{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k, av := range a {
		bv, ok := b[k]
		if !ok {
			return false
		}
		if !valueEqual(av, bv) {
			return false
		}
	}
	return true
}

func valueEqual(a, b interface{}) bool {
	switch av := a.(type) {
	case map[string]interface{}:
		bv, ok := b.(map[string]interface{})
		if !ok {
			return false
		}
		return VariablesEqual(av, bv)
	case []interface{}:
		bv, ok := b.([]interface{})
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !valueEqual(av[i], bv[i]) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}
