package schema

// MergePatch applies a JSON merge patch (RFC 7396 semantics) to target in
// place and returns it. Objects merge recursively, scalars and arrays
// replace wholesale, and an explicit null deletes the key. This is how
// partial item updates are expressed: callers send only the fields they
// changed.
func MergePatch(target, patch map[string]any) map[string]any {
	for k, v := range patch {
		if v == nil {
			delete(target, k)
			continue
		}
		pm, ok := v.(map[string]any)
		if !ok {
			target[k] = v
			continue
		}
		tm, ok := target[k].(map[string]any)
		if !ok {
			tm = make(map[string]any, len(pm))
			target[k] = tm
		}
		MergePatch(tm, pm)
	}
	return target
}
