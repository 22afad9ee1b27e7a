package internal

// traverse reads every nested value reachable from val so that the current
// watcher depends on all of it. Each container is visited once, so cycles
// terminate.
func traverse(val any) {
	seen := make(map[any]struct{})
	traverseValue(val, seen)
}

func traverseValue(val any, seen map[any]struct{}) {
	switch v := val.(type) {
	case *Array:
		if v.frozen || !markSeen(v, seen) {
			return
		}
		for i := range v.Len() {
			traverseValue(v.At(i), seen)
		}

	case *Object:
		if v.frozen || !markSeen(v, seen) {
			return
		}
		for _, key := range v.Keys() {
			traverseValue(v.Get(key), seen)
		}
	}
}

func markSeen(container any, seen map[any]struct{}) bool {
	if _, ok := seen[container]; ok {
		return false
	}

	seen[container] = struct{}{}
	return true
}
