package internal

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var invalidPath = regexp.MustCompile(`[^\w.$]`)

// ParsePath compiles a dot-delimited path such as "a.b.0.c" into a function
// that walks a value and reads each segment through the reactive accessors.
// Missing segments yield nil.
func ParsePath(path string) (func(root any) any, error) {
	if invalidPath.MatchString(path) {
		return nil, fmt.Errorf("reactive: invalid watch path %q: only dot-delimited paths are supported", path)
	}

	segments := strings.Split(path, ".")
	return func(root any) any {
		cur := root
		for _, seg := range segments {
			switch v := cur.(type) {
			case *Object:
				cur = v.Get(seg)
			case *Array:
				i, err := strconv.Atoi(seg)
				if err != nil || i < 0 || i >= v.Len() {
					return nil
				}
				cur = v.At(i)
			default:
				return nil
			}
		}
		return cur
	}, nil
}

// WatchPath watches the value at path below root.
func (r *Runtime) WatchPath(root any, path string, cb Callback, opts WatchOptions) (*Watcher, error) {
	get, err := ParsePath(path)
	if err != nil {
		r.warn(fmt.Sprintf("Failed watching path: %q Watcher only accepts simple dot-delimited paths.", path), r.tracker.CurrentOwner())
		return nil, err
	}

	if opts.Expression == "" {
		opts.Expression = path
	}

	return r.Watch(func() (any, error) {
		return get(root), nil
	}, cb, opts)
}
