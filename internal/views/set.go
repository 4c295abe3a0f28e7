package views

import (
	"context"
)

// Set is the collection of views mounted by a running client
type Set struct {
	views map[string]View
	order []string
}

// NewSet indexes views by name. Later views with a duplicate name win.
func NewSet(views ...View) *Set {
	s := &Set{views: make(map[string]View, len(views))}
	for _, v := range views {
		if _, ok := s.views[v.Name()]; !ok {
			s.order = append(s.order, v.Name())
		}
		s.views[v.Name()] = v
	}
	return s
}

// Get returns the view registered under name
func (s *Set) Get(name string) (View, bool) {
	v, ok := s.views[name]
	return v, ok
}

// Names lists the view names in registration order
func (s *Set) Names() []string {
	return append([]string(nil), s.order...)
}

// MountAll mounts every view
func (s *Set) MountAll(ctx context.Context) {
	for _, name := range s.order {
		s.views[name].Mount(ctx)
	}
}

// UnmountAll unmounts every view in reverse order
func (s *Set) UnmountAll() {
	for i := len(s.order) - 1; i >= 0; i-- {
		s.views[s.order[i]].Unmount()
	}
}
