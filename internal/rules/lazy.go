package rules

import (
	"fmt"
	"sync"
)

// Lazy builds a registry on first access and shares the outcome.
//
// Exactly one caller runs the build function; concurrent callers block until
// it finishes and all observe the same registry or the same error. The build
// is never retried.
type Lazy struct {
	build func() (*Registry, error)

	once sync.Once
	reg  *Registry
	err  error
}

// NewLazy wraps build.
func NewLazy(build func() (*Registry, error)) *Lazy {
	return &Lazy{build: build}
}

// Get returns the registry, building it on the first call.
func (l *Lazy) Get() (*Registry, error) {
	l.once.Do(func() {
		defer func() {
			if p := recover(); p != nil {
				l.reg, l.err = nil, fmt.Errorf("rule registry build panicked: %v", p)
			}
		}()
		l.reg, l.err = l.build()
	})
	return l.reg, l.err
}
