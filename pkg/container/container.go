// Package container wires the service together by constructor injection.
// Constructors are registered per result type and their parameters are
// resolved from the container on first use.
package container

import (
	"fmt"
	"reflect"
	"sync"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

type Container struct {
	mu        sync.RWMutex
	prov      map[reflect.Type]provider
	instances map[reflect.Type]reflect.Value
}

type provider struct {
	fn        reflect.Value
	singleton bool
}

func New() *Container {
	return &Container{prov: make(map[reflect.Type]provider), instances: make(map[reflect.Type]reflect.Value)}
}

// Provide registers a constructor returning T or (T, error). Its parameters
// are resolved from the container when T is first requested.
func (c *Container) Provide(constructor any, singleton bool) error {
	v := reflect.ValueOf(constructor)
	if v.Kind() != reflect.Func {
		return fmt.Errorf("container: constructor must be a function, got %T", constructor)
	}
	ft := v.Type()
	if ft.NumOut() == 0 || ft.NumOut() > 2 {
		return fmt.Errorf("container: constructor must return (T) or (T, error)")
	}
	if ft.NumOut() == 2 && ft.Out(1) != errorType {
		return fmt.Errorf("container: second return value must be error")
	}
	out := ft.Out(0)

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.prov[out]; exists {
		return fmt.Errorf("container: provider already exists for %v", out)
	}
	c.prov[out] = provider{fn: v, singleton: singleton}
	return nil
}

// Supply registers an already built value as a singleton of its own type.
func (c *Container) Supply(value any) error {
	v := reflect.ValueOf(value)
	if !v.IsValid() {
		return fmt.Errorf("container: cannot supply nil")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.instances[v.Type()]; exists {
		return fmt.Errorf("container: value already supplied for %v", v.Type())
	}
	c.instances[v.Type()] = v
	return nil
}

// Resolve fills target, which must be a non-nil pointer, e.g.
//
//	var store *dataset.Store
//	err := c.Resolve(&store)
func (c *Container) Resolve(target any) error {
	ptr := reflect.ValueOf(target)
	if ptr.Kind() != reflect.Ptr || ptr.IsNil() {
		return fmt.Errorf("container: target must be a non-nil pointer")
	}
	val, err := c.get(ptr.Elem().Type(), make(map[reflect.Type]bool))
	if err != nil {
		return err
	}
	ptr.Elem().Set(val)
	return nil
}

// Invoke calls fn with its parameters resolved. A trailing error result is returned.
func (c *Container) Invoke(fn any) error {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func {
		return fmt.Errorf("container: Invoke requires a function, got %T", fn)
	}
	args, err := c.args(v.Type(), make(map[reflect.Type]bool))
	if err != nil {
		return err
	}
	outs := v.Call(args)
	if n := len(outs); n > 0 && outs[n-1].Type() == errorType && !outs[n-1].IsNil() {
		return outs[n-1].Interface().(error)
	}
	return nil
}

func (c *Container) args(ft reflect.Type, seen map[reflect.Type]bool) ([]reflect.Value, error) {
	args := make([]reflect.Value, ft.NumIn())
	for i := range args {
		v, err := c.get(ft.In(i), seen)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return args, nil
}

// lookup finds the provider for t. Interfaces fall back to any provider whose
// result implements them.
func (c *Container) lookup(t reflect.Type) (reflect.Value, provider, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if v, ok := c.instances[t]; ok {
		return v, provider{}, true
	}
	if p, ok := c.prov[t]; ok {
		return reflect.Value{}, p, true
	}
	if t.Kind() == reflect.Interface {
		for pt, p := range c.prov {
			if pt.Implements(t) {
				return reflect.Value{}, p, true
			}
		}
	}
	return reflect.Value{}, provider{}, false
}

func (c *Container) get(t reflect.Type, seen map[reflect.Type]bool) (reflect.Value, error) {
	inst, prov, ok := c.lookup(t)
	if !ok {
		return reflect.Value{}, fmt.Errorf("container: no provider for %v", t)
	}
	if inst.IsValid() {
		return inst, nil
	}
	if seen[t] {
		return reflect.Value{}, fmt.Errorf("container: cyclic dependency for %v", t)
	}
	seen[t] = true
	defer delete(seen, t)

	args, err := c.args(prov.fn.Type(), seen)
	if err != nil {
		return reflect.Value{}, err
	}
	outs := prov.fn.Call(args)
	if len(outs) == 2 && !outs[1].IsNil() {
		return reflect.Value{}, fmt.Errorf("container: building %v: %w", t, outs[1].Interface().(error))
	}
	res := outs[0]
	if prov.singleton {
		c.mu.Lock()
		if existing, ok := c.instances[t]; ok {
			res = existing
		} else {
			c.instances[t] = res
		}
		c.mu.Unlock()
	}
	return res, nil
}
