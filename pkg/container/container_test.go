package container

import (
	"errors"
	"strings"
	"testing"
)

type config struct{ name string }

type greeter interface{ Greet() string }

type service struct{ cfg *config }

func (s *service) Greet() string { return "hello " + s.cfg.name }

func TestResolveSingletonAndTransient(t *testing.T) {
	c := New()
	builds := 0
	if err := c.Provide(func() *config { builds++; return &config{name: "cluj"} }, true); err != nil {
		t.Fatal(err)
	}
	if err := c.Provide(func(cfg *config) *service { return &service{cfg: cfg} }, false); err != nil {
		t.Fatal(err)
	}

	var a, b *service
	if err := c.Resolve(&a); err != nil {
		t.Fatal(err)
	}
	if err := c.Resolve(&b); err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Error("transient provider returned the same instance twice")
	}
	if a.cfg != b.cfg || builds != 1 {
		t.Errorf("singleton built %d times", builds)
	}
}

func TestResolveInterfaceThroughImplementation(t *testing.T) {
	c := New()
	_ = c.Supply(&config{name: "iasi"})
	_ = c.Provide(func(cfg *config) *service { return &service{cfg: cfg} }, true)

	var g greeter
	if err := c.Resolve(&g); err != nil {
		t.Fatal(err)
	}
	if got := g.Greet(); got != "hello iasi" {
		t.Errorf("Greet() = %q", got)
	}
}

func TestInvoke(t *testing.T) {
	c := New()
	_ = c.Supply(&config{name: "arad"})

	var seen string
	if err := c.Invoke(func(cfg *config) { seen = cfg.name }); err != nil {
		t.Fatal(err)
	}
	if seen != "arad" {
		t.Errorf("seen = %q", seen)
	}

	boom := errors.New("boom")
	if err := c.Invoke(func(*config) error { return boom }); !errors.Is(err, boom) {
		t.Errorf("Invoke error = %v", err)
	}
}

func TestErrors(t *testing.T) {
	tests := []struct {
		name  string
		setup func(c *Container) error
		want  string
	}{
		{"not a function", func(c *Container) error { return c.Provide(42, true) }, "must be a function"},
		{"bad second result", func(c *Container) error {
			return c.Provide(func() (*config, int) { return nil, 0 }, true)
		}, "second return value must be error"},
		{"duplicate provider", func(c *Container) error {
			_ = c.Provide(func() *config { return &config{} }, true)
			return c.Provide(func() *config { return &config{} }, true)
		}, "already exists"},
		{"missing provider", func(c *Container) error {
			var s *service
			return c.Resolve(&s)
		}, "no provider"},
		{"constructor failure", func(c *Container) error {
			_ = c.Provide(func() (*config, error) { return nil, errors.New("no env") }, true)
			var cfg *config
			return c.Resolve(&cfg)
		}, "no env"},
		{"cycle", func(c *Container) error {
			_ = c.Provide(func(*service) *config { return &config{} }, true)
			_ = c.Provide(func(*config) *service { return &service{} }, true)
			var s *service
			return c.Resolve(&s)
		}, "cyclic dependency"},
		{"non-pointer target", func(c *Container) error { return c.Resolve(config{}) }, "non-nil pointer"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.setup(New())
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}
