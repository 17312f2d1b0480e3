package prompts

import (
	"strings"
	"testing"
)

func TestManagerRendersClusterPrompts(t *testing.T) {
	m, err := NewManager()
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	for _, name := range []string{"cluster_system", "cluster_user"} {
		if !m.Has(name) {
			t.Fatalf("template %s not loaded", name)
		}
	}

	type bucket struct {
		Name  string
		Value float64
	}
	type cluster struct {
		ID      int
		Size    int
		Buckets []bucket
	}
	out, err := m.Render("cluster_user", map[string]any{
		"Level": "county",
		"Clusters": []cluster{
			{ID: 0, Size: 3, Buckets: []bucket{{"female_65_plus", 14.25}}},
		},
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(out, "Cluster 1 (3 units): female_65_plus=14.2%;") {
		t.Errorf("rendered prompt:\n%s", out)
	}
}

func TestRenderUnknownTemplate(t *testing.T) {
	m, err := NewManager()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.Render("missing", nil); err == nil {
		t.Error("expected error for unknown template")
	}
}

func TestPathFor(t *testing.T) {
	if got := PathFor("cluster_user@v2"); got != "cluster_user@v2.txt.tmpl" {
		t.Errorf("PathFor = %q", got)
	}
}
