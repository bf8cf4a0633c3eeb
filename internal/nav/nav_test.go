package nav

import (
	"testing"
)

func intp(n int) *int { return &n }

func labels(nodes []*Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Label
	}
	return out
}

func TestAssemble_OrderingWithinLevel(t *testing.T) {
	tree := Assemble([]Entry{
		{Path: "zebra.md", Title: "Zebra"},
		{Path: "install.md", Title: "Install", Position: intp(2)},
		{Path: "intro.md", Title: "Intro", Position: intp(1)},
		{Path: "alpha.md", Title: "Alpha"},
	})

	got := labels(tree.Roots)
	want := []string{"Intro", "Install", "Alpha", "Zebra"}
	if len(got) != len(want) {
		t.Fatalf("roots = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("roots = %v, want %v", got, want)
		}
	}
}

func TestAssemble_PositionTieBreaksOnLabel(t *testing.T) {
	tree := Assemble([]Entry{
		{Path: "b.md", Title: "beta", Position: intp(1)},
		{Path: "a.md", Title: "Alpha", Position: intp(1)},
	})
	got := labels(tree.Roots)
	if got[0] != "Alpha" || got[1] != "beta" {
		t.Errorf("tie order = %v, want case-folded label order", got)
	}
}

func TestAssemble_DirectoriesBecomeCategories(t *testing.T) {
	tree := Assemble([]Entry{
		{Path: "guides/deploy.md", Title: "Deploy", Position: intp(2)},
		{Path: "guides/build.md", Title: "Build", Position: intp(1)},
		{Path: "intro.md", Title: "Intro", Position: intp(1)},
	})

	if len(tree.Roots) != 2 {
		t.Fatalf("roots = %v", labels(tree.Roots))
	}
	// Positionless category sorts after the positioned doc.
	if tree.Roots[0].Label != "Intro" {
		t.Errorf("first root = %q", tree.Roots[0].Label)
	}
	cat := tree.Roots[1]
	if !cat.Category || cat.Label != "Guides" || cat.Path != "" {
		t.Errorf("category = %+v", cat)
	}
	got := labels(cat.Children)
	if got[0] != "Build" || got[1] != "Deploy" {
		t.Errorf("children = %v", got)
	}
}

func TestAssemble_IndexPromotesToCategory(t *testing.T) {
	tree := Assemble([]Entry{
		{Path: "guides/index.md", Title: "All Guides", Position: intp(1)},
		{Path: "guides/build.md", Title: "Build"},
		{Path: "reference.md", Title: "Reference", Position: intp(2)},
	})

	if len(tree.Roots) != 2 {
		t.Fatalf("roots = %v", labels(tree.Roots))
	}
	cat := tree.Roots[0]
	if cat.Label != "All Guides" || cat.Path != "guides/index.md" {
		t.Errorf("category did not take index.md metadata: %+v", cat)
	}
	if cat.Position == nil || *cat.Position != 1 {
		t.Errorf("category position = %v", cat.Position)
	}
	if len(cat.Children) != 1 || cat.Children[0].Label != "Build" {
		t.Errorf("children = %v", labels(cat.Children))
	}
}

func TestAssemble_RootIndexStaysLeaf(t *testing.T) {
	tree := Assemble([]Entry{
		{Path: "index.md", Title: "Home", Position: intp(1)},
		{Path: "faq.md", Title: "FAQ", Position: intp(2)},
	})
	if len(tree.Roots) != 2 || tree.Roots[0].Label != "Home" || tree.Roots[0].Path != "index.md" {
		t.Errorf("roots = %+v", tree.Roots)
	}
}

func TestAssemble_NestedDirectories(t *testing.T) {
	tree := Assemble([]Entry{
		{Path: "a/b/deep.md", Title: "Deep"},
	})
	if len(tree.Roots) != 1 {
		t.Fatalf("roots = %v", labels(tree.Roots))
	}
	a := tree.Roots[0]
	if a.Label != "A" || len(a.Children) != 1 {
		t.Fatalf("a = %+v", a)
	}
	b := a.Children[0]
	if b.Label != "B" || len(b.Children) != 1 || b.Children[0].Label != "Deep" {
		t.Fatalf("b = %+v", b)
	}
}

func TestAssemble_LabelFallsBackToFilename(t *testing.T) {
	tree := Assemble([]Entry{
		{Path: "getting-started.md"},
	})
	if tree.Roots[0].Label != "Getting started" {
		t.Errorf("label = %q", tree.Roots[0].Label)
	}
}

func TestFlatten_ReadingOrder(t *testing.T) {
	tree := Assemble([]Entry{
		{Path: "guides/index.md", Title: "Guides", Position: intp(2)},
		{Path: "guides/build.md", Title: "Build", Position: intp(1)},
		{Path: "intro.md", Title: "Intro", Position: intp(1)},
	})

	var paths []string
	for _, n := range tree.Flatten() {
		paths = append(paths, n.Path)
	}
	want := []string{"intro.md", "guides/index.md", "guides/build.md"}
	if len(paths) != len(want) {
		t.Fatalf("flatten = %v, want %v", paths, want)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Fatalf("flatten = %v, want %v", paths, want)
		}
	}
}
