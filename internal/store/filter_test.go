package store

import "testing"

func TestFilter(t *testing.T) {
	rec := Record{
		URL:    "http://localhost:3000/checkout",
		Title:  "Checkout",
		Count:  2,
		Tags:   []string{"button", "input"},
		Source: "inspect",
	}
	tests := []struct {
		expr string
		want bool
	}{
		{"", true},
		{`count > 1`, true},
		{`count > 2`, false},
		{`"button" in tags`, true},
		{`"a" in tags`, false},
		{`url.startsWith("http://localhost:3000")`, true},
		{`title.contains("Cart") || source == "inspect"`, true},
		{`tags.exists(t, t == "input") && count == 2`, true},
	}
	for _, tt := range tests {
		f, err := CompileFilter(tt.expr)
		if err != nil {
			t.Fatalf("compile %q: %v", tt.expr, err)
		}
		got, err := f.Match(rec)
		if err != nil {
			t.Fatalf("match %q: %v", tt.expr, err)
		}
		if got != tt.want {
			t.Errorf("%q = %v, want %v", tt.expr, got, tt.want)
		}
	}
}

func TestFilter_NilTags(t *testing.T) {
	f, err := CompileFilter(`size(tags) == 0`)
	if err != nil {
		t.Fatal(err)
	}
	if ok, err := f.Match(Record{}); err != nil || !ok {
		t.Errorf("Match = %v, %v", ok, err)
	}
}

func TestCompileFilter_Errors(t *testing.T) {
	for _, expr := range []string{`count +`, `unknown == 1`, `count + 1`, `url`} {
		if _, err := CompileFilter(expr); err == nil {
			t.Errorf("CompileFilter(%q) succeeded", expr)
		}
	}
}
