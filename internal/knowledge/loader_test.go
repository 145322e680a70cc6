package knowledge

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestSplitParagraphs(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "blank line separated",
			text: "first paragraph\n\nsecond paragraph",
			want: []string{"first paragraph", "second paragraph"},
		},
		{
			name: "inner newlines preserved",
			text: "line one\nline two\n\nnext",
			want: []string{"line one\nline two", "next"},
		},
		{
			name: "windows line endings",
			text: "a\r\n\r\nb",
			want: []string{"a", "b"},
		},
		{
			name: "extra blank lines and whitespace",
			text: "\n\n  a  \n\n\n\nb\n\n",
			want: []string{"a", "b"},
		},
		{
			name: "empty input",
			text: "   \n\n  ",
			want: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SplitParagraphs(tt.text); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SplitParagraphs(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestLoadPassages_SingleFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hydration.txt")
	if err := os.WriteFile(path, []byte("Drink water.\n\nAvoid dehydration."), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	passages, err := LoadPassages(path)
	if err != nil {
		t.Fatalf("LoadPassages() error = %v", err)
	}
	if len(passages) != 2 {
		t.Fatalf("len(passages) = %d, want 2", len(passages))
	}
	if passages[0].ID != "hydration.txt#0" || passages[1].ID != "hydration.txt#1" {
		t.Errorf("IDs = [%s %s], want stable base#index IDs", passages[0].ID, passages[1].ID)
	}
	if passages[0].Source != "hydration.txt" {
		t.Errorf("Source = %q, want %q", passages[0].Source, "hydration.txt")
	}
}

func TestLoadPassages_DirectoryLexicalOrder(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"b_sleep.md":    "Sleep eight hours.",
		"a_diet.txt":    "Eat vegetables.",
		"ignored.pdf":   "binary stuff",
		"c_fitness.txt": "Exercise daily.",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatalf("WriteFile(%s) error = %v", name, err)
		}
	}

	passages, err := LoadPassages(dir)
	if err != nil {
		t.Fatalf("LoadPassages() error = %v", err)
	}

	want := []string{"a_diet.txt#0", "b_sleep.md#0", "c_fitness.txt#0"}
	if len(passages) != len(want) {
		t.Fatalf("len(passages) = %d, want %d (unsupported extensions skipped)", len(passages), len(want))
	}
	for i, id := range want {
		if passages[i].ID != id {
			t.Errorf("passages[%d].ID = %s, want %s", i, passages[i].ID, id)
		}
	}
}

func TestLoadPassages_MissingPath(t *testing.T) {
	if _, err := LoadPassages(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatal("LoadPassages(missing) succeeded, want error")
	}
}

func TestLoadPassages_HTML(t *testing.T) {
	dir := t.TempDir()
	page := `<html><head><title>x</title><style>p{color:red}</style></head>
<body><p>Wash your hands.</p><p>Get enough sleep.</p><script>alert(1)</script></body></html>`
	path := filepath.Join(dir, "tips.html")
	if err := os.WriteFile(path, []byte(page), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	passages, err := LoadPassages(path)
	if err != nil {
		t.Fatalf("LoadPassages() error = %v", err)
	}
	joined := ""
	for _, p := range passages {
		joined += p.Text + "\n"
	}
	if !strings.Contains(joined, "Wash your hands.") || !strings.Contains(joined, "Get enough sleep.") {
		t.Errorf("extracted text = %q, want both paragraphs", joined)
	}
	if strings.Contains(joined, "alert") || strings.Contains(joined, "color:red") {
		t.Errorf("extracted text = %q, script/style content leaked", joined)
	}
}

func TestExtractText_SkipsChrome(t *testing.T) {
	raw := `<html><body><nav>Menu</nav><main><h1>Guide</h1><p>Stay active.</p></main><footer>Legal</footer></body></html>`
	got := ExtractText(raw)
	if !strings.Contains(got, "Stay active.") {
		t.Errorf("ExtractText() = %q, want body content", got)
	}
	if strings.Contains(got, "Menu") || strings.Contains(got, "Legal") {
		t.Errorf("ExtractText() = %q, nav/footer content leaked", got)
	}
}
