package infra

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFileKnowledgeSourceLoad(t *testing.T) {
	dir := t.TempDir()

	writeFile(t, filepath.Join(dir, "policy.md"), "# Retention Policy\n\nRecords must be retained for seven years after account closure.")
	writeFile(t, filepath.Join(dir, "guide.txt"), "Disclosures are reviewed quarterly by the compliance team.")
	writeFile(t, filepath.Join(dir, "portal.html"), `<html><head><script>track()</script></head><body><nav>Home</nav><p>Incident reports go to the safety officer.</p></body></html>`)
	writeFile(t, filepath.Join(dir, "ignored.bin"), "binary payload")

	source := NewFileKnowledgeSource(1000, 100)
	chunks, err := source.Load(context.Background(), []string{dir})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(chunks) != 3 {
		t.Fatalf("Expected 3 chunks, got %d", len(chunks))
	}

	byStem := make(map[string]string)
	for _, chunk := range chunks {
		stem := strings.TrimSuffix(filepath.Base(chunk.SourcePath), filepath.Ext(chunk.SourcePath))
		byStem[stem] = chunk.Text

		if chunk.ID == "" {
			t.Errorf("Chunk from %s has empty ID", chunk.SourcePath)
		}
	}

	if !strings.Contains(byStem["policy"], "seven years") {
		t.Errorf("Markdown text missing: %q", byStem["policy"])
	}
	if !strings.Contains(byStem["portal"], "safety officer") {
		t.Errorf("HTML body text missing: %q", byStem["portal"])
	}
	if strings.Contains(byStem["portal"], "track()") {
		t.Errorf("HTML scripts should be stripped: %q", byStem["portal"])
	}
	if strings.Contains(byStem["portal"], "Home") {
		t.Errorf("HTML navigation should be stripped: %q", byStem["portal"])
	}
}

func TestFileKnowledgeSourceLoadErrors(t *testing.T) {
	source := NewFileKnowledgeSource(1000, 100)

	if _, err := source.Load(context.Background(), []string{"/nonexistent/knowledge"}); err == nil {
		t.Error("Expected error for missing source")
	}

	empty := t.TempDir()
	if _, err := source.Load(context.Background(), []string{empty}); err == nil {
		t.Error("Expected error for directory with no supported files")
	}
}

func TestChunkText(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		size    int
		overlap int
		verify  func(t *testing.T, pieces []string)
	}{
		{
			name: "short text stays whole",
			text: "a short note",
			size: 100, overlap: 10,
			verify: func(t *testing.T, pieces []string) {
				if len(pieces) != 1 || pieces[0] != "a short note" {
					t.Errorf("Expected single piece, got %v", pieces)
				}
			},
		},
		{
			name: "long text splits with overlap",
			text: strings.Repeat("retention schedule review ", 40),
			size: 200, overlap: 40,
			verify: func(t *testing.T, pieces []string) {
				if len(pieces) < 2 {
					t.Fatalf("Expected multiple pieces, got %d", len(pieces))
				}
				for i, p := range pieces {
					if len([]rune(p)) > 200 {
						t.Errorf("Piece %d exceeds size: %d runes", i, len([]rune(p)))
					}
				}
			},
		},
		{
			name: "small size with oversized overlap still advances",
			text: strings.Repeat("word ", 200),
			size: 80, overlap: 100,
			verify: func(t *testing.T, pieces []string) {
				if len(pieces) == 0 || len(pieces) > 200 {
					t.Fatalf("Unexpected piece count %d", len(pieces))
				}
				if !strings.HasSuffix(pieces[len(pieces)-1], "word") {
					t.Errorf("Last piece does not reach the end of the text: %q", pieces[len(pieces)-1])
				}
			},
		},
		{
			name: "overlap equal to size still advances",
			text: strings.Repeat("retention ", 50),
			size: 40, overlap: 40,
			verify: func(t *testing.T, pieces []string) {
				for i, p := range pieces {
					if len([]rune(p)) > 40 {
						t.Errorf("Piece %d exceeds size: %d runes", i, len([]rune(p)))
					}
				}
			},
		},
		{
			name: "breaks at whitespace",
			text: strings.Repeat("word ", 100),
			size: 53, overlap: 5,
			verify: func(t *testing.T, pieces []string) {
				for i, p := range pieces {
					if strings.HasPrefix(p, "ord") || strings.HasSuffix(p, "wor") {
						t.Errorf("Piece %d splits a word: %q", i, p)
					}
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.verify(t, chunkText(tt.text, tt.size, tt.overlap))
		})
	}
}

func TestFileKnowledgeSourceSmallChunkSize(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "long.txt"), strings.Repeat("retention schedule review ", 100))

	// A chunk size that undercuts the default overlap must still terminate
	source := NewFileKnowledgeSource(80, -1)
	chunks, err := source.Load(context.Background(), []string{dir})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(chunks) < 2 {
		t.Fatalf("Expected multiple chunks, got %d", len(chunks))
	}
	for i, chunk := range chunks {
		if len([]rune(chunk.Text)) > 80 {
			t.Errorf("Chunk %d exceeds size: %d runes", i, len([]rune(chunk.Text)))
		}
	}
}

func TestCleanText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "ligatures replaced",
			input:    "ﬁnancial ﬂows",
			expected: "financial flows",
		},
		{
			name:     "smart quotes normalized",
			input:    "“quoted” and ‘single’",
			expected: `"quoted" and 'single'`,
		},
		{
			name:     "whitespace collapsed",
			input:    "a    b\n\n\n\nc",
			expected: "a b\n\nc",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cleanText(tt.input); got != tt.expected {
				t.Errorf("cleanText(%q) = %q, expected %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestAnalyze(t *testing.T) {
	source := NewFileKnowledgeSource(1000, 100)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.md"), "one two three")
	writeFile(t, filepath.Join(dir, "b.md"), "four five")

	chunks, err := source.Load(context.Background(), []string{dir})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	stats := Analyze(chunks)
	if stats.Files != 2 {
		t.Errorf("Expected 2 files, got %d", stats.Files)
	}
	if stats.Chunks != 2 {
		t.Errorf("Expected 2 chunks, got %d", stats.Chunks)
	}
	if stats.TotalWords != 5 {
		t.Errorf("Expected 5 words, got %d", stats.TotalWords)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
}
