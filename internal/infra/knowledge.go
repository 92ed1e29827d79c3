package infra

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/traingen/go-traingen/internal/repository"
	pkgLogger "github.com/traingen/go-traingen/pkg/logger"
)

// FileKnowledgeSource loads a knowledge corpus from markdown, text, and HTML
// files. PDF extraction happens upstream; this source only reads files that
// are already textual.
type FileKnowledgeSource struct {
	chunkSize    int
	chunkOverlap int
	logger       *pkgLogger.Logger
}

// NewFileKnowledgeSource creates a knowledge source that splits files into
// chunks of chunkSize characters with chunkOverlap characters of overlap
func NewFileKnowledgeSource(chunkSize, chunkOverlap int) *FileKnowledgeSource {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	// Overlap must stay well under the chunk size or the window cannot
	// advance past the midpoint break
	if chunkOverlap < 0 || chunkOverlap*2 >= chunkSize {
		chunkOverlap = chunkSize / 10
	}
	return &FileKnowledgeSource{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		logger:       pkgLogger.NewComponentLogger("knowledge"),
	}
}

var _ repository.KnowledgeSource = (*FileKnowledgeSource)(nil)

// Load implements repository.KnowledgeSource. Sources may be files or
// directories; chunks are ordered by file path, then position.
func (s *FileKnowledgeSource) Load(ctx context.Context, sources []string) ([]repository.Chunk, error) {
	files, err := collectKnowledgeFiles(sources)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no knowledge files found in sources: %v", sources)
	}

	var chunks []repository.Chunk
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		text, err := s.readFile(path)
		if err != nil {
			s.logger.Warn("Skipping unreadable knowledge file", "path", path, "error", err)
			continue
		}

		text = cleanText(text)
		if text == "" {
			continue
		}

		stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		for i, piece := range chunkText(text, s.chunkSize, s.chunkOverlap) {
			chunks = append(chunks, repository.Chunk{
				ID:         fmt.Sprintf("%s-%03d", stem, i+1),
				SourcePath: path,
				Text:       piece,
				Position:   i,
			})
		}
	}

	if len(chunks) == 0 {
		return nil, fmt.Errorf("knowledge sources contained no extractable text: %v", sources)
	}

	s.logger.Info("Loaded knowledge base", "files", len(files), "chunks", len(chunks))
	return chunks, nil
}

// Analyze summarizes a loaded corpus for run-start reporting
func Analyze(chunks []repository.Chunk) repository.CorpusStats {
	files := make(map[string]struct{})
	words := 0
	for _, chunk := range chunks {
		files[chunk.SourcePath] = struct{}{}
		words += len(strings.Fields(chunk.Text))
	}
	return repository.CorpusStats{
		Files:      len(files),
		Chunks:     len(chunks),
		TotalWords: words,
	}
}

func (s *FileKnowledgeSource) readFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return extractHTMLText(string(data))
	default:
		return string(data), nil
	}
}

// extractHTMLText pulls readable body text out of an HTML document, dropping
// navigation chrome and scripts
func extractHTMLText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	doc.Find("script, style, nav, header, footer").Remove()

	body := doc.Find("body")
	if body.Length() == 0 {
		return doc.Text(), nil
	}

	var b strings.Builder
	body.Find("h1, h2, h3, h4, p, li, td, pre").Each(func(i int, sel *goquery.Selection) {
		text := strings.TrimSpace(sel.Text())
		if text != "" {
			b.WriteString(text)
			b.WriteString("\n")
		}
	})

	if b.Len() == 0 {
		return strings.TrimSpace(body.Text()), nil
	}
	return b.String(), nil
}

// collectKnowledgeFiles expands configured sources into a sorted list of
// supported files
func collectKnowledgeFiles(sources []string) ([]string, error) {
	supported := map[string]bool{
		".md": true, ".markdown": true, ".txt": true, ".html": true, ".htm": true,
	}

	seen := make(map[string]struct{})
	var files []string

	add := func(path string) {
		if _, dup := seen[path]; dup {
			return
		}
		seen[path] = struct{}{}
		files = append(files, path)
	}

	for _, source := range sources {
		info, err := os.Stat(source)
		if err != nil {
			return nil, fmt.Errorf("failed to access knowledge source %s: %w", source, err)
		}

		if !info.IsDir() {
			add(source)
			continue
		}

		err = filepath.Walk(source, func(path string, fileInfo os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if fileInfo.IsDir() {
				return nil
			}
			if supported[strings.ToLower(filepath.Ext(path))] {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk knowledge source %s: %w", source, err)
		}
	}

	sort.Strings(files)
	return files, nil
}

var (
	blankLines = regexp.MustCompile(`\n\s*\n`)
	multiSpace = regexp.MustCompile(` +`)
)

// cleanText normalizes whitespace and common extraction artifacts such as
// typographic ligatures left behind by PDF-to-text conversion
func cleanText(text string) string {
	text = blankLines.ReplaceAllString(text, "\n\n")
	text = multiSpace.ReplaceAllString(text, " ")

	replacer := strings.NewReplacer(
		"ﬁ", "fi",
		"ﬂ", "fl",
		"‘", "'",
		"’", "'",
		"“", `"`,
		"”", `"`,
	)
	return strings.TrimSpace(replacer.Replace(text))
}

// chunkText splits text into pieces of at most size runes with the given
// overlap, preferring to break at whitespace near the boundary
func chunkText(text string, size, overlap int) []string {
	runes := []rune(text)
	if len(runes) <= size {
		return []string{text}
	}
	if overlap < 0 || overlap*2 >= size {
		overlap = size / 10
	}

	var pieces []string
	start := 0
	for start < len(runes) {
		end := start + size
		if end >= len(runes) {
			pieces = append(pieces, strings.TrimSpace(string(runes[start:])))
			break
		}

		// Walk back to the nearest whitespace so chunks do not split words
		cut := end
		for cut > start+size/2 && !isSpace(runes[cut]) {
			cut--
		}
		if cut == start+size/2 {
			cut = end
		}

		pieces = append(pieces, strings.TrimSpace(string(runes[start:cut])))

		// The next window must start past the previous one
		next := cut - overlap
		if next <= start {
			next = cut
		}
		start = next
	}

	// Drop empty pieces produced by trimming
	out := pieces[:0]
	for _, p := range pieces {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\n' || r == '\t' || r == '\r'
}
