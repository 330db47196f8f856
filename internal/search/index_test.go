package search

import (
	"reflect"
	"sync"
	"testing"
)

func catalog() []Doc {
	return []Doc{
		{ID: "b1", Text: "Sherlock Holmes toàn tập Arthur Conan Doyle"},
		{ID: "b2", Text: "Nhà Giả Kim The Alchemist Paulo Coelho"},
		{ID: "b3", Text: "Sherlock Holmes"},
		{ID: "b4", Text: "Đắc Nhân Tâm"},
		{ID: "b5", Text: "   "},
	}
}

func TestOptionsAndDefaults(t *testing.T) {
	def := defaultConfig()
	if def.minScore != 0 || def.maxDocs != 0 || len(def.stopwords) == 0 {
		t.Fatalf("defaultConfig unexpected: %#v", def)
	}

	cfg := def
	WithStopwords([]string{"  Của ", ""})(&cfg)
	if _, ok := cfg.stopwords["cua"]; !ok || len(cfg.stopwords) != 1 {
		t.Fatalf("WithStopwords should fold and replace: %#v", cfg.stopwords)
	}

	WithMinScore(0.3)(&cfg)
	WithMinScore(2)(&cfg) // ignored
	if cfg.minScore != 0.3 {
		t.Fatalf("WithMinScore = %v", cfg.minScore)
	}

	WithMaxDocs(2)(&cfg)
	WithMaxDocs(0)(&cfg) // ignored
	if cfg.maxDocs != 2 {
		t.Fatalf("WithMaxDocs = %d", cfg.maxDocs)
	}
}

func TestTopK_RanksByJaccard(t *testing.T) {
	idx := NewIndex(catalog())

	res := idx.TopK("sherlock holmes", 0)
	if len(res) != 2 {
		t.Fatalf("expected 2 matches, got %#v", res)
	}
	// exact title has the smaller union, so it scores 1.0
	if res[0].ID != "b3" || res[0].Score != 1 {
		t.Fatalf("exact title should rank first: %#v", res)
	}
	if res[1].ID != "b1" || res[1].Score >= 1 {
		t.Fatalf("longer title should rank second: %#v", res)
	}
}

func TestTopK_FoldsDiacritics(t *testing.T) {
	idx := NewIndex(catalog())
	res := idx.TopK("dac nhan tam", 1)
	if len(res) != 1 || res[0].ID != "b4" {
		t.Fatalf("folded query should match: %#v", res)
	}
}

func TestTopK_EmptyAndNoMatch(t *testing.T) {
	idx := NewIndex(catalog())
	if res := idx.TopK("", 3); res != nil {
		t.Fatalf("empty query should return nil, got %#v", res)
	}
	if res := idx.TopK("sách", 3); res != nil {
		t.Fatalf("stop-word-only query should return nil, got %#v", res)
	}
	if res := idx.TopK("zzzz", 3); res != nil {
		t.Fatalf("no-match query should return nil, got %#v", res)
	}
	if res := NewIndex(nil).TopK("x", 1); res != nil {
		t.Fatalf("empty index should return nil")
	}
}

func TestTopK_TiesKeepInputOrder(t *testing.T) {
	idx := NewIndex([]Doc{
		{ID: "x", Text: "alpha beta"},
		{ID: "y", Text: "alpha gamma"},
	})
	res := idx.TopK("alpha", 0)
	got := []string{res[0].ID, res[1].ID}
	if !reflect.DeepEqual(got, []string{"x", "y"}) {
		t.Fatalf("tie order = %v", got)
	}
}

func TestOptions_MinScoreAndMaxDocs(t *testing.T) {
	idx := NewIndex(catalog(), WithMinScore(0.5))
	res := idx.TopK("sherlock holmes", 0)
	if len(res) != 1 || res[0].ID != "b3" {
		t.Fatalf("min score should drop weak match: %#v", res)
	}

	idx = NewIndex(catalog(), WithMaxDocs(1))
	if res := idx.TopK("alchemist", 0); res != nil {
		t.Fatalf("only the first document should be indexed: %#v", res)
	}
}

func TestTokens(t *testing.T) {
	got := Tokens("Sách Nhà Giả Kim, nhà giả kim!")
	want := []string{"nha", "gia", "kim"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Tokens = %v; want %v", got, want)
	}
}

func TestTopK_ConcurrentReads(t *testing.T) {
	idx := NewIndex(catalog())
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if res := idx.TopK("holmes", 2); len(res) != 2 {
				t.Errorf("unexpected result %#v", res)
			}
		}()
	}
	wg.Wait()
}
