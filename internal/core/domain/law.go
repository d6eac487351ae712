package domain

import "time"

type LawStatus string

const (
	LawStatusRegistered LawStatus = "registered"
	LawStatusIndexing   LawStatus = "indexing"
	LawStatusReady      LawStatus = "ready"
	LawStatusFailed     LawStatus = "failed"
)

// Law is the corpus-level metadata row for one statute.
type Law struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Category     string    `json:"category,omitempty"`
	Era          string    `json:"era,omitempty"`
	StoragePath  string    `json:"storage_path"`
	ArticleCount int       `json:"article_count"`
	ChunkCount   int       `json:"chunk_count"`
	Status       LawStatus `json:"status"`
	Error        string    `json:"error,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ParsedLaw is the structural tree of one statute source file.
type ParsedLaw struct {
	ID       string
	Title    string
	Era      string
	Chapters []ParsedChapter
}

type ParsedChapter struct {
	Title    string
	Articles []ParsedArticle
}

type ParsedArticle struct {
	Num        string
	Title      string
	Caption    string
	Paragraphs []ParsedParagraph
}

type ParsedParagraph struct {
	Num  string
	Text string
}

// ArticleCount reports the number of articles across all chapters.
func (l *ParsedLaw) ArticleCount() int {
	n := 0
	for _, c := range l.Chapters {
		n += len(c.Articles)
	}
	return n
}

// Chunk is one indexable passage produced by the ingestion splitter.
// EnrichedText carries the statute/chapter/article context that scoring
// uses; Text is what citations quote.
type Chunk struct {
	ID           string
	LawID        string
	LawTitle     string
	ChapterTitle string
	ArticleNum   string
	ArticleTitle string
	ParagraphNum string
	Category     string
	Text         string
	EnrichedText string
}
