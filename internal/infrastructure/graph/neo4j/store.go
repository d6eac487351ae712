package neo4j

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/normanhq/norman/internal/core/domain"
)

// Store mirrors statute structure into neo4j and answers exact-key
// lookups over it. Node shape: (Law)-[:HAS_CHAPTER]->(Chapter)
// -[:HAS_ARTICLE]->(Article)-[:HAS_PARAGRAPH]->(Paragraph), with
// same-law (Article)-[:REFERENCES]->(Article) edges extracted from the
// article text.
type Store struct {
	driver neo4j.DriverWithContext
	dbName string
}

func New(ctx context.Context, uri, user, password, dbName string) (*Store, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("verify neo4j connectivity: %w", err)
	}
	return &Store{driver: driver, dbName: dbName}, nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

func (s *Store) Ping(ctx context.Context) error {
	return s.driver.VerifyConnectivity(ctx)
}

const findArticleQuery = `
MATCH (l:Law)-[:HAS_CHAPTER]->(c:Chapter)-[:HAS_ARTICLE]->(a:Article)
WHERE l.title CONTAINS $law_title AND a.num = $article_num
OPTIONAL MATCH (a)-[:HAS_PARAGRAPH]->(p:Paragraph)
RETURN l.law_id AS law_id, l.title AS law_title, l.category AS category,
       c.title AS chapter_title,
       a.num AS article_num, a.title AS article_title,
       collect(p.chunk_id)[0] AS chunk_id,
       collect(p.text)[0] AS text
LIMIT 1`

func (s *Store) FindArticle(ctx context.Context, lawTitle, articleNum string) (*domain.Candidate, error) {
	result, err := neo4j.ExecuteQuery(ctx, s.driver, findArticleQuery,
		map[string]any{"law_title": lawTitle, "article_num": articleNum},
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(s.dbName),
	)
	if err != nil {
		return nil, fmt.Errorf("find article: %w", err)
	}
	if len(result.Records) == 0 {
		return nil, domain.WrapError(domain.ErrLawNotFound, "find article",
			fmt.Errorf("%s 第%s条", lawTitle, articleNum))
	}
	candidate := recordToCandidate(result.Records[0])
	return &candidate, nil
}

const relatedArticlesQuery = `
MATCH (start:Article {law_id: $law_id, num: $article_num})
MATCH path = (start)-[:REFERENCES*1..%d]-(related:Article)
WHERE related.law_id = $law_id AND related.num <> $article_num
MATCH (l:Law {law_id: related.law_id})
OPTIONAL MATCH (c:Chapter {law_id: related.law_id, num: related.chapter_num})
OPTIONAL MATCH (related)-[:HAS_PARAGRAPH]->(p:Paragraph)
RETURN DISTINCT l.law_id AS law_id, l.title AS law_title, l.category AS category,
       c.title AS chapter_title,
       related.num AS article_num, related.title AS article_title,
       collect(DISTINCT p.chunk_id)[0] AS chunk_id,
       collect(DISTINCT p.text)[0] AS text,
       length(path) AS distance
ORDER BY distance
LIMIT $limit`

func (s *Store) RelatedArticles(ctx context.Context, lawID, articleNum string, depth, limit int) ([]domain.Candidate, error) {
	if depth < 1 {
		depth = 1
	}
	if depth > 3 {
		depth = 3
	}
	// Variable-length bound cannot be parameterized in Cypher.
	query := fmt.Sprintf(relatedArticlesQuery, depth)

	result, err := neo4j.ExecuteQuery(ctx, s.driver, query,
		map[string]any{"law_id": lawID, "article_num": articleNum, "limit": limit},
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(s.dbName),
	)
	if err != nil {
		return nil, fmt.Errorf("related articles: %w", err)
	}

	out := make([]domain.Candidate, 0, len(result.Records))
	for _, record := range result.Records {
		candidate := recordToCandidate(record)
		distance := int64(1)
		if v, ok := record.Get("distance"); ok {
			if d, ok := v.(int64); ok {
				distance = d
			}
		}
		// Decaying confidence per hop.
		candidate.Score = math.Pow(0.95, float64(distance))
		out = append(out, candidate)
	}
	return out, nil
}

func (s *Store) UpsertLawStructure(ctx context.Context, law *domain.Law, chunks []domain.Chunk) error {
	if law == nil || len(chunks) == 0 {
		return nil
	}

	session := s.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: s.dbName})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if _, err := tx.Run(ctx, `
MERGE (l:Law {law_id: $law_id})
SET l.title = $title, l.category = $category, l.era = $era`,
			map[string]any{
				"law_id":   law.ID,
				"title":    law.Title,
				"category": law.Category,
				"era":      law.Era,
			}); err != nil {
			return nil, fmt.Errorf("merge law node: %w", err)
		}

		articleTexts := make(map[string][]string)
		chapterOrder := make(map[string]int)
		articleOrder := make(map[string]int)
		for i, chunk := range chunks {
			chapterNum := chapterKey(chunk.ChapterTitle)
			if _, seen := chapterOrder[chapterNum]; !seen {
				chapterOrder[chapterNum] = len(chapterOrder) + 1
			}
			if _, seen := articleOrder[chunk.ArticleNum]; !seen {
				articleOrder[chunk.ArticleNum] = len(articleOrder) + 1
			}

			if _, err := tx.Run(ctx, `
MATCH (l:Law {law_id: $law_id})
MERGE (c:Chapter {law_id: $law_id, num: $chapter_num})
SET c.title = $chapter_title
MERGE (l)-[:HAS_CHAPTER {order: $chapter_order}]->(c)
MERGE (a:Article {law_id: $law_id, num: $article_num})
SET a.title = $article_title, a.chapter_num = $chapter_num
MERGE (c)-[:HAS_ARTICLE {order: $article_order}]->(a)
MERGE (p:Paragraph {chunk_id: $chunk_id})
SET p.num = $paragraph_num, p.law_id = $law_id, p.article_num = $article_num, p.text = $text
MERGE (a)-[:HAS_PARAGRAPH {order: $paragraph_order}]->(p)`,
				map[string]any{
					"law_id":          law.ID,
					"chapter_num":     chapterNum,
					"chapter_title":   chunk.ChapterTitle,
					"chapter_order":   chapterOrder[chapterNum],
					"article_num":     chunk.ArticleNum,
					"article_title":   chunk.ArticleTitle,
					"article_order":   articleOrder[chunk.ArticleNum],
					"chunk_id":        chunk.ID,
					"paragraph_num":   chunk.ParagraphNum,
					"paragraph_order": i + 1,
					"text":            chunk.Text,
				}); err != nil {
				return nil, fmt.Errorf("merge structure for chunk %s: %w", chunk.ID, err)
			}

			articleTexts[chunk.ArticleNum] = append(articleTexts[chunk.ArticleNum], chunk.Text)
		}

		for articleNum, texts := range articleTexts {
			for _, ref := range extractReferences(texts, articleNum) {
				if _, err := tx.Run(ctx, `
MATCH (source:Article {law_id: $law_id, num: $source_num})
MATCH (target:Article {law_id: $law_id, num: $target_num})
MERGE (source)-[r:REFERENCES]->(target)
SET r.ref_type = $ref_type`,
					map[string]any{
						"law_id":     law.ID,
						"source_num": articleNum,
						"target_num": ref.target,
						"ref_type":   ref.kind,
					}); err != nil {
					slog.Warn("reference_merge_failed", "law_id", law.ID, "source", articleNum, "target", ref.target, "error", err)
				}
			}
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("upsert law structure: %w", err)
	}
	return nil
}

func recordToCandidate(record *neo4j.Record) domain.Candidate {
	get := func(key string) string {
		v, ok := record.Get(key)
		if !ok || v == nil {
			return ""
		}
		s, ok := v.(string)
		if !ok {
			return fmt.Sprintf("%v", v)
		}
		return s
	}

	lawTitle := get("law_title")
	articleNum := get("article_num")
	articleTitle := get("article_title")
	if articleTitle == "" && articleNum != "" {
		articleTitle = "第" + articleNum + "条"
	}
	return domain.Candidate{
		ChunkID:      get("chunk_id"),
		LawID:        get("law_id"),
		LawTitle:     lawTitle,
		ChapterTitle: get("chapter_title"),
		ArticleNum:   articleNum,
		ArticleTitle: articleTitle,
		Category:     get("category"),
		Text:         get("text"),
		Path: domain.HighlightPath{
			Law:     lawTitle,
			Chapter: get("chapter_title"),
			Article: articleTitle,
		},
		Score: 1.0,
	}
}

var chapterKeyRe = regexp.MustCompile(`第(\d+)章`)

// chapterKey derives a stable chapter number from its title; statutes
// without chapter headings collapse into chapter "0".
func chapterKey(chapterTitle string) string {
	if m := chapterKeyRe.FindStringSubmatch(chapterTitle); m != nil {
		return m[1]
	}
	return "0"
}

type reference struct {
	target string
	kind   string
}

var articleRefRe = regexp.MustCompile(`第(\d+)条(?:の(\d+))?`)

// extractReferences finds same-law citations in the article body:
// 第N条 / 第N条のM plus the relative forms 前条 and 次条.
func extractReferences(texts []string, currentNum string) []reference {
	seen := make(map[string]struct{})
	refs := make([]reference, 0, 4)

	add := func(target, kind string) {
		if target == "" || target == currentNum {
			return
		}
		if _, dup := seen[target]; dup {
			return
		}
		seen[target] = struct{}{}
		refs = append(refs, reference{target: target, kind: kind})
	}

	base := baseArticleNum(currentNum)
	for _, text := range texts {
		for _, m := range articleRefRe.FindAllStringSubmatch(text, -1) {
			target := m[1]
			if m[2] != "" {
				target = m[1] + "-" + m[2]
			}
			add(target, "article")
		}
		if base > 1 && strings.Contains(text, "前条") {
			add(strconv.Itoa(base-1), "prev_article")
		}
		if base > 0 && strings.Contains(text, "次条") {
			add(strconv.Itoa(base+1), "next_article")
		}
	}
	return refs
}

var leadingNumRe = regexp.MustCompile(`(\d+)`)

func baseArticleNum(num string) int {
	m := leadingNumRe.FindString(num)
	if m == "" {
		return 0
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0
	}
	return n
}
