package cache

import (
	"testing"
	"time"

	"github.com/normanhq/norman/internal/core/domain"
)

func TestExpansionCacheRoundTrip(t *testing.T) {
	c := NewExpansionCache(time.Minute)

	if _, ok := c.Get("残業時間の上限は？"); ok {
		t.Fatal("empty cache must miss")
	}

	exp := domain.Expansion{
		Translated:    "時間外労働の上限は何時間ですか",
		Keywords:      []string{"時間外労働", "上限"},
		SearchQueries: []string{"時間外労働 上限 労働基準法"},
	}
	c.Set("残業時間の上限は？", exp)

	got, ok := c.Get("残業時間の上限は？")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if got.Translated != exp.Translated || len(got.Keywords) != 2 {
		t.Fatalf("cached expansion mutated: %+v", got)
	}
}

func TestExpansionCacheExpires(t *testing.T) {
	c := NewExpansionCache(10 * time.Millisecond)
	c.Set("q", domain.Expansion{Translated: "t"})

	time.Sleep(30 * time.Millisecond)

	if _, ok := c.Get("q"); ok {
		t.Fatal("entry must expire after the TTL")
	}
}
