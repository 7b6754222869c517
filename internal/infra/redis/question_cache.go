package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"ramadan-quiz-service/internal/app"
	"ramadan-quiz-service/internal/domain"
)

// QuestionCache caches question rows in Redis as JSON blobs and falls back to
// the bank on a miss. Selector and bonus queries pass through uncached.
// Keys: quiz:question:{id}, TTL with up to 10% jitter.
type QuestionCache struct {
	client *redis.Client
	inner  app.QuestionBank
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewQuestionCache(client *redis.Client, inner app.QuestionBank, ttl time.Duration) *QuestionCache {
	return &QuestionCache{
		client: client,
		inner:  inner,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *QuestionCache) Question(ctx context.Context, id string) (domain.Question, error) {
	key := c.key(id)

	raw, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var q domain.Question
		if jerr := json.Unmarshal(raw, &q); jerr == nil {
			return q, nil
		}
	}

	result, err, _ := c.sf.Do(id, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		raw, err := c.client.Get(ctx, key).Bytes()
		if err == nil {
			var q domain.Question
			if jerr := json.Unmarshal(raw, &q); jerr == nil {
				return q, nil
			}
		}

		question, err := c.inner.Question(ctx, id)
		if err != nil {
			return domain.Question{}, err
		}
		if data, jerr := json.Marshal(question); jerr == nil {
			_ = c.client.Set(ctx, key, data, c.ttlWithJitter()).Err()
		}
		return question, nil
	})
	if err != nil {
		return domain.Question{}, err
	}
	return result.(domain.Question), nil
}

func (c *QuestionCache) FindQuestions(ctx context.Context, tier domain.Tier, excludeIDs []string, limit int) ([]domain.Question, error) {
	return c.inner.FindQuestions(ctx, tier, excludeIDs, limit)
}

func (c *QuestionCache) BonusQuestion(ctx context.Context, date string) (domain.Question, error) {
	return c.inner.BonusQuestion(ctx, date)
}

func (c *QuestionCache) key(id string) string {
	return "quiz:question:" + id
}

func (c *QuestionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
