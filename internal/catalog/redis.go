package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/raaihank/whatis/internal/config"
	"github.com/raaihank/whatis/internal/rules"
	"go.uber.org/zap"
)

// ErrNotPublished is returned when no catalog exists under the key prefix.
var ErrNotPublished = errors.New("catalog not published")

// Publisher pushes the rule catalog of a registry to Redis so scanners in
// other processes can see which rules, and which revision, are in force.
type Publisher struct {
	client *redis.Client
	config config.CatalogConfig
	logger *zap.Logger
}

// NewPublisher creates a new Redis-backed catalog publisher
func NewPublisher(cfg config.CatalogConfig, logger *zap.Logger) (*Publisher, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	if cfg.MaxConnections > 0 {
		opts.PoolSize = cfg.MaxConnections
	}
	opts.MinIdleConns = cfg.MinIdleConns

	p := &Publisher{
		client: redis.NewClient(opts),
		config: cfg,
		logger: logger,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := p.client.Ping(ctx).Err(); err != nil {
		_ = p.client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Catalog publisher connected",
		zap.String("redis_url", maskRedisURL(cfg.RedisURL)),
		zap.String("key_prefix", cfg.KeyPrefix),
		zap.Duration("ttl", cfg.TTL))

	return p, nil
}

// maxPublishAttempts bounds retries when another publisher changes the
// catalog between our read and our write.
const maxPublishAttempts = 5

// Publish replaces the published catalog with the rules of reg in a single
// transaction. When several rules share a name, the first one is published,
// matching Registry.Lookup. The rule list is watched, so concurrent
// publishers never leave rule keys the final list does not name.
func (p *Publisher) Publish(ctx context.Context, reg *rules.Registry) error {
	ttl := p.config.TTL
	names := make([]interface{}, 0, reg.Len())
	payloads := make(map[string][]byte, reg.Len())
	order := make([]string, 0, reg.Len())

	for _, rule := range reg.Rules() {
		names = append(names, rule.Name)
		if _, ok := payloads[rule.Name]; ok {
			continue
		}

		data, err := json.Marshal(rules.Summarize(rule))
		if err != nil {
			return fmt.Errorf("failed to marshal rule %q: %w", rule.Name, err)
		}
		payloads[rule.Name] = data
		order = append(order, rule.Name)
	}

	var stale int
	publish := func(tx *redis.Tx) error {
		previous, err := tx.LRange(ctx, p.listKey(), 0, -1).Result()
		if err != nil && err != redis.Nil {
			return fmt.Errorf("failed to read published rule names: %w", err)
		}

		stale = 0
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for _, name := range order {
				pipe.Set(ctx, p.ruleKey(name), payloads[name], ttl)
			}

			removed := make(map[string]bool)
			for _, name := range previous {
				if _, ok := payloads[name]; !ok && !removed[name] {
					removed[name] = true
					pipe.Del(ctx, p.ruleKey(name))
				}
			}
			stale = len(removed)

			pipe.Del(ctx, p.listKey())
			if len(names) > 0 {
				pipe.RPush(ctx, p.listKey(), names...)
				if ttl > 0 {
					pipe.Expire(ctx, p.listKey(), ttl)
				}
			}
			pipe.Set(ctx, p.fingerprintKey(), reg.Fingerprint(), ttl)
			return nil
		})
		return err
	}

	var err error
	for attempt := 1; attempt <= maxPublishAttempts; attempt++ {
		err = p.client.Watch(ctx, publish, p.listKey())
		if err != redis.TxFailedErr {
			break
		}
		p.logger.Debug("Catalog changed during publish, retrying", zap.Int("attempt", attempt))
	}
	if err != nil {
		p.logger.Error("Catalog publish failed", zap.Error(err))
		return fmt.Errorf("catalog publish failed: %w", err)
	}

	p.logger.Info("Catalog published",
		zap.Int("rules", reg.Len()),
		zap.Int("stale_removed", stale),
		zap.String("fingerprint", reg.Fingerprint()))

	return nil
}

// Fingerprint returns the fingerprint of the published registry
func (p *Publisher) Fingerprint(ctx context.Context) (string, error) {
	fp, err := p.client.Get(ctx, p.fingerprintKey()).Result()
	if err == redis.Nil {
		return "", ErrNotPublished
	}
	if err != nil {
		return "", fmt.Errorf("failed to read catalog fingerprint: %w", err)
	}
	return fp, nil
}

// RuleNames returns the published rule names in registry order
func (p *Publisher) RuleNames(ctx context.Context) ([]string, error) {
	names, err := p.client.LRange(ctx, p.listKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read published rule names: %w", err)
	}
	return names, nil
}

// Rule returns one published rule summary
func (p *Publisher) Rule(ctx context.Context, name string) (rules.Summary, error) {
	data, err := p.client.Get(ctx, p.ruleKey(name)).Bytes()
	if err == redis.Nil {
		return rules.Summary{}, fmt.Errorf("%w: rule %q", ErrNotPublished, name)
	}
	if err != nil {
		return rules.Summary{}, fmt.Errorf("failed to read rule %q: %w", name, err)
	}

	var summary rules.Summary
	if err := json.Unmarshal(data, &summary); err != nil {
		return rules.Summary{}, fmt.Errorf("failed to unmarshal rule %q: %w", name, err)
	}
	return summary, nil
}

// Close closes the Redis connection
func (p *Publisher) Close() error {
	if p.client != nil {
		return p.client.Close()
	}
	return nil
}

func (p *Publisher) ruleKey(name string) string {
	return fmt.Sprintf("%s:rule:%s", p.config.KeyPrefix, name)
}

func (p *Publisher) listKey() string {
	return p.config.KeyPrefix + ":rules"
}

func (p *Publisher) fingerprintKey() string {
	return p.config.KeyPrefix + ":fingerprint"
}

// maskRedisURL masks the password in a Redis URL for logging
func maskRedisURL(url string) string {
	at := strings.LastIndex(url, "@")
	if at < 0 {
		return url
	}

	userinfo := url[:at]
	start := 0
	if i := strings.Index(userinfo, "://"); i >= 0 {
		start = i + len("://")
	}

	colon := strings.LastIndex(userinfo[start:], ":")
	if colon < 0 {
		return url
	}
	colon += start

	return userinfo[:colon+1] + "***" + url[at:]
}
