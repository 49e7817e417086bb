// internal/common/database/database.go
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"lending-workers/internal/common/config"
)

const pingTimeout = 5 * time.Second

// Clients holds the backends the service was configured to use. Unused
// backends stay nil.
type Clients struct {
	Postgres      *sql.DB
	Redis         *redis.Client
	Elasticsearch *elasticsearch.Client
}

// Connect opens the connections the lending configuration needs and pings
// each of them.
func Connect(ctx context.Context, cfg *config.Config) (*Clients, error) {
	c := &Clients{}
	l := cfg.Lending

	if l.Store.Backend == config.BackendPostgres {
		db, err := NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return nil, err
		}
		c.Postgres = db
	}

	if l.Store.Backend == config.BackendRedis || l.Inflight.Backend == config.BackendRedis {
		c.Redis = NewRedis(cfg.Database.Redis)
	}

	if l.Audit.Enabled {
		es, err := NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			c.Close()
			return nil, err
		}
		c.Elasticsearch = es
	}

	if err := c.Ping(ctx); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

// NewPostgres creates a new PostgreSQL pool
func NewPostgres(cfg config.PostgresConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdle)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return db, nil
}

// NewRedis creates a new Redis client
func NewRedis(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})
}

// NewElasticsearch creates a new Elasticsearch client
func NewElasticsearch(cfg config.ElasticsearchConfig) (*elasticsearch.Client, error) {
	esCfg := elasticsearch.Config{
		Addresses: cfg.GetAddresses(),
	}
	if cfg.Username != "" {
		esCfg.Username = cfg.Username
		esCfg.Password = cfg.Password
	}

	es, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}
	return es, nil
}

// Ping checks every open backend and joins the failures.
func (c *Clients) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	var errs []error
	if c.Postgres != nil {
		if err := c.Postgres.PingContext(ctx); err != nil {
			errs = append(errs, fmt.Errorf("postgres ping failed: %w", err))
		}
	}
	if c.Redis != nil {
		if err := c.Redis.Ping(ctx).Err(); err != nil {
			errs = append(errs, fmt.Errorf("redis ping failed: %w", err))
		}
	}
	if c.Elasticsearch != nil {
		if err := pingElasticsearch(ctx, c.Elasticsearch); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func pingElasticsearch(ctx context.Context, es *elasticsearch.Client) error {
	res, err := es.Ping(es.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch ping failed: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("elasticsearch ping error: %s", res.Status())
	}
	return nil
}

// Close closes the connections
func (c *Clients) Close() error {
	var errs []error
	if c.Postgres != nil {
		errs = append(errs, c.Postgres.Close())
	}
	if c.Redis != nil {
		errs = append(errs, c.Redis.Close())
	}
	return errors.Join(errs...)
}
