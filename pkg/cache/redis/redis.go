package redis

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// A POS terminal talks to a Redis on the same box or LAN; short timeouts
// and a couple of retries are enough.
const (
	defaultTimeout = 3 * time.Second
	defaultRetries = 2
)

// Options configures the terminal's Redis connection. Zero values fall
// back to the defaults above.
type Options struct {
	Addr     string
	Password string
	DB       int
	Timeout  time.Duration
	Retries  int
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.Retries <= 0 {
		o.Retries = defaultRetries
	}
	return o
}

type Client = goredis.Client

// Connect opens a connection and verifies it with a ping before handing
// it out.
func Connect(opts Options) (*Client, error) {
	opts = opts.withDefaults()

	rdb := goredis.NewClient(&goredis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		MaxRetries:   opts.Retries,
		DialTimeout:  opts.Timeout,
		ReadTimeout:  opts.Timeout,
		WriteTimeout: opts.Timeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), opts.Timeout)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}

	return rdb, nil
}

func Close(c *Client) {
	if c == nil {
		return
	}
	_ = c.Close()
}
