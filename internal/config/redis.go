package config

import (
	"fmt"
	"net"
	neturl "net/url"
	"strconv"

	goredis "github.com/redis/go-redis/v9"
)

// URLValue renders the redis section as a URL. An explicit url wins over
// the discrete fields. Call after normalize.
func (c RedisConfig) URLValue() string {
	if c.URL != "" {
		return c.URL
	}
	scheme := c.Scheme
	if scheme != "redis" && scheme != "rediss" {
		scheme = "redis"
	}
	if c.TLS {
		scheme = "rediss"
	}
	u := neturl.URL{
		Scheme: scheme,
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:   "/" + strconv.Itoa(c.DB),
	}
	switch {
	case c.Username != "" && c.Password != "":
		u.User = neturl.UserPassword(c.Username, c.Password)
	case c.Username != "":
		u.User = neturl.User(c.Username)
	case c.Password != "":
		u.User = neturl.UserPassword("", c.Password)
	}
	if len(c.Params) > 0 {
		q := neturl.Values{}
		for k, v := range c.Params {
			q.Set(k, v)
		}
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// checkRedisURL rejects URLs the client would refuse at connect time, such
// as unknown query options.
func checkRedisURL(raw string) error {
	if _, err := goredis.ParseURL(raw); err != nil {
		return fmt.Errorf("invalid redis config: %w", err)
	}
	return nil
}
