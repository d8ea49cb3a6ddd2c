package redis

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/semsearch/internal/db"
	"github.com/kailas-cloud/semsearch/internal/retry"
)

var _ db.Store = (*Store)(nil)

// Config holds connection parameters. DialTimeout of zero keeps the rueidis default.
type Config struct {
	Addrs       []string
	Username    string
	Password    string
	DB          int
	DialTimeout time.Duration
}

// Store is the rueidis-backed point store. It needs a server with the
// Search module loaded (Redis 8, Redis Stack).
type Store struct {
	client rueidis.Client
}

// readyPolicy paces WaitForReady pings; the caller's timeout bounds the total.
var readyPolicy = retry.Policy{
	MaxAttempts: math.MaxInt32,
	BaseDelay:   50 * time.Millisecond,
	MaxDelay:    time.Second,
}

// NewStore dials the configured addresses. Client-side caching is off and
// replies are forced to RESP2, the layout the FT.SEARCH parser reads.
func NewStore(cfg Config) (*Store, error) {
	if len(cfg.Addrs) == 0 {
		return nil, errors.New("redis: at least one address is required")
	}

	opt := rueidis.ClientOption{
		InitAddress:  cfg.Addrs,
		Username:     cfg.Username,
		Password:     cfg.Password,
		SelectDB:     cfg.DB,
		DisableCache: true,
		AlwaysRESP2:  true,
	}
	opt.Dialer.Timeout = cfg.DialTimeout

	client, err := rueidis.NewClient(opt)
	if err != nil {
		return nil, fmt.Errorf("redis: connect %s: %w", strings.Join(cfg.Addrs, ","), err)
	}
	return &Store{client: client}, nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.do(ctx, s.b().Ping().Build()).Error(); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Close shuts down the client.
func (s *Store) Close() {
	s.client.Close()
}

// WaitForReady pings with exponential backoff until the server answers or timeout elapses.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := retry.Do(ctx, readyPolicy, s.Ping); err != nil {
		return fmt.Errorf("database not ready after %s: %w", timeout, err)
	}
	return nil
}

func (s *Store) do(ctx context.Context, cmd rueidis.Completed) rueidis.RedisResult {
	return s.client.Do(ctx, cmd)
}

func (s *Store) b() rueidis.Builder {
	return s.client.B()
}

// transientReplies prefix server errors that clear up on their own.
var transientReplies = []string{"LOADING", "BUSY", "TRYAGAIN", "CLUSTERDOWN", "MASTERDOWN"}

// rejected reports whether err is a server reply refusing the command itself
// (syntax, bad arguments, unknown index) rather than a server that is briefly unable to serve.
func rejected(err error) bool {
	var re *rueidis.RedisError
	if !errors.As(err, &re) {
		return false
	}
	msg := re.Error()
	for _, p := range transientReplies {
		if strings.HasPrefix(msg, p) {
			return false
		}
	}
	return true
}

// isRedisErr reports whether err wraps a server reply whose lowercased
// message contains substr. Transport errors never match.
func isRedisErr(err error, substr string) bool {
	var re *rueidis.RedisError
	return errors.As(err, &re) && strings.Contains(strings.ToLower(re.Error()), substr)
}
