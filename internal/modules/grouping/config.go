package grouping

import (
	"fmt"
	"strings"
	"time"
)

const DefaultReplyHeader = "Mensagens recebidas:"

// Config holds the debounce timings. Delay < LockTTL < GroupTTL must hold so the
// job fires while its lock is live and before the group can expire.
type Config struct {
	BufferTTL time.Duration
	Freshness time.Duration
	GroupTTL  time.Duration
	LockTTL   time.Duration
	Delay     time.Duration

	ReplyHeader string
}

func DefaultConfig() Config {
	return Config{
		BufferTTL:   10 * time.Second,
		Freshness:   6 * time.Second,
		GroupTTL:    10 * time.Second,
		LockTTL:     6 * time.Second,
		Delay:       5 * time.Second,
		ReplyHeader: DefaultReplyHeader,
	}
}

func (c Config) Validate() error {
	if c.Delay <= 0 || c.LockTTL <= 0 || c.GroupTTL <= 0 || c.BufferTTL <= 0 {
		return fmt.Errorf("grouping config: durations must be positive (delay=%s lock_ttl=%s group_ttl=%s buffer_ttl=%s)",
			c.Delay, c.LockTTL, c.GroupTTL, c.BufferTTL)
	}
	if !(c.Delay < c.LockTTL && c.LockTTL < c.GroupTTL) {
		return fmt.Errorf("grouping config: need delay < lock_ttl < group_ttl, got %s, %s, %s", c.Delay, c.LockTTL, c.GroupTTL)
	}
	if c.Freshness < 0 || c.Freshness > c.BufferTTL {
		return fmt.Errorf("grouping config: freshness %s must be within buffer_ttl %s", c.Freshness, c.BufferTTL)
	}
	if strings.TrimSpace(c.ReplyHeader) == "" {
		return fmt.Errorf("grouping config: reply header is empty")
	}
	return nil
}
