package ratelimit

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRedis answers the handful of commands RedisLimiter sends, over RESP.
type fakeRedis struct {
	mu       sync.Mutex
	counters map[string]int64
	expiries map[string]time.Duration
	pexpires int
	failExec bool
}

func startFakeRedis(t *testing.T) (*fakeRedis, string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	f := &fakeRedis{counters: map[string]int64{}, expiries: map[string]time.Duration{}}
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go f.serve(conn)
		}
	}()
	return f, ln.Addr().String()
}

func (f *fakeRedis) serve(conn net.Conn) {
	defer conn.Close()
	r := bufio.NewReader(conn)
	var queued []string
	inMulti := false
	for {
		args, err := readCommand(r)
		if err != nil {
			return
		}
		cmd := strings.ToUpper(args[0])
		f.mu.Lock()
		var reply string
		switch {
		case cmd == "MULTI":
			inMulti, queued = true, nil
			reply = "+OK\r\n"
		case cmd == "EXEC":
			inMulti = false
			if f.failExec {
				reply = "-ERR injected failure\r\n"
				break
			}
			reply = fmt.Sprintf("*%d\r\n", len(queued))
			for _, q := range queued {
				reply += f.run(strings.Fields(q))
			}
		case inMulti:
			queued = append(queued, strings.Join(args, " "))
			reply = "+QUEUED\r\n"
		default:
			reply = f.run(args)
		}
		f.mu.Unlock()
		if _, err := conn.Write([]byte(reply)); err != nil {
			return
		}
	}
}

func (f *fakeRedis) run(args []string) string {
	switch strings.ToUpper(args[0]) {
	case "PING":
		return "+PONG\r\n"
	case "INCR":
		f.counters[args[1]]++
		return fmt.Sprintf(":%d\r\n", f.counters[args[1]])
	case "PTTL":
		if _, exists := f.counters[args[1]]; !exists {
			return ":-2\r\n"
		}
		if ttl, set := f.expiries[args[1]]; set {
			return fmt.Sprintf(":%d\r\n", ttl.Milliseconds())
		}
		return ":-1\r\n"
	case "PEXPIRE":
		ms, _ := strconv.ParseInt(args[2], 10, 64)
		f.expiries[args[1]] = time.Duration(ms) * time.Millisecond
		f.pexpires++
		return ":1\r\n"
	}
	return "-ERR unknown command\r\n"
}

func readCommand(r *bufio.Reader) ([]string, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		return nil, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "*")))
	if err != nil {
		return nil, err
	}
	args := make([]string, 0, n)
	for i := 0; i < n; i++ {
		if _, err := r.ReadString('\n'); err != nil { // $len
			return nil, err
		}
		arg, err := r.ReadString('\n')
		if err != nil {
			return nil, err
		}
		args = append(args, strings.TrimRight(arg, "\r\n"))
	}
	return args, nil
}

func newFakeRedisLimiter(t *testing.T, limit int) (*RedisLimiter, *fakeRedis) {
	t.Helper()
	fake, addr := startFakeRedis(t)
	client := redis.NewClient(&redis.Options{Addr: addr, MaxRetries: -1, DialTimeout: time.Second})
	l := NewRedisLimiter(client, "login:", limit, time.Minute)
	t.Cleanup(func() { l.Close() })
	return l, fake
}

func TestRedisLimiter_FixedWindow(t *testing.T) {
	l, fake := newFakeRedisLimiter(t, 2)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		allowed, err := l.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, allowed)
	}
	allowed, err := l.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, allowed)

	allowed, err = l.Allow(ctx, "10.0.0.2")
	require.NoError(t, err)
	assert.True(t, allowed)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Equal(t, int64(3), fake.counters["login:10.0.0.1"])
	assert.Equal(t, time.Minute, fake.expiries["login:10.0.0.1"])
	// One PEXPIRE per key: only the call that found no TTL starts the window.
	assert.Equal(t, 2, fake.pexpires)
}

func TestRedisLimiter_PipelineFailure(t *testing.T) {
	l, fake := newFakeRedisLimiter(t, 5)
	fake.mu.Lock()
	fake.failExec = true
	fake.mu.Unlock()

	allowed, err := l.Allow(context.Background(), "10.0.0.1")
	assert.Error(t, err)
	assert.False(t, allowed)
}
