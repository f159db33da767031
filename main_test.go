package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	dto "github.com/prometheus/client_model/go"
	"github.com/rs/zerolog"

	"mathCaptcha/internal/config"
	"mathCaptcha/internal/metrics"
	"mathCaptcha/internal/session"
)

func TestVersionCommand(t *testing.T) {
	var buf bytes.Buffer
	app := newApp()
	app.Writer = &buf
	if err := app.Run([]string{"mathcaptcha", "version"}); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "mathcaptcha dev") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestServeRejectsBadConfig(t *testing.T) {
	t.Setenv("MATHCAPTCHA_STORE_DRIVER", "etcd")
	app := newApp()
	err := app.Run([]string{"mathcaptcha", "serve"})
	if err == nil || !strings.Contains(err.Error(), "store.driver") {
		t.Fatalf("err = %v, want store.driver validation error", err)
	}
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()

	cfg := config.Default()
	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		t.Fatalf("memory: %v", err)
	}
	if _, ok := store.(*session.MemoryStore); !ok {
		t.Errorf("memory driver returned %T", store)
	}
	closeStore()

	mr := miniredis.RunT(t)
	cfg.Store.Driver = config.DriverRedis
	cfg.Redis.Addr = mr.Addr()
	store, closeStore, err = openStore(ctx, cfg)
	if err != nil {
		t.Fatalf("redis: %v", err)
	}
	defer closeStore()
	if _, ok := store.(*session.RedisStore); !ok {
		t.Errorf("redis driver returned %T", store)
	}
	if err := store.Set(ctx, "sid:login", 3, 0); err != nil {
		t.Fatal(err)
	}
	if !mr.Exists("captcha:sid:login") {
		t.Error("answer not written to redis")
	}
}

func sweptTotal(t *testing.T) float64 {
	t.Helper()
	var m dto.Metric
	if err := metrics.StoreSweptTotal.Write(&m); err != nil {
		t.Fatal(err)
	}
	return m.GetCounter().GetValue()
}

func TestSweepRemovesExpired(t *testing.T) {
	store := session.NewMemoryStore()
	bg := context.Background()
	store.Set(bg, "a:login", 1, time.Nanosecond)
	store.Set(bg, "b:login", 2, time.Nanosecond)
	store.Set(bg, "c:login", 3, time.Hour)
	before := sweptTotal(t)

	ctx, cancel := context.WithCancel(bg)
	done := make(chan struct{})
	go func() {
		sweep(ctx, store, 5*time.Millisecond, zerolog.Nop())
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for store.Len() != 1 {
		if time.Now().After(deadline) {
			cancel()
			t.Fatalf("Len() = %d after 2s, want 1", store.Len())
		}
		time.Sleep(time.Millisecond)
	}
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweep did not return after cancel")
	}

	if got := sweptTotal(t) - before; got != 2 {
		t.Errorf("swept counter delta = %v, want 2", got)
	}
	if v, _ := store.Get(bg, "c:login"); v != 3 {
		t.Errorf("Get(c:login) = %d, want 3", v)
	}
}

func TestSweepDisabled(t *testing.T) {
	done := make(chan struct{})
	go func() {
		sweep(context.Background(), session.NewMemoryStore(), 0, zerolog.Nop())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweep with zero interval should return immediately")
	}
}
