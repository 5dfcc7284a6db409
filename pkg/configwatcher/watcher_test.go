package configwatcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
	"yks_coach_backend/internal/config"
)

func TestWatchConfigReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(file, []byte("ai:\n  model: a\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	loads := make(chan string, 4)
	load := func(d string) (*config.Config, error) {
		return &config.Config{AI: config.AIConfig{Model: d}}, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- WatchConfig(ctx, file, load, func(cfg *config.Config) {
			loads <- cfg.AI.Model
		})
	}()

	// 给 watcher 一点时间完成注册
	time.Sleep(200 * time.Millisecond)
	if err := os.WriteFile(file, []byte("ai:\n  model: b\n"), 0o644); err != nil {
		t.Fatalf("rewrite: %v", err)
	}

	select {
	case got := <-loads:
		absDir, _ := filepath.Abs(dir)
		if got != absDir {
			t.Fatalf("loader dir: want=%q got=%q", absDir, got)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("config was not reloaded")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("WatchConfig: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("watcher did not stop after cancel")
	}
}
