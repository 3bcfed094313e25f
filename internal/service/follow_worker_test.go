package service

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/SteelMorgan/filetrack/pkg/tracked"
)

func TestNewFollowWorker(t *testing.T) {
	pass := func(ctx context.Context) (int, error) { return 0, nil }

	tests := []struct {
		name     string
		interval time.Duration
		pass     PassFunc
		wantErr  bool
	}{
		{"valid", time.Second, pass, false},
		{"zero interval", 0, pass, true},
		{"negative interval", -time.Second, pass, true},
		{"no pass", time.Second, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFollowWorker(tt.interval, tt.pass, zerolog.Nop())
			if (err != nil) != tt.wantErr {
				t.Errorf("NewFollowWorker() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFollowWorkerRunsUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	passes := 0
	w, err := NewFollowWorker(time.Millisecond, func(ctx context.Context) (int, error) {
		passes++
		switch passes {
		case 1:
			return 0, fmt.Errorf("open: %w", fs.ErrNotExist)
		case 2:
			return 0, fmt.Errorf("registry: %w", tracked.ErrRegistryLocked)
		case 3:
			cancel()
		}
		return 1, nil
	}, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}

	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if passes != 3 {
		t.Errorf("passes = %d, want 3", passes)
	}
}

func TestFollowWorkerStopsOnPermanentError(t *testing.T) {
	corrupt := &tracked.RegistryError{Path: "app.registry", Err: tracked.ErrCorruptRegistry}

	passes := 0
	w, err := NewFollowWorker(time.Millisecond, func(ctx context.Context) (int, error) {
		passes++
		return 0, corrupt
	}, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}

	err = w.Start(context.Background())
	if !errors.Is(err, tracked.ErrCorruptRegistry) {
		t.Errorf("Start() error = %v, want ErrCorruptRegistry", err)
	}
	if passes != 1 {
		t.Errorf("passes = %d, want 1", passes)
	}
}

func TestFollowWorkerIgnoresErrorsAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	w, err := NewFollowWorker(time.Hour, func(ctx context.Context) (int, error) {
		cancel()
		return 0, ctx.Err()
	}, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}

	if err := w.Start(ctx); err != nil {
		t.Errorf("Start() error = %v, want nil", err)
	}
}
