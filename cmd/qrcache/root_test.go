package main

import (
	"context"
	"testing"

	"go.uber.org/zap"
)

func TestNewClient_Flags(t *testing.T) {
	maxEntries, maxCost, size, recoveryLevel = 3, "1MiB", 64, "high"
	t.Cleanup(func() {
		maxEntries, maxCost, size, recoveryLevel = 100, "50 MiB", 256, "medium"
	})

	client, err := newClient(zap.NewNop(), nil)
	if err != nil {
		t.Fatalf("newClient() error = %v", err)
	}
	defer client.Close()

	limits := client.Limits()
	if limits.MaxEntries != 3 {
		t.Errorf("MaxEntries = %d, want 3", limits.MaxEntries)
	}
	if limits.MaxCost != 1<<20 {
		t.Errorf("MaxCost = %d, want %d", limits.MaxCost, 1<<20)
	}
}

func TestNewClient_NativeCost(t *testing.T) {
	size, costModel = 64, "native"
	t.Cleanup(func() { size, costModel = 256, "rgba" })

	client, err := newClient(zap.NewNop(), nil)
	if err != nil {
		t.Fatalf("newClient() error = %v", err)
	}
	defer client.Close()

	img, err := client.Image(context.Background(), "https://example.com")
	if err != nil {
		t.Fatalf("Image() error = %v", err)
	}
	b := img.Bounds()
	if got, want := client.Info().TotalCost, int64(b.Dx()*b.Dy()); got != want {
		t.Errorf("TotalCost = %d, want %d (one byte per paletted pixel)", got, want)
	}
}

func TestNewClient_BadFlags(t *testing.T) {
	tests := []struct {
		name  string
		cost  string
		level string
		model string
	}{
		{"bad cost", "plenty", "medium", "rgba"},
		{"bad level", "1MiB", "extreme", "rgba"},
		{"bad cost model", "1MiB", "medium", "exact"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			maxCost, recoveryLevel, costModel = tt.cost, tt.level, tt.model
			t.Cleanup(func() { maxCost, recoveryLevel, costModel = "50 MiB", "medium", "rgba" })

			if _, err := newClient(zap.NewNop(), nil); err == nil {
				t.Error("newClient() error = nil, want error")
			}
		})
	}
}
