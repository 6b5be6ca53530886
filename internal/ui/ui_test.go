package ui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/idwby/cpumon/internal/cache"
	"github.com/idwby/cpumon/internal/model"
)

func TestGaugeBar(t *testing.T) {
	tests := []struct {
		pct    float64
		filled int
		label  string
	}{
		{0, 0, "  0.0%"},
		{50, 5, " 50.0%"},
		{150, 10, "100.0%"},
		{-3, 0, "  0.0%"},
	}
	for _, tt := range tests {
		got := gaugeBar(tt.pct, 10)
		if n := strings.Count(got, gaugeFill); n != tt.filled {
			t.Errorf("gaugeBar(%v): %d filled, want %d", tt.pct, n, tt.filled)
		}
		if !strings.HasSuffix(got, tt.label) {
			t.Errorf("gaugeBar(%v) = %q, want suffix %q", tt.pct, got, tt.label)
		}
	}
}

func TestTickPicksUpCache(t *testing.T) {
	c := cache.New(time.Now())
	m := New(c, "idwby/linux/cpu")
	if !strings.Contains(m.View(), "waiting for first message") {
		t.Error("expected waiting status before first message")
	}

	c.Replace(model.Snapshot{
		CPUUsage:     33,
		TemperatureC: 91.2,
		MemoryUsage:  44,
		CoreCount:    2,
		PerCore:      []float64{10, 56},
		FrequencyMHz: 2800,
		Timestamp:    float64(time.Now().Unix()),
		System:       model.SystemLinux,
	})
	if _, cmd := m.Update(tickMsg{}); cmd == nil {
		t.Error("tick did not reschedule")
	}
	view := m.View()
	for _, want := range []string{"91.2°C", "2 cores", "2800 MHz", "idwby/linux/cpu"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestQuitKey(t *testing.T) {
	m := New(cache.New(time.Now()), "t")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("q produced no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q did not quit")
	}
}

func TestGaugesFollowWindowWidth(t *testing.T) {
	c := cache.New(time.Now())
	c.Replace(model.Snapshot{CPUUsage: 100, TemperatureC: 40, MemoryUsage: 0})
	m := New(c, "t")
	m.Update(tickMsg{})

	tests := []struct {
		width  int
		filled int
	}{
		{60, 10},
		{150, 26},
		{300, 40},
	}
	for _, tt := range tests {
		m.Update(tea.WindowSizeMsg{Width: tt.width, Height: 40})
		if n := strings.Count(m.View(), gaugeFill); n != tt.filled {
			t.Errorf("width %d: %d filled cells, want %d", tt.width, n, tt.filled)
		}
	}
}
