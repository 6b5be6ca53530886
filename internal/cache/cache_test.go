package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/idwby/cpumon/internal/model"
)

func TestNewHoldsDefault(t *testing.T) {
	start := time.Unix(1700000000, 0)
	c := New(start)
	got := c.Latest()
	if got.TemperatureC != 35.0 || got.CPUUsage != 10.0 || got.MemoryUsage != 50.0 {
		t.Errorf("default snapshot: %+v", got)
	}
	if got.Timestamp != 1700000000 {
		t.Errorf("default timestamp: %v", got.Timestamp)
	}
	if _, ok := c.Received(); ok {
		t.Error("Received before any Replace")
	}
}

func TestReplace(t *testing.T) {
	c := New(time.Now())
	changed := c.Changed()
	c.Replace(model.Snapshot{CPUUsage: 42, TemperatureC: 47.6, MemoryUsage: 60, Timestamp: 1700000000})

	select {
	case <-changed:
	default:
		t.Error("Changed channel not closed by Replace")
	}
	got := c.Latest()
	if got.CPUUsage != 42 || got.TemperatureC != 47.6 || got.MemoryUsage != 60 {
		t.Errorf("got %+v", got)
	}
	if _, ok := c.Received(); !ok {
		t.Error("Received false after Replace")
	}
}

func TestLatestIsIsolated(t *testing.T) {
	c := New(time.Now())
	cores := []float64{1, 2}
	c.Replace(model.Snapshot{PerCore: cores})
	cores[0] = 99

	got := c.Latest()
	got.PerCore[1] = 77
	again := c.Latest()
	if again.PerCore[0] != 1 || again.PerCore[1] != 2 {
		t.Errorf("cached value mutated through aliases: %v", again.PerCore)
	}
}

func uniform(v float64) model.Snapshot {
	return model.Snapshot{
		CPUUsage:     v,
		TemperatureC: v,
		MemoryUsage:  v,
		DiskUsage:    v,
		FrequencyMHz: v,
		CoreCount:    int(v),
		PerCore:      []float64{v, v, v, v},
		Timestamp:    v,
	}
}

func consistent(s model.Snapshot) bool {
	v := s.CPUUsage
	if s.TemperatureC != v || s.MemoryUsage != v || s.DiskUsage != v ||
		s.FrequencyMHz != v || s.CoreCount != int(v) || s.Timestamp != v {
		return false
	}
	for _, c := range s.PerCore {
		if c != v {
			return false
		}
	}
	return true
}

func TestConcurrentReadersNeverSeeTornValue(t *testing.T) {
	c := New(time.Now())
	c.Replace(uniform(1))

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			c.Replace(uniform(float64(1 + i%2)))
		}
	}()

	var readers sync.WaitGroup
	errs := make(chan model.Snapshot, 8)
	for r := 0; r < 8; r++ {
		readers.Add(1)
		go func() {
			defer readers.Done()
			for i := 0; i < 5000; i++ {
				if s := c.Latest(); !consistent(s) {
					errs <- s
					return
				}
			}
		}()
	}
	readers.Wait()
	close(stop)
	wg.Wait()
	close(errs)
	for s := range errs {
		t.Errorf("torn read: %+v", s)
	}
}
