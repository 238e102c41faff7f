package sampling

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedProbe replays fixed readings and can fail every n-th CPU read.
type scriptedProbe struct {
	mu        sync.Mutex
	cpu       []float64
	memMB     float64
	failEvery int
	calls     int
	next      int
}

func (p *scriptedProbe) CPUPercent() (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.failEvery > 0 && p.calls%p.failEvery == 0 {
		return 0, errors.New("transient read failure")
	}
	v := p.cpu[p.next%len(p.cpu)]
	p.next++
	return v, nil
}

func (p *scriptedProbe) MemoryUsedMB() (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.memMB += 10
	return p.memMB, nil
}

func testConfig(interval time.Duration) Config {
	return Config{Interval: interval, Power: PowerModel{BaseW: 2.7, MaxW: 6.7}}
}

func TestPowerModel_Estimate(t *testing.T) {
	m := PowerModel{BaseW: 2.7, MaxW: 6.7}

	assert.Equal(t, 2.7, m.Estimate(0))
	assert.InDelta(t, 6.7, m.Estimate(100), 1e-12)
	assert.InDelta(t, 4.7, m.Estimate(50), 1e-12)
	assert.Equal(t, 2.7, m.Estimate(-5))
	assert.InDelta(t, 6.7, m.Estimate(140), 1e-12)
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   Stats
	}{
		{"empty", nil, Stats{}},
		{"single", []float64{42}, Stats{Count: 1, Avg: 42, Peak: 42, Min: 42}},
		{"sample stddev", []float64{2, 4, 4, 4, 5, 5, 7, 9}, Stats{Count: 8, Avg: 5, Peak: 9, Min: 2, StdDev: 2.138089935299395}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Summarize(tt.values)
			assert.Equal(t, tt.want.Count, got.Count)
			assert.InDelta(t, tt.want.Avg, got.Avg, 1e-9)
			assert.InDelta(t, tt.want.Peak, got.Peak, 1e-9)
			assert.InDelta(t, tt.want.Min, got.Min, 1e-9)
			assert.InDelta(t, tt.want.StdDev, got.StdDev, 1e-9)
		})
	}
}

func TestSampler_EmptyAccessors(t *testing.T) {
	s := New(testConfig(time.Second), &scriptedProbe{cpu: []float64{10}})

	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 0.0, s.AvgCPU())
	assert.Equal(t, 0.0, s.PeakCPU())
	assert.Equal(t, 0.0, s.AvgMemMB())
	assert.Equal(t, 0.0, s.PeakMemMB())
	assert.Equal(t, 0.0, s.AvgPower())
	assert.Equal(t, 0.0, s.PeakPower())
	assert.Equal(t, 0.0, s.MinPower())
	assert.Equal(t, 0.0, s.StdDevMemory())
	assert.Equal(t, 0.0, s.StdDevPower())
	assert.Equal(t, 2.7, s.EstimatePower(0))
	assert.InDelta(t, 6.7, s.EstimatePower(100), 1e-12)
}

func TestSampler_Run(t *testing.T) {
	probe := &scriptedProbe{cpu: []float64{0, 20, 50, 100, 30}}
	s := New(testConfig(time.Millisecond), probe)

	require.NoError(t, s.Start(0))
	require.Eventually(t, func() bool { return s.Len() >= 6 }, 5*time.Second, time.Millisecond)
	s.Stop()

	n := s.Len()
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, n, s.Len(), "no samples after Stop returns")

	cpu := s.Series(CPU)
	mem := s.Series(Memory)
	power := s.Series(Power)
	require.Len(t, mem, n)
	require.Len(t, power, n)
	for i := range cpu {
		assert.InDelta(t, s.EstimatePower(cpu[i]), power[i], 1e-12)
	}

	assert.GreaterOrEqual(t, s.PeakCPU(), s.AvgCPU())
	assert.GreaterOrEqual(t, s.AvgCPU(), 0.0)
	assert.GreaterOrEqual(t, s.PeakPower(), s.MinPower())
	assert.Greater(t, s.StdDevMemory(), 0.0)

	// accessors are pure reads
	assert.Equal(t, s.AvgCPU(), s.AvgCPU())
	assert.Equal(t, s.StdDevPower(), s.StdDevPower())
	assert.Equal(t, s.Stats(Memory), s.Stats(Memory))
}

func TestSampler_WarmupReadIsDiscarded(t *testing.T) {
	probe := &scriptedProbe{cpu: []float64{99, 10}}
	s := New(testConfig(time.Hour), probe)

	require.NoError(t, s.Start(0))
	require.Eventually(t, func() bool { return s.Len() == 1 }, 5*time.Second, time.Millisecond)
	s.Stop()

	assert.Equal(t, []float64{10}, s.Series(CPU))
}

func TestSampler_StopBeforeFirstTick(t *testing.T) {
	s := New(testConfig(time.Hour), &scriptedProbe{cpu: []float64{10}})
	require.NoError(t, s.Start(0))

	stopped := make(chan struct{})
	go func() {
		s.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}

	assert.LessOrEqual(t, s.Len(), 1)
	assert.Equal(t, 0.0, s.StdDevMemory())
	assert.Equal(t, 0.0, s.StdDevPower())
}

func TestSampler_SkipsFailedTicks(t *testing.T) {
	probe := &scriptedProbe{cpu: []float64{40}, failEvery: 2}
	s := New(testConfig(time.Millisecond), probe)

	require.NoError(t, s.Start(0))
	require.Eventually(t, func() bool { return s.Len() >= 3 }, 5*time.Second, time.Millisecond)
	s.Stop()

	n := s.Len()
	assert.Len(t, s.Series(Memory), n)
	assert.Len(t, s.Series(Power), n)
	assert.InDelta(t, 40.0, s.AvgCPU(), 1e-12)
}

func TestSampler_Lifecycle(t *testing.T) {
	s := New(testConfig(time.Millisecond), &scriptedProbe{cpu: []float64{5}})

	s.Stop() // before Start
	require.NoError(t, s.Start(0))
	assert.ErrorIs(t, s.Start(0), ErrRunning)

	s.Stop()
	s.Stop()
	assert.ErrorIs(t, s.Start(0), ErrStopped)
}

func TestSampler_Observer(t *testing.T) {
	var mu sync.Mutex
	var ticks []Tick

	s := New(testConfig(time.Millisecond), &scriptedProbe{cpu: []float64{25}},
		WithObserver(func(tk Tick) {
			mu.Lock()
			ticks = append(ticks, tk)
			mu.Unlock()
		}),
		WithLogger(nil),
	)

	require.NoError(t, s.Start(0))
	require.Eventually(t, func() bool { return s.Len() >= 3 }, 5*time.Second, time.Millisecond)
	s.Stop()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, ticks, s.Len())
	for i, tk := range ticks {
		assert.Equal(t, i, tk.Index)
		assert.Equal(t, 25.0, tk.CPUPercent)
		assert.InDelta(t, 3.7, tk.PowerW, 1e-12)
	}
}

func TestSampler_ConcurrentReads(t *testing.T) {
	s := New(testConfig(time.Millisecond), &scriptedProbe{cpu: []float64{10, 90}})
	require.NoError(t, s.Start(0))

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				st := s.Stats(CPU)
				if st.Count > 0 {
					assert.GreaterOrEqual(t, st.Peak, st.Avg)
				}
			}
		}()
	}
	wg.Wait()
	s.Stop()
}
