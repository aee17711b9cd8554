package syncpolicy

import (
	"testing"
	"time"
)

func TestCalculate(t *testing.T) {
	policy := DefaultPolicy()

	tests := []struct {
		name         string
		totalMB      int64
		wantTier     Tier
		wantBytes    int64
		wantInterval time.Duration
	}{
		{
			name:         "2GB host is low tier",
			totalMB:      2048,
			wantTier:     TierLow,
			wantBytes:    32 * 1024 * 1024, // max(16, 2048/64) = 32 MB
			wantInterval: 3000 * time.Millisecond,
		},
		{
			name:         "8GB host is medium tier",
			totalMB:      8192,
			wantTier:     TierMedium,
			wantBytes:    102 * 1024 * 1024, // max(32, 8192/80) = 102 MB
			wantInterval: 5000 * time.Millisecond,
		},
		{
			name:         "64GB host is high tier at the cap",
			totalMB:      65536,
			wantTier:     TierHigh,
			wantBytes:    256 * 1024 * 1024, // min(256, max(64, 65536/64)) = 256 MB
			wantInterval: 7000 * time.Millisecond,
		},
		{
			name:         "512MB host hits the low floor",
			totalMB:      512,
			wantTier:     TierLow,
			wantBytes:    16 * 1024 * 1024, // max(16, 512/64) = 16 MB
			wantInterval: 3000 * time.Millisecond,
		},
		{
			name:         "1GB host still at the low floor",
			totalMB:      1024,
			wantTier:     TierLow,
			wantBytes:    16 * 1024 * 1024, // 1024/64 = 16
			wantInterval: 3000 * time.Millisecond,
		},
		{
			name:         "4GB exactly is medium, not low",
			totalMB:      4096,
			wantTier:     TierMedium,
			wantBytes:    51 * 1024 * 1024, // max(32, 4096/80) = 51 MB
			wantInterval: 5000 * time.Millisecond,
		},
		{
			name:         "just under 4GB is low",
			totalMB:      4095,
			wantTier:     TierLow,
			wantBytes:    63 * 1024 * 1024, // 4095/64 = 63
			wantInterval: 3000 * time.Millisecond,
		},
		{
			name:         "just under 16GB is medium",
			totalMB:      16383,
			wantTier:     TierMedium,
			wantBytes:    204 * 1024 * 1024, // 16383/80 = 204
			wantInterval: 5000 * time.Millisecond,
		},
		{
			name:         "16GB exactly is high, not medium",
			totalMB:      16384,
			wantTier:     TierHigh,
			wantBytes:    256 * 1024 * 1024, // 16384/64 = 256
			wantInterval: 7000 * time.Millisecond,
		},
		{
			name:         "20GB high tier capped at 256MB",
			totalMB:      20480,
			wantTier:     TierHigh,
			wantBytes:    256 * 1024 * 1024, // min(256, 320)
			wantInterval: 7000 * time.Millisecond,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Calculate(tt.totalMB, policy)

			if got.Tier != tt.wantTier {
				t.Errorf("Tier = %v, want %v", got.Tier, tt.wantTier)
			}
			if got.IntervalBytes != tt.wantBytes {
				t.Errorf("IntervalBytes = %d, want %d", got.IntervalBytes, tt.wantBytes)
			}
			if got.Interval != tt.wantInterval {
				t.Errorf("Interval = %v, want %v", got.Interval, tt.wantInterval)
			}
			if got.TotalMemoryMB != tt.totalMB {
				t.Errorf("TotalMemoryMB = %d, want %d", got.TotalMemoryMB, tt.totalMB)
			}
		})
	}
}

func TestCalculateExactByteValues(t *testing.T) {
	policy := DefaultPolicy()

	// Spot-check the documented scenario values byte for byte.
	tests := []struct {
		totalMB int64
		want    int64
	}{
		{2048, 33554432},
		{8192, 106954752},
		{65536, 268435456},
		{512, 16777216},
	}

	for _, tt := range tests {
		got := Calculate(tt.totalMB, policy)
		if got.IntervalBytes != tt.want {
			t.Errorf("Calculate(%d).IntervalBytes = %d, want %d", tt.totalMB, got.IntervalBytes, tt.want)
		}
	}
}

func TestCalculateBoundsAlwaysHold(t *testing.T) {
	policy := DefaultPolicy()

	// Walk a wide range of totals; the byte interval must stay inside the
	// clamp and the time interval must be one of the three tier constants.
	totals := []int64{1, 16, 100, 511, 512, 1024, 2047, 4095, 4096, 6000,
		8192, 12288, 16383, 16384, 32768, 65536, 131072, 1 << 20, 1 << 30}

	for _, total := range totals {
		got := Calculate(total, policy)

		if got.IntervalBytes < policy.MinSyncIntervalBytes || got.IntervalBytes > policy.MaxSyncIntervalBytes {
			t.Errorf("Calculate(%d).IntervalBytes = %d outside [%d, %d]",
				total, got.IntervalBytes, policy.MinSyncIntervalBytes, policy.MaxSyncIntervalBytes)
		}

		switch got.Interval {
		case policy.LowTierInterval, policy.MediumTierInterval, policy.HighTierInterval:
		default:
			t.Errorf("Calculate(%d).Interval = %v, not one of the tier intervals", total, got.Interval)
		}
	}
}

func TestCalculateIsPure(t *testing.T) {
	policy := DefaultPolicy()

	first := Calculate(8192, policy)
	second := Calculate(8192, policy)
	if first != second {
		t.Errorf("Calculate not deterministic: %+v vs %+v", first, second)
	}
}

func TestCalculateCustomClamp(t *testing.T) {
	policy := DefaultPolicy()
	policy.MaxSyncIntervalBytes = 64 * 1024 * 1024

	got := Calculate(65536, policy)
	if got.IntervalBytes != 64*1024*1024 {
		t.Errorf("IntervalBytes = %d, want %d with tightened cap", got.IntervalBytes, 64*1024*1024)
	}

	policy = DefaultPolicy()
	policy.MinSyncIntervalBytes = 64 * 1024 * 1024

	got = Calculate(512, policy)
	if got.IntervalBytes != 64*1024*1024 {
		t.Errorf("IntervalBytes = %d, want %d with raised floor", got.IntervalBytes, 64*1024*1024)
	}
}

func TestSyncConfigLabel(t *testing.T) {
	tests := []struct {
		totalMB int64
		want    string
	}{
		{2048, "Low memory (2048 MB)"},
		{8192, "Medium memory (8192 MB)"},
		{65536, "High memory (65536 MB)"},
	}

	for _, tt := range tests {
		got := Calculate(tt.totalMB, DefaultPolicy()).Label()
		if got != tt.want {
			t.Errorf("Label() = %q, want %q", got, tt.want)
		}
	}
}

func TestTierString(t *testing.T) {
	tests := []struct {
		tier Tier
		want string
	}{
		{TierLow, "Low"},
		{TierMedium, "Medium"},
		{TierHigh, "High"},
		{Tier(42), "Unknown"},
	}

	for _, tt := range tests {
		if got := tt.tier.String(); got != tt.want {
			t.Errorf("Tier(%d).String() = %q, want %q", int(tt.tier), got, tt.want)
		}
	}
}

func TestDefaultPolicyValues(t *testing.T) {
	p := DefaultPolicy()

	if p.LowMemoryThresholdMB != 4096 {
		t.Errorf("LowMemoryThresholdMB = %d, want 4096", p.LowMemoryThresholdMB)
	}
	if p.HighMemoryThresholdMB != 16384 {
		t.Errorf("HighMemoryThresholdMB = %d, want 16384", p.HighMemoryThresholdMB)
	}
	if p.MinSyncIntervalBytes != 16*1024*1024 {
		t.Errorf("MinSyncIntervalBytes = %d, want 16 MiB", p.MinSyncIntervalBytes)
	}
	if p.MaxSyncIntervalBytes != 256*1024*1024 {
		t.Errorf("MaxSyncIntervalBytes = %d, want 256 MiB", p.MaxSyncIntervalBytes)
	}
	if p.FallbackTotalMemoryMB != 4096 {
		t.Errorf("FallbackTotalMemoryMB = %d, want 4096", p.FallbackTotalMemoryMB)
	}
	if p.LowTierInterval != 3*time.Second {
		t.Errorf("LowTierInterval = %v, want 3s", p.LowTierInterval)
	}
	if p.MediumTierInterval != 5*time.Second {
		t.Errorf("MediumTierInterval = %v, want 5s", p.MediumTierInterval)
	}
	if p.HighTierInterval != 7*time.Second {
		t.Errorf("HighTierInterval = %v, want 7s", p.HighTierInterval)
	}
}
