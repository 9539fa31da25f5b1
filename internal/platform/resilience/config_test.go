package resilience

import (
	"testing"
	"time"
)

func TestCircuitBreakerConfig_WithDefaults(t *testing.T) {
	t.Parallel()

	cfg := CircuitBreakerConfig{Enabled: true}.WithDefaults()
	if cfg.FailureThreshold != 5 || cfg.OpenTimeout != 15*time.Second || cfg.HalfOpenMaxReq != 2 {
		t.Fatalf("defaults = %+v", cfg)
	}

	tuned := CircuitBreakerConfig{FailureThreshold: 10, OpenTimeout: time.Minute, HalfOpenMaxReq: 4}.WithDefaults()
	if tuned.FailureThreshold != 10 || tuned.OpenTimeout != time.Minute || tuned.HalfOpenMaxReq != 4 {
		t.Fatalf("explicit values overridden: %+v", tuned)
	}
}

func TestCircuitBreakerConfig_BuildRespectsThreshold(t *testing.T) {
	t.Parallel()

	b := CircuitBreakerConfig{FailureThreshold: 2, OpenTimeout: time.Minute, HalfOpenMaxReq: 1}.Build()
	b.RecordFailure()
	b.RecordFailure()
	if err := b.Allow(); err != ErrCircuitOpen {
		t.Fatalf("allow after two failures = %v, want ErrCircuitOpen", err)
	}
}
