package resilience

import "time"

// CircuitBreakerConfig is the tuning surface the odds platform client exposes
// through env config. Zero values mean "use the defaults"; Enabled is honored
// as-is so the breaker can be switched off outright.
type CircuitBreakerConfig struct {
	Enabled          bool
	FailureThreshold int
	OpenTimeout      time.Duration
	HalfOpenMaxReq   int
}

// WithDefaults fills unset fields: five consecutive failures open the circuit
// for fifteen seconds, then two half-open probes decide whether it recloses.
func (c CircuitBreakerConfig) WithDefaults() CircuitBreakerConfig {
	if c.FailureThreshold < 1 {
		c.FailureThreshold = 5
	}
	if c.OpenTimeout <= 0 {
		c.OpenTimeout = 15 * time.Second
	}
	if c.HalfOpenMaxReq < 1 {
		c.HalfOpenMaxReq = 2
	}
	return c
}

// Build constructs a breaker from the config, defaults applied.
func (c CircuitBreakerConfig) Build() *CircuitBreaker {
	c = c.WithDefaults()
	return NewCircuitBreaker(c.FailureThreshold, c.OpenTimeout, c.HalfOpenMaxReq)
}
