// Copyright (c) 2016-2019 Uber Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package backoff provides a small retry-timeout wrapper over
// cenkalti/backoff's exponential schedule.
package backoff

import (
	"fmt"
	"time"

	"github.com/cenkalti/backoff"
)

// Config configures an exponential backoff schedule.
type Config struct {
	Min          time.Duration
	Max          time.Duration
	Factor       float64
	NoJitter     bool
	RetryTimeout time.Duration
}

func (c Config) applyDefaults() Config {
	if c.Min == 0 {
		c.Min = 250 * time.Millisecond
	}
	if c.Max == 0 {
		c.Max = 30 * time.Second
	}
	if c.Factor == 0 {
		c.Factor = 2
	}
	return c
}

// Backoff builds Attempts iterators sharing a common schedule.
type Backoff struct {
	config Config
}

// New returns a Backoff configured by config.
func New(config Config) *Backoff {
	return &Backoff{config: config.applyDefaults()}
}

// Attempts returns a fresh retry iterator bound to this schedule.
func (b *Backoff) Attempts() *Attempts {
	randFactor := backoff.DefaultRandomizationFactor
	if b.config.NoJitter {
		randFactor = 0
	}
	eb := &backoff.ExponentialBackOff{
		InitialInterval:     b.config.Min,
		RandomizationFactor: randFactor,
		Multiplier:          b.config.Factor,
		MaxInterval:         b.config.Max,
		MaxElapsedTime:      0,
		Clock:               backoff.SystemClock,
	}
	eb.Reset()
	return &Attempts{
		eb:      eb,
		timeout: b.config.RetryTimeout,
		first:   true,
	}
}

// Attempts iterates a single retry sequence, bounded by the Backoff's
// RetryTimeout. The first attempt always runs immediately regardless of
// timeout; every subsequent attempt sleeps for the next scheduled interval
// first, unless doing so would exceed the timeout.
type Attempts struct {
	eb      *backoff.ExponentialBackOff
	timeout time.Duration
	elapsed time.Duration
	first   bool
	err     error
}

// WaitForNext blocks until the next attempt should run and reports whether
// one should be made at all. Once it returns false, Err explains why.
func (a *Attempts) WaitForNext() bool {
	if a.first {
		a.first = false
		return true
	}
	wait := a.eb.NextBackOff()
	if wait == backoff.Stop {
		a.err = fmt.Errorf("backoff: schedule exhausted")
		return false
	}
	if a.elapsed+wait > a.timeout {
		a.err = fmt.Errorf("backoff: retry timeout of %s exceeded", a.timeout)
		return false
	}
	time.Sleep(wait)
	a.elapsed += wait
	return true
}

// Err returns the reason WaitForNext most recently returned false, or nil
// if it hasn't yet.
func (a *Attempts) Err() error {
	return a.err
}
