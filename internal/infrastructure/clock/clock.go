// Package clock provee la fuente de tiempo de performed_at compartida por los escritores del libro.
// Los instantes tienen resolución de microsegundos (la de timestamptz) y son estrictamente crecientes.
package clock

import (
	"context"
	"sync"
	"time"
)

// Local reloj monotónico de proceso. Sirve cuando un único proceso escribe en el libro.
type Local struct {
	mu   sync.Mutex
	last time.Time
	now  func() time.Time
}

// NewLocal crea un reloj sobre time.Now.
func NewLocal() *Local {
	return &Local{now: time.Now}
}

// NewLocalWith crea un reloj sobre una fuente dada; útil en tests.
func NewLocalWith(now func() time.Time) *Local {
	return &Local{now: now}
}

// Now devuelve un instante UTC estrictamente mayor que el anterior, aunque el reloj del sistema retroceda.
func (c *Local) Now(_ context.Context) (time.Time, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now().UTC().Truncate(time.Microsecond)
	if !t.After(c.last) {
		t = c.last.Add(time.Microsecond)
	}
	c.last = t
	return t, nil
}
