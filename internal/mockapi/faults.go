package mockapi

import (
	"net/http"
	"strconv"
	"sync"

	"admin-console/internal/envelope"
	"admin-console/pkg/apierror"
)

// Fault is a canned failure answered instead of the next request.
type Fault int

const (
	// FaultUnauthorized rejects the request as if the session had expired.
	FaultUnauthorized Fault = iota + 1
	// FaultBadGateway answers 502 with an HTML body, the way a proxy in
	// front of a dead backend would.
	FaultBadGateway
	// FaultInternal answers the internal-error envelope.
	FaultInternal
)

type hold struct {
	target string
	gate   chan struct{}
}

// faultInjector sits in front of the whole router so tests can script
// failures, stall requests and inspect traffic.
type faultInjector struct {
	mu                sync.Mutex
	pending           []Fault
	holds             []*hold
	seen              []string
	unauthorizedCode  int
	unauthorizedAs401 bool
}

func (f *faultInjector) failNext(fault Fault) {
	f.mu.Lock()
	f.pending = append(f.pending, fault)
	f.mu.Unlock()
}

func (f *faultInjector) holdNext(target string) func() {
	h := &hold{target: target, gate: make(chan struct{})}

	f.mu.Lock()
	f.holds = append(f.holds, h)
	f.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { close(h.gate) })
	}
}

func (f *faultInjector) requests() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.seen...)
}

// take records the request and claims the first pending fault and the first
// hold matching its path or full request URI.
func (f *faultInjector) take(r *http.Request) (Fault, *hold) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.seen = append(f.seen, r.Method+" "+r.URL.RequestURI())

	var fault Fault
	if len(f.pending) > 0 {
		fault = f.pending[0]
		f.pending = f.pending[1:]
	}

	for i, h := range f.holds {
		if h.target == r.URL.Path || h.target == r.URL.RequestURI() {
			f.holds = append(f.holds[:i], f.holds[i+1:]...)
			return fault, h
		}
	}
	return fault, nil
}

func (f *faultInjector) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" || r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		fault, h := f.take(r)
		if h != nil {
			select {
			case <-h.gate:
			case <-r.Context().Done():
				return
			}
		}

		switch fault {
		case FaultUnauthorized:
			status := http.StatusOK
			if f.unauthorizedAs401 {
				status = http.StatusUnauthorized
			}
			responsesTotal.WithLabelValues(strconv.Itoa(f.unauthorizedCode)).Inc()
			envelope.Write(w, status, f.unauthorizedCode, "session expired", nil)
		case FaultBadGateway:
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte("<html><body><h1>502 Bad Gateway</h1></body></html>"))
		case FaultInternal:
			responsesTotal.WithLabelValues(strconv.Itoa(apierror.CodeInternal)).Inc()
			envelope.Write(w, http.StatusOK, apierror.CodeInternal, "internal server error", nil)
		default:
			next.ServeHTTP(w, r)
		}
	})
}
