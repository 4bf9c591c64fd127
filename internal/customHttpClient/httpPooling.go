package customHttpClient

import (
	"net/http"
	"sync"
	"time"

	"github.com/akolanti/ragstream/internal/config"
)

var (
	transportOnce   sync.Once
	customTransport *http.Transport
)

func sharedTransport() *http.Transport {
	transportOnce.Do(func() {
		base := http.DefaultTransport.(*http.Transport).Clone()
		base.MaxIdleConns = config.MaxIdleConns
		base.MaxIdleConnsPerHost = config.MaxIdleConnsPerHost
		base.IdleConnTimeout = config.IdleConnTimeout
		customTransport = base
	})
	return customTransport
}

// NewClient returns a client on the pooled transport so embedding and generation providers reuse connections.
// A zero timeout leaves the client unbounded, which streaming calls need; they rely on ctx instead.
func NewClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: sharedTransport(),
		Timeout:   timeout,
	}
}

// CloseIdle drops pooled connections, called on shutdown.
func CloseIdle() {
	sharedTransport().CloseIdleConnections()
}
