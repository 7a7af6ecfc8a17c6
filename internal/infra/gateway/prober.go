package gateway

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"
)

// HTTPProber はリモートのヘルスエンドポイントを叩くオンライン判定。
// 操作のたびに叩くと重いので判定結果を短時間キャッシュする。
type HTTPProber struct {
	healthURL string
	http      *http.Client

	mu        sync.Mutex
	lastCheck time.Time
	lastOK    bool
	interval  time.Duration
}

func NewHTTPProber(baseURL string, timeout time.Duration, interval time.Duration) *HTTPProber {
	return &HTTPProber{
		healthURL: strings.TrimRight(baseURL, "/") + "/healthz",
		http:      &http.Client{Timeout: timeout},
		interval:  interval,
	}
}

func (p *HTTPProber) IsOnline(ctx context.Context) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if time.Since(p.lastCheck) < p.interval {
		return p.lastOK
	}

	p.lastCheck = time.Now()
	p.lastOK = p.probe(ctx)
	return p.lastOK
}

func (p *HTTPProber) probe(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.healthURL, nil)
	if err != nil {
		return false
	}

	res, err := p.http.Do(req)
	if err != nil {
		return false
	}
	defer res.Body.Close()

	return res.StatusCode == http.StatusOK
}
