// Package gateway is the routing front door: /api/users, /api/orders and
// /api/inventory are proxied to their services. Targets come from Consul
// when it is reachable and from static config otherwise, refreshed on a
// fixed interval.
package gateway

import (
	"encoding/json"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"storefront/internal/discovery"
)

type Gateway struct {
	consul  *discovery.Consul // nil when running on static addresses only
	log     *zap.Logger
	static  map[string]string
	mu      sync.RWMutex
	proxies map[string]*httputil.ReverseProxy
	targets map[string]string
}

// New builds a gateway for the given services. static maps service name to
// fallback base URL; consul may be nil.
func New(consul *discovery.Consul, static map[string]string, log *zap.Logger) *Gateway {
	g := &Gateway{
		consul:  consul,
		log:     log,
		static:  static,
		proxies: make(map[string]*httputil.ReverseProxy),
		targets: make(map[string]string),
	}
	g.refresh()
	return g
}

// Watch re-resolves targets until stop is closed.
func (g *Gateway) Watch(stop <-chan struct{}, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			g.refresh()
		}
	}
}

func (g *Gateway) refresh() {
	for name, fallback := range g.static {
		target := fallback
		if g.consul != nil {
			if u, err := g.consul.ServiceURL(name); err == nil {
				target = u
			} else {
				g.log.Warn("consul lookup failed, using static address",
					zap.String("service", name), zap.Error(err))
			}
		}
		g.setTarget(name, target)
	}
}

func (g *Gateway) setTarget(name, target string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.targets[name] == target {
		return
	}
	u, err := url.Parse(target)
	if err != nil {
		g.log.Error("invalid target", zap.String("service", name), zap.String("url", target), zap.Error(err))
		return
	}
	proxy := httputil.NewSingleHostReverseProxy(u)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		g.log.Error("proxy error", zap.String("service", name), zap.Error(err))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"error":"service unavailable"}`))
	}
	g.proxies[name] = proxy
	g.targets[name] = target
	g.log.Info("route updated", zap.String("service", name), zap.String("target", target))
}

func (g *Gateway) proxyFor(name string) *httputil.ReverseProxy {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.proxies[name]
}

// handler proxies the request to the named service. strip is removed from
// the front of the path so each service sees its own route shapes.
func (g *Gateway) handler(name, strip string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		proxy := g.proxyFor(name)
		if proxy == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":"` + name + ` unavailable"}`))
			return
		}
		p := strings.TrimPrefix(r.URL.Path, strip)
		if p == "" {
			p = "/"
		}
		r.URL.Path = p
		proxy.ServeHTTP(w, r)
	}
}

func (g *Gateway) Register(r *chi.Mux) {
	r.HandleFunc("/api/users", g.handler("users", "/api"))
	r.HandleFunc("/api/users/*", g.handler("users", "/api"))
	r.HandleFunc("/api/authorize", g.handler("users", "/api"))
	r.HandleFunc("/api/orders", g.handler("orders", "/api"))
	r.HandleFunc("/api/orders/*", g.handler("orders", "/api"))
	r.HandleFunc("/api/inventory", g.handler("inventory", "/api/inventory"))
	r.HandleFunc("/api/inventory/*", g.handler("inventory", "/api/inventory"))
	r.Get("/services", g.listServices)
	r.Get("/status", g.status)
}

func (g *Gateway) listServices(w http.ResponseWriter, r *http.Request) {
	g.mu.RLock()
	targets := make(map[string]string, len(g.targets))
	for k, v := range g.targets {
		targets[k] = v
	}
	g.mu.RUnlock()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"services": targets})
}

// status probes each target's healthz and reports healthy or degraded.
func (g *Gateway) status(w http.ResponseWriter, r *http.Request) {
	g.mu.RLock()
	targets := make(map[string]string, len(g.targets))
	for k, v := range g.targets {
		targets[k] = v
	}
	g.mu.RUnlock()

	client := &http.Client{Timeout: 2 * time.Second}
	statuses := make(map[string]string, len(targets))
	overall := "healthy"
	for name, target := range targets {
		resp, err := client.Get(target + "/healthz")
		if err != nil || resp.StatusCode != http.StatusOK {
			statuses[name] = "unhealthy"
			overall = "degraded"
		} else {
			statuses[name] = "healthy"
		}
		if resp != nil {
			resp.Body.Close()
		}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"status": overall, "services": statuses})
}
