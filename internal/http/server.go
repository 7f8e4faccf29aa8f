package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"brownies/internal/cache"
	"brownies/internal/core"
	applog "brownies/internal/log"
	"brownies/internal/sheets"
	appweb "brownies/web"
)

// Server serves the sales UI and the JSON report API over the backend ports.
type Server struct {
	http.Server
	templates *template.Template

	orders    sheets.OrderStore
	shops     sheets.ShopRegistry
	varieties sheets.VarietyRegistry
	names     sheets.NameReader

	reportOpts core.ReportOptions

	rateLimiter *rateLimiter

	// Derived data caches, invalidated on writes.
	reportCache  *cache.LRUCache[core.MonthlyReport]
	ordersCache  *cache.LRUCache[[]core.Order]
	cacheManager *cache.Manager

	shutdownOnce sync.Once
}

// Simple in-memory rate limiter
type rateLimiter struct {
	mu           sync.Mutex
	clients      map[string]*clientInfo
	stopCleanup  chan struct{}
	shutdownOnce sync.Once
}

type clientInfo struct {
	lastRequest time.Time
	requests    int
}

func newRateLimiter() *rateLimiter {
	rl := &rateLimiter{
		clients:     make(map[string]*clientInfo),
		stopCleanup: make(chan struct{}),
	}
	go rl.startCleanup()
	return rl
}

// startCleanup runs periodic cleanup to remove stale client entries
func (rl *rateLimiter) startCleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanupStaleEntries()
		case <-rl.stopCleanup:
			return
		}
	}
}

// cleanupStaleEntries removes client entries older than 10 minutes
func (rl *rateLimiter) cleanupStaleEntries() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-10 * time.Minute)
	for ip, client := range rl.clients {
		if client.lastRequest.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}

// stop gracefully shuts down the rate limiter cleanup goroutine
func (rl *rateLimiter) stop() {
	rl.shutdownOnce.Do(func() {
		if rl.stopCleanup != nil {
			close(rl.stopCleanup)
		}
	})
}

func (rl *rateLimiter) allow(clientIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	client, exists := rl.clients[clientIP]

	if !exists {
		rl.clients[clientIP] = &clientInfo{
			lastRequest: now,
			requests:    1,
		}
		return true
	}

	// Reset counter if more than 1 minute has passed
	if now.Sub(client.lastRequest) > time.Minute {
		client.requests = 1
		client.lastRequest = now
		return true
	}

	// Allow up to 60 requests per minute
	client.requests++
	client.lastRequest = now

	return client.requests <= 60
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(addr string, orders sheets.OrderStore, shops sheets.ShopRegistry, varieties sheets.VarietyRegistry, names sheets.NameReader, reportOpts core.ReportOptions) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		orders:       orders,
		shops:        shops,
		varieties:    varieties,
		names:        names,
		reportOpts:   reportOpts,
		rateLimiter:  newRateLimiter(),
		reportCache:  cache.NewLRUCache[core.MonthlyReport](100, 5*time.Minute),
		ordersCache:  cache.NewLRUCache[[]core.Order](50, 5*time.Minute),
		cacheManager: cache.NewManager(),
	}

	s.cacheManager.Register(s.reportCache)
	s.cacheManager.Register(s.ordersCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	// Parse embedded templates at startup.
	t, err := template.New("").Funcs(template.FuncMap{
		"rupees": core.FormatRupees,
	}).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		slog.Warn("Failed parsing templates", "error", err)
	}
	s.templates = t

	// Static assets (served from embedded FS)
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("/static/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Tiny cache for static assets
			w.Header().Set("Cache-Control", "public, max-age=3600, immutable")
			static.ServeHTTP(w, r)
		}))
	} else {
		slog.Warn("Failed to mount embedded static FS", "error", err)
	}

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)

	mux.HandleFunc("GET /{$}", s.withSecurityHeaders(s.handleIndex))

	mux.HandleFunc("GET /orders", s.withSecurityHeaders(s.handleListOrders))
	mux.HandleFunc("GET /orders/new", s.withSecurityHeaders(s.handleNewOrderForm))
	mux.HandleFunc("POST /orders/add", s.withSecurityHeaders(s.handleCreateOrder))
	mux.HandleFunc("GET /orders/{id}/edit", s.withSecurityHeaders(s.handleEditOrderForm))
	mux.HandleFunc("POST /orders/{id}/edit", s.withSecurityHeaders(s.handleUpdateOrder))
	mux.HandleFunc("POST /orders/{id}/delete", s.withSecurityHeaders(s.handleDeleteOrder))
	mux.HandleFunc("POST /orders/{id}/mark-paid", s.withSecurityHeaders(s.handleMarkOrderPaid))

	mux.HandleFunc("GET /shops", s.withSecurityHeaders(s.handleListShops))
	mux.HandleFunc("POST /shops/add", s.withSecurityHeaders(s.handleCreateShop))
	mux.HandleFunc("GET /shops/{id}/edit", s.withSecurityHeaders(s.handleEditShopForm))
	mux.HandleFunc("POST /shops/{id}/edit", s.withSecurityHeaders(s.handleUpdateShop))
	mux.HandleFunc("POST /shops/{id}/delete", s.withSecurityHeaders(s.handleDeleteShop))
	mux.HandleFunc("GET /shops/{id}/bill", s.withSecurityHeaders(s.handleShopBill))
	mux.HandleFunc("POST /shops/{id}/mark-all-paid", s.withSecurityHeaders(s.handleMarkShopOrdersPaid))

	mux.HandleFunc("GET /varieties", s.withSecurityHeaders(s.handleListVarieties))
	mux.HandleFunc("POST /varieties/add", s.withSecurityHeaders(s.handleCreateVariety))
	mux.HandleFunc("GET /varieties/{id}/edit", s.withSecurityHeaders(s.handleEditVarietyForm))
	mux.HandleFunc("POST /varieties/{id}/edit", s.withSecurityHeaders(s.handleUpdateVariety))
	mux.HandleFunc("POST /varieties/{id}/delete", s.withSecurityHeaders(s.handleDeleteVariety))

	mux.HandleFunc("GET /reports", s.withSecurityHeaders(s.handleReportsPage))
	mux.HandleFunc("GET /costs", s.withSecurityHeaders(s.handleCostsPage))

	mux.HandleFunc("GET /api/reports/monthly/{year}/{month}", s.withSecurityHeaders(s.handleMonthlyReportJSON))
	mux.HandleFunc("GET /api/reports/overall", s.withSecurityHeaders(s.handleOverallReportJSON))

	return s
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	// Ensure shutdown logic runs only once
	s.shutdownOnce.Do(func() {
		if s.cacheManager != nil {
			s.cacheManager.Stop()
		}
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

// withSecurityHeaders adds security headers, rate limiting, and request logging to responses
func (s *Server) withSecurityHeaders(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Extract client IP (considering proxies)
		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		// Generate request ID for tracing
		requestID := generateRequestID()

		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			applog.FieldRequestID, requestID,
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldClientIP, clientIP,
			applog.FieldUserAgent, r.Header.Get("User-Agent"))

		// Apply rate limiting to POST requests (data mutations)
		if r.Method == http.MethodPost && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded",
				applog.FieldClientIP, clientIP,
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self' https://unpkg.com 'unsafe-eval'; style-src 'self' 'unsafe-inline'; img-src 'self' data:; connect-src 'self'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		// Create a custom response writer to capture status code
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		// Log request completion
		duration := time.Since(start)
		slog.InfoContext(ctx, "Request completed",
			applog.FieldRequestID, requestID,
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldStatusCode, rw.statusCode,
			applog.FieldDuration, duration.Milliseconds(),
			applog.FieldClientIP, clientIP)
	}
}

type requestIDKey struct{}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// generateRequestID creates a unique request ID for tracing
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to timestamp if random fails
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func reportKey(m core.Month) string {
	return strconv.Itoa(m.Year) + "-" + strconv.Itoa(m.Month)
}

func ordersKey(shopID int64) string {
	return "shop-" + strconv.FormatInt(shopID, 10)
}

// getMonthlyReport builds the report for the month, serving from cache when
// the underlying orders haven't changed.
func (s *Server) getMonthlyReport(ctx context.Context, m core.Month) (core.MonthlyReport, error) {
	key := reportKey(m)
	if rep, found := s.reportCache.Get(key); found {
		slog.DebugContext(ctx, "Report cache hit", applog.FieldYear, m.Year, applog.FieldMonth, m.Month)
		return rep, nil
	}

	// Bounded so a slow backend can't hang the page.
	cctx, cancel := context.WithTimeout(ctx, 7*time.Second)
	defer cancel()

	orders, err := s.orders.ListOrdersByMonth(cctx, m)
	if err != nil {
		return core.MonthlyReport{}, fmt.Errorf("list orders for %d-%02d: %w", m.Year, m.Month, err)
	}
	names, err := s.names.Names(cctx)
	if err != nil {
		return core.MonthlyReport{}, fmt.Errorf("load display names: %w", err)
	}
	rep, err := core.BuildMonthlyReport(m, orders, names, s.reportOpts)
	if err != nil {
		return core.MonthlyReport{}, err
	}

	s.reportCache.Set(key, rep)
	return rep, nil
}

// getOrders lists orders through the cache. shopID 0 means all shops.
func (s *Server) getOrders(ctx context.Context, shopID int64) ([]core.Order, error) {
	key := ordersKey(shopID)
	if items, found := s.ordersCache.Get(key); found {
		// Return a copy to prevent external mutation
		result := make([]core.Order, len(items))
		copy(result, items)
		return result, nil
	}

	cctx, cancel := context.WithTimeout(ctx, 7*time.Second)
	defer cancel()
	items, err := s.orders.ListOrders(cctx, shopID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	s.ordersCache.Set(key, items)
	return items, nil
}

// invalidateOrder drops the cache entries an order mutation makes stale.
func (s *Server) invalidateOrder(shopID int64, dates ...core.Date) {
	s.ordersCache.Delete(ordersKey(0))
	s.ordersCache.Delete(ordersKey(shopID))
	for _, d := range dates {
		s.reportCache.Delete(reportKey(core.Month{Year: d.Year(), Month: int(d.Time.Month())}))
	}
}

// invalidateAll drops everything. Used for bulk mutations that can touch
// many months at once.
func (s *Server) invalidateAll() {
	s.reportCache.Purge()
	s.ordersCache.Purge()
}
