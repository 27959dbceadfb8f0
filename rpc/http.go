package rpc

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"prizepool/core/events"
	"prizepool/core/state"
	"prizepool/core/types"
	"prizepool/crypto"
	"prizepool/observability"
)

const (
	jsonRPCVersion  = "2.0"
	maxRequestBytes = 1 << 20 // 1 MiB
	requestIDHeader = "X-Request-ID"

	// limiterIdleTTL is how long a source's limiter survives without traffic.
	limiterIdleTTL = 10 * time.Minute
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeUnauthorized   = -32001
	codeServerError    = -32000
	codeDuplicateTx    = -32010
	codeRateLimited    = -32020
	codeNotFound       = -32040
	codeProgramError   = -32050
)

// Ledger is the node surface the RPC server exposes.
type Ledger interface {
	Submit(ctx context.Context, tx *types.Transaction) (*types.Receipt, error)
	Account(addr crypto.Address) (*state.Account, bool, error)
	Height() uint64
	Root() common.Hash
}

// Options configures a Server.
type Options struct {
	// AuthToken, when non-empty, is required on prize_sendTransaction.
	AuthToken string
	// RateLimit bounds transactions per second per source. Zero disables
	// limiting.
	RateLimit float64
	Burst     int
	// TrustProxyHeaders honours X-Forwarded-For from any peer. Leave it off
	// unless every request arrives through a proxy that rewrites the header.
	TrustProxyHeaders bool
	// TrustedProxies lists peer IPs or CIDRs whose X-Forwarded-For is honoured.
	TrustedProxies []string
	// Admin is reported by prize_status. The zero address means registration
	// is open to any signer.
	Admin  crypto.Address
	Events *events.Log
	Logger *slog.Logger
}

type sourceLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type Server struct {
	ledger Ledger
	events *events.Log
	logger *slog.Logger
	admin  crypto.Address

	mu        sync.Mutex
	limiters  map[string]*sourceLimiter
	lastSweep time.Time
	limit     rate.Limit
	burst     int
	authToken string

	trustProxyHeaders bool
	trustedProxies    []*net.IPNet
}

func NewServer(ledger Ledger, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	limit := rate.Inf
	if opts.RateLimit > 0 {
		limit = rate.Limit(opts.RateLimit)
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 1
	}
	s := &Server{
		ledger:            ledger,
		events:            opts.Events,
		logger:            logger,
		admin:             opts.Admin,
		limiters:          make(map[string]*sourceLimiter),
		limit:             limit,
		burst:             burst,
		authToken:         strings.TrimSpace(opts.AuthToken),
		trustProxyHeaders: opts.TrustProxyHeaders,
	}
	for _, entry := range opts.TrustedProxies {
		network, err := ParseProxy(entry)
		if err != nil {
			logger.Warn("ignoring trusted proxy", slog.String("proxy", entry), slog.Any("error", err))
			continue
		}
		s.trustedProxies = append(s.trustedProxies, network)
	}
	return s
}

// ParseProxy accepts a bare IP or a CIDR block.
func ParseProxy(entry string) (*net.IPNet, error) {
	trimmed := strings.TrimSpace(entry)
	if strings.Contains(trimmed, "/") {
		_, network, err := net.ParseCIDR(trimmed)
		return network, err
	}
	ip := net.ParseIP(trimmed)
	if ip == nil {
		return nil, fmt.Errorf("invalid proxy address %q", entry)
	}
	bits := 8 * net.IPv6len
	if v4 := ip.To4(); v4 != nil {
		ip, bits = v4, 8*net.IPv4len
	}
	return &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)}, nil
}

// Handler returns the HTTP routes served by the node.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(withRequestID)
	r.Post("/", s.handle)
	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	return r
}

// Serve runs the server on addr until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, addr string, readHeaderTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting JSON-RPC server", slog.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

type requestIDKey struct{}

func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      interface{}       `json:"id"`
}

type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`

	status int
}

func (e *RPCError) Error() string {
	if e.Data != nil {
		return fmt.Sprintf("rpc error %d: %s (%v)", e.Code, e.Message, e.Data)
	}
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

func newError(status, code int, message string, data interface{}) *RPCError {
	return &RPCError{Code: code, Message: message, Data: data, status: status}
}

func writeError(w http.ResponseWriter, id interface{}, rpcErr *RPCError) {
	status := rpcErr.status
	if status <= 0 {
		status = http.StatusBadRequest
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: rpcErr}
	_ = json.NewEncoder(w).Encode(resp)
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result}
	_ = json.NewEncoder(w).Encode(resp)
}

type handlerFunc func(r *http.Request, req *RPCRequest) (interface{}, *RPCError)

func (s *Server) routes() map[string]handlerFunc {
	return map[string]handlerFunc{
		"prize_sendTransaction": s.handleSendTransaction,
		"prize_getGame":         s.handleGetGame,
		"prize_getBalance":      s.handleGetBalance,
		"prize_poolAuthority":   s.handlePoolAuthority,
		"prize_status":          s.handleStatus,
		"prize_events":          s.handleEvents,
	}
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	reader := http.MaxBytesReader(w, r.Body, maxRequestBytes)
	defer func() {
		_ = reader.Close()
	}()

	w.Header().Set("Content-Type", "application/json")

	body, err := io.ReadAll(reader)
	if err != nil {
		status := http.StatusBadRequest
		message := "failed to read request body"
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			status = http.StatusRequestEntityTooLarge
			message = fmt.Sprintf("request body exceeds %d bytes", maxRequestBytes)
		}
		writeError(w, nil, newError(status, codeInvalidRequest, message, err.Error()))
		return
	}
	if len(bytes.TrimSpace(body)) == 0 {
		writeError(w, nil, newError(http.StatusBadRequest, codeInvalidRequest, "request body required", nil))
		return
	}

	req := &RPCRequest{}
	if err := json.Unmarshal(body, req); err != nil {
		writeError(w, nil, newError(http.StatusBadRequest, codeParseError, "invalid JSON payload", err.Error()))
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeError(w, req.ID, newError(http.StatusBadRequest, codeInvalidRequest, "unsupported jsonrpc version", req.JSONRPC))
		return
	}
	if req.Method == "" {
		writeError(w, req.ID, newError(http.StatusBadRequest, codeInvalidRequest, "method required", nil))
		return
	}

	start := time.Now()
	handler, ok := s.routes()[req.Method]
	var (
		result interface{}
		rpcErr *RPCError
	)
	if !ok {
		rpcErr = newError(http.StatusNotFound, codeMethodNotFound, "method not found", req.Method)
	} else {
		result, rpcErr = handler(r, req)
	}

	code := 0
	if rpcErr != nil {
		code = rpcErr.Code
	}
	observability.ModuleMetrics().Observe(req.Method, code, time.Since(start))
	s.logger.Debug("rpc request",
		slog.String("requestId", requestID(r.Context())),
		slog.String("method", req.Method),
		slog.Int("code", code),
		slog.Duration("duration", time.Since(start)))

	if rpcErr != nil {
		writeError(w, req.ID, rpcErr)
		return
	}
	writeResult(w, req.ID, result)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status": "ok",
		"height": s.ledger.Height(),
	})
}

func (s *Server) requireAuth(r *http.Request) *RPCError {
	if s.authToken == "" {
		return nil
	}
	header := r.Header.Get("Authorization")
	if header == "" {
		return newError(http.StatusUnauthorized, codeUnauthorized, "missing Authorization header", nil)
	}
	if !strings.HasPrefix(header, "Bearer ") {
		return newError(http.StatusUnauthorized, codeUnauthorized, "Authorization header must use Bearer scheme", nil)
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		return newError(http.StatusUnauthorized, codeUnauthorized, "missing bearer token", nil)
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(s.authToken)) != 1 {
		return newError(http.StatusUnauthorized, codeUnauthorized, "invalid RPC credentials", nil)
	}
	return nil
}

// allowSource charges one transaction to source. Limiters idle for
// limiterIdleTTL that have refilled are swept so the map stays bounded by
// recently active sources.
func (s *Server) allowSource(source string, now time.Time) bool {
	if s.limit == rate.Inf {
		return true
	}
	if source == "" {
		source = "unknown"
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if now.Sub(s.lastSweep) >= limiterIdleTTL {
		for key, entry := range s.limiters {
			if now.Sub(entry.lastSeen) >= limiterIdleTTL && entry.limiter.TokensAt(now) >= float64(s.burst) {
				delete(s.limiters, key)
			}
		}
		s.lastSweep = now
	}

	entry, ok := s.limiters[source]
	if !ok {
		entry = &sourceLimiter{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.limiters[source] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}

// clientSource keys rate limiting on the peer address. X-Forwarded-For is
// only consulted when proxy headers are trusted globally or the peer is a
// configured proxy.
func (s *Server) clientSource(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if !s.trustProxyHeaders && !s.isTrustedProxy(host) {
		return host
	}
	forwarded := r.Header.Get("X-Forwarded-For")
	if forwarded == "" {
		return host
	}
	candidate := strings.TrimSpace(strings.Split(forwarded, ",")[0])
	if ip := net.ParseIP(candidate); ip != nil {
		return ip.String()
	}
	return host
}

func (s *Server) isTrustedProxy(host string) bool {
	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}
	for _, network := range s.trustedProxies {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}
