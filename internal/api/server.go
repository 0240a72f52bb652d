package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lightlink-network/plugin-lightlink/internal/agent"
	apperrors "github.com/lightlink-network/plugin-lightlink/internal/errors"
	"github.com/lightlink-network/plugin-lightlink/internal/observability/metrics"
	"github.com/lightlink-network/plugin-lightlink/pkg/logger"
)

const (
	actionsPrefix = "/api/v1/actions/"
	maxBodyBytes  = 1 << 20
	requestIDKey  = "X-Request-ID"
)

// Server 通过 HTTP 向智能体运行时暴露插件。
type Server struct {
	addr    string
	plugin  *agent.Plugin
	log     *slog.Logger
	metrics *metrics.Registry
}

// NewServer 创建 API 服务。
func NewServer(addr string, p *agent.Plugin, log *slog.Logger) *Server {
	if log == nil {
		log = logger.Named("api")
	}
	return &Server{addr: addr, plugin: p, log: log, metrics: metrics.NewRegistry()}
}

// Metrics 返回 /metrics 所暴露的指标注册表。
func (s *Server) Metrics() *metrics.Registry {
	return s.metrics
}

// Handler 返回已注册路由的处理器。
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/api/v1/wallet", s.handleWallet)
	mux.HandleFunc("/api/v1/actions", s.handleListActions)
	mux.HandleFunc(actionsPrefix, s.handleAction)
	mux.Handle("/metrics", s.metrics.Handler())
	return s.withRequestID(mux)
}

// Start 启动服务，直到 ctx 被取消或监听失败。
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.addr,
		Handler:           withContext(ctx, s.Handler()),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	s.log.Info("http server listening", slog.String("addr", s.addr))

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, apperrors.New(apperrors.CodeInvalidArgument, "only GET is supported"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// WalletResponse 描述钱包信息。余额获取失败时 Balance 为 null。
type WalletResponse struct {
	Address string   `json:"address"`
	Chain   string   `json:"chain"`
	ChainID uint64   `json:"chainId"`
	Balance *string  `json:"balance"`
	Symbol  string   `json:"symbol"`
	Chains  []string `json:"chains"`
	Summary string   `json:"summary"`
}

func (s *Server) handleWallet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, apperrors.New(apperrors.CodeInvalidArgument, "only GET is supported"))
		return
	}
	wallet := s.plugin.Wallet()
	chain := wallet.CurrentChain()
	resp := WalletResponse{
		Address: wallet.Address().Hex(),
		Chain:   wallet.CurrentChainName(),
		ChainID: chain.ID,
		Symbol:  chain.NativeCurrency.Symbol,
		Chains:  wallet.Chains(),
	}
	if balance, ok := wallet.WalletBalance(r.Context()); ok {
		resp.Balance = &balance
	}
	resp.Summary = s.plugin.WalletSummary(r.Context(), r.URL.Query().Get("agent"))
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListActions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, apperrors.New(apperrors.CodeInvalidArgument, "only GET is supported"))
		return
	}
	writeJSON(w, http.StatusOK, s.plugin.Info())
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, apperrors.New(apperrors.CodeInvalidArgument, "only POST is supported"))
		return
	}
	name := strings.Trim(strings.TrimPrefix(r.URL.Path, actionsPrefix), "/")
	if _, ok := s.plugin.Lookup(name); !ok {
		writeError(w, http.StatusNotFound, apperrors.Newf(apperrors.CodeNotFound, "unknown action: %s", name))
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, apperrors.Wrap(apperrors.CodeInvalidArgument, err, "read request body"))
		return
	}
	start := time.Now()
	result, err := s.plugin.Dispatch(r.Context(), name, body)
	s.metrics.ObserveAction(name, outcome(result, err), time.Since(start))
	if err != nil {
		level := slog.LevelWarn
		if apperrors.SeverityOf(err) == apperrors.SeverityCritical {
			level = slog.LevelError
		}
		s.log.Log(r.Context(), level, "action rejected",
			slog.String("action", name),
			slog.String("request_id", w.Header().Get(requestIDKey)),
			slog.String("code", string(apperrors.CodeOf(err))),
			slog.Any("error", err))
		writeError(w, statusOf(err), err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func outcome(result agent.Result, err error) string {
	switch {
	case err != nil:
		return "rejected"
	case result.Success:
		return "success"
	}
	return "failure"
}

func statusOf(err error) int {
	switch apperrors.CodeOf(err) {
	case apperrors.CodeNotFound:
		return http.StatusNotFound
	case apperrors.CodeInvalidArgument, apperrors.CodeUnknownChain:
		return http.StatusBadRequest
	case apperrors.CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

type errorResponse struct {
	Error     string            `json:"error"`
	Code      string            `json:"code"`
	Retryable bool              `json:"retryable,omitempty"`
	Details   map[string]string `json:"details,omitempty"`
}

func writeError(w http.ResponseWriter, status int, err error) {
	resp := errorResponse{
		Error:     err.Error(),
		Code:      string(apperrors.CodeOf(err)),
		Retryable: apperrors.RetryableError(err),
	}
	if e, ok := apperrors.From(err); ok {
		resp.Details = e.Metadata()
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// withRequestID 回显或分配请求 ID，并记录每个请求。
func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDKey)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDKey, id)
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		s.metrics.ObserveRequest(route(r.URL.Path), r.Method, rec.status)
		s.log.DebugContext(r.Context(), "http request",
			slog.String("request_id", id),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rec.status),
			slog.Duration("elapsed", time.Since(start)))
	})
}

// route 合并动作路径，限制指标标签的基数。
func route(path string) string {
	if strings.HasPrefix(path, actionsPrefix) {
		return actionsPrefix
	}
	return path
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// withContext 在根 context 取消后拒绝新请求。
func withContext(ctx context.Context, handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-ctx.Done():
			writeError(w, http.StatusServiceUnavailable, apperrors.New(apperrors.CodeUnknown, "server is shutting down"))
			return
		default:
		}
		handler.ServeHTTP(w, r)
	})
}
