package endpoints

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/aitrace/internal/api"
	"github.com/jackzampolin/aitrace/internal/providers"
	"github.com/jackzampolin/aitrace/internal/svcctx"
	"github.com/jackzampolin/aitrace/version"
)

// HealthResponse is the response for health check endpoints.
type HealthResponse struct {
	Status   string `json:"status"`
	Provider string `json:"provider,omitempty"`
}

// HealthEndpoint handles GET /api/health.
type HealthEndpoint struct{}

func (e *HealthEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/health", e.handler
}

// handler godoc
//
//	@Summary		Health check
//	@Description	Returns ok while the HTTP server is responding
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	HealthResponse
//	@Router			/api/health [get]
func (e *HealthEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

func (e *HealthEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp HealthResponse
			if err := client.Get(cmd.Context(), "/api/health", &resp); err != nil {
				return err
			}
			fmt.Printf("Status: %s\n", resp.Status)
			return nil
		},
	}
}

// ReadyEndpoint handles GET /api/ready.
type ReadyEndpoint struct{}

func (e *ReadyEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/ready", e.handler
}

// handler godoc
//
//	@Summary		Readiness check
//	@Description	Returns ok when the default model provider is registered
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	HealthResponse
//	@Failure		503	{object}	HealthResponse
//	@Router			/api/ready [get]
func (e *ReadyEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	gw := svcctx.GatewayFrom(r.Context())
	if gw == nil {
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "not_initialized"})
		return
	}

	resp := HealthResponse{Status: "ok", Provider: gw.Provider()}
	if !gw.Ready() {
		resp.Status = "degraded"
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (e *ReadyEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "ready",
		Short: "Check server readiness (includes model provider)",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp HealthResponse
			if err := client.Get(cmd.Context(), "/api/ready", &resp); err != nil {
				return err
			}
			fmt.Printf("Status:   %s\n", resp.Status)
			if resp.Provider != "" {
				fmt.Printf("Provider: %s\n", resp.Provider)
			}
			return nil
		},
	}
}

// StatusResponse is the detailed status response.
type StatusResponse struct {
	Server    string          `json:"server"`
	Version   string          `json:"version"`
	Providers ProvidersStatus `json:"providers"`
	Detect    DetectStatus    `json:"detect"`
	LLMCalls  LLMCallsStatus  `json:"llmcalls"`
}

// ProvidersStatus shows registered model providers.
type ProvidersStatus struct {
	LLM        []string                               `json:"llm"`
	Default    string                                 `json:"default"`
	Ready      bool                                   `json:"ready"`
	RateLimits map[string]providers.RateLimiterStatus `json:"rate_limits,omitempty"`
}

// DetectStatus shows the active detection settings.
type DetectStatus struct {
	Model         string  `json:"model"`
	Temperature   float64 `json:"temperature"`
	Timeout       string  `json:"timeout"`
	MaxTextLength int     `json:"max_text_length"`
}

// LLMCallsStatus shows call history occupancy.
type LLMCallsStatus struct {
	Stored   int `json:"stored"`
	Capacity int `json:"capacity"`
}

// StatusEndpoint handles GET /api/status.
type StatusEndpoint struct{}

func (e *StatusEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/status", e.handler
}

// handler godoc
//
//	@Summary		Server status
//	@Description	Registered providers, rate limiter state and detection settings
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	StatusResponse
//	@Router			/api/status [get]
func (e *StatusEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	resp := StatusResponse{
		Server:  "running",
		Version: version.GitRelease,
	}

	if registry := svcctx.RegistryFrom(ctx); registry != nil {
		resp.Providers.LLM = registry.ListLLM()
		resp.Providers.RateLimits = registry.RateLimiterStatuses()
	}
	if gw := svcctx.GatewayFrom(ctx); gw != nil {
		resp.Providers.Default = gw.Provider()
		resp.Providers.Ready = gw.Ready()
	}

	cfg := svcctx.ConfigFrom(ctx)
	resp.Detect.MaxTextLength = cfg.MaxTextLength()
	detectCfg := cfg.DetectorConfig()
	if d := svcctx.DetectorFrom(ctx); d != nil {
		detectCfg = d.Config()
	}
	resp.Detect.Model = detectCfg.Model
	resp.Detect.Temperature = detectCfg.Temperature
	resp.Detect.Timeout = detectCfg.Timeout.String()

	if store := svcctx.LLMCallStoreFrom(ctx); store != nil {
		if counts, err := store.Counts(ctx); err == nil {
			resp.LLMCalls = LLMCallsStatus{Stored: counts.Total, Capacity: counts.Capacity}
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (e *StatusEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Get detailed server status",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp StatusResponse
			if err := client.Get(cmd.Context(), "/api/status", &resp); err != nil {
				return err
			}
			if api.GetOutputFormat() == api.OutputFormatJSON {
				return api.Output(resp)
			}
			fmt.Printf("Server:  %s (%s)\n", resp.Server, resp.Version)
			fmt.Printf("Providers:\n")
			fmt.Printf("  LLM:     %v\n", resp.Providers.LLM)
			fmt.Printf("  Default: %s (ready: %t)\n", resp.Providers.Default, resp.Providers.Ready)
			for name, rl := range resp.Providers.RateLimits {
				fmt.Printf("  %s: %d/%d tokens, waited %s\n", name, rl.TokensAvailable, rl.TokensLimit, rl.TotalWaited.Round(time.Millisecond))
			}
			fmt.Printf("Detect:\n")
			fmt.Printf("  Model:       %s\n", resp.Detect.Model)
			fmt.Printf("  Temperature: %g\n", resp.Detect.Temperature)
			fmt.Printf("  Timeout:     %s\n", resp.Detect.Timeout)
			fmt.Printf("LLM calls: %d/%d\n", resp.LLMCalls.Stored, resp.LLMCalls.Capacity)
			return nil
		},
	}
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// ErrorResponse is a standard error response.
// Detail repeats the message for clients that read {"detail": ...}.
type ErrorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg, Detail: msg})
}
