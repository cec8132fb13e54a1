package endpoints

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/aitrace/internal/api"
	"github.com/jackzampolin/aitrace/internal/classify"
	"github.com/jackzampolin/aitrace/internal/gateway"
	"github.com/jackzampolin/aitrace/internal/svcctx"
)

// maxBodyBytes bounds request bodies; 8000 characters of CJK text is ~24KB.
const maxBodyBytes = 1 << 20

// TextRequest is the body of /api/detect and /api/mark-traces.
type TextRequest struct {
	Text string `json:"text" example:"因此，我们需要进一步研究。"`
}

// DetectResponse wraps a classification record.
type DetectResponse struct {
	Result classify.Record `json:"result"`
}

// readText decodes and validates a TextRequest. On failure it writes the
// error response and returns false.
func readText(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req TextRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return "", false
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text is empty")
		return "", false
	}
	limit := svcctx.ConfigFrom(r.Context()).MaxTextLength()
	if n := utf8.RuneCountInString(req.Text); n > limit {
		writeError(w, http.StatusUnprocessableEntity, fmt.Sprintf("text is %d characters, maximum is %d", n, limit))
		return "", false
	}
	return req.Text, true
}

// gatewayStatus maps a model gateway failure to an HTTP status.
func gatewayStatus(err error) int {
	switch {
	case errors.Is(err, gateway.ErrNotConfigured):
		return http.StatusServiceUnavailable
	case errors.Is(err, gateway.ErrTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

// DetectEndpoint handles POST /api/detect.
type DetectEndpoint struct{}

func (e *DetectEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/detect", e.handler
}

// handler godoc
//
//	@Summary		Classify text
//	@Description	Ask the configured model whether the text is AI-generated.
//	@Description	Malformed model output yields a low-confidence "uncertain" record, not an error.
//	@Tags			detect
//	@Accept			json
//	@Produce		json
//	@Param			request	body		TextRequest	true	"Text to classify"
//	@Success		200		{object}	DetectResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		422		{object}	ErrorResponse
//	@Failure		502		{object}	ErrorResponse
//	@Failure		503		{object}	ErrorResponse
//	@Failure		504		{object}	ErrorResponse
//	@Router			/api/detect [post]
func (e *DetectEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	text, ok := readText(w, r)
	if !ok {
		return
	}

	// Validation errors take precedence over provider readiness.
	if gw := svcctx.GatewayFrom(r.Context()); gw != nil && !gw.Ready() {
		writeError(w, http.StatusServiceUnavailable, "model provider not configured")
		return
	}

	detector := svcctx.DetectorFrom(r.Context())
	if detector == nil {
		writeError(w, http.StatusInternalServerError, "detector not available")
		return
	}

	rec, err := detector.Detect(r.Context(), text)
	if err != nil {
		svcctx.LoggerFrom(r.Context()).Warn("detection failed", "error", err)
		writeError(w, gatewayStatus(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, DetectResponse{Result: rec})
}

func (e *DetectEndpoint) Command(getServerURL func() string) *cobra.Command {
	var in textInput
	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Classify text as AI-generated or human-written",
		Long: `Send text to the server's detection endpoint.

Examples:
  aitrace api detect --text "因此，我们需要进一步研究。"
  aitrace api detect --file essay.txt
  cat essay.txt | aitrace api detect --file -`,
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := in.read(cmd.InOrStdin())
			if err != nil {
				return err
			}
			client := api.NewClient(getServerURL())
			var resp DetectResponse
			if err := client.Post(cmd.Context(), "/api/detect", TextRequest{Text: text}, &resp); err != nil {
				return err
			}
			return api.Output(resp.Result)
		},
	}
	in.bind(cmd)
	return cmd
}

// textInput holds the --text/--file flags shared by text commands.
type textInput struct {
	text string
	file string
}

func (t *textInput) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&t.text, "text", "", "Text to analyze")
	cmd.Flags().StringVar(&t.file, "file", "", "Read text from file (- for stdin)")
	cmd.MarkFlagsMutuallyExclusive("text", "file")
	cmd.MarkFlagsOneRequired("text", "file")
}

func (t *textInput) read(stdin io.Reader) (string, error) {
	switch t.file {
	case "":
		return t.text, nil
	case "-":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	default:
		data, err := os.ReadFile(t.file)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", t.file, err)
		}
		return string(data), nil
	}
}
