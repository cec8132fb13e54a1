package endpoints

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/aitrace/internal/api"
	"github.com/jackzampolin/aitrace/internal/svcctx"
	"github.com/jackzampolin/aitrace/internal/traces"
)

// MarkTracesEndpoint handles POST /api/mark-traces.
type MarkTracesEndpoint struct{}

func (e *MarkTracesEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/mark-traces", e.handler
}

// handler godoc
//
//	@Summary		Mark AI traces
//	@Description	Annotate heuristic AI-writing traces with inline markup. Runs locally, no model call.
//	@Tags			traces
//	@Accept			json
//	@Produce		json
//	@Param			request	body		TextRequest	true	"Text to annotate"
//	@Success		200		{object}	traces.Result
//	@Failure		400		{object}	ErrorResponse
//	@Failure		422		{object}	ErrorResponse
//	@Router			/api/mark-traces [post]
func (e *MarkTracesEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	text, ok := readText(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, svcctx.AnnotatorFrom(r.Context()).Annotate(text))
}

func (e *MarkTracesEndpoint) Command(getServerURL func() string) *cobra.Command {
	var in textInput
	var markedOnly bool
	cmd := &cobra.Command{
		Use:   "mark-traces",
		Short: "Highlight heuristic AI-writing traces in text",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := in.read(cmd.InOrStdin())
			if err != nil {
				return err
			}
			client := api.NewClient(getServerURL())
			var resp traces.Result
			if err := client.Post(cmd.Context(), "/api/mark-traces", TextRequest{Text: text}, &resp); err != nil {
				return err
			}
			if markedOnly {
				fmt.Fprintln(cmd.OutOrStdout(), resp.MarkedText)
				return nil
			}
			return api.Output(resp)
		},
	}
	in.bind(cmd)
	cmd.Flags().BoolVar(&markedOnly, "marked", false, "Print only the marked text")
	return cmd
}

// TraceTypesResponse lists the trace types the annotator can emit.
type TraceTypesResponse struct {
	Types []traces.TypeInfo `json:"types"`
}

// TraceTypesEndpoint handles GET /api/trace-types.
type TraceTypesEndpoint struct{}

func (e *TraceTypesEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/trace-types", e.handler
}

// handler godoc
//
//	@Summary		List trace types
//	@Description	Catalog of trace types with display names and explanations
//	@Tags			traces
//	@Produce		json
//	@Success		200	{object}	TraceTypesResponse
//	@Router			/api/trace-types [get]
func (e *TraceTypesEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, TraceTypesResponse{Types: traces.Types()})
}

func (e *TraceTypesEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "trace-types",
		Short: "List trace types the annotator can emit",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp TraceTypesResponse
			if err := client.Get(cmd.Context(), "/api/trace-types", &resp); err != nil {
				return err
			}
			return api.Output(resp.Types)
		},
	}
}
