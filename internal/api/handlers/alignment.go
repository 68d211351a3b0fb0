package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ppiankov/ontobridge/internal/model"
	"github.com/ppiankov/ontobridge/internal/pipeline"
	"github.com/ppiankov/ontobridge/internal/transform"
)

// Mediator is the workflow behind the alignment endpoints
type Mediator interface {
	FetchAndAlign(ctx context.Context, serviceURL string, method model.Method) (*model.ServiceAlignment, error)
	Realign(ctx context.Context, serviceURL string, method model.Method) (*model.ServiceAlignment, error)
	Get(ctx context.Context, serviceID string) (*model.ServiceAlignment, error)
	Confirm(ctx context.Context, serviceID string, confirmed model.AlignmentSet) (*model.ServiceAlignment, error)
	Apply(ctx context.Context, payload map[string]any, serviceID string, dir model.Direction) (transform.Result, error)
	Book(ctx context.Context, req pipeline.BookRequest) (*pipeline.BookResult, error)
}

type AlignmentHandler struct {
	svc           Mediator
	defaultMethod model.Method
	logger        *zap.Logger
}

func NewAlignmentHandler(svc Mediator, defaultMethod model.Method, logger *zap.Logger) *AlignmentHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AlignmentHandler{svc: svc, defaultMethod: defaultMethod, logger: logger}
}

type createAlignmentRequest struct {
	ServiceURL string `json:"service_url"`
	Method     string `json:"method,omitempty"`
	Refresh    bool   `json:"refresh,omitempty"`
}

type confirmRequest struct {
	Alignments model.AlignmentSet `json:"alignments"`
}

type applyRequest struct {
	Payload   map[string]any `json:"payload"`
	Direction string         `json:"direction,omitempty"`
}

// Create fetches a service description and aligns it, reusing a stored alignment unless refresh is set
func (h *AlignmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createAlignmentRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.ServiceURL) == "" {
		writeError(w, http.StatusBadRequest, "service_url is required")
		return
	}

	method := h.defaultMethod
	if req.Method != "" {
		m, err := model.ParseMethod(req.Method)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		method = m
	}

	align := h.svc.FetchAndAlign
	if req.Refresh {
		align = h.svc.Realign
	}
	result, err := align(r.Context(), req.ServiceURL, method)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *AlignmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.Get(r.Context(), chi.URLParam(r, "serviceID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *AlignmentHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if !decode(w, r, &req) {
		return
	}
	if len(req.Alignments) == 0 {
		writeError(w, http.StatusBadRequest, "alignments must not be empty")
		return
	}

	result, err := h.svc.Confirm(r.Context(), chi.URLParam(r, "serviceID"), req.Alignments)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *AlignmentHandler) Apply(w http.ResponseWriter, r *http.Request) {
	var req applyRequest
	if !decode(w, r, &req) {
		return
	}
	dir, err := model.ParseDirection(req.Direction)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Payload == nil {
		req.Payload = map[string]any{}
	}

	result, err := h.svc.Apply(r.Context(), req.Payload, chi.URLParam(r, "serviceID"), dir)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *AlignmentHandler) Book(w http.ResponseWriter, r *http.Request) {
	var req pipeline.BookRequest
	if !decode(w, r, &req) {
		return
	}

	result, err := h.svc.Book(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *AlignmentHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	writeError(w, status, err.Error())
}
