package rest

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/aliskhannn/exam-prep/internal/domain/entities"
	"github.com/aliskhannn/exam-prep/internal/service"
)

const (
	msgNoQuestions      = "No questions available right now, please try again."
	defaultActivityPage = 50
	maxActivityPage     = 200
)

type generateResponse struct {
	service.QuizView
	Notice string `json:"notice,omitempty"`
}

type selectRequest struct {
	Option     *int   `json:"option"`
	QuestionID string `json:"questionId,omitempty"`
}

type submitResponse struct {
	Answer entities.AnswerRecord `json:"answer"`
	View   service.QuizView      `json:"view"`
}

func (h *Handler) getQuiz(w http.ResponseWriter, r *http.Request) {
	flow := h.flows.Get(r.Context(), userFrom(r.Context()))
	writeJSON(w, http.StatusOK, flow.View())
}

func (h *Handler) generate(w http.ResponseWriter, r *http.Request) {
	var req service.GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	flow := h.flows.Get(r.Context(), userFrom(r.Context()))
	view, err := flow.Generate(r.Context(), req)
	if errors.Is(err, service.ErrNoQuestionsAvailable) {
		writeJSON(w, http.StatusOK, generateResponse{QuizView: view, Notice: msgNoQuestions})
		return
	}
	if err != nil {
		h.flowError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, generateResponse{QuizView: view})
}

func (h *Handler) selectOption(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Option == nil {
		writeError(w, http.StatusBadRequest, "option is required")
		return
	}

	view, err := h.flows.Get(r.Context(), userFrom(r.Context())).SelectFor(req.QuestionID, *req.Option)
	if err != nil {
		h.flowError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	record, view, err := h.flows.Get(r.Context(), userFrom(r.Context())).SubmitFor(questionParam(r))
	if err != nil {
		h.flowError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, submitResponse{Answer: record, View: view})
}

func (h *Handler) next(w http.ResponseWriter, r *http.Request) {
	view, err := h.flows.Get(r.Context(), userFrom(r.Context())).NextFrom(questionParam(r))
	if err != nil {
		h.flowError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

// questionParam returns the optional question the client is acting on.
// An empty value targets whatever question is current.
func questionParam(r *http.Request) string {
	return r.URL.Query().Get("question")
}

func (h *Handler) clearAsked(w http.ResponseWriter, r *http.Request) {
	view := h.flows.Get(r.Context(), userFrom(r.Context())).ClearAsked(r.Context())
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) listActivity(w http.ResponseWriter, r *http.Request) {
	limit := defaultActivityPage
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = min(n, maxActivityPage)
	}

	activities, err := h.activity.ListRecent(r.Context(), userFrom(r.Context()), limit)
	if err != nil {
		h.logger.Error("failed to list activity", zap.String("user_id", userFrom(r.Context())), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load activity")
		return
	}

	if activities == nil {
		activities = []*entities.Activity{}
	}
	writeJSON(w, http.StatusOK, activities)
}

func (h *Handler) listNews(w http.ResponseWriter, r *http.Request) {
	articles, err := h.news.Latest(r.Context())
	if err != nil {
		h.logger.Error("failed to load news", zap.Error(err))
		writeError(w, http.StatusBadGateway, "news feed unavailable")
		return
	}

	writeJSON(w, http.StatusOK, articles)
}

func (h *Handler) flowError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("quiz request failed",
			zap.String("user_id", userFrom(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeError(w, status, "internal error")
		return
	}

	writeError(w, status, err.Error())
}
