package handler

import (
	"net/http"

	"github.com/Koyo-os/survey-service/internal/access"
	"github.com/Koyo-os/survey-service/internal/branch"
	"github.com/Koyo-os/survey-service/internal/entity"
	"github.com/Koyo-os/survey-service/internal/session"
	"github.com/gorilla/mux"
)

type (
	moveRequest struct {
		NewIndex *int `json:"newIndex"`
	}

	collaboratorRequest struct {
		UserID string `json:"userId"`
	}

	visibleRequest struct {
		Answers []entity.Answer `json:"answers"`
	}

	visibleResponse struct {
		Questions []entity.OutputQuestion `json:"questions"`
	}

	messageResponse struct {
		Message string `json:"message"`
	}
)

// view picks what sess gets to see of a survey: editors get everything,
// everybody else the respondent view
func view(sess session.Session, survey *entity.Survey) any {
	if access.CanEdit(sess, survey) {
		return survey
	}
	return survey.ToOutput()
}

func (h *Handler) ListSurveys(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())

	surveys, err := h.service.ListSurveys(r.Context(), sess)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	out := make([]any, len(surveys))
	for i := range surveys {
		out[i] = view(sess, &surveys[i])
	}

	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) CreateSurvey(w http.ResponseWriter, r *http.Request) {
	var in entity.SurveyInput
	if err := decode(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}

	survey, err := h.service.CreateSurvey(r.Context(), session.FromContext(r.Context()), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, survey)
}

func (h *Handler) GetSurvey(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())

	survey, err := h.service.GetSurvey(r.Context(), sess, mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, view(sess, survey))
}

func (h *Handler) UpdateSurvey(w http.ResponseWriter, r *http.Request) {
	var in entity.SurveyInput
	if err := decode(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}

	survey, err := h.service.UpdateSurvey(r.Context(), session.FromContext(r.Context()), mux.Vars(r)["id"], in)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, survey)
}

func (h *Handler) DeleteSurvey(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteSurvey(r.Context(), session.FromContext(r.Context()), mux.Vars(r)["id"]); err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "Survey deleted successfully"})
}

func (h *Handler) MoveQuestion(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if req.NewIndex == nil {
		h.fail(w, r, entity.NewValidationError("", "newIndex is required"))
		return
	}

	vars := mux.Vars(r)
	survey, err := h.service.MoveQuestion(r.Context(), session.FromContext(r.Context()), vars["id"], vars["questionId"], *req.NewIndex)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, survey)
}

func (h *Handler) AddCollaborator(w http.ResponseWriter, r *http.Request) {
	var req collaboratorRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	survey, err := h.service.AddCollaborator(r.Context(), session.FromContext(r.Context()), mux.Vars(r)["id"], req.UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, survey)
}

// VisibleQuestions evaluates branch logic for the answers given so far
func (h *Handler) VisibleQuestions(w http.ResponseWriter, r *http.Request) {
	var req visibleRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	answers := make(branch.Answers, len(req.Answers))
	for _, a := range req.Answers {
		if _, ok := answers[a.QuestionID]; !ok {
			answers[a.QuestionID] = a.Value
		}
	}

	questions, err := h.service.VisibleQuestions(r.Context(), session.FromContext(r.Context()), mux.Vars(r)["id"], answers)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	out := visibleResponse{Questions: make([]entity.OutputQuestion, len(questions))}
	for i := range questions {
		out.Questions[i] = questions[i].ToOutput()
	}

	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) SubmitResponse(w http.ResponseWriter, r *http.Request) {
	var in entity.SubmissionInput
	if err := decode(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	in.IPAddress = clientIP(r, h.proxies)

	receipt, err := h.service.SubmitResponse(r.Context(), session.FromContext(r.Context()), mux.Vars(r)["id"], in)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, receipt)
}

func (h *Handler) Results(w http.ResponseWriter, r *http.Request) {
	results, err := h.service.Results(r.Context(), session.FromContext(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, results)
}

func (h *Handler) Analytics(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Analytics(r.Context(), session.FromContext(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
