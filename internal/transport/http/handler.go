package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"mc-test-service/internal/app"
	"mc-test-service/internal/domain"
	"mc-test-service/internal/identity"
)

// QuestionLister enumerates the available question-set files.
type QuestionLister interface {
	ListQuestionFiles() ([]string, error)
}

// Handler exposes the quiz use cases over JSON/HTTP. The UI is an external
// collaborator: it renders what these endpoints return and posts what the
// user picked, nothing more.
type Handler struct {
	service   *app.QuizService
	lister    QuestionLister
	adminUser string
	adminKey  string
}

func NewHandler(service *app.QuizService, lister QuestionLister, adminUser, adminKey string) *Handler {
	return &Handler{service: service, lister: lister, adminUser: adminUser, adminKey: adminKey}
}

// Register wires all routes onto the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/questions", h.handleListQuestions)
	mux.HandleFunc("/api/session", h.handleSession)
	mux.HandleFunc("/api/session/end", h.handleEndSession)
	mux.HandleFunc("/api/answer", h.handleAnswer)
	mux.HandleFunc("/api/bookmark", h.handleBookmark)
	mux.HandleFunc("/api/bookmarks/clear", h.handleClearBookmarks)
	mux.HandleFunc("/api/leaderboard", h.handleLeaderboard)
	mux.HandleFunc("/api/admin/analysis", h.requireAdmin(h.handleAnalysis))
	mux.HandleFunc("/api/admin/scoring-mode", h.requireAdmin(h.handleScoringMode))
	mux.HandleFunc("/api/admin/reset", h.requireAdmin(h.handleReset))
	mux.HandleFunc("/api/admin/export", h.requireAdmin(h.handleExport))
}

type sessionRequest struct {
	Pseudonym     string `json:"pseudonym"`
	QuestionsFile string `json:"questionsFile"`
}

type answerRequest struct {
	sessionRequest
	QuestionIndex int    `json:"questionIndex"`
	Answer        string `json:"answer"`
}

type bookmarkRequest struct {
	sessionRequest
	QuestionIndex int `json:"questionIndex"`
}

type progressResponse struct {
	Pseudonym     string   `json:"pseudonym"`
	UserDisplay   string   `json:"userDisplay"`
	QuestionsFile string   `json:"questionsFile"`
	NumQuestions  int      `json:"numQuestions"`
	NextIndex     *int     `json:"nextIndex"`
	Options       []string `json:"options,omitempty"`
	Answered      []bool   `json:"answered"`
	Bookmarked    []int    `json:"bookmarked"`
	Score         int      `json:"score"`
	MaxScore      int      `json:"maxScore"`
	Percent       float64  `json:"percent"`
	Complete      bool     `json:"complete"`
	RemainingSec  int      `json:"remainingSec"`
	TimeExpired   bool     `json:"timeExpired"`
}

func (h *Handler) handleListQuestions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	files, err := h.lister.ListQuestionFiles()
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"questionFiles": files})
}

func (h *Handler) handleSession(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req sessionRequest
		if !decode(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.Pseudonym) == "" {
			http.Error(w, "pseudonym required", http.StatusBadRequest)
			return
		}
		session, err := h.service.StartOrResume(r.Context(), strings.TrimSpace(req.Pseudonym), req.QuestionsFile)
		if err != nil {
			h.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, h.progress(session))
	case http.MethodGet:
		session, ok := h.service.Get(r.URL.Query().Get("pseudonym"), r.URL.Query().Get("questionsFile"))
		if !ok {
			h.fail(w, domain.ErrSessionNotFound)
			return
		}
		writeJSON(w, http.StatusOK, h.progress(session))
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleEndSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req sessionRequest
	if !decode(w, r, &req) {
		return
	}
	h.service.EndSession(req.Pseudonym, req.QuestionsFile)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ended"})
}

func (h *Handler) handleAnswer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req answerRequest
	if !decode(w, r, &req) {
		return
	}
	result, err := h.service.SubmitAnswer(r.Context(), req.Pseudonym, req.QuestionsFile, req.QuestionIndex, req.Answer)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleBookmark(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req bookmarkRequest
	if !decode(w, r, &req) {
		return
	}
	bookmarks, err := h.service.ToggleBookmark(r.Context(), req.Pseudonym, req.QuestionsFile, req.QuestionIndex)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookmarked": bookmarks})
}

func (h *Handler) handleClearBookmarks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req sessionRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.service.ClearBookmarks(r.Context(), req.Pseudonym, req.QuestionsFile); err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookmarked": []int{}})
}

func (h *Handler) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	entries, err := h.service.TopFiveCompleted(r.Context(), r.URL.Query().Get("questionsFile"))
	if err != nil {
		h.fail(w, err)
		return
	}
	if entries == nil {
		entries = []domain.LeaderboardEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (h *Handler) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	stats, err := h.service.Analysis(r.Context(), r.URL.Query().Get("questionsFile"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": stats})
}

func (h *Handler) handleScoringMode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		ScoringMode domain.ScoringMode `json:"scoringMode"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := h.service.SetScoringMode(req.ScoringMode); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"scoringMode": req.ScoringMode})
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := h.service.ResetAllAnswers(r.Context()); err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	events, err := h.service.Export(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="mc_test_answers.json"`)
	_ = json.NewEncoder(w).Encode(events)
}

// requireAdmin gates a handler behind the shared admin credentials
// (X-Admin-User / X-Admin-Key headers, constant-time key comparison).
func (h *Handler) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := r.Header.Get("X-Admin-User")
		key := r.Header.Get("X-Admin-Key")
		if !identity.IsAdminUser(user, h.adminUser) || !identity.CheckAdminKey(key, h.adminKey) {
			http.Error(w, "admin access denied", http.StatusForbidden)
			return
		}
		next(w, r)
	}
}

func (h *Handler) progress(session *app.Session) progressResponse {
	answered := session.Answered()
	mask := make([]bool, len(answered))
	for i, p := range answered {
		mask[i] = p != nil
	}

	summary := h.service.Summary(session)
	resp := progressResponse{
		Pseudonym:     session.Pseudonym(),
		UserDisplay:   identity.DisplayHash(session.UserHash()),
		QuestionsFile: session.QuestionsFile(),
		NumQuestions:  len(session.Questions()),
		Answered:      mask,
		Bookmarked:    session.Bookmarks(),
		Score:         summary.Score,
		MaxScore:      summary.MaxScore,
		Percent:       summary.Percent,
		Complete:      summary.Complete,
		RemainingSec:  session.RemainingTime(),
		TimeExpired:   session.TimeExpired(),
	}
	if idx, ok := session.NextQuestionIndex(); ok {
		resp.NextIndex = &idx
		resp.Options = session.ShuffledOptions(idx)
	}
	return resp
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrQuestionSetNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, domain.ErrSessionNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, domain.ErrQuestionNotFound), errors.Is(err, domain.ErrOptionNotFound):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrTimeExpired):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, domain.ErrNotPersisted):
		// The user-visible "answer not saved, please retry" condition.
		http.Error(w, "answer not saved, please retry", http.StatusServiceUnavailable)
	default:
		log.Printf("internal error: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
