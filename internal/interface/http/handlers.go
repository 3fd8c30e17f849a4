package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/natibo/natibo/internal/application/command"
	"github.com/natibo/natibo/internal/application/query"
	"github.com/natibo/natibo/internal/domain/content"
	"github.com/natibo/natibo/internal/domain/course"
	"github.com/natibo/natibo/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"name":    "natibo",
		"version": s.config.Version,
		"endpoints": map[string]string{
			"health":    "/health",
			"courses":   "/api/v1/courses",
			"languages": "/api/v1/languages",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		status := s.deps.HealthChecker.Check(r.Context())
		code := http.StatusOK
		if !status.Healthy {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, r, code, status)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"uptime":  s.Uptime().String(),
		"version": s.config.Version,
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		status := s.deps.HealthChecker.Check(r.Context())
		if !status.Ready {
			writeJSON(w, r, http.StatusServiceUnavailable, map[string]string{
				"status": "not_ready",
				"reason": status.Message,
			})
			return
		}
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "alive"})
}

// ══════════════════════════════════════════════════════════════════════════════
// COURSES
// ══════════════════════════════════════════════════════════════════════════════

type createCourseRequest struct {
	Title            string   `json:"title"`
	Languages        []string `json:"languages"`
	Books            []string `json:"books"`
	SentencesPerDay  int      `json:"sentences_per_day"`
	ReviewPattern    *string  `json:"review_pattern"`
	Chorus           string   `json:"chorus"`
	Order            string   `json:"order"`
	StartingSentence int      `json:"starting_sentence"`
	PauseMillis      *int64   `json:"pause_millis"`

	// PrepareFirstDay defaults to true.
	PrepareFirstDay *bool `json:"prepare_first_day"`
}

type createCourseResponse struct {
	Course     course.Snapshot `json:"course"`
	Misaligned []string        `json:"misaligned_books,omitempty"`
}

// handleCreateCourse handles POST /api/v1/courses
func (s *Server) handleCreateCourse(w http.ResponseWriter, r *http.Request) {
	var req createCourseRequest
	if !s.decode(w, r, &req) {
		return
	}

	cmd := command.CreateCourseCommand{
		Title:            req.Title,
		Languages:        req.Languages,
		Books:            req.Books,
		SentencesPerDay:  req.SentencesPerDay,
		ReviewPattern:    req.ReviewPattern,
		Chorus:           course.Chorus(req.Chorus),
		Order:            req.Order,
		StartingSentence: req.StartingSentence,
		PrepareFirstDay:  req.PrepareFirstDay == nil || *req.PrepareFirstDay,
	}
	if req.PauseMillis != nil {
		pause, err := pauseFromMillis(*req.PauseMillis)
		if err != nil {
			s.writeDomainError(w, r, "create_course", err)
			return
		}
		cmd.Pause = &pause
	}

	res, err := s.deps.CreateCourse.Handle(r.Context(), cmd)
	if err != nil {
		s.writeDomainError(w, r, "create_course", err)
		return
	}
	writeJSON(w, r, http.StatusCreated, createCourseResponse{
		Course:     res.Course.Snapshot(),
		Misaligned: res.Misaligned,
	})
}

// handleListCourses handles GET /api/v1/courses
func (s *Server) handleListCourses(w http.ResponseWriter, r *http.Request) {
	opts := course.ListOptions{
		Limit:  getQueryParamInt(r, "limit", 50),
		Offset: getQueryParamInt(r, "offset", 0),
	}.Normalize()

	list, err := s.deps.ListCourses.Handle(r.Context(), opts)
	if err != nil {
		s.writeDomainError(w, r, "list_courses", err)
		return
	}
	writeJSONWithMeta(w, r, http.StatusOK, list, &ResponseMeta{
		Count:  len(list),
		Limit:  opts.Limit,
		Offset: opts.Offset,
	})
}

// handleGetCourse handles GET /api/v1/courses/{id}
func (s *Server) handleGetCourse(w http.ResponseWriter, r *http.Request) {
	c, err := s.deps.GetCourse.Handle(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeDomainError(w, r, "get_course", err)
		return
	}
	writeJSON(w, r, http.StatusOK, c.Snapshot())
}

// handleDeleteCourse handles DELETE /api/v1/courses/{id}
func (s *Server) handleDeleteCourse(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.DeleteCourse.Handle(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.writeDomainError(w, r, "delete_course", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleGetProgress handles GET /api/v1/courses/{id}/progress
func (s *Server) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	p, err := s.deps.GetProgress.Handle(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeDomainError(w, r, "get_progress", err)
		return
	}
	writeJSON(w, r, http.StatusOK, p)
}

// handleGetActivity handles GET /api/v1/courses/{id}/activity
func (s *Server) handleGetActivity(w http.ResponseWriter, r *http.Request) {
	if s.deps.Activity == nil {
		writeJSONError(w, r, http.StatusNotImplemented, "not_implemented", "Activity is not enabled")
		return
	}
	a, ok := s.deps.Activity.Get(mux.Vars(r)["id"])
	if !ok {
		writeJSONError(w, r, http.StatusNotFound, "not_found", "No activity recorded for this course")
		return
	}
	writeJSON(w, r, http.StatusOK, a)
}

// ══════════════════════════════════════════════════════════════════════════════
// STUDY DAYS
// ══════════════════════════════════════════════════════════════════════════════

// handleGetCurrentDay handles GET /api/v1/courses/{id}/day
func (s *Server) handleGetCurrentDay(w http.ResponseWriter, r *http.Request) {
	day, err := s.deps.GetCurrentDay.Handle(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeDomainError(w, r, "get_current_day", err)
		return
	}
	writeJSON(w, r, http.StatusOK, day)
}

type prepareDayResponse struct {
	Prepared bool           `json:"prepared"`
	Finished bool           `json:"finished"`
	Day      *query.DayView `json:"day,omitempty"`
}

// handlePrepareNextDay handles POST /api/v1/courses/{id}/days
func (s *Server) handlePrepareNextDay(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.PrepareNextDay.Handle(r.Context(), command.PrepareNextDayCommand{
		CourseID:        mux.Vars(r)["id"],
		OnlyIfCompleted: getQueryParamBool(r, "only_if_completed"),
	})
	if err != nil {
		s.writeDomainError(w, r, "prepare_next_day", err)
		return
	}

	resp := prepareDayResponse{Prepared: !res.Skipped, Finished: res.Finished}
	if day, err := query.NewDayView(res.Course); err == nil {
		resp.Day = &day
	}
	status := http.StatusCreated
	if res.Skipped {
		status = http.StatusOK
	}
	writeJSON(w, r, status, resp)
}

type recordReviewsRequest struct {
	Count int `json:"count"`
}

type recordReviewsResponse struct {
	Recorded    int `json:"recorded"`
	ReviewsLeft int `json:"reviews_left"`
}

// handleRecordReviews handles POST /api/v1/courses/{id}/day/reviews
func (s *Server) handleRecordReviews(w http.ResponseWriter, r *http.Request) {
	var req recordReviewsRequest
	if !s.decode(w, r, &req) {
		return
	}
	res, err := s.deps.RecordReviews.Handle(r.Context(), command.RecordReviewsCommand{
		CourseID: mux.Vars(r)["id"],
		Count:    req.Count,
	})
	if err != nil {
		s.writeDomainError(w, r, "record_reviews", err)
		return
	}
	writeJSON(w, r, http.StatusOK, recordReviewsResponse{
		Recorded:    res.Recorded,
		ReviewsLeft: res.Course.CurrentDay().ReviewsLeft(),
	})
}

// handleCompleteDay handles POST /api/v1/courses/{id}/day/complete
func (s *Server) handleCompleteDay(w http.ResponseWriter, r *http.Request) {
	c, err := s.deps.CompleteDay.Handle(r.Context(), command.CompleteDayCommand{CourseID: mux.Vars(r)["id"]})
	if err != nil {
		s.writeDomainError(w, r, "complete_day", err)
		return
	}
	writeJSON(w, r, http.StatusOK, c.Progress())
}

// ══════════════════════════════════════════════════════════════════════════════
// SETTINGS
// ══════════════════════════════════════════════════════════════════════════════

type addRepsRequest struct {
	Reps int `json:"reps"`
}

// handleAddReps handles POST /api/v1/courses/{id}/reps
func (s *Server) handleAddReps(w http.ResponseWriter, r *http.Request) {
	var req addRepsRequest
	if !s.decode(w, r, &req) {
		return
	}
	c, err := s.deps.AddReps.Handle(r.Context(), command.AddRepsCommand{CourseID: mux.Vars(r)["id"], Reps: req.Reps})
	if err != nil {
		s.writeDomainError(w, r, "add_reps", err)
		return
	}
	writeJSON(w, r, http.StatusOK, c.Progress())
}

type setCursorRequest struct {
	SentenceIndex int `json:"sentence_index"`
}

// handleSetCursor handles PUT /api/v1/courses/{id}/cursor
func (s *Server) handleSetCursor(w http.ResponseWriter, r *http.Request) {
	var req setCursorRequest
	if !s.decode(w, r, &req) {
		return
	}
	c, err := s.deps.SetStartingSentence.Handle(r.Context(), command.SetStartingSentenceCommand{
		CourseID:      mux.Vars(r)["id"],
		SentenceIndex: req.SentenceIndex,
	})
	if err != nil {
		s.writeDomainError(w, r, "set_starting_sentence", err)
		return
	}
	writeJSON(w, r, http.StatusOK, c.Progress())
}

// pauseFromMillis converts a client pause, rejecting values the domain would refuse
// before they can overflow a time.Duration.
func pauseFromMillis(ms int64) (time.Duration, error) {
	if ms < 0 || ms > course.MaxPause.Milliseconds() {
		return 0, shared.ErrPauseOutOfRange
	}
	return time.Duration(ms) * time.Millisecond, nil
}

type setPauseRequest struct {
	PauseMillis int64 `json:"pause_millis"`
}

// handleSetPause handles PUT /api/v1/courses/{id}/pause
func (s *Server) handleSetPause(w http.ResponseWriter, r *http.Request) {
	var req setPauseRequest
	if !s.decode(w, r, &req) {
		return
	}
	pause, err := pauseFromMillis(req.PauseMillis)
	if err != nil {
		s.writeDomainError(w, r, "set_pause", err)
		return
	}
	c, err := s.deps.SetPause.Handle(r.Context(), command.SetPauseCommand{
		CourseID: mux.Vars(r)["id"],
		Pause:    pause,
	})
	if err != nil {
		s.writeDomainError(w, r, "set_pause", err)
		return
	}
	writeJSON(w, r, http.StatusOK, setPauseRequest{PauseMillis: c.Pause().Milliseconds()})
}

// ══════════════════════════════════════════════════════════════════════════════
// CONTENT
// ══════════════════════════════════════════════════════════════════════════════

// handleListLanguages handles GET /api/v1/languages
func (s *Server) handleListLanguages(w http.ResponseWriter, r *http.Request) {
	langs, err := s.deps.ListLanguages.Handle(r.Context())
	if err != nil {
		s.writeDomainError(w, r, "list_languages", err)
		return
	}
	writeJSONWithMeta(w, r, http.StatusOK, langs, &ResponseMeta{Count: len(langs)})
}

type savePackRequest struct {
	LanguageName string             `json:"language_name"`
	Sentences    []content.Sentence `json:"sentences"`
}

type savePackResponse struct {
	ID        string `json:"id"`
	Language  string `json:"language"`
	Book      string `json:"book"`
	Sentences int    `json:"sentences"`
}

// handleSavePack handles PUT /api/v1/languages/{language}/packs/{book}
func (s *Server) handleSavePack(w http.ResponseWriter, r *http.Request) {
	var req savePackRequest
	if !s.decode(w, r, &req) {
		return
	}
	vars := mux.Vars(r)
	pack, err := s.deps.SavePack.Handle(r.Context(), command.SavePackCommand{
		Language:     vars["language"],
		LanguageName: req.LanguageName,
		Book:         vars["book"],
		Sentences:    req.Sentences,
	})
	if err != nil {
		s.writeDomainError(w, r, "save_pack", err)
		return
	}
	writeJSON(w, r, http.StatusOK, savePackResponse{
		ID:        pack.ID,
		Language:  string(pack.Language),
		Book:      pack.Book,
		Sentences: pack.SentenceCount(),
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// DECODING
// ══════════════════════════════════════════════════════════════════════════════

// decode reads a JSON body into v and writes a 400 on failure. An empty body
// leaves v untouched.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	err := dec.Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeJSONError(w, r, http.StatusRequestEntityTooLarge, "payload_too_large", "Request body too large")
		return false
	}
	s.writeDomainError(w, r, "decode", shared.WrapError("http", "Decode", shared.ErrInvalidInput, "invalid JSON body", err))
	return false
}
