package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/natibo/natibo/internal/application/command"
	"github.com/natibo/natibo/internal/application/eventhandler"
	"github.com/natibo/natibo/internal/application/query"
	"github.com/natibo/natibo/internal/domain/content"
	"github.com/natibo/natibo/internal/domain/shared"
	"github.com/natibo/natibo/internal/infrastructure/messaging"
	"github.com/natibo/natibo/internal/infrastructure/persistence/memory"
	"github.com/natibo/natibo/internal/infrastructure/persistence/projections"
	"github.com/natibo/natibo/pkg/logger"
)

const testKey = "letmein"

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *APIError       `json:"error"`
}

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testKey), bcrypt.MinCost)
	require.NoError(t, err)

	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	log := logger.Nop()

	bus := messaging.NewInMemoryEventBus(messaging.InMemoryEventBusConfig{Logger: quiet})
	view := projections.NewCourseActivityView()
	require.NoError(t, eventhandler.NewOnCourseEventHandler(view, quiet).Register(bus))

	courses := memory.NewCourseRepository()
	contentRepo := memory.NewContentRepository(nil)
	deps := command.Deps{
		Courses: courses,
		Content: contentRepo,
		Locker:  memory.NewLocker(),
		Events:  bus,
		Logger:  log,
	}
	getCourse := query.NewGetCourseHandler(courses, nil, 0, log)

	cfg := DefaultConfig()
	cfg.RateLimitPerSecond = 0
	cfg.APIKeyHashes = []string{string(hash)}

	s := NewServer(cfg, Dependencies{
		CreateCourse:        command.NewCreateCourseHandler(deps, command.Defaults{SentencesPerDay: 2, ReviewPattern: "2/1"}),
		PrepareNextDay:      command.NewPrepareNextDayHandler(deps),
		RecordReviews:       command.NewRecordReviewsHandler(deps),
		CompleteDay:         command.NewCompleteDayHandler(deps),
		AddReps:             command.NewAddRepsHandler(deps),
		SetStartingSentence: command.NewSetStartingSentenceHandler(deps),
		SetPause:            command.NewSetPauseHandler(deps),
		DeleteCourse:        command.NewDeleteCourseHandler(deps),
		SavePack:            command.NewSavePackHandler(contentRepo, log),
		GetCourse:           getCourse,
		GetCurrentDay:       query.NewGetCurrentDayHandler(getCourse),
		GetProgress:         query.NewGetProgressHandler(getCourse),
		ListCourses:         query.NewListCoursesHandler(courses),
		ListLanguages:       query.NewListLanguagesHandler(contentRepo),
		Activity:            view,
		Logger:              log,
	})
	return s.Handler()
}

func call(t *testing.T, h http.Handler, method, path string, body interface{}, authed bool) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if authed {
		req.Header.Set("X-API-Key", testKey)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	if rec.Code != http.StatusNoContent {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec, env
}

func decodeData(t *testing.T, env envelope, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(env.Data, v))
}

func sentences(lang string, n int) []content.Sentence {
	out := make([]content.Sentence, n)
	for i := range out {
		out[i] = content.Sentence{Index: i + 1, Text: fmt.Sprintf("%s sentence %d", lang, i+1)}
	}
	return out
}

func seedPacks(t *testing.T, h http.Handler) {
	t.Helper()
	for _, lang := range []string{"EN", "ES"} {
		rec, _ := call(t, h, http.MethodPut, "/api/v1/languages/"+lang+"/packs/A",
			map[string]interface{}{"sentences": sentences(lang, 5)}, true)
		require.Equal(t, http.StatusOK, rec.Code)
	}
}

func createCourse(t *testing.T, h http.Handler) string {
	t.Helper()
	rec, env := call(t, h, http.MethodPost, "/api/v1/courses", map[string]interface{}{
		"languages": []string{"EN", "ES"},
		"books":     []string{"A"},
	}, true)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created createCourseResponse
	decodeData(t, env, &created)
	return created.Course.ID
}

// ══════════════════════════════════════════════════════════════════════════════
// TESTS
// ══════════════════════════════════════════════════════════════════════════════

func TestServer_StudyFlow(t *testing.T) {
	h := newTestServer(t)
	seedPacks(t, h)

	rec, env := call(t, h, http.MethodGet, "/api/v1/languages", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	var langs []query.LanguageView
	decodeData(t, env, &langs)
	require.Len(t, langs, 2)
	assert.Equal(t, []string{"A"}, langs[0].Books)

	id := createCourse(t, h)

	rec, env = call(t, h, http.MethodGet, "/api/v1/courses/"+id+"/day", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	var day query.DayView
	decodeData(t, env, &day)
	assert.Equal(t, 1, day.DayNumber)
	assert.Equal(t, 2, day.NewSentences)
	require.Positive(t, day.TotalReviews)

	rec, env = call(t, h, http.MethodPost, "/api/v1/courses/"+id+"/day/reviews", map[string]int{"count": day.TotalReviews}, true)
	require.Equal(t, http.StatusOK, rec.Code)
	var reviewed recordReviewsResponse
	decodeData(t, env, &reviewed)
	assert.Equal(t, day.TotalReviews, reviewed.Recorded)
	assert.Equal(t, 0, reviewed.ReviewsLeft)

	rec, _ = call(t, h, http.MethodPost, "/api/v1/courses/"+id+"/day/complete", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = call(t, h, http.MethodPost, "/api/v1/courses/"+id+"/day/complete", nil, true)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, env = call(t, h, http.MethodPost, "/api/v1/courses/"+id+"/days?only_if_completed=true", nil, true)
	require.Equal(t, http.StatusCreated, rec.Code)
	var prepared prepareDayResponse
	decodeData(t, env, &prepared)
	assert.True(t, prepared.Prepared)
	require.NotNil(t, prepared.Day)
	assert.Equal(t, 2, prepared.Day.DayNumber)
	assert.Equal(t, 1, prepared.Day.ReviewSets)

	rec, env = call(t, h, http.MethodGet, "/api/v1/courses/"+id+"/progress", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	var progress struct {
		DayNumber        int `json:"day_number"`
		NumSentencesSeen int `json:"num_sentences_seen"`
		Cursor           int `json:"cursor"`
	}
	decodeData(t, env, &progress)
	assert.Equal(t, 2, progress.DayNumber)
	assert.Equal(t, 2, progress.NumSentencesSeen)
	assert.Equal(t, 4, progress.Cursor)

	rec, env = call(t, h, http.MethodGet, "/api/v1/courses/"+id+"/activity", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	var activity projections.CourseActivity
	decodeData(t, env, &activity)
	assert.Equal(t, 2, activity.DaysPrepared)
	assert.Equal(t, 1, activity.DaysCompleted)
	assert.Equal(t, day.TotalReviews, activity.Reviews)
}

func TestServer_Settings(t *testing.T) {
	h := newTestServer(t)
	seedPacks(t, h)
	id := createCourse(t, h)

	rec, env := call(t, h, http.MethodPut, "/api/v1/courses/"+id+"/pause", map[string]int{"pause_millis": 750}, true)
	require.Equal(t, http.StatusOK, rec.Code)
	var pause setPauseRequest
	decodeData(t, env, &pause)
	assert.Equal(t, int64(750), pause.PauseMillis)

	for _, ms := range []int64{-1, 10*60*1000 + 1, 9_300_000_000_000} {
		rec, _ = call(t, h, http.MethodPut, "/api/v1/courses/"+id+"/pause", map[string]int64{"pause_millis": ms}, true)
		assert.Equal(t, http.StatusBadRequest, rec.Code, ms)
	}

	rec, _ = call(t, h, http.MethodPut, "/api/v1/courses/"+id+"/cursor", map[string]int64{"sentence_index": 1 << 62}, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = call(t, h, http.MethodPut, "/api/v1/courses/"+id+"/cursor", map[string]int{"sentence_index": 0}, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = call(t, h, http.MethodPut, "/api/v1/courses/"+id+"/cursor", map[string]int{"sentence_index": 5}, true)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = call(t, h, http.MethodPost, "/api/v1/courses/"+id+"/reps", map[string]int{"reps": -1}, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = call(t, h, http.MethodPost, "/api/v1/courses/"+id+"/reps", map[string]int{"reps": 3}, true)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, env = call(t, h, http.MethodGet, "/api/v1/courses", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []query.CourseSummary
	decodeData(t, env, &list)
	require.Len(t, list, 1)
	assert.Equal(t, 3, list[0].Progress.TotalReps)

	rec, _ = call(t, h, http.MethodDelete, "/api/v1/courses/"+id, nil, true)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec, env = call(t, h, http.MethodGet, "/api/v1/courses/"+id, nil, false)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "not_found", env.Error.Code)
}

func TestServer_RequiresAPIKeyForWrites(t *testing.T) {
	h := newTestServer(t)

	rec, env := call(t, h, http.MethodPost, "/api/v1/courses", map[string]interface{}{}, false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "missing_api_key", env.Error.Code)

	rec, _ = call(t, h, http.MethodGet, "/api/v1/courses", nil, false)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_ErrorMapping(t *testing.T) {
	h := newTestServer(t)

	rec, _ := call(t, h, http.MethodPost, "/api/v1/courses", map[string]interface{}{
		"languages": []string{"EN"},
		"books":     []string{"A"},
	}, true)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = call(t, h, http.MethodPost, "/api/v1/courses", map[string]interface{}{"books": []string{"A"}}, true)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec, _ = call(t, h, http.MethodPost, "/api/v1/courses", map[string]interface{}{"unknown": true}, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = call(t, h, http.MethodGet, "/api/v1/courses/missing/day", nil, false)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = call(t, h, http.MethodGet, "/api/v1/nothing", nil, false)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_Health(t *testing.T) {
	h := newTestServer(t)
	for _, path := range []string{"/health", "/ready", "/live", "/"} {
		rec, env := call(t, h, http.MethodGet, path, nil, false)
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.True(t, env.Success, path)
		assert.NotEmpty(t, rec.Header().Get("X-Request-ID"), path)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{shared.ErrCourseNotFound, http.StatusNotFound},
		{shared.ErrStaleCourse, http.StatusConflict},
		{shared.ErrCourseLocked, http.StatusConflict},
		{shared.ErrCourseAlreadyExists, http.StatusConflict},
		{shared.ErrNoCurrentDay, http.StatusConflict},
		{shared.ErrInvalidBatchSize, http.StatusUnprocessableEntity},
		{shared.ErrInvalidSentence, http.StatusBadRequest},
		{shared.ErrInvalidReps, http.StatusBadRequest},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		got, _ := statusFor(tt.err)
		assert.Equal(t, tt.want, got, tt.err.Error())
	}
}
