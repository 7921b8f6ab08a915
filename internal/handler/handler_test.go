package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math/rand/v2"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SamVia/quizzz/internal/explain"
	appI18n "github.com/SamVia/quizzz/internal/i18n"
	"github.com/SamVia/quizzz/internal/model"
	"github.com/SamVia/quizzz/internal/quiz"
	"github.com/SamVia/quizzz/internal/store"
	"github.com/SamVia/quizzz/internal/topics"
)

const topicCSV = "prompt,optionA,optionB,optionC,solution,rationale\n" +
	"Q1?,right1,wrong1a,wrong1b,A,r1\n" +
	"Q2?,right2,wrong2a,wrong2b,A,r2\n" +
	"Q3?,right3,wrong3a,wrong3b,A,r3\n"

type fakeExplainer struct {
	text  string
	err   error
	calls int
	last  explain.Request
}

func (f *fakeExplainer) Explain(_ context.Context, req explain.Request) (string, error) {
	f.calls++
	f.last = req
	return f.text, f.err
}

type testServer struct {
	t      *testing.T
	router http.Handler
	dir    string
	csrf   string
}

func newTestServer(t *testing.T, e Explainer) *testServer {
	t.Helper()
	require.NoError(t, appI18n.Init("en"))

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "storia_romana.csv"), []byte(topicCSV), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.csv"), []byte("prompt,optionA\nQ,a\n"), 0o644))

	db, err := store.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	_, err = topics.Sync(db, dir)
	require.NoError(t, err)

	ctrl := quiz.NewController(
		quiz.WithRand(rand.New(rand.NewPCG(1, 2))),
		quiz.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	h, err := New(db, e, model.AppConfig{Dir: dir}, ctrl)
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(appI18n.Middleware("en"))
	r.Use(h.BasePathMiddleware)
	h.Routes(r)

	ts := &testServer{t: t, router: r, dir: dir}
	ts.csrf = ts.token()
	return ts
}

func (ts *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) get(path string) *httptest.ResponseRecorder {
	return ts.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (ts *testServer) token() string {
	ts.t.Helper()
	rec := ts.get("/")
	require.Equal(ts.t, http.StatusOK, rec.Code)
	for _, c := range rec.Result().Cookies() {
		if c.Name == csrfCookieName {
			return c.Value
		}
	}
	ts.t.Fatal("no csrf cookie issued")
	return ""
}

func (ts *testServer) post(path string, form url.Values, headers ...string) *httptest.ResponseRecorder {
	if form == nil {
		form = url.Values{}
	}
	form.Set("csrf_token", ts.csrf)
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: ts.csrf})
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	return ts.do(req)
}

func (ts *testServer) state() stateResponse {
	ts.t.Helper()
	rec := ts.get("/api/state")
	require.Equal(ts.t, http.StatusOK, rec.Code)
	var st stateResponse
	require.NoError(ts.t, json.Unmarshal(rec.Body.Bytes(), &st))
	return st
}

func (ts *testServer) topicID(title string) int64 {
	ts.t.Helper()
	for _, tp := range ts.state().Topics {
		if tp.Title == title {
			return tp.ID
		}
	}
	ts.t.Fatalf("topic %q not found", title)
	return 0
}

func (ts *testServer) selectTopic(title string) quiz.View {
	ts.t.Helper()
	rec := ts.post("/topic", url.Values{"topic": {strconv.FormatInt(ts.topicID(title), 10)}})
	require.Equal(ts.t, http.StatusSeeOther, rec.Code)
	return ts.state().State
}

// choiceIndex returns the index of the shown option that is (or is not) correct.
func choiceIndex(v quiz.View, correct bool) int {
	for _, o := range v.Options {
		if strings.HasPrefix(o.Text, "right") == correct {
			return o.Index
		}
	}
	return -1
}

func (ts *testServer) answer(v quiz.View, correct bool) *httptest.ResponseRecorder {
	return ts.post("/answer", url.Values{
		"serial": {strconv.Itoa(v.Serial)},
		"choice": {strconv.Itoa(choiceIndex(v, correct))},
	})
}

func TestIndexWithoutTopic(t *testing.T) {
	ts := newTestServer(t, nil)
	rec := ts.get("/")
	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Pick a topic")
	assert.Contains(t, body, "Storia Romana")
	assert.Contains(t, body, "Broken")
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t, nil)
	rec := ts.get("/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestCSRFRequired(t *testing.T) {
	ts := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/wrong/clear", nil)
	assert.Equal(t, http.StatusForbidden, ts.do(req).Code)

	form := url.Values{"csrf_token": {"forged"}}
	req = httptest.NewRequest(http.MethodPost, "/wrong/clear", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: ts.csrf})
	assert.Equal(t, http.StatusForbidden, ts.do(req).Code)

	assert.Equal(t, http.StatusSeeOther, ts.post("/wrong/clear", nil).Code)
}

func TestVerifyCSRF(t *testing.T) {
	tests := []struct {
		name    string
		cookie  string
		form    string
		header  string
		wantErr error
	}{
		{name: "form field", cookie: "abc", form: "abc"},
		{name: "header", cookie: "abc", header: "abc"},
		{name: "no cookie", form: "abc", wantErr: errCSRFMissing},
		{name: "no token", cookie: "abc", wantErr: errCSRFMissing},
		{name: "mismatch", cookie: "abc", form: "abd", wantErr: errCSRFMismatch},
		{name: "prefix", cookie: "abc", header: "ab", wantErr: errCSRFMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := url.Values{}
			if tt.form != "" {
				form.Set("csrf_token", tt.form)
			}
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			if tt.header != "" {
				req.Header.Set("X-CSRF-Token", tt.header)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: tt.cookie})
			}

			token, err := verifyCSRF(req)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, token)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.cookie, token)
		})
	}
}

func TestSelectTopic(t *testing.T) {
	ts := newTestServer(t, nil)
	v := ts.selectTopic("Storia Romana")

	assert.Equal(t, "Storia Romana", v.Topic)
	assert.True(t, v.HasQuestion)
	assert.Equal(t, "selecting", v.Phase)
	assert.Equal(t, "normal", v.Mode)
	require.Len(t, v.Options, 3)
	for _, o := range v.Options {
		assert.Equal(t, quiz.ClassNone, o.Class)
	}
	assert.Empty(t, v.CorrectAnswer, "answer hidden before submitting")

	rec := ts.get("/")
	assert.Contains(t, rec.Body.String(), v.Prompt)
}

func TestAnswerTwiceCountsOnce(t *testing.T) {
	ts := newTestServer(t, nil)
	v := ts.selectTopic("Storia Romana")

	assert.Equal(t, http.StatusSeeOther, ts.answer(v, true).Code)
	assert.Equal(t, http.StatusSeeOther, ts.answer(v, true).Code)
	assert.Equal(t, http.StatusSeeOther, ts.answer(v, false).Code)

	st := ts.state().State
	assert.Equal(t, 1, st.Seen)
	assert.Equal(t, 1, st.Correct)
	assert.Equal(t, 0, st.Wrong)
	assert.Equal(t, "answered", st.Phase)
	assert.True(t, st.AnsweredCorrectly)
	assert.Equal(t, 0, st.WrongCount)
}

func TestNextAndStaleEvents(t *testing.T) {
	ts := newTestServer(t, nil)
	v := ts.selectTopic("Storia Romana")
	serial := strconv.Itoa(v.Serial)

	ts.answer(v, false)
	// Skip is only valid while selecting.
	ts.post("/skip", url.Values{"serial": {serial}})
	assert.Equal(t, v.Serial, ts.state().State.Serial)

	ts.post("/next", url.Values{"serial": {serial}})
	next := ts.state().State
	assert.Equal(t, v.Serial+1, next.Serial)
	assert.Equal(t, "selecting", next.Phase)

	// A replayed next with the old serial does nothing.
	ts.post("/next", url.Values{"serial": {serial}})
	assert.Equal(t, next.Serial, ts.state().State.Serial)

	ts.post("/skip", url.Values{"serial": {strconv.Itoa(next.Serial)}})
	assert.Equal(t, next.Serial+1, ts.state().State.Serial)
}

func TestWrongAnswerThenPractice(t *testing.T) {
	ts := newTestServer(t, nil)
	v := ts.selectTopic("Storia Romana")
	ts.answer(v, false)

	st := ts.state().State
	assert.Equal(t, 1, st.WrongCount)
	assert.True(t, strings.HasPrefix(st.CorrectAnswer, "right"), "correct answer shown after a miss")

	ts.post("/mode", url.Values{"mode": {"practice"}})
	st = ts.state().State
	assert.Equal(t, "practice", st.Mode)
	assert.True(t, st.HasQuestion)
	assert.Equal(t, v.Prompt, st.Prompt)

	ts.answer(st, true)
	st = ts.state().State
	assert.Equal(t, 0, st.WrongCount, "correct practice answer prunes the mistake")

	ts.post("/next", url.Values{"serial": {strconv.Itoa(st.Serial)}})
	st = ts.state().State
	assert.Equal(t, "normal", st.Mode)
	assert.Equal(t, quiz.NoticePracticeComplete, st.Notice)
}

func TestPracticeWithoutMistakes(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.selectTopic("Storia Romana")
	ts.post("/mode", url.Values{"mode": {"practice"}})

	st := ts.state().State
	assert.Equal(t, "normal", st.Mode)
	assert.Equal(t, quiz.NoticeNoMistakes, st.Notice)
	assert.Contains(t, ts.get("/").Body.String(), "No mistakes saved yet.")
}

func TestExamMode(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.selectTopic("Storia Romana")
	ts.post("/mode", url.Values{"mode": {"exam"}})

	st := ts.state().State
	assert.Equal(t, "exam", st.Mode)
	assert.Equal(t, 33, st.ExamTotal)
	assert.Equal(t, 0, st.ExamDone)

	ts.post("/skip", url.Values{"serial": {strconv.Itoa(st.Serial)}})
	st = ts.state().State
	assert.Equal(t, 1, st.ExamDone)
	assert.Zero(t, st.ExamScore)

	ts.answer(st, true)
	st = ts.state().State
	assert.Equal(t, 2, st.ExamDone)
	assert.InDelta(t, 1.0, st.ExamScore, 1e-9)

	ts.post("/exam/restart", nil)
	st = ts.state().State
	assert.Equal(t, 0, st.ExamDone)
	assert.Zero(t, st.ExamScore)
	assert.Zero(t, st.Seen)
	assert.Zero(t, st.Correct)
	assert.Zero(t, st.Wrong)
	assert.True(t, st.HasQuestion)
}

func TestRestartRoundAndClear(t *testing.T) {
	ts := newTestServer(t, nil)
	v := ts.selectTopic("Storia Romana")
	ts.answer(v, false)

	ts.post("/round/restart", nil)
	st := ts.state().State
	assert.Equal(t, 0, st.Seen)
	assert.Equal(t, 1, st.WrongCount, "restart keeps mistakes")
	assert.Equal(t, "selecting", st.Phase)

	ts.post("/wrong/clear", nil)
	assert.Equal(t, 0, ts.state().State.WrongCount)
}

func TestBrokenTopic(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.selectTopic("Storia Romana")
	ts.selectTopic("Broken")

	st := ts.state()
	assert.Contains(t, st.TopicError, "missing columns")
	assert.False(t, st.State.HasQuestion)
	assert.Empty(t, st.State.Topic)
	assert.Contains(t, ts.get("/").Body.String(), "This file could not be loaded")
}

func TestInvalidInput(t *testing.T) {
	ts := newTestServer(t, nil)
	assert.Equal(t, http.StatusBadRequest, ts.post("/topic", url.Values{"topic": {"abc"}}).Code)
	assert.Equal(t, http.StatusNotFound, ts.post("/topic", url.Values{"topic": {"999"}}).Code)
	assert.Equal(t, http.StatusBadRequest, ts.post("/mode", url.Values{"mode": {"bogus"}}).Code)
	assert.Equal(t, http.StatusBadRequest, ts.post("/next", nil).Code)

	v := ts.selectTopic("Storia Romana")
	rec := ts.post("/answer", url.Values{"serial": {strconv.Itoa(v.Serial)}, "choice": {"9"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, ts.state().State.Seen)
}

func TestHTMXRedirect(t *testing.T) {
	ts := newTestServer(t, nil)
	rec := ts.post("/wrong/clear", nil, "HX-Request", "true")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("HX-Redirect"))
}

func TestExplainDisabled(t *testing.T) {
	ts := newTestServer(t, nil)
	v := ts.selectTopic("Storia Romana")
	ts.answer(v, true)
	rec := ts.post("/explain", url.Values{"serial": {strconv.Itoa(v.Serial)}})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, ts.state().Explainer)
}

func TestExplain(t *testing.T) {
	fake := &fakeExplainer{text: "Because it is."}
	ts := newTestServer(t, fake)
	v := ts.selectTopic("Storia Romana")

	// Not answered yet: nothing to explain.
	ts.post("/explain", url.Values{"serial": {strconv.Itoa(v.Serial)}})
	assert.Equal(t, 0, fake.calls)

	ts.answer(v, false)
	ts.post("/explain", url.Values{"serial": {strconv.Itoa(v.Serial)}})
	require.Equal(t, 1, fake.calls)
	assert.Equal(t, v.Prompt, fake.last.Prompt)
	assert.True(t, strings.HasPrefix(fake.last.Selected, "wrong"))
	assert.True(t, strings.HasPrefix(fake.last.CorrectAnswer, "right"))
	assert.Len(t, fake.last.Options, 3)
	assert.Equal(t, "en", fake.last.Lang)

	st := ts.state()
	assert.True(t, st.Explainer)
	assert.Equal(t, "Because it is.", st.State.Explanation)

	// Already explained: no second call.
	ts.post("/explain", url.Values{"serial": {strconv.Itoa(v.Serial)}})
	assert.Equal(t, 1, fake.calls)
}

func TestExplainFailureFlash(t *testing.T) {
	fake := &fakeExplainer{err: errors.New("boom")}
	ts := newTestServer(t, fake)
	v := ts.selectTopic("Storia Romana")
	ts.answer(v, true)
	ts.post("/explain", url.Values{"serial": {strconv.Itoa(v.Serial)}})

	body := ts.get("/").Body.String()
	assert.Contains(t, body, "The explanation service is not available")
	assert.NotContains(t, ts.get("/").Body.String(), "The explanation service is not available", "flash is shown once")
	assert.Empty(t, ts.state().State.Explanation)
}

func TestRescan(t *testing.T) {
	ts := newTestServer(t, nil)
	before := ts.state().Bank
	assert.Equal(t, 3, before.Questions)
	assert.False(t, before.LastSync.IsZero())

	require.NoError(t, os.WriteFile(filepath.Join(ts.dir, "geografia.csv"), []byte(topicCSV), 0o644))

	assert.Equal(t, http.StatusSeeOther, ts.post("/topics/rescan", nil).Code)
	st := ts.state()
	assert.Len(t, st.Topics, 3)
	assert.Equal(t, 6, st.Bank.Questions)
	assert.False(t, st.Bank.LastSync.Before(before.LastSync))
}

func (ts *testServer) upload(name, content string, fields url.Values) *httptest.ResponseRecorder {
	ts.t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(ts.t, mw.WriteField("csrf_token", ts.csrf))
	for k, vs := range fields {
		for _, v := range vs {
			require.NoError(ts.t, mw.WriteField(k, v))
		}
	}
	fw, err := mw.CreateFormFile("topic_file", name)
	require.NoError(ts.t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(ts.t, err)
	require.NoError(ts.t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/topics/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: ts.csrf})
	return ts.do(req)
}

func TestUpload(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.upload("diritto_privato.csv", topicCSV, nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	_, err := os.Stat(filepath.Join(ts.dir, "diritto_privato.csv"))
	assert.NoError(t, err)
	assert.NotZero(t, ts.topicID("Diritto Privato"))

	rec = ts.upload("bad.csv", "prompt,optionA\nQ,a\n", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	_, err = os.Stat(filepath.Join(ts.dir, "bad.csv"))
	assert.True(t, os.IsNotExist(err))

	rec = ts.upload("notes.txt", "hello", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadExistingName(t *testing.T) {
	ts := newTestServer(t, nil)
	path := filepath.Join(ts.dir, "storia_romana.csv")
	twoQuestions := "prompt,optionA,optionB,optionC,solution\n" +
		"N1?,a,b,c,A\n" +
		"N2?,a,b,c,B\n"

	rec := ts.upload("storia_romana.csv", twoQuestions, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, topicCSV, string(data), "file must be left untouched")

	rec = ts.upload("storia_romana.csv", twoQuestions, url.Values{"replace": {"1"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, twoQuestions, string(data))

	for _, tp := range ts.state().Topics {
		if tp.Title == "Storia Romana" {
			assert.Equal(t, 2, tp.Count)
		}
	}
}
