package http_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aretw0/tendril"
	tendrilhttp "github.com/aretw0/tendril/pkg/adapters/http"
	"github.com/aretw0/tendril/pkg/adapters/memory"
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, opts ...tendril.Option) (*tendril.Engine, http.Handler) {
	t.Helper()
	eng, err := tendril.New(opts...)
	require.NoError(t, err)
	return eng, tendrilhttp.NewHandler(eng, tendrilhttp.WithMaxInputSize(64), tendrilhttp.WithDefaultAuthor("Guest"))
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestPostReply(t *testing.T) {
	_, h := newServer(t)

	w := do(h, http.MethodPost, "/threads/post-1/replies", `{"author":"Ana","avatar":"a.png","body":"Hello"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var node domain.CommentNode
	require.NoError(t, json.NewDecoder(w.Body).Decode(&node))
	assert.Equal(t, "c1", node.ID)
	assert.Equal(t, "Ana", node.AuthorLabel)
	assert.Equal(t, "a.png", node.AvatarRef)
	assert.Equal(t, 0, node.Depth)

	w = do(h, http.MethodPost, "/threads/post-1/replies", `{"parent_id":"c1","body":"Hi\u001b"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	require.NoError(t, json.NewDecoder(w.Body).Decode(&node))
	assert.Equal(t, "c1-1", node.ID)
	assert.Equal(t, "Guest", node.AuthorLabel)
	assert.Equal(t, "Hi", node.Body, "control characters are stripped")
	assert.Equal(t, 1, node.Depth)
}

func TestPostReply_Errors(t *testing.T) {
	_, h := newServer(t)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"Unknown Parent", `{"parent_id":"c9","body":"x"}`, http.StatusNotFound},
		{"Blank Body", `{"body":"   "}`, http.StatusUnprocessableEntity},
		{"Malformed JSON", `{"body":`, http.StatusBadRequest},
		{"Body Over Limit", `{"body":"` + strings.Repeat("a", 65) + `"}`, http.StatusRequestEntityTooLarge},
		{"Request Over Limit", `{"body":"` + strings.Repeat("a", 4096) + `"}`, http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(h, http.MethodPost, "/threads/post-1/replies", tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
			assert.Contains(t, w.Header().Get("Content-Type"), "application/json")
		})
	}

	w := do(h, http.MethodGet, "/threads/post-1", "")
	var resp tendrilhttp.ThreadResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Empty(t, resp.Entries, "rejected replies leave the thread unchanged")
}

func TestPostReply_PersistenceFailure(t *testing.T) {
	journal := memory.NewJournal()
	journal.FailWith(errors.New("downstream unavailable"))
	_, h := newServer(t, tendril.WithCommitSink(journal))

	w := do(h, http.MethodPost, "/threads/post-1/replies", `{"body":"hello"}`)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestGetThread(t *testing.T) {
	eng, h := newServer(t)
	ctx := t.Context()

	a, _ := eng.Reply(ctx, "post-1", domain.RootID, "A", "a")
	_, _ = eng.Reply(ctx, "post-1", domain.RootID, "C", "c")
	_, _ = eng.Reply(ctx, "post-1", a.ID, "B", "b")

	w := do(h, http.MethodGet, "/threads/post-1", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp tendrilhttp.ThreadResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "post-1", resp.Subject)

	var ids []string
	var depths []int
	for _, e := range resp.Entries {
		ids = append(ids, e.Node.ID)
		depths = append(depths, e.Depth)
	}
	assert.Equal(t, []string{"c1", "c1-1", "c2"}, ids)
	assert.Equal(t, []int{0, 1, 0}, depths)

	w = do(h, http.MethodGet, "/threads/empty", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"entries":[]`)

	w = do(h, http.MethodGet, "/threads", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"subjects":["post-1"]}`, w.Body.String())
}

func TestGetThread_ETag(t *testing.T) {
	eng, h := newServer(t)
	ctx := t.Context()
	_, err := eng.Reply(ctx, "post-1", domain.RootID, "A", "a")
	require.NoError(t, err)

	w := do(h, http.MethodGet, "/threads/post-1", "")
	require.Equal(t, http.StatusOK, w.Code)
	etag := w.Header().Get("ETag")
	require.NotEmpty(t, etag)

	req := httptest.NewRequest(http.MethodGet, "/threads/post-1", nil)
	req.Header.Set("If-None-Match", etag)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotModified, w.Code)
	assert.Empty(t, w.Body.String())

	for _, header := range []string{
		`"stale", ` + etag,
		"W/" + etag,
		"*",
	} {
		req := httptest.NewRequest(http.MethodGet, "/threads/post-1", nil)
		req.Header.Set("If-None-Match", header)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		assert.Equal(t, http.StatusNotModified, w.Code, "If-None-Match: %s", header)
	}

	req = httptest.NewRequest(http.MethodGet, "/threads/post-1", nil)
	req.Header.Set("If-None-Match", `"stale", "other"`)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	_, err = eng.Reply(ctx, "post-1", domain.RootID, "B", "b")
	require.NoError(t, err)

	req = httptest.NewRequest(http.MethodGet, "/threads/post-1", nil)
	req.Header.Set("If-None-Match", etag)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code, "a new reply changes the validator")
	assert.NotEqual(t, etag, w.Header().Get("ETag"))
}

func TestPostReply_RateLimited(t *testing.T) {
	eng, err := tendril.New()
	require.NoError(t, err)
	// A rate this low never refills within the test.
	h := tendrilhttp.NewHandler(eng, tendrilhttp.WithReplyRate(0.001, 2))

	for i := 0; i < 2; i++ {
		w := do(h, http.MethodPost, "/threads/post-1/replies", `{"body":"hi"}`)
		require.Equal(t, http.StatusCreated, w.Code)
	}
	w := do(h, http.MethodPost, "/threads/post-1/replies", `{"body":"hi"}`)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))

	// Reads are not throttled.
	w = do(h, http.MethodGet, "/threads/post-1", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPostLike(t *testing.T) {
	eng, h := newServer(t)
	_, _ = eng.Reply(t.Context(), "post-1", domain.RootID, "A", "a")

	assert.Equal(t, http.StatusAccepted, do(h, http.MethodPost, "/threads/post-1/nodes/c1/like", "").Code)
	assert.Equal(t, http.StatusNotFound, do(h, http.MethodPost, "/threads/post-1/nodes/c7/like", "").Code)
}

func TestGetMermaid(t *testing.T) {
	eng, h := newServer(t)
	_, _ = eng.Reply(t.Context(), "post-1", domain.RootID, "A", "a")

	w := do(h, http.MethodGet, "/threads/post-1/mermaid", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/plain; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "thread --> n1")
}

func TestHealthInfoAndMetrics(t *testing.T) {
	eng, err := tendril.New()
	require.NoError(t, err)
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("tendril_likes_total 0\n"))
	})
	h := tendrilhttp.NewHandler(eng, tendrilhttp.WithMetricsHandler(metrics))

	assert.JSONEq(t, `{"status":"ok"}`, do(h, http.MethodGet, "/health", "").Body.String())
	assert.Contains(t, do(h, http.MethodGet, "/info", "").Body.String(), tendril.Version)
	assert.Contains(t, do(h, http.MethodGet, "/metrics", "").Body.String(), "tendril_likes_total")

	w := do(h, http.MethodOptions, "/threads/post-1/replies", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
