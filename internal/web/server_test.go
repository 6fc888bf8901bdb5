package web

import (
	"bytes"
	"encoding/json"
	"image/color"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"image-compressor-go/internal/config"
	"image-compressor-go/internal/logger"

	"github.com/disintegration/imaging"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.DefaultConfig()
	require.NoError(t, cfg.Validate())
	return NewServer(cfg, logger.Discard(), nil)
}

func doJSON(t *testing.T, s *Server, method, path string, body interface{}) (*httptest.ResponseRecorder, APIResponse) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	var resp APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec, resp
}

func TestStatusIdle(t *testing.T) {
	s := newTestServer(t)
	rec, resp := doJSON(t, s, http.MethodGet, "/api/status", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, false, data["running"])
	assert.Nil(t, data["summary"])
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, imaging.Save(imaging.New(4, 4, color.Black), filepath.Join(dir, "a.jpg")))
	require.NoError(t, imaging.Save(imaging.New(4, 4, color.Black), filepath.Join(dir, "b.png")))

	s := newTestServer(t)
	rec, resp := doJSON(t, s, http.MethodPost, "/api/discover", DiscoverRequest{Directory: dir})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []interface{}{filepath.Join(dir, "a.jpg")}, resp.Data)
}

func TestDiscoverValidation(t *testing.T) {
	s := newTestServer(t)

	rec, resp := doJSON(t, s, http.MethodPost, "/api/discover", DiscoverRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, resp.Success)

	rec, _ = doJSON(t, s, http.MethodPost, "/api/discover", DiscoverRequest{Directory: filepath.Join(t.TempDir(), "nope")})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCompressValidation(t *testing.T) {
	s := newTestServer(t)

	rec, resp := doJSON(t, s, http.MethodPost, "/api/compress", CompressRequest{
		InputDirectory: t.TempDir(),
		Dimension:      "abcx100",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, resp.Error, "scale.dimension")

	rec, _ = doJSON(t, s, http.MethodPost, "/api/compress", CompressRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCompressRunsBatch(t *testing.T) {
	in := t.TempDir()
	out := filepath.Join(t.TempDir(), "out")
	require.NoError(t, imaging.Save(imaging.New(40, 20, color.White), filepath.Join(in, "a.jpg")))

	s := newTestServer(t)
	ratio := 0.5
	rec, resp := doJSON(t, s, http.MethodPost, "/api/compress", CompressRequest{
		InputDirectory:  in,
		OutputDirectory: out,
		Quality:         "best",
		Ratio:           &ratio,
	})
	require.Equal(t, http.StatusOK, rec.Code, resp.Error)
	s.Wait()

	img, err := imaging.Open(filepath.Join(out, "a.jpg"))
	require.NoError(t, err)
	assert.Equal(t, 20, img.Bounds().Dx())
	assert.Equal(t, 10, img.Bounds().Dy())

	_, resp = doJSON(t, s, http.MethodGet, "/api/status", nil)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, false, data["running"])
	summary := data["summary"].(map[string]interface{})
	assert.EqualValues(t, 1, summary["saved"])
	assert.EqualValues(t, 0, summary["failed"])

	_, resp = doJSON(t, s, http.MethodGet, "/api/statistics", nil)
	assert.NotNil(t, resp.Data)
}

func TestStatisticsBeforeAnyBatch(t *testing.T) {
	s := newTestServer(t)
	rec, resp := doJSON(t, s, http.MethodGet, "/api/statistics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, resp.Data)
}

func TestBroadcastIsSafeForConcurrentBatches(t *testing.T) {
	s := newTestServer(t)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool {
		s.wsMutex.Lock()
		defer s.wsMutex.Unlock()
		return len(s.wsClients) == 1
	}, time.Second, 10*time.Millisecond)

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				s.broadcastWSMessage("compress_started", map[string]int{"batch": i})
			} else {
				s.broadcastWSMessage("compress_completed", map[string]int{"batch": i})
			}
		}(i)
	}

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for i := 0; i < n; i++ {
		var msg WSMessage
		require.NoError(t, conn.ReadJSON(&msg))
		assert.Contains(t, []string{"compress_started", "compress_completed"}, msg.Type)
	}
	wg.Wait()
}
