package log

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lastEntry(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &entry))
	return entry
}

func TestNewWithWriter_Fields(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(Config{Level: "debug", ServiceName: "chat", InstanceID: "gw-1"}, &buf)
	l.Debug().Msg("hello")

	entry := lastEntry(t, &buf)
	assert.Equal(t, "chat", entry[FieldService])
	assert.Equal(t, "gw-1", entry[FieldInstance])
	assert.Equal(t, "hello", entry["message"])
}

func TestParseLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(Config{Level: "warn"}, &buf)
	l.Info().Msg("dropped")
	assert.Empty(t, buf.String())

	off := NewWithWriter(Config{Level: "off"}, &buf)
	off.Error().Msg("dropped too")
	assert.Empty(t, buf.String())
}

func TestWithConnection(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithLogger(context.Background(), NewWithWriter(Config{Level: "info"}, &buf))
	ctx = WithConnection(ctx, "conn-1")

	l := Ctx(ctx)
	l.Info().Msg("joined")
	assert.Equal(t, "conn-1", lastEntry(t, &buf)[FieldConnectionID])
}

func TestGinMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	r := gin.New()
	r.Use(GinMiddleware(NewWithWriter(Config{Level: "info"}, &buf)))
	r.GET("/api/v1/watch-groups/:room_id/messages", func(c *gin.Context) {
		l := Ctx(c.Request.Context())
		l.Info().Msg("inside handler")
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/watch-groups/g1/messages", nil)
	req.Header.Set("X-Request-ID", "req-42")
	r.ServeHTTP(w, req)

	assert.Equal(t, "req-42", w.Header().Get("X-Request-ID"))
	entry := lastEntry(t, &buf)
	assert.Equal(t, "request completed", entry["message"])
	assert.Equal(t, "req-42", entry[FieldRequestID])
	assert.Equal(t, "g1", entry[FieldRoomID])
	assert.EqualValues(t, http.StatusNoContent, entry[FieldStatus])
	assert.Contains(t, buf.String(), `"message":"inside handler"`)
}
