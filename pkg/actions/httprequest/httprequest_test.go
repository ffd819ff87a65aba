package httprequest

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/botweaver/botweaver/pkg/models"
)

func TestFactoryRequiresURL(t *testing.T) {
	factory := NewActionFactory()

	_, err := factory.Create(map[string]any{"method": "GET"})
	require.Error(t, err)
}

func TestExecuteDecodesJSONResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status": "ok"}`))
	}))
	defer server.Close()

	factory := NewActionFactory()
	action, err := factory.Create(map[string]any{"url": server.URL})
	require.NoError(t, err)

	result, err := action.Execute(context.Background(), models.ExecutionContext{}, slog.Default())
	require.NoError(t, err)

	resultMap, ok := result.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, resultMap["status_code"])
	assert.Equal(t, map[string]any{"status": "ok"}, resultMap["body"])
}

func TestExecuteNonJSONBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("pong"))
	}))
	defer server.Close()

	factory := NewActionFactory()
	action, err := factory.Create(map[string]any{"url": server.URL})
	require.NoError(t, err)

	result, err := action.Execute(context.Background(), models.ExecutionContext{}, slog.Default())
	require.NoError(t, err)

	resultMap, ok := result.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "pong", resultMap["body"])
}

func TestExecuteTemplatedURLAndBody(t *testing.T) {
	var gotPath, gotBody atomic.Value

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath.Store(r.URL.Path)

		buf, _ := io.ReadAll(r.Body)
		gotBody.Store(string(buf))

		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	factory := NewActionFactory()
	action, err := factory.Create(map[string]any{
		"url":    server.URL + "/users/{{ .user_id }}",
		"method": "POST",
		"body":   `{"text": "{{ .text }}"}`,
	})
	require.NoError(t, err)

	result, err := action.Execute(context.Background(), models.ExecutionContext{
		"user_id": "u-9",
		"text":    "hello",
	}, slog.Default())
	require.NoError(t, err)

	resultMap, ok := result.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, http.StatusCreated, resultMap["status_code"])
	assert.Equal(t, "/users/u-9", gotPath.Load())
	assert.Equal(t, `{"text": "hello"}`, gotBody.Load())
}

func TestExecuteRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		_, _ = w.Write([]byte(`{"ok": true}`))
	}))
	defer server.Close()

	factory := NewActionFactory()
	action, err := factory.Create(map[string]any{
		"url":     server.URL,
		"retries": 3.0,
	})
	require.NoError(t, err)

	result, err := action.Execute(context.Background(), models.ExecutionContext{}, slog.Default())
	require.NoError(t, err)

	resultMap, ok := result.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, resultMap["status_code"])
	assert.Equal(t, int32(2), calls.Load())
}

func TestExecuteUnreachableHost(t *testing.T) {
	factory := NewActionFactory()
	action, err := factory.Create(map[string]any{
		"url": "http://127.0.0.1:1/nothing-listens-here",
	})
	require.NoError(t, err)

	_, err = action.Execute(context.Background(), models.ExecutionContext{}, slog.Default())
	require.Error(t, err)
}
