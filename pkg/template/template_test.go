package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/botweaver/botweaver/pkg/models"
)

func TestRenderSimpleExpression(t *testing.T) {
	data := map[string]any{
		"name":  "John",
		"age":   30,
		"isNew": true,
	}

	result, err := Render("{{ .name }}", data)
	require.NoError(t, err)
	assert.Equal(t, "John", result)

	result, err = Render("{{ .isNew }}", data)
	require.NoError(t, err)
	assert.Equal(t, true, result)

	// Numbers come back as float64, matching JSON decoding.
	result, err = Render("{{ .age }}", data)
	require.NoError(t, err)
	assert.Equal(t, 30.0, result)
}

func TestRenderJSONResult(t *testing.T) {
	data := map[string]any{
		"user": map[string]any{
			"name":  "Alice",
			"email": "alice@example.com",
		},
		"orders": []any{
			map[string]any{"id": 1},
			map[string]any{"id": 2},
		},
	}

	result, err := Render(`{
		"user_name": "{{ .user.name }}",
		"total_orders": {{ len .orders }}
	}`, data)
	require.NoError(t, err)

	resultMap, ok := result.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Alice", resultMap["user_name"])
	assert.Equal(t, 2.0, resultMap["total_orders"])
}

func TestRenderInvalidTemplate(t *testing.T) {
	_, err := Render("{{ .name", nil)
	require.Error(t, err)
}

func TestRenderWithContext(t *testing.T) {
	executionCtx := models.ExecutionContext{
		"text":    "deploy api",
		"user_id": "u-1",
		"steps": map[string]any{
			"call": map[string]any{"status": 200},
		},
	}

	result, err := RenderWithContext("{{ .user_id }} said {{ .text }}", executionCtx)
	require.NoError(t, err)
	assert.Equal(t, "u-1 said deploy api", result)

	result, err = RenderWithContext("{{ .steps.call.status }}", executionCtx)
	require.NoError(t, err)
	assert.Equal(t, 200.0, result)
}

func TestRenderWithContextEnv(t *testing.T) {
	t.Setenv("BOTWEAVER_TEST_TOKEN", "sek-123")

	result, err := RenderWithContext("{{ .env.BOTWEAVER_TEST_TOKEN }}", models.ExecutionContext{})
	require.NoError(t, err)
	assert.Equal(t, "sek-123", result)
}

func TestRenderParams(t *testing.T) {
	executionCtx := models.ExecutionContext{"channel": "general"}

	params := map[string]any{
		"target":  "{{ .channel }}",
		"static":  "unchanged",
		"retries": 3,
	}

	rendered, err := RenderParams(params, executionCtx)
	require.NoError(t, err)
	assert.Equal(t, "general", rendered["target"])
	assert.Equal(t, "unchanged", rendered["static"])
	assert.Equal(t, 3, rendered["retries"])

	// Input map must be untouched.
	assert.Equal(t, "{{ .channel }}", params["target"])
}

func TestNeedsTemplating(t *testing.T) {
	assert.True(t, NeedsTemplating("{{ .text }}"))
	assert.False(t, NeedsTemplating("plain string"))
}
