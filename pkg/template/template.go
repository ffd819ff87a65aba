// Package template renders dynamic action parameters against the
// execution context.
package template

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/botweaver/botweaver/pkg/models"
)

// RenderWithContext renders a template string against the execution
// context. Context entries are addressable directly ("{{ .text }}",
// "{{ .steps.call.status }}"); environment variables under "env".
func RenderWithContext(input string, executionCtx models.ExecutionContext) (any, error) {
	data := make(map[string]any, len(executionCtx)+1)
	for key, value := range executionCtx {
		data[key] = value
	}

	data["env"] = getEnvVars()

	return Render(input, data)
}

// RenderParams renders every string value of an action's params map,
// leaving non-string values as-is. The input map is not modified.
func RenderParams(params map[string]any, executionCtx models.ExecutionContext) (map[string]any, error) {
	rendered := make(map[string]any, len(params))

	for key, value := range params {
		str, ok := value.(string)
		if !ok || !NeedsTemplating(str) {
			rendered[key] = value
			continue
		}

		result, err := RenderWithContext(str, executionCtx)
		if err != nil {
			return nil, fmt.Errorf("param %q: %w", key, err)
		}

		rendered[key] = result
	}

	return rendered, nil
}

// NeedsTemplating checks if a string contains template actions.
func NeedsTemplating(input string) bool {
	return strings.Contains(input, "{{")
}

func Render(templateStr string, data any) (any, error) {
	tmpl, err := template.
		New("transform").
		Funcs(template.FuncMap{
			"now": func() string {
				return time.Now().UTC().Format(time.RFC3339)
			},
			"rand": func(max int) int {
				if max <= 0 {
					return 0
				}

				num := make([]byte, 1)
				if _, err := rand.Read(num); err != nil {
					return 0
				}

				return int(num[0]) % max
			},
		}).Parse(templateStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template '%s': %w", templateStr, err)
	}

	var buf strings.Builder

	err = tmpl.Execute(&buf, data)
	if err != nil {
		return nil, fmt.Errorf("failed to execute template '%s': %w", templateStr, err)
	}

	result := strings.TrimSpace(buf.String())

	// A JSON-shaped result is decoded so templated object params come
	// back structured.
	if (strings.HasPrefix(result, "{") && strings.HasSuffix(result, "}")) ||
		(strings.HasPrefix(result, "[") && strings.HasSuffix(result, "]")) {
		var jsonResult any

		err := json.Unmarshal([]byte(result), &jsonResult)
		if err == nil {
			return jsonResult, nil
		}

		return jsonResult, fmt.Errorf("failed to parse json '%s': %w", templateStr, err)
	}

	if num, err := strconv.ParseFloat(result, 64); err == nil {
		return num, nil
	}

	if b, err := strconv.ParseBool(result); err == nil {
		return b, nil
	}

	return result, nil
}

func getEnvVars() map[string]any {
	envMap := make(map[string]any)

	for _, env := range os.Environ() {
		parts := strings.SplitN(env, "=", 2)
		if len(parts) == 2 {
			envMap[parts[0]] = parts[1]
		}
	}

	return envMap
}
