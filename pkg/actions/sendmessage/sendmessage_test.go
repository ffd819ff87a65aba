package sendmessage

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/botweaver/botweaver/pkg/models"
)

type stubPublisher struct {
	args *redis.XAddArgs
	err  error
}

func (s *stubPublisher) XAdd(ctx context.Context, args *redis.XAddArgs) *redis.StringCmd {
	s.args = args

	cmd := redis.NewStringCmd(ctx)
	if s.err != nil {
		cmd.SetErr(s.err)
	} else {
		cmd.SetVal("1-0")
	}

	return cmd
}

func TestFactoryRequiresTextAndTarget(t *testing.T) {
	factory := NewActionFactory(&stubPublisher{})

	_, err := factory.Create(map[string]any{"target": "general"})
	require.Error(t, err)

	_, err = factory.Create(map[string]any{"text": "hi"})
	require.Error(t, err)
}

func TestExecutePublishesRenderedMessage(t *testing.T) {
	publisher := &stubPublisher{}
	factory := NewActionFactory(publisher)

	action, err := factory.Create(map[string]any{
		"text":   "hey {{ .user_id }}",
		"target": "{{ .source }}",
	})
	require.NoError(t, err)

	result, err := action.Execute(context.Background(), models.ExecutionContext{
		"user_id": "u-1",
		"source":  "slack",
	}, slog.Default())
	require.NoError(t, err)

	require.NotNil(t, publisher.args)
	assert.Equal(t, DefaultStream, publisher.args.Stream)

	values, ok := publisher.args.Values.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "hey u-1", values["text"])
	assert.Equal(t, "slack", values["target"])

	resultMap, ok := result.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "1-0", resultMap["message_id"])
}

func TestExecuteCustomStream(t *testing.T) {
	publisher := &stubPublisher{}
	factory := NewActionFactory(publisher)

	action, err := factory.Create(map[string]any{
		"text":   "hi",
		"target": "ops",
		"stream": "botweaver:alerts",
	})
	require.NoError(t, err)

	_, err = action.Execute(context.Background(), models.ExecutionContext{}, slog.Default())
	require.NoError(t, err)
	assert.Equal(t, "botweaver:alerts", publisher.args.Stream)
}

func TestExecutePublishFailure(t *testing.T) {
	publisher := &stubPublisher{err: errors.New("connection refused")}
	factory := NewActionFactory(publisher)

	action, err := factory.Create(map[string]any{"text": "hi", "target": "ops"})
	require.NoError(t, err)

	_, err = action.Execute(context.Background(), models.ExecutionContext{}, slog.Default())
	require.Error(t, err)
}
