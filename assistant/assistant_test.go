package assistant

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/threadrun/core"
	"github.com/hupe1980/threadrun/internal/testutil"
	"github.com/hupe1980/threadrun/tool"
)

func TestInstruction(t *testing.T) {
	ctx := context.Background()

	t.Run("static", func(t *testing.T) {
		i := NewInstructionFromText("be brief")
		assert.True(t, i.IsStatic())
		assert.False(t, i.IsZero())

		text, err := i.Resolve(ctx)
		require.NoError(t, err)
		assert.Equal(t, "be brief", text)
	})

	t.Run("dynamic", func(t *testing.T) {
		i := NewInstructionFromFunc(func(context.Context) (string, error) {
			return "generated", nil
		})
		assert.False(t, i.IsStatic())

		text, err := i.Resolve(ctx)
		require.NoError(t, err)
		assert.Equal(t, "generated", text)
	})

	t.Run("zero", func(t *testing.T) {
		var i Instruction
		assert.True(t, i.IsZero())

		text, err := i.Resolve(ctx)
		require.NoError(t, err)
		assert.Empty(t, text)
	})
}

func TestAssistantCreateDelete(t *testing.T) {
	ctx := context.Background()
	api := testutil.NewFakeAPI()

	echo := tool.NewFunctionTool("echo", "Echoes the input", map[string]any{"type": "object"},
		func(_ *core.ToolContext, args map[string]any) (any, error) { return args, nil },
	)

	a := New("gpt-4o-mini", func(o *Options) {
		o.Name = "Tester"
		o.Instructions = NewInstructionFromText("be helpful")
		o.Tools = []tool.Tool{echo}
	})
	assert.Empty(t, a.ID())

	require.NoError(t, a.Create(ctx, api))
	assert.NotEmpty(t, a.ID())

	require.Len(t, api.CreatedAssistants, 1)
	req := api.CreatedAssistants[0]
	assert.Equal(t, "gpt-4o-mini", req.Model)
	assert.Equal(t, "Tester", req.Name)
	assert.Equal(t, "be helpful", req.Instructions)
	require.Len(t, req.Tools, 1)
	assert.Equal(t, "echo", req.Tools[0].Function.Name)

	assert.Error(t, a.Create(ctx, api), "second create must fail")

	require.NoError(t, a.Delete(ctx, api))
	assert.Empty(t, a.ID())
	assert.Equal(t, []string{"asst_1"}, api.DeletedAssistants)

	assert.ErrorIs(t, a.Delete(ctx, api), ErrNotCreated)
}

func TestAssistantAcquire(t *testing.T) {
	ctx := context.Background()

	t.Run("ephemeral create and release", func(t *testing.T) {
		api := testutil.NewFakeAPI()
		a := New("gpt-4o-mini")

		release, err := a.Acquire(ctx, api)
		require.NoError(t, err)
		assert.NotEmpty(t, a.ID())

		require.NoError(t, release(ctx))
		assert.Empty(t, a.ID())
		assert.Len(t, api.DeletedAssistants, 1)
	})

	t.Run("bound assistant is not touched", func(t *testing.T) {
		api := testutil.NewFakeAPI()
		api.Assistants["asst_remote"] = core.Assistant{ID: "asst_remote", Model: "gpt-4o"}

		a, err := Load(ctx, api, "asst_remote")
		require.NoError(t, err)

		release, err := a.Acquire(ctx, api)
		require.NoError(t, err)
		require.NoError(t, release(ctx))

		assert.Equal(t, "asst_remote", a.ID())
		assert.Empty(t, api.DeletedAssistants)
	})
}

func TestLoad(t *testing.T) {
	ctx := context.Background()
	api := testutil.NewFakeAPI()
	api.Assistants["asst_1"] = core.Assistant{
		ID:           "asst_1",
		Model:        "gpt-4o",
		Name:         "Remote",
		Instructions: "remote instructions",
	}

	a, err := Load(ctx, api, "asst_1")
	require.NoError(t, err)
	assert.Equal(t, "asst_1", a.ID())
	assert.Equal(t, "gpt-4o", a.Model())
	assert.Equal(t, "Remote", a.Name())

	text, err := a.Instructions(ctx)
	require.NoError(t, err)
	assert.Equal(t, "remote instructions", text)

	_, err = Load(ctx, api, "asst_missing")
	assert.Error(t, err)
}

func TestFromFile(t *testing.T) {
	t.Run("valid definition", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "assistant.yaml")
		content := `name: Marvin
model: gpt-4o-mini
description: A paranoid android.
instructions: |
  You are a helpful, if gloomy, assistant.
temperature: 0.7
metadata:
  team: platform
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

		a, err := FromFile(path)
		require.NoError(t, err)
		assert.Equal(t, "Marvin", a.Name())
		assert.Equal(t, "gpt-4o-mini", a.Model())

		text, err := a.Instructions(context.Background())
		require.NoError(t, err)
		assert.Contains(t, text, "gloomy")
	})

	t.Run("model is required", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "assistant.yaml")
		require.NoError(t, os.WriteFile(path, []byte("name: NoModel\n"), 0o600))

		_, err := FromFile(path)
		assert.ErrorContains(t, err, "model is required")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := FromFile(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})
}
