package messenger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMirrorCopiesToSecondary(t *testing.T) {
	ctx := context.Background()
	primary, secondary := NewRecorder(), NewRecorder()
	m := NewMirror(primary, secondary)

	ref, err := m.Send(ctx, 7, Message{Text: "hello"})
	require.NoError(t, err)
	require.NoError(t, m.EditLast(ctx, 7, Message{Text: "edited"}))
	require.NoError(t, m.Delete(ctx, 7, ref))

	assert.Equal(t, []string{"hello", "edited"}, primary.Texts(7))
	assert.Equal(t, []string{"hello", "edited"}, secondary.Texts(7))
	assert.Len(t, secondary.For(7), 3)
}

func TestMirrorIgnoresSecondaryFailures(t *testing.T) {
	ctx := context.Background()
	primary, secondary := NewRecorder(), NewRecorder()
	secondary.Fail[7] = true
	m := NewMirror(primary, secondary)

	ref, err := m.Send(ctx, 7, Message{Text: "hello"})
	require.NoError(t, err)
	assert.Equal(t, int64(7), ref.ChatID)
	assert.NoError(t, m.EditLast(ctx, 7, Message{Text: "edited"}))
	assert.NoError(t, m.Delete(ctx, 7, ref))
	assert.Empty(t, secondary.For(7))
}

func TestMirrorReturnsPrimaryFailure(t *testing.T) {
	ctx := context.Background()
	primary, secondary := NewRecorder(), NewRecorder()
	primary.Fail[7] = true
	m := NewMirror(primary, secondary)

	_, err := m.Send(ctx, 7, Message{Text: "hello"})
	assert.Error(t, err)
	assert.Equal(t, []string{"hello"}, secondary.Texts(7))
}
