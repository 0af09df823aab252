package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriter(t *testing.T) {
	t.Parallel()

	t.Run("prod logs json at info", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		log := NewWithWriter("prod", &buf)
		log.Debug("hidden")
		log.Info("server.listening", "addr", ":3000")

		var line map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
		assert.Equal(t, "server.listening", line["msg"])
		assert.Equal(t, ":3000", line["addr"])
	})

	t.Run("dev logs text at debug", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		NewWithWriter("dev", &buf).Debug("redisadapter.subscribe", "room", "lobby")
		assert.Contains(t, buf.String(), "msg=redisadapter.subscribe")
		assert.Contains(t, buf.String(), "room=lobby")
	})
}

func TestError(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "", Error(nil).Key)

	attr := Error(errors.New("boom"))
	assert.Equal(t, "error", attr.Key)
	assert.Equal(t, "boom", attr.Value.Any().(error).Error())
}
