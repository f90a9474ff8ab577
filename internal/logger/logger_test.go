package logger

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_WritesDailyFile(t *testing.T) {
	root := t.TempDir()
	prev := zap.L()
	t.Cleanup(func() { zap.ReplaceGlobals(prev) })

	log, err := New(root, "debug", false)
	require.NoError(t, err)
	log.Info("hello")
	_ = log.Sync()

	path := filepath.Join(root, "logs", time.Now().Format("2006-01-02")+".log")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)
	assert.Same(t, log, zap.L())
}

func TestNew_RejectsBadLevel(t *testing.T) {
	_, err := New(t.TempDir(), "loud", false)
	require.Error(t, err)
}

func TestOr(t *testing.T) {
	nop := zap.NewNop()
	assert.Same(t, nop, Or(nop))
	assert.Same(t, zap.L(), Or(nil))
}
