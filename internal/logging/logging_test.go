package logging

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gl "gorm.io/gorm/logger"
)

func TestMaskToken(t *testing.T) {
	assert.Equal(t, "", MaskToken(""))
	assert.Equal(t, "***", MaskToken("abc"))
	assert.Equal(t, "abcdef…", MaskToken("abcdefghijklmnopqrstuvwxyz"))
	assert.NotContains(t, MaskToken("abcdefghijklmnopqrstuvwxyz"), "ghij")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("error", true))
	assert.Equal(t, zapcore.WarnLevel, ParseLevel("WARN", false))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("loud", false))
}

func TestNew_WritesRotatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	logger := New(Options{Level: "info", File: path})
	logger.Info("hello", Token("secret-token-value"))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"msg":"hello"`)
	assert.Contains(t, string(raw), `"app":"portfolio-pilot"`)
	assert.NotContains(t, string(raw), "secret-token-value")
}

func TestGormLogger_Trace(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewGormLogger(zap.New(core), false)

	sql := func() (string, int64) { return "SELECT 1", 1 }

	l.Trace(context.Background(), time.Now(), sql, gl.ErrRecordNotFound)
	assert.Equal(t, 0, logs.Len(), "record not found is not an error")

	l.Trace(context.Background(), time.Now(), sql, errors.New("boom"))
	assert.Equal(t, 1, logs.FilterMessage("sql error").Len())

	l.Trace(context.Background(), time.Now().Add(-time.Second), sql, nil)
	assert.Equal(t, 1, logs.FilterMessage("slow sql").Len())

	l.Trace(context.Background(), time.Now(), sql, nil)
	assert.Equal(t, 0, logs.FilterMessage("sql").Len(), "statements are not traced outside dev")

	silent := l.LogMode(gl.Silent)
	silent.Trace(context.Background(), time.Now(), sql, errors.New("boom"))
	assert.Equal(t, 1, logs.FilterMessage("sql error").Len())
}

func TestGormLogger_OmitsBoundValues(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: NewGormLogger(zap.New(core), true)})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	const secret = "SECRETTOKENabcdefghijklmnopqrstuvwxyz0123456"
	require.NoError(t, conn.Exec("CREATE TABLE tokens (token TEXT PRIMARY KEY)").Error)
	require.NoError(t, conn.Exec("INSERT INTO tokens (token) VALUES (?)", secret).Error)

	var found string
	require.NoError(t, conn.Raw("SELECT token FROM tokens WHERE token = ?", secret).Scan(&found).Error)
	assert.Equal(t, secret, found)

	// duplicate insert takes the error path, which logs outside dev too
	assert.Error(t, conn.Exec("INSERT INTO tokens (token) VALUES (?)", secret).Error)

	require.NotZero(t, logs.FilterMessage("sql").Len())
	require.Equal(t, 1, logs.FilterMessage("sql error").Len())
	for _, entry := range logs.All() {
		sql, _ := entry.ContextMap()["sql"].(string)
		assert.NotContains(t, sql, secret)
		assert.NotContains(t, entry.Message, secret)
	}
	assert.Contains(t, logs.FilterMessage("sql error").All()[0].ContextMap()["sql"], "?")
}
