package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"firestore-service/internal/shared/contextkeys"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerInterface_Contract(t *testing.T) {
	var _ Logger = NewLogger()
	var _ Logger = NewLoggerWithConfig("info", "json")
	var _ Logger = &ZapLogger{}
}

func TestNew_Backends(t *testing.T) {
	for _, backend := range []string{"", BackendLogrus, BackendZap, "ZAP"} {
		l, err := New(Config{Level: "debug", Format: "json", Backend: backend, Output: &bytes.Buffer{}})
		require.NoError(t, err, backend)
		assert.NotNil(t, l)
	}

	_, err := New(Config{Backend: "syslog"})
	assert.Error(t, err)
}

func TestLogrusLogger_WithContextFields(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Level: "info", Format: "json", Output: &buf})
	require.NoError(t, err)

	ctx := context.WithValue(context.Background(), contextkeys.RequestIDKey, "req-1")
	ctx = context.WithValue(ctx, contextkeys.OperationKey, "paginate")
	ctx = context.WithValue(ctx, contextkeys.CollectionPathKey, "Users")

	l.WithContext(ctx).WithComponent("firestore-service").Info("page fetched")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "page fetched", entry["message"])
	assert.Equal(t, "req-1", entry["request_id"])
	assert.Equal(t, "paginate", entry["operation"])
	assert.Equal(t, "Users", entry["collection"])
	assert.Equal(t, "firestore-service", entry["component"])
}

func TestZapLogger_WithFieldsJSON(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Level: "info", Format: "json", Backend: BackendZap, Output: &buf})
	require.NoError(t, err)

	l.WithFields(map[string]interface{}{"path": "Users/u1"}).Warnf("retrying %s", "save")
	l.Debug("filtered out")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "retrying save", entry["message"])
	assert.Equal(t, "Users/u1", entry["path"])
}

func TestZapLogger_InvalidLevel(t *testing.T) {
	_, err := NewZapLogger(Config{Level: "loud", Output: &bytes.Buffer{}})
	assert.Error(t, err)
}

func TestContextFields_IgnoresEmptyAndNonString(t *testing.T) {
	ctx := context.WithValue(context.Background(), contextkeys.RequestIDKey, "")
	ctx = context.WithValue(ctx, contextkeys.OperationKey, 7)
	assert.Empty(t, contextFields(ctx))
}

func TestSetDefault(t *testing.T) {
	prev := Default()
	defer SetDefault(prev)

	var buf bytes.Buffer
	l, err := New(Config{Level: "info", Format: "json", Output: &buf})
	require.NoError(t, err)
	SetDefault(l)
	SetDefault(nil)
	Infof("hello %d", 1)
	assert.Contains(t, buf.String(), "hello 1")
}
