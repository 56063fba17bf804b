package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoggerWritesAtOrAboveConfiguredLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger()
	l.SetOutput(&buf)
	l.SetLevel(Info)

	l.Debug("should not appear")
	require.Empty(t, buf.String())

	l.Info("should appear")
	require.Contains(t, buf.String(), "should appear")
}

func TestWithAttachesFieldsWithoutMutatingParent(t *testing.T) {
	var buf bytes.Buffer
	base := NewLogger()
	base.SetOutput(&buf)
	base.SetLevel(Info)

	derived := base.With(Fields{"component": "test"})
	derived.Info("hello")

	require.Contains(t, buf.String(), "component=test")
	require.Contains(t, buf.String(), "hello")
}

func TestBaseReturnsSameLogger(t *testing.T) {
	require.NotNil(t, Base())
	require.Same(t, Base(), Base())
}
