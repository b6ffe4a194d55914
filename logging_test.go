package makibishi

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultLogger_Levels(t *testing.T) {
	var out, errOut bytes.Buffer
	l := NewWriterLogger("fx", false, &out, &errOut)

	l.Debugf("hidden %d", 1)
	assert.Empty(t, out.String())

	l.SetDebug(true)
	l.Debugf("shown %d", 2)
	l.Infof("info")
	l.Warnf("warn")
	l.Errorf("boom")

	assert.Contains(t, out.String(), "[fx] DEBUG: shown 2")
	assert.Contains(t, out.String(), "[fx] INFO: info")
	assert.Contains(t, errOut.String(), "[fx] WARN: warn")
	assert.Contains(t, errOut.String(), "[fx] ERROR: boom")
}

func TestApp_LoggerFallback(t *testing.T) {
	var app *App
	assert.NotNil(t, app.Logger())
	assert.False(t, NewAppBuilder().Build().Logger().DebugEnabled())
}

func TestLoggingModule_UsesGivenLogger(t *testing.T) {
	var out bytes.Buffer
	l := NewWriterLogger("host", true, &out, &out)
	app := NewAppBuilder().UseModule(LoggingModule{Prefix: "ignored", Logger: l}).Build()

	app.Logger().Infof("hello")
	assert.Contains(t, out.String(), "[host] INFO: hello")
	assert.True(t, app.Logger().DebugEnabled())
}
