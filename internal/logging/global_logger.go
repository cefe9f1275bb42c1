// Package logging configures the shared logrus logger for openai-auth: the line
// format, optional rotating file output and the Gin middleware used by the OAuth
// callback listener.
package logging

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogFileName is the active log file inside the log directory.
const LogFileName = "openai-auth.log"

var (
	setupOnce      sync.Once
	writerMu       sync.Mutex
	logWriter      *lumberjack.Logger
	ginInfoWriter  *io.PipeWriter
	ginErrorWriter *io.PipeWriter
)

// LogFormatter renders entries as
// [2026-01-02 15:04:05] [a1b2c3d4] [info ] [codex.go:88] message op=login port=1455
type LogFormatter struct{}

// logFieldOrder lists the fields printed after the message, in order.
var logFieldOrder = []string{"op", "port", "status", "latency", "error"}

// Format renders a single log entry.
func (m *LogFormatter) Format(entry *log.Entry) ([]byte, error) {
	buffer := entry.Buffer
	if buffer == nil {
		buffer = &bytes.Buffer{}
	}

	timestamp := entry.Time.Format("2006-01-02 15:04:05")
	message := strings.TrimRight(entry.Message, "\r\n")

	reqID := "--------"
	if id, ok := entry.Data[requestIDField].(string); ok && id != "" {
		reqID = id
	}

	level := entry.Level.String()
	if level == "warning" {
		level = "warn"
	}

	var fieldsStr string
	for _, k := range logFieldOrder {
		if v, ok := entry.Data[k]; ok {
			fieldsStr += fmt.Sprintf(" %s=%v", k, v)
		}
	}

	if entry.Caller != nil {
		_, _ = fmt.Fprintf(buffer, "[%s] [%s] [%-5s] [%s:%d] %s%s\n", timestamp, reqID, level, filepath.Base(entry.Caller.File), entry.Caller.Line, message, fieldsStr)
	} else {
		_, _ = fmt.Fprintf(buffer, "[%s] [%s] [%-5s] %s%s\n", timestamp, reqID, level, message, fieldsStr)
	}
	return buffer.Bytes(), nil
}

// SetupBaseLogger configures the shared logrus instance and routes Gin's writers
// through it. Only the first call has an effect.
func SetupBaseLogger() {
	setupOnce.Do(func() {
		log.SetOutput(os.Stderr)
		log.SetReportCaller(true)
		log.SetFormatter(&LogFormatter{})

		gin.SetMode(gin.ReleaseMode)
		ginInfoWriter = log.StandardLogger().Writer()
		gin.DefaultWriter = ginInfoWriter
		ginErrorWriter = log.StandardLogger().WriterLevel(log.ErrorLevel)
		gin.DefaultErrorWriter = ginErrorWriter
		gin.DebugPrintFunc = func(format string, values ...interface{}) {
			log.StandardLogger().Debugf(strings.TrimRight(format, "\r\n"), values...)
		}

		log.RegisterExitHandler(closeLogOutputs)
	})
}

// OutputOptions selects where logs go.
type OutputOptions struct {
	// ToFile writes to a rotating file in Dir instead of stderr.
	ToFile bool
	// Dir is the log directory.
	Dir string
	// MaxTotalSizeMB caps the total size of *.log files in Dir; 0 disables pruning.
	MaxTotalSizeMB int
}

// ConfigureLogOutput switches the global log destination between a rotating file
// and stderr. Stdout is left to command output.
func ConfigureLogOutput(opts OutputOptions) error {
	SetupBaseLogger()

	writerMu.Lock()
	defer writerMu.Unlock()

	if logWriter != nil {
		_ = logWriter.Close()
		logWriter = nil
	}
	if !opts.ToFile {
		log.SetOutput(os.Stderr)
		return nil
	}

	logDir := strings.TrimSpace(opts.Dir)
	if logDir == "" {
		logDir = "logs"
	}
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return fmt.Errorf("logging: failed to create log directory: %w", err)
	}

	activePath := filepath.Join(logDir, LogFileName)
	logWriter = &lumberjack.Logger{
		Filename:   activePath,
		MaxSize:    10,
		MaxBackups: 3,
		MaxAge:     0,
		Compress:   false,
	}
	log.SetOutput(logWriter)

	if opts.MaxTotalSizeMB > 0 {
		deleted, err := pruneLogDir(logDir, int64(opts.MaxTotalSizeMB)*1024*1024, activePath)
		if err != nil {
			log.WithError(err).Warn("logging: failed to enforce log directory size limit")
		} else if deleted > 0 {
			log.Debugf("logging: removed %d old log file(s)", deleted)
		}
	}
	return nil
}

// Close flushes and closes file outputs. logrus calls it on log.Exit as well.
func Close() {
	closeLogOutputs()
}

func closeLogOutputs() {
	writerMu.Lock()
	defer writerMu.Unlock()

	if logWriter != nil {
		_ = logWriter.Close()
		logWriter = nil
	}
	if ginInfoWriter != nil {
		_ = ginInfoWriter.Close()
		ginInfoWriter = nil
	}
	if ginErrorWriter != nil {
		_ = ginErrorWriter.Close()
		ginErrorWriter = nil
	}
}
