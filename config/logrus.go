package config

import (
	"context"
	"os"
	"strings"

	"github.com/mmdatafocus/autoservice_backend/appctx"
	"github.com/sirupsen/logrus"
)

var (
	logg *logrus.Logger
)

func GetLogger() *logrus.Logger {
	return logg
}

func init() {
	logg = logrus.New()
	logg.SetFormatter(&logrus.JSONFormatter{})
	logg.SetLevel(logLevelFromEnv())
	logg.SetOutput(os.Stdout)
}

// LOG_LEVEL accepts any logrus level name; unknown or empty values keep the error level.
func logLevelFromEnv() logrus.Level {
	raw := strings.TrimSpace(os.Getenv("LOG_LEVEL"))
	if raw == "" {
		return logrus.ErrorLevel
	}
	lvl, err := logrus.ParseLevel(raw)
	if err != nil {
		return logrus.ErrorLevel
	}
	return lvl
}

// RequestFields returns the log fields every request-scoped entry should carry.
func RequestFields(ctx context.Context) logrus.Fields {
	fields := logrus.Fields{}
	if ctx == nil {
		return fields
	}
	if cid, ok := appctx.GetString(ctx, appctx.ContextKeyCorrelationId); ok {
		fields["correlation_id"] = cid
	}
	if uid, ok := appctx.GetString(ctx, appctx.ContextKeyUserId); ok {
		fields["user_id"] = uid
	}
	return fields
}

func LogError(logger *logrus.Logger, moduleName string, funcName string, context string, data any, err error) {
	logErrorFields(logger, logrus.Fields{}, moduleName, funcName, context, data, err)
}

// LogErrorContext is LogError for request paths: the entry also carries RequestFields(ctx).
func LogErrorContext(ctx context.Context, logger *logrus.Logger, moduleName string, funcName string, step string, data any, err error) {
	logErrorFields(logger, RequestFields(ctx), moduleName, funcName, step, data, err)
}

func logErrorFields(logger *logrus.Logger, fields logrus.Fields, moduleName string, funcName string, step string, data any, err error) {
	if logger == nil || err == nil {
		return
	}
	fields["module"] = moduleName
	fields["funcName"] = funcName
	fields["context"] = step
	if data != nil {
		fields["data"] = data
	}
	logger.WithFields(fields).Error(err.Error())
}
