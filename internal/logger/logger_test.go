package logger_test

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/ignatzorin/freelance-contracts/internal/logger"
)

func TestInit(t *testing.T) {
	log := logger.Init("debug")
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, log.Formatter)

	logger.SetTextFormatter()
	assert.IsType(t, &logrus.TextFormatter{}, logger.Log.Formatter)

	assert.Equal(t, logrus.InfoLevel, logger.Init("nonsense").GetLevel())
	assert.Equal(t, "outbox", logger.Component("outbox").Data["component"])
}
