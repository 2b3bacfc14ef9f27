package log

import "gopkg.in/natefinch/lumberjack.v2"

// AddFileAppender attaches a size-rotated log file to the writer set.
func (m *MultiWriter) AddFileAppender(cfg FileConfig) *MultiWriter {
	writer := &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSizeMB,  // megabytes
		MaxBackups: cfg.MaxBackups, // number of backups
		MaxAge:     cfg.MaxAgeDays, // days
		Compress:   cfg.Compress,   // compress the backups
	}
	m.writers = append(m.writers, writer)
	return m
}
