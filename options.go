package docdex

import (
	"go.uber.org/zap"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	dataDir string

	chat ChatModel

	topK      int
	chunkSize int
	overlap   int

	logger *zap.Logger
}

// WithDataDir sets the directory holding the document, tracker, and
// conversation files. Required.
func WithDataDir(dir string) Option {
	return optionFunc(func(c *clientConfig) {
		c.dataDir = dir
	})
}

// WithChatModel sets the answer-generation provider.
// Without it Ask returns an apologetic fallback reply.
func WithChatModel(m ChatModel) Option {
	return optionFunc(func(c *clientConfig) {
		c.chat = m
	})
}

// WithTopK sets how many chunks are retrieved per question. Default: 5.
func WithTopK(k int) Option {
	return optionFunc(func(c *clientConfig) {
		c.topK = k
	})
}

// WithChunking sets file-ingestion chunk size and overlap in characters.
// Defaults: 1000 and 100.
func WithChunking(size, overlap int) Option {
	return optionFunc(func(c *clientConfig) {
		c.chunkSize = size
		c.overlap = overlap
	})
}

// WithLogger enables structured logging for client operations.
// Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}
