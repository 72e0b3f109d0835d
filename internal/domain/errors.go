package domain

import "errors"

var (
	// ErrSourceNotFound signals that no stored document matched a source name.
	ErrSourceNotFound = errors.New("source not found")
	// ErrAlreadyProcessed signals that a file was already ingested.
	ErrAlreadyProcessed = errors.New("file already processed")
	// ErrUnsupportedFile signals a file type the extractor cannot handle.
	ErrUnsupportedFile = errors.New("unsupported file type")
	// ErrEmptyExtraction signals that extraction produced no text chunks.
	ErrEmptyExtraction = errors.New("no text extracted")
	// ErrChatProviderError signals a chat completion provider failure.
	ErrChatProviderError = errors.New("chat provider error")
	// ErrStoreClosed signals use of a closed document store.
	ErrStoreClosed = errors.New("document store is closed")
)
