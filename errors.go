package pubslog

import "errors"

// Ошибки handler'ов.
var (
	// ErrHandlerClosed — запись после Close.
	ErrHandlerClosed = errors.New("handler closed")

	// ErrPublishExhausted — все попытки публикации исчерпаны.
	ErrPublishExhausted = errors.New("publish attempts exhausted")

	// ErrNoPublisher — handler создан без Publisher.
	ErrNoPublisher = errors.New("publisher is required")
)
