package pubsub

import "errors"

var (
	// ErrClosed is returned by operations on a closed bus or subscriber.
	ErrClosed = errors.New("pubsub: closed")

	ErrEmptyConnectionURL           = errors.New("pubsub: empty redis connection URL")
	ErrFailedToParseRedisConnString = errors.New("pubsub: failed to parse redis connection string")
	ErrRedisNotReady                = errors.New("pubsub: redis did not become ready within the given time period")
	ErrHealthcheckFailed            = errors.New("pubsub: redis healthcheck failed")
)
