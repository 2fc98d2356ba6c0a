// internal/websocket/errors.go
package websocket

import "errors"

var (
	ErrUnsupportedChannel = errors.New("unsupported channel")
)
