package transport

import "errors"

var errStreamingUnsupported = errors.New("transport: response writer does not support streaming")
