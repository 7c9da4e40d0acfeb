package logconfig

import "errors"

var ErrUnknownFormat = errors.New("unknown log format")
