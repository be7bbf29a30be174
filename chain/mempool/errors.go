package mempool

import "errors"

var (
	ErrNotFound      = errors.New("mempool: resource not found")
	ErrRequestFailed = errors.New("mempool: request failed")
)
