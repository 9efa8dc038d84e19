package config

import (
	"errors"
)

var (
	// ErrEmptyDBEngine error if config db.gormengine is empty.
	ErrEmptyDBEngine = errors.New("toml config db.gormengine can not be empty")

	// ErrMetricsPortCanNotBeZero error if metrics are enabled without a listening port.
	ErrMetricsPortCanNotBeZero = errors.New("toml config metrics.port listening port can not be 0")
)
