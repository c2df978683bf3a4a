package ports

import "github.com/Nopitch/Bridge-webhook-tot-discord/pkg/log"

// Logger is the structured logger used by the core.
type Logger = log.Logger

// Field is a structured log field.
type Field = log.Field

// Field constructors, re-exported so the core imports a single package.
var (
	String   = log.String
	Int      = log.Int
	Int64    = log.Int64
	Uint64   = log.Uint64
	Float64  = log.Float64
	Duration = log.Duration
	Time     = log.Time
	Err      = log.Err
	Any      = log.Any
)
