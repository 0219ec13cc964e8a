// Package logger records a structured trace of every directive the
// preprocessor runs and summarizes those traces.
package logger
