package tools

import "errors"

// Sentinel errors for the tool registry.
var (
	ErrUnknownTool   = errors.New("unknown tool")
	ErrAlreadyExists = errors.New("tool already registered")
	ErrEmptyName     = errors.New("tool name is empty")
)
