package domain

import "errors"

var (
	ErrCycleInProgress = errors.New("check cycle already in progress")
	ErrServerOffline   = errors.New("media server unreachable")
	ErrAuthFailed      = errors.New("media server authentication failed")
	ErrLibraryNotFound = errors.New("library not found")
	ErrChannelNotFound = errors.New("channel not found")
)
