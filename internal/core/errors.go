package core

import "errors"

// Sentinel errors returned by the import pipeline and session service.
// Each one has an entry in the error catalogue used by MapError.
var (
	ErrNoFile          = errors.New("no file provided")
	ErrInvalidFileType = errors.New("invalid file type: only .csv files are accepted")
	ErrFileTooLarge    = errors.New("file too large")
	ErrEmptyFile       = errors.New("empty file")
	ErrMissingHeader   = errors.New("header row not recognized")
	ErrNoDataRows      = errors.New("no data rows after header")

	ErrNoValidProducts = errors.New("no valid products to upload")
	ErrUploadTimeout   = errors.New("upload timed out")

	ErrSessionNotFound = errors.New("upload session not found")
	ErrInvalidState    = errors.New("invalid session state")
	ErrUploadInFlight  = errors.New("upload already in progress")
)
