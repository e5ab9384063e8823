// Package probe extracts raw facts about media files: MIME type, EXIF tags,
// image dimensions, video stream details and file timestamps.
//
// Probes never decide priorities between sources. That is the job of
// package mediactx.
package probe
