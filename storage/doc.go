// Package storage reads and writes table resources.
//
// A Store addresses resources by a slash separated path relative to its
// root. Three drivers exist: a local directory (fs), an in-process map
// (memory) and an S3 compatible bucket (s3). The fs and memory drivers also
// implement Watchable so editors can pick up changes made behind their back.
package storage
