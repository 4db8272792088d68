// Package volley packages a directory tree into a zip archive, splits the
// archive into bounded-size parts, transfers each part to an HTTP upload
// endpoint keyed by its content digest, and records the result in a durable
// JSON manifest. A later session reverses the pipeline from the manifest
// alone: download each part by its remote reference, concatenate the parts
// in index order, and extract the merged archive into a target directory.
//
// The Session type sequences the pipeline; the transfer subpackage holds the
// HTTP client. All transfers within a session run strictly sequentially so
// progress reporting and failure attribution stay unambiguous per part.
package volley
