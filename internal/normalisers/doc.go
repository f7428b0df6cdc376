// Package normalisers extracts text from uploaded files. Each normaliser
// handles specific MIME types and extensions; the Registry picks the
// highest-priority match for an upload.
package normalisers
