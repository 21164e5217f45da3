// Package connectors feeds local documents into the ingestion pipeline.
// The filesystem sub-package walks and watches directory trees.
package connectors
