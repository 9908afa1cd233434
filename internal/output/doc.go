// Package output duplicates run progress to a persistent append-only log file
// and to the live console.
package output
