// Package export renders a grid to PDF.
package export
