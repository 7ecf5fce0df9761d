// Package exporter writes fleet reports and dossier files under the
// exports directory.
//
// Exports are the one place the full registration key appears outside the
// store file: tables and logs always mask it, but an export is an explicit
// operator action that exists to hand the data to another system.
package exporter
