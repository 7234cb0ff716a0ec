// Package stores persists run history. The SQLite store keeps one row per
// run with its summary counts and one row per verdict, in catalog order, so
// a stored run can be rendered again exactly as it was reported.
package stores
