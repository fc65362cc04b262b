// Package download fetches remote source scripts and media over HTTP.
package download
