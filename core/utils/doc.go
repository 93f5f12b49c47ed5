// Package utils holds small parsing helpers for query strings and settings values.
package utils
