// Package errors provides custom error types for inventory operations.
package errors

import "errors"

var ErrProductNotFound = errors.New("product not found")
var ErrInvalidProduct = errors.New("invalid product")
