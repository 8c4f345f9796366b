// Copyright (c) 2026 MockExam. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package dberr provides a bridge between low-level database errors and
// higher-level application errors.
package dberr

import (
	"errors"

	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/taibuivan/mockexam/internal/platform/apperr"
)

// Wrap inspects a driver error and wraps it into a meaningful [apperr.AppError].
// It hides internal database details from the client while classifying the error type.
//
// # Parameters
//   - err: The driver error, nil passes through.
//   - resource: Human name used in the NotFound message (e.g. "User").
func Wrap(err error, resource string) error {
	if err == nil {
		return nil
	}

	// 1. Not Found mapping
	if errors.Is(err, mongo.ErrNoDocuments) {
		return apperr.NotFound(resource)
	}

	// 2. Unique index violations (E11000)
	if mongo.IsDuplicateKeyError(err) {
		return apperr.Conflict(resource + " already exists").WithCause(err)
	}

	// 3. Unknown driver errors become Internal Server Errors
	return apperr.Internal(err)
}
