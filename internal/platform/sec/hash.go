// Copyright (c) 2026 MockExam. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/unicode/norm"
)

// MaxPasswordBytes is the longest input bcrypt accepts, measured after normalisation.
const MaxPasswordBytes = 72

// ErrPasswordTooLong is returned when the normalised password exceeds [MaxPasswordBytes].
var ErrPasswordTooLong = errors.New("auth: password exceeds 72 bytes")

// HashPassword hashes a plain-text password using the bcrypt algorithm.
//
// The input is NFC-normalised first so that visually identical passwords typed
// on different keyboards produce the same hash.
func HashPassword(plainTextPassword string) (string, error) {
	normalized := normalize(plainTextPassword)
	if len(normalized) > MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}

	hashedBytes, err := bcrypt.GenerateFromPassword(normalized, bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("auth: failed to hash password: %w", err)
	}
	return string(hashedBytes), nil
}

// CheckPasswordHash compares a plain-text password with its hashed version.
// An empty hash (OAuth-only account) never matches.
func CheckPasswordHash(plainTextPassword, existingHash string) bool {
	if existingHash == "" {
		return false
	}
	err := bcrypt.CompareHashAndPassword([]byte(existingHash), normalize(plainTextPassword))
	return err == nil
}

// NormalizePassword returns the NFC form that is actually hashed.
func NormalizePassword(password string) string {
	return norm.NFC.String(password)
}

func normalize(password string) []byte {
	return norm.NFC.Bytes([]byte(password))
}
