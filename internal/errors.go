package internal

import (
	"errors"
	"fmt"
)

var (
	// ErrDataUnavailable means the dataset host has no such pair/split.
	ErrDataUnavailable = errors.New("data unavailable")
	// ErrConsistency means two files that must align by position do not.
	ErrConsistency = errors.New("consistency error")
	// ErrModelLoad is fatal for the whole inference stage.
	ErrModelLoad = errors.New("model load failed")
	// ErrAlignment means hypotheses and references differ in line count.
	ErrAlignment = errors.New("alignment error")
)

// CountMismatchError reports two unit counts that were required to match.
// It unwraps to Kind, which is ErrConsistency or ErrAlignment.
type CountMismatchError struct {
	Kind       error
	Left       string
	Right      string
	LeftCount  int
	RightCount int
}

func (e *CountMismatchError) Error() string {
	return fmt.Sprintf("%v: %s has %d units, %s has %d",
		e.Kind, e.Left, e.LeftCount, e.Right, e.RightCount)
}

func (e *CountMismatchError) Unwrap() error {
	return e.Kind
}

// CheckCounts returns a CountMismatchError of kind when the counts differ.
func CheckCounts(kind error, left string, leftCount int, right string, rightCount int) error {
	if leftCount == rightCount {
		return nil
	}
	return &CountMismatchError{Kind: kind, Left: left, Right: right, LeftCount: leftCount, RightCount: rightCount}
}
