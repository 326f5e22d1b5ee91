package srs

import (
	"errors"
	"time"

	"github.com/AtlasTheChosen/lockn-sub001/internal/domain"
)

// Common errors
var (
	ErrNilRecord = errors.New("item mastery record cannot be nil")
)

// Service defines the interface for SRS algorithm operations
type Service interface {
	// RecordRating computes the next record for a 1..5 rating. It is pure and
	// deterministic given (record, rating, now).
	RecordRating(
		record *domain.ItemMasteryRecord,
		rating int,
		now time.Time,
	) (*domain.ItemMasteryRecord, error)

	// IsMasteryEvent reports whether the rating that produced next counts
	// towards the daily goal and stack completion.
	IsMasteryEvent(rating int, next *domain.ItemMasteryRecord) bool

	// Params exposes the active parameters.
	Params() *Params
}

// defaultService is the standard implementation of the Service interface
type defaultService struct {
	params *Params
}

// NewDefaultService creates a new SRS service with default parameters
func NewDefaultService() Service {
	return &defaultService{
		params: NewDefaultParams(),
	}
}

// NewServiceWithParams creates a new SRS service with custom parameters
func NewServiceWithParams(params *Params) Service {
	return &defaultService{
		params: params,
	}
}

// RecordRating implements Service.RecordRating
func (s *defaultService) RecordRating(
	record *domain.ItemMasteryRecord,
	rating int,
	now time.Time,
) (*domain.ItemMasteryRecord, error) {
	if record == nil {
		return nil, ErrNilRecord
	}
	if err := domain.ValidateRating(rating); err != nil {
		return nil, err
	}

	return calculateNextRecord(record, rating, now, s.params), nil
}

// IsMasteryEvent implements Service.IsMasteryEvent
func (s *defaultService) IsMasteryEvent(rating int, next *domain.ItemMasteryRecord) bool {
	if next == nil {
		return false
	}
	return isMasteryEvent(rating, next, s.params)
}

// Params implements Service.Params
func (s *defaultService) Params() *Params {
	return s.params
}

// FirstMastery reports whether next is the update in which the item crossed
// the mastery threshold for the first time.
func FirstMastery(prev, next *domain.ItemMasteryRecord) bool {
	return prev != nil && next != nil && !prev.IsMastered() && next.IsMastered()
}
