package validator

import (
	apperrors "github.com/Durgaprasad40/mira-nearby/pkg/errors"
)

type Validator interface {
	ValidateCoordinates(lat, lon float64) error
	ValidateZoomSpan(span float64) error
}

type validator struct{}

func NewValidator() Validator {
	return &validator{}
}

func (v *validator) ValidateCoordinates(lat, lon float64) error {
	if lat < -90 || lat > 90 {
		return apperrors.ErrInvalidLatitude
	}

	if lon < -180 || lon > 180 {
		return apperrors.ErrInvalidLongitude
	}

	return nil
}

func (v *validator) ValidateZoomSpan(span float64) error {
	if span <= 0 {
		return apperrors.ErrInvalidZoomSpan
	}

	return nil
}
