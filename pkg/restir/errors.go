package restir

import "errors"

var (
	// ErrUnsupportedFeature is returned by New when the device lacks a
	// capability the passes need
	ErrUnsupportedFeature = errors.New("restir: device feature not supported")

	// ErrKernelSpecialization wraps failures to specialize a pass for the
	// current defines
	ErrKernelSpecialization = errors.New("restir: kernel specialization failed")

	// ErrNoScene is returned by Execute before a scene has been set
	ErrNoScene = errors.New("restir: no scene")

	// ErrMissingChannel is returned by Execute when a required texture is nil
	ErrMissingChannel = errors.New("restir: required channel missing")
)
