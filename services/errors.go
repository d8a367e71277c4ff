package services

import "errors"

var (
	ErrWrongStage       = errors.New("form is not at that step")
	ErrSubmitting       = errors.New("check-in is already being saved")
	ErrUnknownField     = errors.New("unknown form field")
	ErrFieldNotEditable = errors.New("field cannot be edited at this step")
	ErrSessionNotFound  = errors.New("session not found")
	ErrNoImage          = errors.New("no image attached")
	ErrFormClosed       = errors.New("form was closed before the check-in finished")
	ErrSubmitFailed     = errors.New("check-in could not be saved")
)
