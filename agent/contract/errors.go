package contract

import "errors"

var (
	ErrConfiguration         = errors.New("configuration is invalid")
	ErrValidation            = errors.New("validation failed")
	ErrSchemaViolation       = errors.New("service response violates schema")
	ErrClassificationService = errors.New("intent classification service failed")
	ErrAnswerService         = errors.New("knowledge answer service failed")
	ErrSchedulerService      = errors.New("scheduler service failed")
	ErrDelivery              = errors.New("reply delivery failed")
)
