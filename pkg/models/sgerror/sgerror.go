package sgerror

import (
	"errors"
	"fmt"
)

const (
	SG_UNEXPECTED      = "SGU"
	SG_CONFIG          = "SGC"
	SG_NO_SUCH_TABLE   = "SGT"
	SG_ALGORITHM       = "SGA"
	SG_CROSS_DS_JOIN   = "SGJ"
	SG_DDL_ROUTE       = "SGD"
	SG_NO_ROUTE        = "SGN"
	SG_CLOCK_ROLLBACK  = "SGK"
	SG_MERGE_TYPE      = "SGM"
	SG_STREAM_CLOSED   = "SGS"
	SG_UNSUPPORTED     = "SGX"
	SG_DATASOURCE_FAIL = "SGO"
)

var existingErrorCodeMap = map[string]string{
	SG_UNEXPECTED:      "Unexpected error",
	SG_CONFIG:          "Invalid sharding configuration",
	SG_NO_SUCH_TABLE:   "No such table",
	SG_ALGORITHM:       "Sharding algorithm failure",
	SG_CROSS_DS_JOIN:   "Cross datasource join unsupported",
	SG_DDL_ROUTE:       "DDL route inconsistency",
	SG_NO_ROUTE:        "No route",
	SG_CLOCK_ROLLBACK:  "Clock moved backwards",
	SG_MERGE_TYPE:      "Merge type mismatch",
	SG_STREAM_CLOSED:   "Result stream closed",
	SG_UNSUPPORTED:     "Unsupported statement",
	SG_DATASOURCE_FAIL: "Datasource error",
}

func GetMessageByCode(errorCode string) string {
	rep, ok := existingErrorCodeMap[errorCode]
	if ok {
		return rep
	}
	return "Unexpected error"
}

var _ error = &SgError{}

// SgError is an error carrying one of the SG_* codes.
type SgError struct {
	Err error

	ErrorCode string
}

func New(errorCode string, msg string) *SgError {
	return &SgError{
		Err:       errors.New(msg),
		ErrorCode: errorCode,
	}
}

// Newf formats the description with fmt.Errorf, so %w keeps the cause reachable.
func Newf(errorCode string, format string, a ...any) *SgError {
	return &SgError{
		Err:       fmt.Errorf(format, a...),
		ErrorCode: errorCode,
	}
}

func NewByCode(errorCode string) *SgError {
	return &SgError{
		Err:       errors.New(GetMessageByCode(errorCode)),
		ErrorCode: errorCode,
	}
}

func (er *SgError) Error() string {
	return fmt.Sprintf("Code: %s. Name: %s. Description: %s.",
		er.ErrorCode, GetMessageByCode(er.ErrorCode), er.Err)
}

func (er *SgError) Unwrap() error {
	return er.Err
}

// HasCode reports whether any error in err's chain is an SgError with the given code.
func HasCode(err error, code string) bool {
	var sgErr *SgError
	for err != nil {
		if !errors.As(err, &sgErr) {
			return false
		}
		if sgErr.ErrorCode == code {
			return true
		}
		err = sgErr.Err
	}
	return false
}

// CodeOf returns the code of the outermost SgError in err's chain, or "" if there is none.
func CodeOf(err error) string {
	var sgErr *SgError
	if errors.As(err, &sgErr) {
		return sgErr.ErrorCode
	}
	return ""
}
