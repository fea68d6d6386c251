package lib

import (
	"fmt"
	"math"
)

/*
	This file defines the error type shared by every module of the node.
	All failures in the consensus core are values of this type: a rejected
	proposal is reported to the caller as a tagged reason, never a panic.
*/

// ErrorI is the interface shared by every error produced in the codebase
type ErrorI interface {
	Code() ErrorCode     // the unique identifier of the error within its module
	Module() ErrorModule // the module that produced the error
	error                // implements the built-in error interface
}

var _ ErrorI = &Error{} // enforce the ErrorI interface

type ErrorCode uint32 // the unique identifier of an error within a module

type ErrorModule string // the name of the module an error originated from

// Error is the concrete implementation of ErrorI
type Error struct {
	ECode   ErrorCode   `json:"code"`   // error code
	EModule ErrorModule `json:"module"` // error module
	Msg     string      `json:"msg"`    // human readable message
}

// NewError() constructs a new Error instance
func NewError(code ErrorCode, module ErrorModule, msg string) *Error {
	return &Error{ECode: code, EModule: module, Msg: msg}
}

// Code() returns the associated error code
func (p *Error) Code() ErrorCode { return p.ECode }

// Module() returns the associated error module
func (p *Error) Module() ErrorModule { return p.EModule }

// String() calls Error()
func (p *Error) String() string { return p.Error() }

// Error() returns a formatted string including module, code and message
func (p *Error) Error() string {
	return fmt.Sprintf("\nModule:  %s\nCode:    %d\nMessage: %s", p.EModule, p.ECode, p.Msg)
}

const (
	NoCode ErrorCode = math.MaxUint32

	// Main Module
	MainModule ErrorModule = "main"

	// Main Module Error Codes
	CodeJSONMarshal     ErrorCode = 1
	CodeJSONUnmarshal   ErrorCode = 2
	CodeStringToBytes   ErrorCode = 3
	CodeWriteFile       ErrorCode = 4
	CodeReadFile        ErrorCode = 5
	CodeInvalidArgument ErrorCode = 6
	CodeNilEventTracker ErrorCode = 7

	// Consensus Module
	ConsensusModule ErrorModule = "consensus"

	// Consensus Module Error Codes
	CodeMinerNotInRound          ErrorCode = 1
	CodeTimeSlotViolation        ErrorCode = 2
	CodeValueAlreadySet          ErrorCode = 3
	CodeMissingOutValue          ErrorCode = 4
	CodeInvalidPreviousInValue   ErrorCode = 5
	CodeInvalidSupposedOrder     ErrorCode = 6
	CodeInvalidFinalOrder        ErrorCode = 7
	CodeWrongRoundNumber         ErrorCode = 8
	CodeWrongTermNumber          ErrorCode = 9
	CodeWrongExtraBlockProducer  ErrorCode = 10
	CodeInvalidOrderRange        ErrorCode = 11
	CodeDuplicateOrder           ErrorCode = 12
	CodeRoundHashMismatch        ErrorCode = 13
	CodeInvalidSignature         ErrorCode = 14
	CodeInvalidRandomProof       ErrorCode = 15
	CodeContinuousBlocksExceeded ErrorCode = 16
	CodeNilRound                 ErrorCode = 17
	CodeEmptyMinerList           ErrorCode = 18
	CodeUnknownBehaviour         ErrorCode = 19
	CodeHeightAlreadyApplied     ErrorCode = 20
	CodeSenderSignerMismatch     ErrorCode = 21
	CodeEmptyProposal            ErrorCode = 22
	CodeInvalidTermTransition    ErrorCode = 23
	CodeInvalidPublicKey         ErrorCode = 24
	CodeNotAuthorized            ErrorCode = 25
	CodeRoundIdMismatch          ErrorCode = 26

	// Store Module
	StoreModule ErrorModule = "store"

	// Store Module Error Codes
	CodeStoreOpen     ErrorCode = 1
	CodeStoreGet      ErrorCode = 2
	CodeStoreSet      ErrorCode = 3
	CodeStoreClose    ErrorCode = 4
	CodeStoreMarshal  ErrorCode = 5
	CodeRoundNotFound ErrorCode = 6
	CodeStoreDelete   ErrorCode = 7
	CodeTermNotFound  ErrorCode = 8
)

// main module error constructors below

func ErrJSONMarshal(err error) ErrorI {
	return NewError(CodeJSONMarshal, MainModule, fmt.Sprintf("jsonMarshal() failed with err: %s", err.Error()))
}

func ErrJSONUnmarshal(err error) ErrorI {
	return NewError(CodeJSONUnmarshal, MainModule, fmt.Sprintf("jsonUnmarshal() failed with err: %s", err.Error()))
}

func ErrStringToBytes(err error) ErrorI {
	return NewError(CodeStringToBytes, MainModule, fmt.Sprintf("stringToBytes() failed with err: %s", err.Error()))
}

func ErrWriteFile(err error) ErrorI {
	return NewError(CodeWriteFile, MainModule, fmt.Sprintf("writeFile() failed with err: %s", err.Error()))
}

func ErrReadFile(err error) ErrorI {
	return NewError(CodeReadFile, MainModule, fmt.Sprintf("readFile() failed with err: %s", err.Error()))
}

func ErrInvalidArgument() ErrorI {
	return NewError(CodeInvalidArgument, MainModule, "the argument is invalid")
}

func ErrNilEventTracker() ErrorI {
	return NewError(CodeNilEventTracker, MainModule, "the event tracker is nil")
}
