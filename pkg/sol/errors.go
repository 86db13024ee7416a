package sol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
)

var (
	ErrConfirmationTimeout = errors.New("timed out waiting for confirmation")
	ErrNoSigners           = errors.New("at least one signer required")
	ErrNoInstructions      = errors.New("no instructions to submit")
	ErrMissingSigner       = errors.New("transaction requires a signer that was not provided")
	ErrNoBundleSender      = errors.New("bundle submission requested without a jito endpoint")
)

// TransportError wraps network and RPC failures. The caller may retry.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func transportErr(op string, err error) error {
	return &TransportError{Op: op, Err: err}
}

// IsRetryable reports whether err is a transport failure.
func IsRetryable(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// ProgramError is a custom error raised by an instruction.
type ProgramError struct {
	InstructionIndex int
	Code             uint32
	Name             string
}

func (e *ProgramError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("instruction %d failed with custom program error %d (%s)", e.InstructionIndex, e.Code, e.Name)
	}
	return fmt.Sprintf("instruction %d failed with custom program error %d", e.InstructionIndex, e.Code)
}

// SimulationError is a failed preflight. It is not retried: the program
// rejected the transaction against current state.
type SimulationError struct {
	Program *ProgramError
	Raw     string
	Logs    []string
}

func (e *SimulationError) Error() string {
	if e.Program != nil {
		return "simulation failed: " + e.Program.Error()
	}
	return "simulation failed: " + e.Raw
}

func (e *SimulationError) Unwrap() error {
	if e.Program == nil {
		return nil
	}
	return e.Program
}

// TransactionFailedError is a transaction that landed and failed on chain.
type TransactionFailedError struct {
	Signature solana.Signature
	Program   *ProgramError
	Raw       string
}

func (e *TransactionFailedError) Error() string {
	if e.Program != nil {
		return fmt.Sprintf("transaction %s failed: %s", e.Signature, e.Program.Error())
	}
	return fmt.Sprintf("transaction %s failed: %s", e.Signature, e.Raw)
}

func (e *TransactionFailedError) Unwrap() error {
	if e.Program == nil {
		return nil
	}
	return e.Program
}

// ErrorNamer resolves custom program error codes to names.
type ErrorNamer func(code uint32) string

// ParseTransactionError extracts the custom program error from a transaction
// error as returned in simulation results and signature statuses, e.g.
// {"InstructionError":[2,{"Custom":6005}]}. It returns nil for errors that
// are not custom program errors.
func ParseTransactionError(raw interface{}, namer ErrorNamer) *ProgramError {
	m, ok := raw.(map[string]interface{})
	if !ok {
		return nil
	}
	ie, ok := m["InstructionError"].([]interface{})
	if !ok || len(ie) != 2 {
		return nil
	}
	idx, ok := toInt(ie[0])
	if !ok {
		return nil
	}
	detail, ok := ie[1].(map[string]interface{})
	if !ok {
		return nil
	}
	code, ok := toInt(detail["Custom"])
	if !ok || code < 0 {
		return nil
	}

	pe := &ProgramError{InstructionIndex: idx, Code: uint32(code)}
	if namer != nil {
		pe.Name = namer(pe.Code)
	}
	return pe
}

func toInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		return int(i), err == nil
	case int:
		return n, true
	case int64:
		return int(n), true
	case uint64:
		return int(n), true
	default:
		return 0, false
	}
}

func rawErrorString(raw interface{}) string {
	if s, ok := raw.(string); ok {
		return s
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return fmt.Sprint(raw)
	}
	return string(b)
}

// AsProgramError returns the program error carried by err, if any.
func AsProgramError(err error) (*ProgramError, bool) {
	var pe *ProgramError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

func lastLogs(logs []string, n int) string {
	if len(logs) > n {
		logs = logs[len(logs)-n:]
	}
	return strings.Join(logs, "\n")
}
