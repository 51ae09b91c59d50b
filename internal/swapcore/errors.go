package swapcore

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

var (
	// ErrInsufficientBalance aborts a swap cycle before anything is submitted.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrTxReverted marks a mined transaction whose receipt status is 0.
	ErrTxReverted = errors.New("transaction reverted on-chain")
)

// CallError carries a short class for log lines plus the full RPC text,
// instead of truncating the provider's error string in place.
type CallError struct {
	Summary string
	Detail  string
}

func (e *CallError) Error() string {
	if e.Detail == "" {
		return e.Summary
	}
	return e.Summary + ": " + e.Detail
}

// WrapCallError classifies an RPC/simulation failure into a coarse summary.
func WrapCallError(err error) *CallError {
	if err == nil {
		return nil
	}
	detail := err.Error()
	s := strings.ToLower(detail)

	switch {
	case errors.Is(err, context.DeadlineExceeded) || strings.Contains(s, "context deadline exceeded") || strings.Contains(s, "client.timeout exceeded"):
		return &CallError{Summary: "rpc_timeout", Detail: detail}
	case strings.Contains(s, "too many requests") || strings.Contains(s, "-32005"):
		return &CallError{Summary: "rpc_rate_limited", Detail: detail}
	case strings.Contains(s, "execution reverted"):
		return &CallError{Summary: "revert: " + revertReason(s), Detail: detail}
	case strings.Contains(s, "invalid opcode") || strings.Contains(s, "0xfe"):
		return &CallError{Summary: "vm_invalid", Detail: detail}
	case strings.Contains(s, "connection reset") || strings.Contains(s, "broken pipe") || strings.Contains(s, "eof"):
		return &CallError{Summary: "rpc_unavailable", Detail: detail}
	}

	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return &CallError{Summary: "rpc_timeout", Detail: detail}
	}
	return &CallError{Summary: "rpc_error", Detail: detail}
}

// revertReason pulls the short reason out of "execution reverted: <reason>".
func revertReason(lower string) string {
	const p = "execution reverted"
	i := strings.Index(lower, p)
	if i < 0 {
		return "execution reverted"
	}
	rest := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(lower[i+len(p):]), ":"))
	if rest == "" {
		return "execution reverted"
	}
	return rest
}

// stepError annotates a failure with the sequencer state it occurred in.
func stepError(state State, err error) error {
	return fmt.Errorf("%s: %w", state, err)
}
