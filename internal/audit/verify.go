package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
)

// VerifyResult reports a chain verification: the line count, a tally of
// event kinds seen, and the first broken link if any.
type VerifyResult struct {
	Valid     bool           `json:"valid"`
	Lines     int            `json:"lines"`
	Events    map[string]int `json:"events,omitempty"`
	Error     string         `json:"error,omitempty"`
	ErrorLine int            `json:"error_line,omitempty"`
}

func (r VerifyResult) broken(line int, msg string) VerifyResult {
	r.Valid = false
	r.Error = msg
	r.ErrorLine = line
	return r
}

// Verify walks a JSONL audit log and checks every prev_hash against the
// SHA-256 of the line before it. The first entry chains from the genesis
// hash; an empty log is valid.
func Verify(path string) VerifyResult {
	res := VerifyResult{Events: make(map[string]int)}

	f, err := os.Open(path)
	if err != nil {
		return res.broken(0, fmt.Sprintf("open: %v", err))
	}
	defer f.Close()

	prevHash := GenesisHash
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		res.Lines++
		// The scanner reuses its buffer; the line feeds the next hash.
		line := append([]byte(nil), scanner.Bytes()...)

		var entry Entry
		if err := json.Unmarshal(line, &entry); err != nil {
			return res.broken(res.Lines, fmt.Sprintf("entry is not valid JSON: %v", err))
		}
		if entry.PrevHash != prevHash {
			return res.broken(res.Lines,
				fmt.Sprintf("chain broken: prev_hash %s, want %s", entry.PrevHash, prevHash))
		}

		res.Events[string(entry.Event)]++
		prevHash = HashLine(line)
	}
	if err := scanner.Err(); err != nil {
		return res.broken(res.Lines, fmt.Sprintf("read: %v", err))
	}

	res.Valid = true
	return res
}
