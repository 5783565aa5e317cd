package journal

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/Ramcharan10122005/self-healing/healmon"
	"github.com/diamondburned/backwardio"
	"github.com/pkg/errors"
)

// Reader reads journals written by Writer backwards, newest event first.
type Reader struct {
	b *backwardio.Scanner
}

var _ healmon.JournalReader = (*Reader)(nil)

// NewReader creates a new backward journal reader.
func NewReader(r io.ReadSeeker) *Reader {
	return &Reader{backwardio.NewScanner(r)}
}

// Read reads a single entry, starting from the end of the file. An EOF error
// is returned once the file has been fully consumed.
func (r *Reader) Read() (healmon.Event, time.Time, error) {
	var line []byte
	var err error

	for {
		line, err = r.b.ReadUntil('\n')
		if err != nil {
			return nil, time.Time{}, err
		}
		if len(line) > 0 {
			break
		}
	}

	var rawEvent struct {
		Time time.Time       `json:"time"`
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}

	if err := json.Unmarshal(line, &rawEvent); err != nil {
		return nil, time.Time{}, errors.Wrap(err, "failed to decode JSON")
	}

	event := healmon.NewEvent(rawEvent.Type)
	if event == nil {
		return nil, time.Time{}, fmt.Errorf("unknown event %q", rawEvent.Type)
	}

	if err := json.Unmarshal(rawEvent.Data, event); err != nil {
		return nil, time.Time{}, errors.Wrap(err, "failed to decode event data")
	}

	return event, rawEvent.Time, nil
}

// ReadPreviousStateFromFile recovers the previous supervisor state from the
// journal at the given path. A missing journal yields an empty state.
func ReadPreviousStateFromFile(path string) (map[string]healmon.PreviousProcess, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]healmon.PreviousProcess{}, nil
		}
		return nil, err
	}
	defer f.Close()

	return healmon.ReadPreviousState(NewReader(f))
}
