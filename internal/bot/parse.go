package bot

import (
	"fmt"
	"strconv"
	"strings"

	"vidcorpus/internal/model"
)

// defaultPendingLimit is the number of episodes /pending lists by default.
const defaultPendingLimit = 5

// ParsePendingArgs parses "/pending [stage] [limit]". The stage defaults to
// transcript.
func ParsePendingArgs(args string) (model.Stage, int, error) {
	stage := model.StageTranscript
	limit := defaultPendingLimit

	for _, part := range strings.Fields(args) {
		if n, err := strconv.Atoi(part); err == nil {
			if n < 1 || n > 50 {
				return "", 0, fmt.Errorf("limit must be between 1 and 50")
			}
			limit = n
			continue
		}
		s, err := ParseStage(part)
		if err != nil {
			return "", 0, err
		}
		stage = s
	}
	return stage, limit, nil
}

// ParseStage maps a stage name to a model.Stage.
func ParseStage(s string) (model.Stage, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for _, st := range model.Stages {
		if string(st) == name {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown stage %q, use: metadata, transcript, participants, summary", s)
}

// Callback is a parsed inline keyboard payload of the form "kind:id:action".
type Callback struct {
	Kind   string
	ID     int64
	Action string
}

func (c Callback) String() string {
	return fmt.Sprintf("%s:%d:%s", c.Kind, c.ID, c.Action)
}

// ParseCallback parses inline keyboard callback data.
func ParseCallback(data string) (Callback, error) {
	parts := strings.SplitN(data, ":", 3)
	if len(parts) != 3 || parts[0] == "" || parts[2] == "" {
		return Callback{}, fmt.Errorf("malformed callback %q", data)
	}
	id, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return Callback{}, fmt.Errorf("invalid callback ID %q", parts[1])
	}
	return Callback{Kind: parts[0], ID: id, Action: parts[2]}, nil
}
