package storage

import (
	"fmt"
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var pathComponentPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]{0,127}$`)

const conversationsRoot = "conversations"

// TurnKeys addresses the two objects written for one archived turn.
type TurnKeys struct {
	Data     string
	Metadata string
}

func BuildTurnKeys(conversationID string, at time.Time) (TurnKeys, error) {
	prefix, err := ConversationPrefix(conversationID)
	if err != nil {
		return TurnKeys{}, err
	}
	base := path.Join(prefix, fmt.Sprintf("turn-%d", at.UTC().UnixNano()))
	return TurnKeys{Data: base + ".parquet", Metadata: base + ".json"}, nil
}

func ConversationPrefix(conversationID string) (string, error) {
	if err := validatePathComponent(conversationID, "conversation id"); err != nil {
		return "", err
	}
	return path.Join(conversationsRoot, conversationID) + "/", nil
}

// ParseTurnKey extracts the turn timestamp from a key produced by BuildTurnKeys.
func ParseTurnKey(key string) (time.Time, bool) {
	name := path.Base(key)
	if !strings.HasPrefix(name, "turn-") {
		return time.Time{}, false
	}
	name = strings.TrimPrefix(name, "turn-")
	name = strings.TrimSuffix(strings.TrimSuffix(name, ".parquet"), ".json")
	nanos, err := strconv.ParseInt(name, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.Unix(0, nanos).UTC(), true
}

func validatePathComponent(value, field string) error {
	if !pathComponentPattern.MatchString(value) {
		return fmt.Errorf("invalid %s: %q", field, value)
	}
	return nil
}
