package config

import (
	"encoding/json"
	"fmt"
	"strings"
)

type TranscriberEngine string

const (
	ENGINE_OPENAI TranscriberEngine = "openai"
)

func (e TranscriberEngine) String() string {
	switch e {
	case ENGINE_OPENAI:
		return "openai"
	default:
		return "Unknown"
	}
}

func ParseTranscriberEngine(engineStr string) (TranscriberEngine, error) {
	e := TranscriberEngine(strings.ToLower(engineStr))
	switch e {
	case ENGINE_OPENAI:
		return ENGINE_OPENAI, nil
	default:
		return "", fmt.Errorf("invalid transcriber engine: %s", engineStr)
	}
}

func (engine *TranscriberEngine) UnmarshalJSON(data []byte) error {
	var maybeEngine string
	err := json.Unmarshal(data, &maybeEngine)
	if err != nil {
		return err
	}
	e, err := ParseTranscriberEngine(maybeEngine)
	if err != nil {
		return fmt.Errorf("unknown transcriber engine: %s. supported engines are: %s", maybeEngine, ENGINE_OPENAI)
	}
	*engine = e
	return nil
}
