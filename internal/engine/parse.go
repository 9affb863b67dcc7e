package engine

import (
	"encoding/json"
	"fmt"

	"github.com/shaiso/Treework/internal/domain"
)

// ParseSpec парсит GraphSpec из JSON и валидирует её.
func ParseSpec(data []byte) (*domain.GraphSpec, error) {
	var spec domain.GraphSpec
	if err := json.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("parse graph spec: %w", err)
	}

	if err := Validate(&spec); err != nil {
		return nil, err
	}

	return &spec, nil
}
