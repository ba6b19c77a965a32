package game

import (
	_ "embed"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/teslashibe/lookgame/pkg/direction"
)

//go:embed script.yaml
var defaultScriptYAML []byte

// ErrEmptyScript is returned when a script is missing a required line.
var ErrEmptyScript = errors.New("game: script is missing lines")

// Script holds what the robot says in each phase.
type Script struct {
	Welcome     string   `yaml:"welcome"`
	Instruction string   `yaml:"instruction"`
	NotMatching []string `yaml:"not_matching"`
	Matching    []string `yaml:"matching"`

	mu  sync.Mutex
	rng *rand.Rand
}

// DefaultScript returns the embedded script.
func DefaultScript() *Script {
	s, err := ParseScript(defaultScriptYAML)
	if err != nil {
		panic(fmt.Sprintf("game: embedded script: %v", err))
	}
	return s
}

// ParseScript decodes and validates a YAML script.
func ParseScript(data []byte) (*Script, error) {
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse script: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// LoadScript loads the game script.
// Search order: customPath -> ~/.lookgame/script.yaml -> ./configs/script.yaml -> embedded default
func LoadScript(customPath string) (*Script, error) {
	if customPath != "" {
		data, err := os.ReadFile(customPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read script %s: %w", customPath, err)
		}
		s, err := ParseScript(data)
		if err != nil {
			return nil, fmt.Errorf("script %s: %w", customPath, err)
		}
		return s, nil
	}

	if home, err := os.UserHomeDir(); err == nil {
		if data, err := os.ReadFile(filepath.Join(home, ".lookgame", "script.yaml")); err == nil {
			if s, err := ParseScript(data); err == nil {
				return s, nil
			}
		}
	}

	if data, err := os.ReadFile(filepath.Join("configs", "script.yaml")); err == nil {
		if s, err := ParseScript(data); err == nil {
			return s, nil
		}
	}

	return DefaultScript(), nil
}

// Validate checks that every phase has something to say.
func (s *Script) Validate() error {
	switch {
	case strings.TrimSpace(s.Welcome) == "":
		return fmt.Errorf("%w: welcome", ErrEmptyScript)
	case strings.TrimSpace(s.Instruction) == "":
		return fmt.Errorf("%w: instruction", ErrEmptyScript)
	case len(s.NotMatching) == 0:
		return fmt.Errorf("%w: not_matching", ErrEmptyScript)
	case len(s.Matching) == 0:
		return fmt.Errorf("%w: matching", ErrEmptyScript)
	}
	return nil
}

// Line returns what to say on entering p, or "" for silent phases.
func (s *Script) Line(p Phase) string {
	switch p := p.(type) {
	case Intro:
		return s.Welcome
	case Instructions:
		return fill(s.Instruction, p.Expected, direction.Unknown)
	case NotMatching:
		// 1st, 2nd, 3rd mistake pick lines 0, 1, 2, then the cycle repeats.
		i := (max(p.Errors, 1) - 1) % len(s.NotMatching)
		return fill(s.NotMatching[i], p.Expected, p.Observed)
	case Matching:
		return s.pick(s.Matching)
	default:
		return ""
	}
}

func (s *Script) pick(lines []string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rng == nil {
		s.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return lines[s.rng.IntN(len(lines))]
}

func fill(tmpl string, expected, observed direction.Direction) string {
	return strings.NewReplacer(
		"{expected}", expected.Words(),
		"{observed}", observed.Words(),
	).Replace(tmpl)
}
