package table

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// ErrUnparsable is matched by a LoadError once every strategy has failed
var ErrUnparsable = errors.New("no strategy could decode the content")

// Strategy decodes one tabular encoding
type Strategy interface {
	Name() string
	Decode(data []byte) (*Table, error)
}

// StrategyError is the typed failure of a single strategy
type StrategyError struct {
	Strategy string
	Err      error
}

func (e *StrategyError) Error() string {
	return fmt.Sprintf("%s: %v", e.Strategy, e.Err)
}

func (e *StrategyError) Unwrap() error { return e.Err }

// LoadError collects the failure of every strategy in the chain
type LoadError struct {
	Failures []*StrategyError
}

func (e *LoadError) Error() string {
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = f.Error()
	}
	return fmt.Sprintf("%v (%s)", ErrUnparsable, strings.Join(parts, "; "))
}

func (e *LoadError) Is(target error) bool { return target == ErrUnparsable }

// Loader tries its strategies in order and keeps the first table that decodes
type Loader struct {
	strategies []Strategy
	log        logrus.FieldLogger
}

// NewLoader returns a Loader over the given fallback chain. With no strategies the default
// chain is used: delimited text first, then an OOXML workbook, then a legacy BIFF workbook.
func NewLoader(log logrus.FieldLogger, strategies ...Strategy) *Loader {
	if len(strategies) == 0 {
		strategies = []Strategy{DelimitedStrategy{Comma: ','}, SpreadsheetStrategy{}, LegacySpreadsheetStrategy{}}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Loader{strategies: strategies, log: log}
}

// Load returns the table decoded by the first strategy that succeeds. When none does it
// returns nil and a *LoadError.
func (l *Loader) Load(data []byte) (*Table, error) {
	var failures []*StrategyError
	for _, s := range l.strategies {
		t, err := s.Decode(data)
		if err == nil {
			if len(failures) > 0 {
				l.log.Debugf("Decoded as %s after %d failed strategies", s.Name(), len(failures))
			}
			return t, nil
		}

		var se *StrategyError
		if !errors.As(err, &se) {
			se = &StrategyError{Strategy: s.Name(), Err: err}
		}
		l.log.WithField("strategy", s.Name()).Debugf("Strategy failed: %v", se.Err)
		failures = append(failures, se)
	}
	return nil, &LoadError{Failures: failures}
}
