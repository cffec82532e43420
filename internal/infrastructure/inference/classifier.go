package inference

import (
	"context"
	"fmt"

	"fallwatch/internal/core/domain"
	"fallwatch/internal/core/ports"

	"go.uber.org/zap"
)

// OutputMode tags how the model's output tensor maps to a probability.
// Resolved once at configuration time, never re-detected per call.
type OutputMode int

const (
	// OutputScalar means the model emits a single-element tensor used directly.
	OutputScalar OutputMode = iota
	// OutputVector means the model emits class logits; the positive-class
	// slot is read at a fixed index.
	OutputVector
)

// Classifier wraps the model runtime and derives a bounded fall probability.
type Classifier struct {
	model  ports.Model
	mode   OutputMode
	index  int
	logger *zap.SugaredLogger
}

func NewClassifier(model ports.Model, mode OutputMode, positiveIndex int, logger *zap.SugaredLogger) *Classifier {
	return &Classifier{
		model:  model,
		mode:   mode,
		index:  positiveIndex,
		logger: logger,
	}
}

// Score runs one inference and returns a probability clamped into [0,1].
// Out-of-range model output is a calibration quirk, not a frame error: it is
// logged at warn level and clamped.
func (c *Classifier) Score(ctx context.Context, frame *Frame) (float64, error) {
	output, err := c.model.Infer(ctx, frame.Pixels)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrInference, err)
	}
	if len(output) == 0 {
		return 0, fmt.Errorf("%w: empty output tensor", domain.ErrInference)
	}

	var score float64
	switch c.mode {
	case OutputScalar:
		score = output[0]
	case OutputVector:
		if c.index >= len(output) {
			return 0, fmt.Errorf("%w: positive class index %d out of range for %d outputs",
				domain.ErrInference, c.index, len(output))
		}
		score = output[c.index]
	}

	if score < 0.0 || score > 1.0 {
		c.logger.Warnw("model output outside [0,1], clamping",
			"score", score,
		)
		score = clamp(score)
	}
	return score, nil
}

func clamp(v float64) float64 {
	if v < 0.0 {
		return 0.0
	}
	if v > 1.0 {
		return 1.0
	}
	return v
}
