// Package intent defines the closed set of chat intents the assistant acts on
// and the Classifier contract that maps free text to one of them.
//
// Classifiers report raw string labels; Parse folds anything outside the
// known set into Unknown so that dispatch always has an explicit fallback arm.
package intent

import (
	"context"
	"strings"
)

// Intent is a classified purpose of a user message.
type Intent string

const (
	Recommend  Intent = "recommend"
	Refine     Intent = "refine"
	AddToCart  Intent = "add_to_cart"
	ConfirmYes Intent = "confirm_yes"
	ConfirmNo  Intent = "confirm_no"
	Greeting   Intent = "greeting"
	Goodbye    Intent = "goodbye"
	// Unknown stands for every label outside the set above.
	Unknown Intent = "unknown"
)

// Labels lists the known intents in score-vector order.
var Labels = []Intent{Recommend, Refine, AddToCart, ConfirmYes, ConfirmNo, Greeting, Goodbye}

// Parse maps a classifier label to an Intent. Matching ignores case and
// surrounding spaces; unrecognised labels become Unknown.
func Parse(label string) Intent {
	l := Intent(strings.ToLower(strings.TrimSpace(label)))
	for _, k := range Labels {
		if l == k {
			return k
		}
	}
	return Unknown
}

func (i Intent) String() string { return string(i) }

// Prediction is a classifier's answer for one text.
type Prediction struct {
	Label      string    `json:"label"`
	Confidence float64   `json:"confidence"`
	Scores     []float64 `json:"scores,omitempty"`
}

// Intent parses the predicted label.
func (p Prediction) Intent() Intent { return Parse(p.Label) }

// Classifier labels free text.
type Classifier interface {
	Classify(ctx context.Context, text string) (Prediction, error)
}

// ClassifierFunc adapts a function to the Classifier interface.
type ClassifierFunc func(ctx context.Context, text string) (Prediction, error)

// Classify calls f.
func (f ClassifierFunc) Classify(ctx context.Context, text string) (Prediction, error) {
	return f(ctx, text)
}

func clamp01(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}
