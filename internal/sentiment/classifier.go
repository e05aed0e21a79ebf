// Package sentiment classifies a creator's spoken commentary into a market
// stance and the contrarian instrument to trade against it.
package sentiment

import "context"

// Item is one content item to classify.
type Item struct {
	ID         string
	Title      string
	Published  string
	URL        string
	Transcript string
}

// Analysis is the structured result of classifying one item. Target is nil
// for NEUTRAL stances.
type Analysis struct {
	Sentiment string  // "UP", "DOWN" or "NEUTRAL"
	Reasoning string  // short summary of the creator's key statements
	Target    *Target // resolved by the classifier, not by the engine
	Summary   string  // human-readable notification text
	Skip      bool    // true when the item carries no first-person market opinion
}

type Target struct {
	Code string
	Name string
}

// Classifier turns a transcript into a trading analysis. Implementations
// are opaque to the decision engine.
type Classifier interface {
	Classify(ctx context.Context, item Item) (*Analysis, error)
}
