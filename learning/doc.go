// Package learning keeps the adaptive state agents use to bias query patterns.
//
// Weight computation and sampling are split: ComputeWeights turns statistics
// into weights and Select turns weights plus a random value into a choice.
// Both are pure so selection behavior can be tested without randomness.
package learning
